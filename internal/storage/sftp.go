package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"os"
	"path"
	"strconv"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

type SFTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	KeyFile  string
	// KnownHosts is an OpenSSH known_hosts file; the server key must match it
	KnownHosts string
	RemoteDir  string
	PublicURL  string
	Timeout    time.Duration
}

// SFTP stores objects on a remote host over SSH. A connection is opened per
// operation; uploads are rare and large so pooling buys little.
type SFTP struct {
	config  SFTPConfig
	auth    []ssh.AuthMethod
	hostKey ssh.HostKeyCallback
}

func NewSFTP(cfg SFTPConfig) (*SFTP, error) {
	if cfg.Host == "" {
		return nil, errors.New("sftp storage requires STORAGE_HOST")
	}
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	var auth []ssh.AuthMethod
	if cfg.KeyFile != "" {
		key, err := os.ReadFile(cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read sftp key file: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("failed to parse sftp key: %w", err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if cfg.Password != "" {
		auth = append(auth, ssh.Password(cfg.Password))
	}
	if len(auth) == 0 {
		return nil, errors.New("sftp storage requires STORAGE_PASSWORD or STORAGE_KEY_FILE")
	}
	if cfg.KnownHosts == "" {
		return nil, errors.New("sftp storage requires STORAGE_KNOWN_HOSTS")
	}
	hostKey, err := knownhosts.New(cfg.KnownHosts)
	if err != nil {
		return nil, fmt.Errorf("failed to read sftp known_hosts: %w", err)
	}
	return &SFTP{config: cfg, auth: auth, hostKey: hostKey}, nil
}

func (s *SFTP) Name() string     { return "sftp" }
func (s *SFTP) SpoolDir() string { return "" }

func (s *SFTP) connect(ctx context.Context) (*sftp.Client, *ssh.Client, error) {
	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
	sshConfig := &ssh.ClientConfig{
		User:            s.config.Username,
		Auth:            s.auth,
		HostKeyCallback: s.hostKey,
		Timeout:         s.config.Timeout,
	}

	dialer := net.Dialer{Timeout: s.config.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to dial sftp host: %w", err)
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, addr, sshConfig)
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("ssh handshake failed: %w", err)
	}
	sshClient := ssh.NewClient(c, chans, reqs)

	client, err := sftp.NewClient(sshClient)
	if err != nil {
		_ = sshClient.Close()
		return nil, nil, fmt.Errorf("failed to start sftp session: %w", err)
	}
	return client, sshClient, nil
}

func (s *SFTP) Save(ctx context.Context, key string, r io.Reader) (int64, error) {
	key, err := cleanKey(key)
	if err != nil {
		return 0, err
	}
	client, sshClient, err := s.connect(ctx)
	if err != nil {
		return 0, err
	}
	defer sshClient.Close()
	defer client.Close()

	remotePath := path.Join(s.config.RemoteDir, key)
	if err := client.MkdirAll(path.Dir(remotePath)); err != nil {
		return 0, fmt.Errorf("failed to create remote directory: %w", err)
	}

	tmpPath := remotePath + ".part"
	f, err := client.Create(tmpPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create remote file: %w", err)
	}
	n, err := io.Copy(f, contextReader{ctx: ctx, r: r})
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = client.Remove(tmpPath)
		return n, fmt.Errorf("failed to upload object: %w", err)
	}
	if err := client.PosixRename(tmpPath, remotePath); err != nil {
		_ = client.Remove(tmpPath)
		return n, fmt.Errorf("failed to finalize upload: %w", err)
	}
	return n, nil
}

func (s *SFTP) Delete(ctx context.Context, key string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	client, sshClient, err := s.connect(ctx)
	if err != nil {
		return err
	}
	defer sshClient.Close()
	defer client.Close()

	if err := client.Remove(path.Join(s.config.RemoteDir, key)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrObjectNotFound
		}
		return fmt.Errorf("failed to delete remote object: %w", err)
	}
	return nil
}

func (s *SFTP) URL(key string) string {
	return joinURL(s.config.PublicURL, key)
}
