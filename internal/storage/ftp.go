package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/textproto"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"
)

type FTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	RemoteDir string
	PublicURL string
	Timeout   time.Duration
}

// FTP stores objects on a plain FTP server.
type FTP struct {
	config FTPConfig
}

func NewFTP(cfg FTPConfig) (*FTP, error) {
	if cfg.Host == "" {
		return nil, errors.New("ftp storage requires STORAGE_HOST")
	}
	if cfg.Port == 0 {
		cfg.Port = 21
	}
	if cfg.Username == "" {
		cfg.Username = "anonymous"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &FTP{config: cfg}, nil
}

func (f *FTP) Name() string     { return "ftp" }
func (f *FTP) SpoolDir() string { return "" }

func (f *FTP) connect(ctx context.Context) (*ftp.ServerConn, error) {
	addr := net.JoinHostPort(f.config.Host, strconv.Itoa(f.config.Port))
	conn, err := ftp.Dial(addr, ftp.DialWithTimeout(f.config.Timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ftp server: %w", err)
	}
	if err := conn.Login(f.config.Username, f.config.Password); err != nil {
		_ = conn.Quit()
		return nil, fmt.Errorf("ftp login failed: %w", err)
	}
	return conn, nil
}

// makeDirs creates each missing path segment; servers disagree on whether
// MakeDir of an existing directory is an error, so failures are ignored and
// the following Stor surfaces real problems.
func makeDirs(conn *ftp.ServerConn, dir string) {
	current := ""
	for _, part := range strings.Split(strings.Trim(dir, "/"), "/") {
		if part == "" {
			continue
		}
		current += "/" + part
		_ = conn.MakeDir(current)
	}
}

func (f *FTP) Save(ctx context.Context, key string, r io.Reader) (int64, error) {
	key, err := cleanKey(key)
	if err != nil {
		return 0, err
	}
	conn, err := f.connect(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Quit()

	remotePath := path.Join(f.config.RemoteDir, key)
	makeDirs(conn, path.Dir(remotePath))

	counter := &countingReader{r: contextReader{ctx: ctx, r: r}}
	tmpPath := remotePath + ".part"
	if err := conn.Stor(tmpPath, counter); err != nil {
		_ = conn.Delete(tmpPath)
		return counter.n, fmt.Errorf("failed to upload object: %w", err)
	}
	if err := conn.Rename(tmpPath, remotePath); err != nil {
		_ = conn.Delete(tmpPath)
		return counter.n, fmt.Errorf("failed to finalize upload: %w", err)
	}
	return counter.n, nil
}

func (f *FTP) Delete(ctx context.Context, key string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	conn, err := f.connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Quit()

	if err := conn.Delete(path.Join(f.config.RemoteDir, key)); err != nil {
		var protoErr *textproto.Error
		if errors.As(err, &protoErr) && protoErr.Code == ftp.StatusFileUnavailable {
			return ErrObjectNotFound
		}
		return fmt.Errorf("failed to delete remote object: %w", err)
	}
	return nil
}

func (f *FTP) URL(key string) string {
	return joinURL(f.config.PublicURL, key)
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
