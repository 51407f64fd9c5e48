// Package storage persists uploaded files on the local disk or a remote
// SFTP/FTP server and hands back the public URL clients use to fetch them.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/n1kh11p/blokt-sub000/internal/config"
)

var (
	ErrInvalidKey     = errors.New("invalid storage key")
	ErrObjectNotFound = errors.New("stored object not found")
)

// Backend stores opaque objects addressed by slash-separated keys.
type Backend interface {
	Name() string
	Save(ctx context.Context, key string, r io.Reader) (int64, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
	// SpoolDir is the local directory whose free space bounds incoming uploads.
	// Remote backends stream uploads straight through and return "".
	SpoolDir() string
}

// New builds the backend selected by STORAGE_BACKEND.
func New(cfg *config.Config) (Backend, error) {
	switch cfg.StorageBackend {
	case "sftp":
		return NewSFTP(SFTPConfig{
			Host:       cfg.StorageHost,
			Port:       cfg.StoragePort,
			Username:   cfg.StorageUser,
			Password:   cfg.StoragePassword,
			KeyFile:    cfg.StorageKeyFile,
			KnownHosts: cfg.StorageKnownHosts,
			RemoteDir:  cfg.StorageRemoteDir,
			PublicURL:  cfg.StoragePublicURL,
			Timeout:    30 * time.Second,
		})
	case "ftp":
		return NewFTP(FTPConfig{
			Host:      cfg.StorageHost,
			Port:      cfg.StoragePort,
			Username:  cfg.StorageUser,
			Password:  cfg.StoragePassword,
			RemoteDir: cfg.StorageRemoteDir,
			PublicURL: cfg.StoragePublicURL,
			Timeout:   30 * time.Second,
		})
	case "local", "":
		return NewLocal(cfg.StorageLocalDir, cfg.StoragePublicURL)
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.StorageBackend)
	}
}

// NewKey builds a collision-free key under prefix/orgID, keeping the
// original file extension.
func NewKey(prefix string, orgID uuid.UUID, fileName string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(fileName)))
	if len(ext) > 10 || strings.ContainsAny(ext, `/\ `) {
		ext = ""
	}
	return path.Join(prefix, orgID.String(), uuid.NewString()+ext)
}

// cleanKey rejects keys that would escape the storage root.
func cleanKey(key string) (string, error) {
	if key == "" || strings.Contains(key, "\\") {
		return "", ErrInvalidKey
	}
	cleaned := path.Clean("/" + key)[1:]
	if cleaned == "" || cleaned != strings.TrimPrefix(key, "/") {
		return "", ErrInvalidKey
	}
	for _, part := range strings.Split(cleaned, "/") {
		if part == ".." {
			return "", ErrInvalidKey
		}
	}
	return cleaned, nil
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}
