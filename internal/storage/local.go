package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Local writes objects below a root directory served at publicURL.
type Local struct {
	root      string
	publicURL string
}

func NewLocal(root, publicURL string) (*Local, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir: %w", err)
	}
	return &Local{root: abs, publicURL: publicURL}, nil
}

func (l *Local) Name() string     { return "local" }
func (l *Local) SpoolDir() string { return l.root }
func (l *Local) Root() string     { return l.root }

// Save writes to a temp file first and renames it into place so readers
// never observe a partial object.
func (l *Local) Save(ctx context.Context, key string, r io.Reader) (int64, error) {
	key, err := cleanKey(key)
	if err != nil {
		return 0, err
	}
	dest := filepath.Join(l.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".upload-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, contextReader{ctx: ctx, r: r})
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return n, fmt.Errorf("failed to write object: %w", err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return n, fmt.Errorf("failed to move object into place: %w", err)
	}
	return n, nil
}

func (l *Local) Delete(_ context.Context, key string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(l.root, filepath.FromSlash(key))); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrObjectNotFound
		}
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

func (l *Local) URL(key string) string {
	return joinURL(l.publicURL, key)
}

// contextReader stops a long copy once the request is cancelled.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
