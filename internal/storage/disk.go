package storage

import (
	"errors"
	"fmt"

	"github.com/shirou/gopsutil/v3/disk"
)

var ErrInsufficientSpace = errors.New("insufficient free disk space")

// FreeBytes reports the space available to unprivileged writers at dir.
func FreeBytes(dir string) (uint64, error) {
	usage, err := disk.Usage(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read disk usage for %s: %w", dir, err)
	}
	return usage.Free, nil
}

// EnsureFree fails with ErrInsufficientSpace when fewer than need+reserve
// bytes are free at dir. A zero need skips the size part of the check and an
// empty dir skips the check entirely.
func EnsureFree(dir string, need int64, reserve uint64) error {
	if dir == "" {
		return nil
	}
	free, err := FreeBytes(dir)
	if err != nil {
		return err
	}
	required := reserve
	if need > 0 {
		required += uint64(need)
	}
	if free < required {
		return fmt.Errorf("%w: %d bytes free, %d required", ErrInsufficientSpace, free, required)
	}
	return nil
}
