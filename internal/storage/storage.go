// Package storage keeps uploaded videos in a flat directory under
// generated names.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// DefaultExtension is used when an upload has no file extension.
const DefaultExtension = "mp4"

var (
	ErrNotFound    = errors.New("file not found")
	ErrInvalidName = errors.New("invalid file name")
)

// Uploads stores files in a single directory.
type Uploads struct {
	dir string
}

// NewUploads creates dir if needed.
func NewUploads(dir string) (*Uploads, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("upload directory is required")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &Uploads{dir: dir}, nil
}

func (u *Uploads) Dir() string {
	return u.dir
}

// UniqueName returns "<uuid>.<ext>" keeping the extension of original.
func UniqueName(original string) string {
	ext := strings.TrimPrefix(filepath.Ext(filepath.Base(original)), ".")
	if ext == "" {
		ext = DefaultExtension
	}
	return uuid.NewString() + "." + strings.ToLower(ext)
}

// Save copies r into a new file named after original's extension and
// returns the stored name and its full path.
func (u *Uploads) Save(original string, r io.Reader) (string, string, error) {
	name := UniqueName(original)
	path := filepath.Join(u.dir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", "", fmt.Errorf("failed to create upload: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", "", fmt.Errorf("failed to write upload: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", "", fmt.Errorf("failed to write upload: %w", err)
	}
	return name, path, nil
}

// Resolve maps a stored name to its path. Names must be a single path
// element; anything that could escape the directory is rejected.
func (u *Uploads) Resolve(name string) (string, error) {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || name != filepath.Base(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	path := filepath.Join(u.dir, name)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return path, nil
}

// Remove deletes a stored file.
func (u *Uploads) Remove(name string) error {
	path, err := u.Resolve(name)
	if err != nil {
		return err
	}
	return os.Remove(path)
}
