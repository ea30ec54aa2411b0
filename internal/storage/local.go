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

// Local stores objects as files under Root. BaseURL is the public prefix the
// HTTP layer serves Root at, e.g. "/media/".
type Local struct {
	Root    string
	BaseURL string
}

// NewLocal creates root if needed and returns a Local backend.
func NewLocal(root, baseURL string) (*Local, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("storage.NewLocal: %w", err)
	}
	return &Local{Root: root, BaseURL: baseURL}, nil
}

// Save writes to a temporary file in the target directory and renames it into
// place, so readers never observe a partially written object.
func (l *Local) Save(ctx context.Context, key string, r io.Reader, _ string) error {
	dst, err := l.path(key)
	if err != nil {
		return fmt.Errorf("storage.Local.Save: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("storage.Local.Save: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("storage.Local.Save: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return fmt.Errorf("storage.Local.Save: create temp: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("storage.Local.Save: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage.Local.Save: close: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("storage.Local.Save: chmod: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("storage.Local.Save: rename: %w", err)
	}
	return nil
}

func (l *Local) Delete(_ context.Context, key string) error {
	p, err := l.path(key)
	if err != nil {
		return fmt.Errorf("storage.Local.Delete: %w", err)
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage.Local.Delete: %w", err)
	}
	return nil
}

func (l *Local) URL(key string) string {
	return joinURL(l.BaseURL, key)
}

func (l *Local) path(key string) (string, error) {
	cleaned, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(l.Root, filepath.FromSlash(cleaned)), nil
}
