// Package storage persists uploaded files. Two backends exist: Local writes
// under a media root served by the API itself, S3 writes to an S3-compatible
// bucket (AWS or MinIO). Both address objects by slash-separated keys such as
// "uploads/recipe/<uuid>.png".
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// ErrInvalidKey is returned for empty, absolute or escaping keys.
var ErrInvalidKey = errors.New("storage: invalid key")

// Backend is implemented by every storage backend.
type Backend interface {
	// Save writes r under key, replacing any existing object.
	Save(ctx context.Context, key string, r io.Reader, contentType string) error

	// Delete removes key. Deleting a missing object is not an error.
	Delete(ctx context.Context, key string) error

	// URL returns the public URL clients use to fetch key.
	URL(key string) string
}

// cleanKey validates key and returns it in canonical form.
func cleanKey(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, `\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return cleaned, nil
}

// joinURL appends key to base with exactly one slash between them.
func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}
