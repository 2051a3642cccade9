// Package store defines the key/value blob contract that all pool state is persisted through,
// and the backends that implement it.
package store

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
)

var (
	// ErrNotFound is returned by Get when a key has no value
	ErrNotFound = errors.New("store: key not found")
	// ErrInvalidKey is returned for keys that are empty, absolute or escape the keyspace
	ErrInvalidKey = errors.New("store: invalid key")
)

// Store is a key/value blob store with prefix listing.
// Keys are slash-separated relative paths such as "racedays/2024-06-01.json".
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, blob []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]string, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// ValidateKey checks that a key is a clean relative path
func ValidateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	if path.Clean(key) != key {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." || part == "." {
			return fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return nil
}

// IsNotFound reports whether err means the key was absent
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
