// Package backend abstracts over the storage systems a repository can live
// on: local filesystem, S3, or an in-memory double for tests. Every backend
// exposes the same narrow capability set — list, read, write, exists — over
// keys that are repository-relative paths ("artifacts.sane",
// "demo/1.0.0/artifact.sane", "demo/1.0.0/hello").
package backend

import (
	"context"
	"errors"
	"io"
)

// ErrNotExist is returned by Read and List when a key or prefix has no
// corresponding object.
var ErrNotExist = errors.New("backend: object does not exist")

// Backend is the storage abstraction every repository operation is built
// on. Implementations must make Write atomic: a reader racing a writer must
// see either the previous complete contents of key or the new complete
// contents, never a partial write.
type Backend interface {
	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// Read opens key for reading. The caller must Close the returned
	// reader. Returns ErrNotExist if key is absent.
	Read(ctx context.Context, key string) (io.ReadCloser, error)

	// Write stores size bytes read from r under key, replacing any existing
	// object at that key atomically from a reader's point of view.
	Write(ctx context.Context, key string, r io.Reader, size int64) error

	// List returns the immediate children of prefix — directory and blob
	// names one level below it, not full keys — in no particular order.
	// Returns ErrNotExist if prefix does not exist; on the memory and S3
	// backends a prefix exists only while some key lies under it.
	List(ctx context.Context, prefix string) ([]string, error)
}
