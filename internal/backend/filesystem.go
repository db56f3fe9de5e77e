package backend

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FileSystemBackend stores repository objects as files under a root
// directory, using key paths directly as relative file paths.
type FileSystemBackend struct {
	root string
}

// NewFileSystemBackend returns a backend rooted at root, creating it if it
// does not already exist. $VAR/${VAR} references and a leading "~" in root
// are expanded first.
func NewFileSystemBackend(root string) (*FileSystemBackend, error) {
	root = os.ExpandEnv(root)
	if root == "~" || strings.HasPrefix(root, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("backend: expand root %s: %w", root, err)
		}
		root = filepath.Join(home, root[1:])
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("backend: create root %s: %w", root, err)
	}
	return &FileSystemBackend{root: root}, nil
}

func (b *FileSystemBackend) path(key string) string {
	return filepath.Join(b.root, filepath.FromSlash(key))
}

func (b *FileSystemBackend) Exists(_ context.Context, key string) (bool, error) {
	_, err := os.Stat(b.path(key))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("backend: stat %s: %w", key, err)
}

func (b *FileSystemBackend) Read(_ context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(b.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotExist, key)
		}
		return nil, fmt.Errorf("backend: open %s: %w", key, err)
	}
	return f, nil
}

// Write stores data at key using write-temp-then-rename, so a concurrent
// reader never observes a partially written object. The temp file is
// created alongside the destination to keep the rename on the same
// filesystem.
func (b *FileSystemBackend) Write(_ context.Context, key string, r io.Reader, size int64) error {
	destPath := b.path(key)
	dir := filepath.Dir(destPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("backend: create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("backend: create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return fmt.Errorf("backend: write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("backend: close temp file: %w", err)
	}
	if size >= 0 && written != size {
		return fmt.Errorf("backend: size mismatch for %s: expected %d bytes, wrote %d", key, size, written)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("backend: rename into place for %s: %w", key, err)
	}
	success = true
	return nil
}

// List reads prefix as a directory and returns the bare names of its
// immediate entries (files and subdirectories), matching a plain
// directory read: no recursion, no path prefix on the returned names.
func (b *FileSystemBackend) List(_ context.Context, prefix string) ([]string, error) {
	entries, err := os.ReadDir(b.path(prefix))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotExist, prefix)
		}
		return nil, fmt.Errorf("backend: list %s: %w", prefix, err)
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	return names, nil
}
