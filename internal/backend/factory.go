package backend

import (
	"context"
	"fmt"
)

// Type identifies which concrete Backend a config.Backend section names.
type Type string

const (
	TypeFilesystem Type = "filesystem"
	TypeS3         Type = "s3"
	TypeMemory     Type = "memory"
)

// Config carries the fields needed to construct any of the concrete
// backends; only the fields relevant to Type need be set.
type Config struct {
	Type Type

	// filesystem
	Root string

	// s3
	Bucket  string
	Region  string
	Profile string
}

// New constructs the Backend named by cfg.Type.
func New(ctx context.Context, cfg Config) (Backend, error) {
	switch cfg.Type {
	case TypeFilesystem:
		if cfg.Root == "" {
			return nil, fmt.Errorf("backend: filesystem backend requires root to be set")
		}
		return NewFileSystemBackend(cfg.Root)
	case TypeS3:
		if cfg.Bucket == "" {
			return nil, fmt.Errorf("backend: s3 backend requires bucket to be set")
		}
		return NewS3Backend(ctx, cfg.Bucket, cfg.Region, cfg.Profile)
	case TypeMemory:
		return NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("backend: unknown backend type %q", cfg.Type)
	}
}
