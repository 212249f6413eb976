// Package storage defines the Backend interface used to persist resolution manifests
// and a factory that picks the backend from configuration.
package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/nahucai95/GoFile-Direct-Link/internal/config"
	"github.com/nahucai95/GoFile-Direct-Link/internal/storage/local"
	s3backend "github.com/nahucai95/GoFile-Direct-Link/internal/storage/s3"
)

// Backend stores opaque objects by key.
type Backend interface {
	// PutObject uploads content to the given key, replacing any previous object.
	PutObject(ctx context.Context, key string, body io.Reader, size int64) error

	// GetObject opens the object stored at key.
	GetObject(ctx context.Context, key string) (io.ReadCloser, error)

	// Type returns the backend type identifier ("local", "s3").
	Type() string

	// Close releases any resources held by the backend.
	Close() error
}

// NewBackend creates the manifest backend selected by cfg.ManifestBackend.
func NewBackend(ctx context.Context, cfg *config.Config) (Backend, error) {
	switch cfg.ManifestBackend {
	case "", "local":
		return local.New(local.Config{RootPath: cfg.ManifestLocalPath, CreateDirs: true})
	case "s3":
		return s3backend.New(ctx, s3backend.Config{
			Endpoint:  cfg.S3Endpoint,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Region:    cfg.S3Region,
		})
	default:
		return nil, fmt.Errorf("unknown backend type: %s", cfg.ManifestBackend)
	}
}
