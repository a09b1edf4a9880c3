// Package blobstore stores avatar images: in an S3-compatible bucket when
// one is configured, otherwise in a local directory.
package blobstore

import (
	"context"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/elnafo/internal/server/config"
)

// Store keeps opaque blobs by key. Get of a missing key fails with
// common.ErrNotFound; Delete of a missing key is not an error.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// New picks the backend from cfg.
func New(ctx context.Context, cfg *config.Config) (Store, error) {
	if cfg.S3Bucket != "" {
		return NewS3Store(ctx, cfg)
	}
	return NewFSStore(filepath.Join(cfg.DataDir, "avatars"))
}

// NewKey returns a fresh random blob key.
func NewKey() string {
	return uuid.NewString()
}

// ValidKey reports whether key has the shape NewKey produces. Keys coming
// from URLs must pass this before reaching a backend.
func ValidKey(key string) bool {
	_, err := uuid.Parse(key)
	return err == nil && len(key) == 36
}
