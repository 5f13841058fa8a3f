package storage

import (
	"context"
	"fmt"

	"github.com/mrlokans/gallery/internal/config"
)

// New builds the backend selected by cfg.Backend.
func New(ctx context.Context, cfg config.Storage) (ObjectStorage, error) {
	switch cfg.Backend {
	case "", "local":
		dir := cfg.LocalDir
		if dir == "" {
			dir = config.DefaultStorageDir
		}
		return NewLocalStorage(dir, cfg.PublicURL)
	case "s3":
		return NewS3Storage(ctx, S3Config{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			UseSSL:    cfg.S3UseSSL,
			PublicURL: cfg.PublicURL,
		})
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Backend)
	}
}
