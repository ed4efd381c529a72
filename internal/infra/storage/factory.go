package storage

import (
	"context"
	"fmt"

	"github.com/bryanwahyu/sheetqa/internal/config"
	"github.com/bryanwahyu/sheetqa/internal/domain/documents"
)

// New builds the store selected by storage.backend. The returned close func is never nil.
func New(ctx context.Context, cfg *config.Config) (documents.Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Storage.Backend {
	case "", "disk":
		s, err := NewDiskStore(cfg.Storage.Dir)
		return s, noop, err
	case "memory":
		return NewMemoryStore(), noop, nil
	case "minio":
		m := cfg.Storage.Minio
		s, err := NewMinioStore(ctx, m.Endpoint, m.Region, m.BucketName, m.Prefix, m.AccessKey, m.SecretKey, m.UseSSL)
		return s, noop, err
	case "gcs":
		s, err := NewGCSStore(ctx, cfg.Storage.GCS.Bucket, cfg.Storage.GCS.Prefix)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
