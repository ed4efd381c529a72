package documents

import (
	"context"
	"io"
)

// Store port (content store for uploaded blobs)
type Store interface {
	// Put fails with ErrExists when name is already taken.
	Put(ctx context.Context, name string, r io.Reader) (string, error)
	// List returns stored ids sorted by name.
	List(ctx context.Context) ([]string, error)
	Get(ctx context.Context, id string) (io.ReadCloser, error)
}

// Parser port (workbook -> records)
type Parser interface {
	Parse(r io.Reader) ([]Record, error)
}
