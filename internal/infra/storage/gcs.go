package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"

	"github.com/bryanwahyu/sheetqa/internal/domain/documents"
)

// GCSStore keeps uploads as objects in a Cloud Storage bucket under an optional prefix.
type GCSStore struct {
	client *storage.Client
	bucket *storage.BucketHandle
	prefix string
}

func NewGCSStore(ctx context.Context, bucket, prefix string) (*GCSStore, error) {
	if bucket == "" {
		return nil, fmt.Errorf("gcs bucket must be provided")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCSStore{client: client, bucket: client.Bucket(bucket), prefix: prefix}, nil
}

func (s *GCSStore) Close() error { return s.client.Close() }

// Put writes only if the object does not exist yet.
func (s *GCSStore) Put(ctx context.Context, name string, r io.Reader) (string, error) {
	if err := validName(name); err != nil {
		return "", err
	}
	key := s.prefix + name
	// a known collision must not consume r; the precondition covers races
	if _, err := s.bucket.Object(key).Attrs(ctx); err == nil {
		return "", fmt.Errorf("%s: %w", name, documents.ErrExists)
	} else if !errors.Is(err, storage.ErrObjectNotExist) {
		return "", fmt.Errorf("failed to stat object: %w", err)
	}

	w := s.bucket.Object(key).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = contentType(name)

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", s.writeErr(name, err)
	}
	if err := w.Close(); err != nil {
		return "", s.writeErr(name, err)
	}
	return name, nil
}

func (s *GCSStore) writeErr(name string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed {
		return fmt.Errorf("%s: %w", name, documents.ErrExists)
	}
	return fmt.Errorf("failed to write to GCS: %w", err)
}

func (s *GCSStore) List(ctx context.Context) ([]string, error) {
	it := s.bucket.Objects(ctx, &storage.Query{Prefix: s.prefix})
	var ids []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}
		name := strings.TrimPrefix(attrs.Name, s.prefix)
		if validName(name) == nil {
			ids = append(ids, name)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *GCSStore) Get(ctx context.Context, id string) (io.ReadCloser, error) {
	rc, err := s.bucket.Object(s.prefix + id).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("%s: %w", id, documents.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to open object: %w", err)
	}
	return rc, nil
}
