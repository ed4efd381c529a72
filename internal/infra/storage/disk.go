package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bryanwahyu/sheetqa/internal/domain/documents"
)

// DiskStore keeps uploads as plain files in one directory.
type DiskStore struct {
	dir string
}

func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload directory: %w", err)
	}
	return &DiskStore{dir: dir}, nil
}

func (s *DiskStore) Dir() string { return s.dir }

func (s *DiskStore) Put(ctx context.Context, name string, r io.Reader) (string, error) {
	if err := validName(name); err != nil {
		return "", err
	}
	path := filepath.Join(s.dir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("%s: %w", name, documents.ErrExists)
		}
		return "", fmt.Errorf("creating file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("writing file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("closing file: %w", err)
	}
	return name, nil
}

func (s *DiskStore) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading upload directory: %w", err)
	}
	// ReadDir is already sorted by filename
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			ids = append(ids, e.Name())
		}
	}
	return ids, nil
}

func (s *DiskStore) Get(ctx context.Context, id string) (io.ReadCloser, error) {
	if err := validName(id); err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(s.dir, id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", id, documents.ErrNotFound)
		}
		return nil, fmt.Errorf("opening file: %w", err)
	}
	return f, nil
}

// validName rejects anything that is not a single path element.
func validName(name string) error {
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name {
		return fmt.Errorf("invalid document name %q", name)
	}
	return nil
}
