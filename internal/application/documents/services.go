package documents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/bryanwahyu/sheetqa/internal/application"
	domain "github.com/bryanwahyu/sheetqa/internal/domain/documents"
)

// maxNameAttempts bounds how many successive milliseconds Upload tries on a name collision.
const maxNameAttempts = 10

// Service implements the upload and document use-cases.
type Service struct {
	Store  domain.Store
	Parser domain.Parser
	Clock  application.Clock
	Log    *slog.Logger
}

// Upload stores r under <unix-ms><ext>, moving to the next millisecond when the name is taken.
// r is read once up front; a store may consume it before reporting ErrExists.
func (s *Service) Upload(ctx context.Context, originalName string, r io.Reader) (domain.UploadedFile, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return domain.UploadedFile{}, fmt.Errorf("read upload: %w", err)
	}

	now := s.Clock.Now()
	ext := domain.StoredExtension(originalName)

	for i := 0; i < maxNameAttempts; i++ {
		at := now.Add(time.Duration(i) * time.Millisecond)
		id, err := s.Store.Put(ctx, domain.StoredName(at, ext), bytes.NewReader(body))
		if errors.Is(err, domain.ErrExists) {
			continue
		}
		if err != nil {
			return domain.UploadedFile{}, fmt.Errorf("store upload: %w", err)
		}
		s.log().Info("file stored", "original", originalName, "stored", id)
		return domain.UploadedFile{OriginalName: originalName, StoredName: id, UploadedAt: at}, nil
	}
	return domain.UploadedFile{}, fmt.Errorf("store upload: no free name after %d attempts: %w", maxNameAttempts, domain.ErrExists)
}

func (s *Service) List(ctx context.Context) ([]string, error) {
	ids, err := s.Store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return ids, nil
}

// Spreadsheets lists stored ids the parser can open.
func (s *Service) Spreadsheets(ctx context.Context) ([]string, error) {
	ids, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := ids[:0:0]
	for _, id := range ids {
		if domain.IsSpreadsheet(id) {
			out = append(out, id)
		}
	}
	return out, nil
}

// Parse re-reads a stored workbook; nothing is cached between calls.
func (s *Service) Parse(ctx context.Context, id string) ([]domain.Record, error) {
	rc, err := s.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	records, err := s.Parser.Parse(rc)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", id, err)
	}
	return records, nil
}

func (s *Service) log() *slog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return slog.Default()
}
