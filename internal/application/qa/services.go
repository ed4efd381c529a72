package qa

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	appdocs "github.com/bryanwahyu/sheetqa/internal/application/documents"
	"github.com/bryanwahyu/sheetqa/internal/domain/documents"
	domain "github.com/bryanwahyu/sheetqa/internal/domain/qa"
)

// failedFileMessage is the only detail a caller sees for a file that could not be answered.
const failedFileMessage = "failed to process file"

// Service answers one question against every stored spreadsheet.
type Service struct {
	Documents *appdocs.Service
	Client    domain.Client
	Mode      domain.AnswerMode
	// Extract turns a reply text into the answer string in extract mode.
	Extract func(reply string) string
	// Concurrency caps how many files are processed at once; values below 1 mean sequential.
	Concurrency int
	// FailFast aborts the whole batch on the first failed file.
	FailFast bool
	Log      *slog.Logger
}

type AskResult struct {
	Answers []domain.Answer `json:"answers"`
}

// Ask parses each stored spreadsheet and asks the question against it. Answers keep listing order.
func (s *Service) Ask(ctx context.Context, question string) (AskResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return AskResult{}, domain.ErrEmptyQuestion
	}

	ids, err := s.Documents.Spreadsheets(ctx)
	if err != nil {
		return AskResult{}, err
	}
	if len(ids) == 0 {
		return AskResult{}, documents.ErrNoDocuments
	}

	answers := make([]domain.Answer, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, s.Concurrency))

	for i, id := range ids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			answer, err := s.answerFile(gctx, question, id)
			if err != nil {
				s.log().Error("answer file failed", "file", id, "err", err)
				if s.FailFast {
					return fmt.Errorf("answer %s: %w", id, err)
				}
				answers[i] = domain.Answer{File: id, Error: failedFileMessage}
				return nil
			}
			answers[i] = domain.Answer{File: id, Answer: answer}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return AskResult{}, err
	}
	return AskResult{Answers: answers}, nil
}

func (s *Service) answerFile(ctx context.Context, question, id string) (any, error) {
	records, err := s.Documents.Parse(ctx, id)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []documents.Record{}
	}
	doc, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("serialize %s: %w", id, err)
	}

	reply, err := s.Client.Ask(ctx, question, string(doc))
	if err != nil {
		return nil, err
	}
	return s.render(reply), nil
}

func (s *Service) render(reply domain.Reply) any {
	if s.Mode == domain.AnswerModeRaw {
		if len(reply.Raw) > 0 {
			return reply.Raw
		}
		return reply.Text
	}
	if s.Extract == nil {
		return strings.TrimSpace(reply.Text)
	}
	return s.Extract(reply.Text)
}

func (s *Service) log() *slog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return slog.Default()
}
