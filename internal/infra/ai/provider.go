package ai

import (
	"context"
	"fmt"
	"net/http"

	"github.com/bryanwahyu/sheetqa/internal/config"
	"github.com/bryanwahyu/sheetqa/internal/domain/qa"
	"github.com/bryanwahyu/sheetqa/internal/infra/ai/gemini"
	"github.com/bryanwahyu/sheetqa/internal/infra/ai/openai"
	"github.com/bryanwahyu/sheetqa/internal/infra/ai/vertex"
)

// NewClient builds the provider selected by qa.provider. The returned close func is never nil.
func NewClient(ctx context.Context, cfg *config.Config) (qa.Client, func() error, error) {
	noop := func() error { return nil }
	c := cfg.QA

	switch c.Provider {
	case "", "gemini":
		return gemini.NewClient(c.Endpoint, c.Model, c.APIKey, cfg.QATimeout()), noop, nil
	case "openai":
		return openai.NewClient(c.APIKey, c.BaseURL, c.Model, &http.Client{Timeout: cfg.QATimeout()}), noop, nil
	case "vertex":
		client, err := vertex.NewClient(ctx, c.Vertex.ProjectID, c.Vertex.Region, c.Model)
		if err != nil {
			return nil, noop, err
		}
		return client, client.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown qa provider %q", c.Provider)
	}
}
