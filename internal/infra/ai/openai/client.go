package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/bryanwahyu/sheetqa/internal/domain/qa"
)

const maxTokens = 2048

// DefaultModel works against Gemini's OpenAI-compatible endpoint.
const DefaultModel = "gemini-1.5-flash"

type Client struct {
	*openai.Client
	Model string
}

// NewClient points go-openai at baseURL (empty keeps api.openai.com).
func NewClient(apiKey, baseURL, model string, httpClient *http.Client) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	return &Client{Client: openai.NewClientWithConfig(cfg), Model: model}
}

func (c *Client) Ask(ctx context.Context, question, document string) (qa.Reply, error) {
	model := c.Model
	if model == "" {
		model = DefaultModel
	}
	req := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: question},
					{Type: openai.ChatMessagePartTypeText, Text: document},
				},
			},
		},
	}
	// For reasoning models (o1/o3/o4/gpt-5*) use MaxCompletionTokens instead of MaxTokens
	if strings.HasPrefix(model, "o1") || strings.HasPrefix(model, "o3") || strings.HasPrefix(model, "o4") || strings.HasPrefix(model, "gpt-5") {
		req.MaxCompletionTokens = maxTokens
	} else {
		req.MaxTokens = maxTokens
	}

	resp, err := c.CreateChatCompletion(ctx, req)
	if err != nil {
		return qa.Reply{}, fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return qa.Reply{}, fmt.Errorf("%w: chat completion returned no choices", qa.ErrUpstream)
	}

	raw, err := json.Marshal(resp)
	if err != nil {
		raw = nil
	}
	return qa.Reply{Text: resp.Choices[0].Message.Content, Raw: raw}, nil
}
