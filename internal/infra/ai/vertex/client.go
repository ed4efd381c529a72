// Package vertex answers questions through Gemini models on Vertex AI.
package vertex

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"

	"github.com/bryanwahyu/sheetqa/internal/domain/qa"
)

const DefaultModel = "gemini-1.5-flash"

type Client struct {
	model      *genai.GenerativeModel
	baseClient *genai.Client
}

func NewClient(ctx context.Context, projectID, region, model string) (*Client, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("vertex: projectID and region cannot be empty")
	}
	if model == "" {
		model = DefaultModel
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}
	return &Client{
		model:      baseClient.GenerativeModel(model),
		baseClient: baseClient,
	}, nil
}

func (c *Client) Ask(ctx context.Context, question, document string) (qa.Reply, error) {
	resp, err := c.model.GenerateContent(ctx, genai.Text(question), genai.Text(document))
	if err != nil {
		return qa.Reply{}, fmt.Errorf("failed to generate content from gemini: %w", err)
	}

	raw, err := json.Marshal(resp)
	if err != nil {
		raw = nil
	}
	return qa.Reply{Text: responseText(resp), Raw: raw}, nil
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return b.String()
}

func (c *Client) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}
