// Package gemini talks to the Generative Language REST API with an API key.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bryanwahyu/sheetqa/internal/domain/qa"
)

const (
	DefaultEndpoint = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel    = "gemini-1.5-flash"

	maxErrorBody = 512
)

type Client struct {
	httpClient *http.Client
	endpoint   string
	model      string
	apiKey     string
}

// NewClient builds a client; a zero timeout keeps the http.Client default.
func NewClient(endpoint, model, apiKey string, timeout time.Duration) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   strings.TrimRight(endpoint, "/"),
		model:      model,
		apiKey:     apiKey,
	}
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

func (c *Client) Ask(ctx context.Context, question, document string) (qa.Reply, error) {
	payload, err := json.Marshal(generateRequest{
		Contents: []content{{
			Parts: []part{{Text: question}, {Text: document}},
		}},
	})
	if err != nil {
		return qa.Reply{}, fmt.Errorf("encode gemini request: %w", err)
	}

	u := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		c.endpoint, url.PathEscape(c.model), url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return qa.Reply{}, fmt.Errorf("build gemini request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// url.Error embeds the request URL, which carries the key
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return qa.Reply{}, fmt.Errorf("failed to query gemini: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return qa.Reply{}, fmt.Errorf("read gemini response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return qa.Reply{}, fmt.Errorf("%w: gemini status %d: %s", qa.ErrUpstream, resp.StatusCode, truncate(body))
	}

	var gr generateResponse
	if err := json.Unmarshal(body, &gr); err != nil {
		return qa.Reply{}, fmt.Errorf("%w: decode gemini response: %v", qa.ErrUpstream, err)
	}

	var text strings.Builder
	if len(gr.Candidates) > 0 {
		for _, p := range gr.Candidates[0].Content.Parts {
			text.WriteString(p.Text)
		}
	}
	return qa.Reply{Text: text.String(), Raw: json.RawMessage(body)}, nil
}

func truncate(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > maxErrorBody {
		return s[:maxErrorBody] + "..."
	}
	return s
}
