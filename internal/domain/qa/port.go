package qa

import (
	"context"
	"encoding/json"
)

// Reply is what a provider produced for one question/document pair.
type Reply struct {
	Text string
	Raw  json.RawMessage
}

// Client port (external question answering service)
type Client interface {
	Ask(ctx context.Context, question, document string) (Reply, error)
}
