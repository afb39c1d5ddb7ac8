package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"notebase/internal/ingest"
)

const defaultModel = "gemini-embedding-001"

type Embedder struct {
	client *genai.Client
	model  string
}

func NewEmbedder(ctx context.Context, apiKey string, opts ...option.ClientOption) (*Embedder, error) {
	opts = append(opts, option.WithAPIKey(apiKey))
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &Embedder{client: client, model: defaultModel}, nil
}

// Embed turns one chunk of text into a vector. Failures are classified so
// the retry queue can tell a rate limit from content the provider will
// never accept.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ingest.Permanent(fmt.Errorf("cannot embed empty content"))
	}

	slog.DebugContext(ctx, "embedding content", "model", e.model, "length", len(text))
	model := e.client.EmbeddingModel(e.model)
	res, err := model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, classify(err)
	}
	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, fmt.Errorf("empty embedding received")
	}
	return res.Embedding.Values, nil
}

func (e *Embedder) Close() error {
	return e.client.Close()
}

// classify maps provider errors onto the retry taxonomy: client-side
// rejections are permanent, everything else (timeouts, rate limits, server
// errors) stays transient and retryable.
func classify(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == 408 || apiErr.Code == 429:
			// Timeout and rate limit clear up on their own.
			return err
		case apiErr.Code >= 400 && apiErr.Code < 500:
			return ingest.Permanent(err)
		}
	}
	return err
}
