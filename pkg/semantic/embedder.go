package semantic

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"

	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/alert"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/config"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/nlu"
)

// Embedder turns texts into vectors, one per text, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbeddingCreator is the part of the go-openai client the embedder uses.
type EmbeddingCreator interface {
	CreateEmbeddings(ctx context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// DefaultBatchSize caps the number of texts sent per embeddings request.
const DefaultBatchSize = 100

// OpenAIEmbedder embeds texts with an OpenAI or OpenAI-compatible model.
type OpenAIEmbedder struct {
	client    EmbeddingCreator
	model     openai.EmbeddingModel
	dims      int
	batchSize int
}

// NewOpenAIEmbedder creates an embedder from configuration. A nil client
// builds one from the API key and base URL.
func NewOpenAIEmbedder(cfg config.EmbeddingConfig, client EmbeddingCreator) (*OpenAIEmbedder, error) {
	if client == nil {
		switch {
		case cfg.BaseURL != "":
			key := cfg.APIKey
			if key == "" {
				key = "dummy-key"
			}
			c := openai.DefaultConfig(key)
			c.BaseURL = cfg.BaseURL
			client = openai.NewClientWithConfig(c)
		case cfg.APIKey != "":
			client = openai.NewClient(cfg.APIKey)
		default:
			return nil, fmt.Errorf("embedding: an API key or base URL is required")
		}
	}
	model := cfg.Model
	if model == "" {
		model = string(openai.SmallEmbedding3)
	}
	return &OpenAIEmbedder{
		client:    client,
		model:     openai.EmbeddingModel(model),
		dims:      cfg.Dimensions,
		batchSize: DefaultBatchSize,
	}, nil
}

// Embed implements Embedder.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		batch := texts[start:min(start+e.batchSize, len(texts))]
		resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input:      batch,
			Model:      e.model,
			Dimensions: e.dims,
		})
		if err != nil {
			return nil, fmt.Errorf("embedding request failed: %w", err)
		}
		if len(resp.Data) != len(batch) {
			return nil, fmt.Errorf("embedding response has %d vectors for %d inputs", len(resp.Data), len(batch))
		}
		vectors := make([][]float32, len(batch))
		for _, d := range resp.Data {
			if d.Index < 0 || d.Index >= len(batch) {
				return nil, fmt.Errorf("embedding response index %d out of range", d.Index)
			}
			vectors[d.Index] = d.Embedding
		}
		out = append(out, vectors...)
	}
	return out, nil
}

// CircuitBreakerEmbedder wraps an Embedder with circuit breaking logic.
type CircuitBreakerEmbedder struct {
	e  Embedder
	cb *gobreaker.CircuitBreaker
}

// NewCircuitBreakerEmbedder wraps e. When cfg.Enabled is false calls pass straight through.
func NewCircuitBreakerEmbedder(e Embedder, cfg config.CircuitBreakerConfig, alerter alert.Alerter, name string) *CircuitBreakerEmbedder {
	c := &CircuitBreakerEmbedder{e: e}
	if cfg.Enabled {
		c.cb = gobreaker.NewCircuitBreaker(nlu.BreakerSettings(name, cfg, alerter, nil))
	}
	return c
}

// Embed implements Embedder.
func (c *CircuitBreakerEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if c.cb == nil {
		return c.e.Embed(ctx, texts)
	}
	resp, err := c.cb.Execute(func() (interface{}, error) {
		return c.e.Embed(ctx, texts)
	})
	if err != nil {
		return nil, err
	}
	return resp.([][]float32), nil
}

// entityText is the text embedded for an entity: its name, its type and its
// attribute values.
func entityText(name, typ string, values []string) string {
	var b strings.Builder
	b.WriteString(name)
	b.WriteString(" (")
	b.WriteString(typ)
	b.WriteString(")")
	for _, v := range values {
		if v == "" || v == name {
			continue
		}
		b.WriteString("; ")
		b.WriteString(v)
	}
	return b.String()
}
