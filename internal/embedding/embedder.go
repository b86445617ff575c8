// Package embedding wraps the OpenAI embeddings API behind the narrow
// interface the retrieval package needs, with a TTL cache in front of it
// so repeated queries (pagination, retries, near-duplicate phrasing from
// the same session) don't re-pay the API call.
package embedding

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/potatoman03/shopmcp/internal/cache"
)

const defaultModel = openai.SmallEmbedding3

// Embedder produces a query embedding, or reports Enabled()==false when
// no API key was configured — callers fall back to lexical-only search
// in that case rather than erroring.
type Embedder interface {
	Enabled() bool
	Embed(ctx context.Context, text string) ([]float32, error)
}

// OpenAIEmbedder is the production Embedder, grounded on
// original_source/mcp-server/embedder.py's QueryEmbedder: same model
// default, same "empty API key disables vector search" behavior.
type OpenAIEmbedder struct {
	client *openai.Client
	model  openai.EmbeddingModel
	cache  *cache.TTLCache[string, []float32]
}

// New builds an OpenAIEmbedder. An empty apiKey yields a disabled
// embedder rather than an error, matching the Python original.
func New(apiKey string, queryCache *cache.TTLCache[string, []float32]) *OpenAIEmbedder {
	e := &OpenAIEmbedder{model: defaultModel, cache: queryCache}
	if apiKey != "" {
		e.client = openai.NewClient(apiKey)
	}
	return e
}

func (e *OpenAIEmbedder) Enabled() bool {
	return e.client != nil
}

// Embed returns the embedding for text, consulting the cache first.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("embedding: query cannot be empty")
	}
	if e.client == nil {
		return nil, fmt.Errorf("embedding: OPENAI_API_KEY is required for vector search")
	}

	key := strings.ToLower(strings.TrimSpace(text))
	if e.cache != nil {
		if cached, ok := e.cache.Get(key); ok {
			return cached, nil
		}
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: e.model,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding: create embeddings: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embedding: empty response from provider")
	}

	vec := resp.Data[0].Embedding
	if e.cache != nil {
		e.cache.Set(key, vec)
	}
	return vec, nil
}
