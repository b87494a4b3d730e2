package gradient

import (
	"context"
	"fmt"
)

// EmbeddingRequest is an OpenAI-compatible embeddings request
type EmbeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// EmbeddingData is one vector in the embeddings response
type EmbeddingData struct {
	Index     int       `json:"index"`
	Embedding []float32 `json:"embedding"`
}

// EmbeddingResponse is the embeddings API response
type EmbeddingResponse struct {
	Model string          `json:"model"`
	Data  []EmbeddingData `json:"data"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

// EmbeddingClient produces fixed-dimension vectors for retrieval
type EmbeddingClient struct {
	client     *Client
	model      string
	dimensions int
}

// NewEmbeddingClient creates an embedding client pinned to one model and
// output dimension. Vectors of any other dimension are rejected.
func NewEmbeddingClient(client *Client, model string, dimensions int) *EmbeddingClient {
	return &EmbeddingClient{
		client:     client,
		model:      model,
		dimensions: dimensions,
	}
}

// Embed returns one vector per input string, in input order
func (e *EmbeddingClient) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	req := EmbeddingRequest{Model: e.model, Input: inputs}
	var resp EmbeddingResponse
	if err := e.client.doJSON(ctx, "/v1/embeddings", req, &resp); err != nil {
		return nil, err
	}

	if len(resp.Data) != len(inputs) {
		return nil, fmt.Errorf("embedding count mismatch: sent %d inputs, got %d vectors", len(inputs), len(resp.Data))
	}

	vectors := make([][]float32, len(inputs))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(inputs) {
			return nil, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		if len(d.Embedding) != e.dimensions {
			return nil, fmt.Errorf("embedding dimension mismatch: expected %d, got %d", e.dimensions, len(d.Embedding))
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}

// EmbedOne is a convenience wrapper for a single input
func (e *EmbeddingClient) EmbedOne(ctx context.Context, input string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{input})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}
