package gradient

import (
	"context"
	"fmt"
)

// InferenceMessage represents a message in the chat completion request
type InferenceMessage struct {
	Role    string `json:"role"`    // "system", "user", "assistant"
	Content string `json:"content"` // The message content
}

// ResponseFormat requests JSON output at the API level
type ResponseFormat struct {
	Type string `json:"type"`
}

// InferenceRequest is an OpenAI-compatible chat completion request
type InferenceRequest struct {
	Model          string             `json:"model"`
	Messages       []InferenceMessage `json:"messages"`
	Temperature    float64            `json:"temperature,omitempty"`
	MaxTokens      int                `json:"max_tokens,omitempty"`
	Stream         bool               `json:"stream,omitempty"`
	ResponseFormat *ResponseFormat    `json:"response_format,omitempty"`
}

// InferenceChoice represents a choice in the inference response
type InferenceChoice struct {
	Index        int              `json:"index"`
	Message      InferenceMessage `json:"message"`
	FinishReason string           `json:"finish_reason"`
}

// InferenceResponse represents the response from the inference API
type InferenceResponse struct {
	ID      string            `json:"id"`
	Model   string            `json:"model"`
	Choices []InferenceChoice `json:"choices"`
	Usage   struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// InferenceClient runs non-streaming completions for the extraction and
// snapshot steps
type InferenceClient struct {
	client *Client
	model  string
}

// NewInferenceClient creates an inference client pinned to one model
func NewInferenceClient(client *Client, model string) *InferenceClient {
	return &InferenceClient{client: client, model: model}
}

// ChatCompletion sends a chat completion request
func (c *InferenceClient) ChatCompletion(ctx context.Context, messages []InferenceMessage) (*InferenceResponse, error) {
	req := InferenceRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: 0.3,
		MaxTokens:   4096,
	}

	var resp InferenceResponse
	if err := c.client.doJSON(ctx, "/v1/chat/completions", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// JSONCompletion runs a single-turn completion with JSON output enforced
// both in the prompt and at the API level
func (c *InferenceClient) JSONCompletion(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	enhancedSystemPrompt := systemPrompt + `

CRITICAL OUTPUT RULES:
- You MUST respond with ONLY valid JSON
- Do NOT use markdown formatting (no **, no ###, no code blocks)
- Do NOT include any explanatory text before or after the JSON
- Start your response with { and end with }`

	req := InferenceRequest{
		Model: c.model,
		Messages: []InferenceMessage{
			{Role: "system", Content: enhancedSystemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature:    0.3,
		MaxTokens:      4096,
		ResponseFormat: &ResponseFormat{Type: "json_object"},
	}

	var resp InferenceResponse
	if err := c.client.doJSON(ctx, "/v1/chat/completions", req, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from inference API")
	}
	return resp.Choices[0].Message.Content, nil
}
