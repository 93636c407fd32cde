// internal/common/llm/openai.go
package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	apphttp "pos-interpreter/internal/common/http"
)

// OpenAI talks to any OpenAI-compatible chat completions endpoint.
type OpenAI struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *apphttp.Client
}

func NewOpenAI(baseURL, apiKey, model string, timeout time.Duration) *OpenAI {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OpenAI{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: apphttp.NewClient(timeout),
	}
}

func (c *OpenAI) Model() string { return c.model }

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float64         `json:"temperature"`
	TopP           float64         `json:"top_p"`
	Seed           int             `json:"seed,omitempty"`
	N              int             `json:"n"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type       string          `json:"type"`
	JSONSchema *jsonSchemaSpec `json:"json_schema,omitempty"`
}

type jsonSchemaSpec struct {
	Name   string                 `json:"name"`
	Strict bool                   `json:"strict"`
	Schema map[string]interface{} `json:"schema"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

func (c *OpenAI) Chat(ctx context.Context, messages []Message, opts ...Option) (string, error) {
	o := buildOptions(opts)
	req := chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: o.Temperature,
		TopP:        o.TopP,
		Seed:        o.Seed,
		N:           o.N,
		MaxTokens:   o.MaxTokens,
	}
	if o.Schema != nil {
		req.ResponseFormat = &responseFormat{
			Type: "json_schema",
			JSONSchema: &jsonSchemaSpec{
				Name:   o.Schema.Name,
				Strict: o.Schema.Strict,
				Schema: o.Schema.Schema,
			},
		}
	}

	var resp chatResponse
	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}
	if err := c.httpClient.DoJSON(ctx, http.MethodPost, c.baseURL+"/chat/completions", headers, req, &resp); err != nil {
		return "", classify(ctx, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", ErrEmptyResponse)
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("%w: empty content", ErrEmptyResponse)
	}
	return content, nil
}
