// internal/common/llm/genai.go
package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GenAI sends chats to Gemini. System messages become the system
// instruction; assistant turns are sent with the model role.
type GenAI struct {
	client *genai.Client
	model  string
}

// NewGenAI creates the client. baseURL is optional and only used to point
// the SDK at a different endpoint.
func NewGenAI(ctx context.Context, apiKey, model, baseURL string) (*GenAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: genai api key is empty", ErrNotConfigured)
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}

	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GenAI{client: client, model: model}, nil
}

func (g *GenAI) Model() string { return g.model }

func (g *GenAI) Chat(ctx context.Context, messages []Message, opts ...Option) (string, error) {
	o := buildOptions(opts)

	var system []string
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			system = append(system, m.Content)
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}

	cfg := &genai.GenerateContentConfig{
		Temperature:    genai.Ptr(float32(o.Temperature)),
		TopP:           genai.Ptr(float32(o.TopP)),
		CandidateCount: int32(o.N),
	}
	if o.Seed != 0 {
		cfg.Seed = genai.Ptr(int32(o.Seed))
	}
	if o.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(o.MaxTokens)
	}
	if o.Schema != nil {
		cfg.ResponseMIMEType = "application/json"
	}
	if len(system) > 0 {
		cfg.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", classify(ctx, err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("%w: empty content", ErrEmptyResponse)
	}
	return text, nil
}
