// internal/common/llm/provider.go
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pos-interpreter/internal/common/config"
)

var (
	ErrNotConfigured = errors.New("LLM_CONFIG_MISSING")
	ErrTimeout       = errors.New("LLM_TIMEOUT")
	ErrRequestFailed = errors.New("LLM_REQUEST_FAILED")
	ErrEmptyResponse = errors.New("LLM_EMPTY_RESPONSE")
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// JSONSchema constrains the model output to a named schema.
type JSONSchema struct {
	Name   string
	Strict bool
	Schema map[string]interface{}
}

type Options struct {
	Temperature float64
	TopP        float64
	Seed        int
	N           int
	MaxTokens   int
	Schema      *JSONSchema
}

type Option func(*Options)

func WithTemperature(v float64) Option { return func(o *Options) { o.Temperature = v } }
func WithTopP(v float64) Option        { return func(o *Options) { o.TopP = v } }
func WithSeed(v int) Option            { return func(o *Options) { o.Seed = v } }
func WithMaxTokens(v int) Option       { return func(o *Options) { o.MaxTokens = v } }

func WithJSONSchema(name string, schema map[string]interface{}) Option {
	return func(o *Options) {
		o.Schema = &JSONSchema{Name: name, Strict: false, Schema: schema}
	}
}

func buildOptions(opts []Option) Options {
	o := Options{N: 1}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Provider sends one chat exchange and returns the raw assistant text.
type Provider interface {
	Chat(ctx context.Context, messages []Message, opts ...Option) (string, error)
	Model() string
}

// NewProvider builds the provider named by cfg.Provider. Missing credentials
// yield ErrNotConfigured.
func NewProvider(ctx context.Context, cfg config.LLMConfig) (Provider, error) {
	timeout := time.Duration(cfg.Timeout) * time.Millisecond
	switch strings.ToLower(cfg.Provider) {
	case "", "openai":
		if strings.TrimSpace(cfg.APIKey) == "" {
			return nil, fmt.Errorf("%w: openai api key is empty", ErrNotConfigured)
		}
		return NewOpenAI(cfg.BaseURL, cfg.APIKey, cfg.Model, timeout), nil
	case "genai":
		if strings.TrimSpace(cfg.GenAI.APIKey) == "" {
			return nil, fmt.Errorf("%w: genai api key is empty", ErrNotConfigured)
		}
		return NewGenAI(ctx, cfg.GenAI.APIKey, cfg.GenAI.Model, "")
	}
	return nil, fmt.Errorf("%w: unknown provider %q", ErrNotConfigured, cfg.Provider)
}

// classify maps transport errors onto the package sentinels.
func classify(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var te interface{ Timeout() bool }
	if errors.As(err, &te) && te.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrRequestFailed, err)
}
