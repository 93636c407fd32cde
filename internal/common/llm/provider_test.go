// internal/common/llm/provider_test.go
package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pos-interpreter/internal/common/config"
)

// ==========================
// Factory
// ==========================

func TestNewProvider(t *testing.T) {
	ctx := context.Background()

	_, err := NewProvider(ctx, config.LLMConfig{Provider: "openai"})
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = NewProvider(ctx, config.LLMConfig{Provider: "genai"})
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = NewProvider(ctx, config.LLMConfig{Provider: "mystery", APIKey: "k"})
	assert.ErrorIs(t, err, ErrNotConfigured)

	p, err := NewProvider(ctx, config.LLMConfig{APIKey: "k", Model: "gpt-4o-mini"})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", p.Model())
}

// ==========================
// OpenAI
// ==========================

func TestOpenAI_Chat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-4o-mini", body["model"])
		assert.EqualValues(t, 0, body["temperature"])
		assert.EqualValues(t, 0, body["top_p"])
		assert.EqualValues(t, 7, body["seed"])
		assert.EqualValues(t, 1, body["n"])
		assert.EqualValues(t, 120, body["max_tokens"])

		rf := body["response_format"].(map[string]interface{})
		assert.Equal(t, "json_schema", rf["type"])
		assert.Equal(t, "planner_actions", rf["json_schema"].(map[string]interface{})["name"])

		msgs := body["messages"].([]interface{})
		assert.Len(t, msgs, 2)

		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":" {\"actions\":[]} "}}]}`))
	}))
	defer srv.Close()

	c := NewOpenAI(srv.URL+"/v1", "sk-test", "gpt-4o-mini", time.Second)
	out, err := c.Chat(context.Background(),
		[]Message{{Role: RoleSystem, Content: "sys"}, {Role: RoleUser, Content: "hola"}},
		WithTemperature(0), WithTopP(0), WithSeed(7), WithMaxTokens(120),
		WithJSONSchema("planner_actions", map[string]interface{}{"type": "object"}),
	)
	require.NoError(t, err)
	assert.Equal(t, `{"actions":[]}`, out)
}

func TestOpenAI_Chat_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    error
	}{
		{
			name: "status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "rate limited", http.StatusTooManyRequests)
			},
			want: ErrRequestFailed,
		},
		{
			name: "no choices",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"choices":[]}`))
			},
			want: ErrEmptyResponse,
		},
		{
			name: "undecodable",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`not json`))
			},
			want: ErrRequestFailed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := NewOpenAI(srv.URL, "k", "m", time.Second).Chat(context.Background(), nil)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestOpenAI_Chat_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := NewOpenAI(srv.URL, "k", "m", time.Second).Chat(ctx, nil)
	assert.ErrorIs(t, err, ErrTimeout)
}

// ==========================
// GenAI
// ==========================

func TestNewGenAI_RequiresKey(t *testing.T) {
	_, err := NewGenAI(context.Background(), "", "", "")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
