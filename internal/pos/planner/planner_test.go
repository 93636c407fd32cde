// internal/pos/planner/planner_test.go
package planner

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pos-interpreter/internal/common/llm"
	"pos-interpreter/internal/models"
	"pos-interpreter/internal/pos/catalog"
)

// ==========================
// Test helpers
// ==========================

type TestLogger struct {
	t *testing.T
}

func (l *TestLogger) Info(msg string, fields map[string]interface{}) {
	l.t.Logf("INFO: %s %v", msg, fields)
}

func (l *TestLogger) Warn(msg string, fields map[string]interface{}) {
	l.t.Logf("WARN: %s %v", msg, fields)
}

func (l *TestLogger) Error(msg string, fields map[string]interface{}) {
	l.t.Logf("ERROR: %s %v", msg, fields)
}

type fakeProvider struct {
	reply    string
	err      error
	messages []llm.Message
	opts     llm.Options
	calls    int
}

func (f *fakeProvider) Model() string { return "fake-model" }

func (f *fakeProvider) Chat(ctx context.Context, messages []llm.Message, opts ...llm.Option) (string, error) {
	f.calls++
	f.messages = messages
	for _, o := range opts {
		o(&f.opts)
	}
	return f.reply, f.err
}

func newPlanner(t *testing.T, p llm.Provider) *Planner {
	return New(p, DefaultConfig(), &TestLogger{t: t})
}

// ==========================
// Prompt
// ==========================

func TestWhitelistLines(t *testing.T) {
	allowed := catalog.NewAllowedActionSet("add_to_cart", "search", "repeat")
	assert.Equal(t, "- add_to_cart()\n- repeat()\n- search(...)", WhitelistLines(allowed))
}

func TestSystemPrompt_PaymentRule(t *testing.T) {
	allowed := catalog.Default()

	plain := SystemPrompt(allowed, "")
	withRule := SystemPrompt(allowed, PaymentRule([]string{"Efectivo", "Tarjeta"}))

	assert.Contains(t, plain, "- confirm_document()")
	assert.Contains(t, plain, "- set_payment(...)")
	assert.NotContains(t, plain, "usando uno de")
	assert.Contains(t, withRule, `usando uno de: ["Efectivo","Tarjeta"]`)
	assert.NotEqual(t, Fingerprint(plain), Fingerprint(withRule))
}

func TestFingerprint(t *testing.T) {
	fp := Fingerprint("abc")
	assert.Len(t, fp, 8)
	assert.Equal(t, "ba7816bf", fp)
	assert.Equal(t, fp, Fingerprint("abc"))
}

func TestBuildMessages(t *testing.T) {
	allowed := catalog.Default()
	state := models.StateFromMap(map[string]interface{}{"mode": "PRESUPUESTO"})

	msgs, system := BuildMessages("buscar caño", state, allowed, "")

	require.Len(t, msgs, 1+len(fewShots)*2+1)
	assert.Equal(t, llm.RoleSystem, msgs[0].Role)
	assert.Equal(t, system, msgs[0].Content)
	assert.Equal(t, llm.RoleUser, msgs[1].Role)
	assert.Equal(t, llm.RoleAssistant, msgs[2].Role)

	last := msgs[len(msgs)-1]
	assert.Equal(t, llm.RoleUser, last.Role)
	assert.True(t, strings.HasPrefix(last.Content, "INPUT:\n"))
	assert.Contains(t, last.Content, `"text":"buscar caño"`)
	assert.Contains(t, last.Content, `"catalog":["add_to_cart"`)

	var sawCanon bool
	for _, m := range msgs {
		if strings.Contains(m.Content, "cañon 20 mm poneme dos") {
			sawCanon = true
		}
	}
	assert.True(t, sawCanon)
}

// ==========================
// Output parsing
// ==========================

func TestParseActions(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []string
		wantErr bool
	}{
		{"valid", `{"actions":[{"action":"set_mode","params":{"mode":"FACTURA"}}]}`, []string{"set_mode"}, false},
		{"empty list", `{"actions":[]}`, []string{}, false},
		{"item without params", `{"actions":[{"action":"add_to_cart"}]}`, []string{"add_to_cart"}, false},
		{"not json", `Claro, aquí está`, nil, true},
		{"missing actions", `{}`, nil, true},
		{"actions not array", `{"actions":{"action":"search"}}`, nil, true},
		{"top-level array", `[{"action":"search"}]`, nil, true},
		{"extra top-level key", `{"actions":[],"say":"hola"}`, []string{}, false},
		{"item without action", `{"actions":[{"params":{}}]}`, []string{""}, false},
		{"params not object", `{"actions":[{"action":"search","params":"x"}]}`, []string{"search"}, false},
		{"non-string action kept in place", `{"actions":[{"action":"search","params":{"term":"codo"}},{"action":7}]}`, []string{"search", ""}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseActions(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrPlannerOutputInvalid)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, models.ActionNames(got))
		})
	}
}

// ==========================
// Plan
// ==========================

func TestPlan_Success(t *testing.T) {
	fp := &fakeProvider{reply: `{"actions":[{"action":"search","params":{"term":"caño 20 mm"}},{"action":"set_qty","params":{"qty":2}}]}`}
	p := newPlanner(t, fp)

	res := p.Plan(context.Background(), Request{
		Text:    "cañon 20 mm poneme dos",
		Allowed: catalog.Default(),
	})

	assert.False(t, res.Fallback)
	assert.NoError(t, res.Err)
	assert.Equal(t, "fake-model", res.Model)
	assert.Len(t, res.Fingerprint, 8)
	assert.Equal(t, []string{"search", "set_qty"}, models.ActionNames(res.Actions))

	assert.Equal(t, 1, fp.calls)
	assert.Equal(t, 7, fp.opts.Seed)
	assert.Equal(t, 120, fp.opts.MaxTokens)
	assert.Equal(t, 0.0, fp.opts.Temperature)
	require.NotNil(t, fp.opts.Schema)
	assert.Equal(t, SchemaName, fp.opts.Schema.Name)
}

func TestPlan_PaymentRuleOnlyForUnpaidInvoice(t *testing.T) {
	fp := &fakeProvider{reply: `{"actions":[]}`}
	p := newPlanner(t, fp)

	p.Plan(context.Background(), Request{
		Text:           "confirmar",
		State:          models.StateFromMap(map[string]interface{}{"mode": "FACTURA"}),
		Allowed:        catalog.Default(),
		PaymentMethods: []string{"Efectivo"},
	})
	assert.Contains(t, fp.messages[0].Content, `usando uno de: ["Efectivo"]`)

	p.Plan(context.Background(), Request{
		Text:           "confirmar",
		State:          models.StateFromMap(map[string]interface{}{"mode": "FACTURA", "payments": []interface{}{"x"}}),
		Allowed:        catalog.Default(),
		PaymentMethods: []string{"Efectivo"},
	})
	assert.NotContains(t, fp.messages[0].Content, "usando uno de")
}

func TestPlan_Fallbacks(t *testing.T) {
	tests := []struct {
		name     string
		provider *fakeProvider
		wantErr  error
	}{
		{"transport error", &fakeProvider{err: fmt.Errorf("%w: boom", llm.ErrRequestFailed)}, ErrPlannerRequestFailed},
		{"timeout", &fakeProvider{err: fmt.Errorf("%w: slow", llm.ErrTimeout)}, ErrPlannerRequestFailed},
		{"prose", &fakeProvider{reply: "no entiendo"}, ErrPlannerOutputInvalid},
		{"schema", &fakeProvider{reply: `{"actions":"search"}`}, ErrPlannerOutputInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := newPlanner(t, tt.provider).Plan(context.Background(), Request{
				Text:    "  codo 3/4  ",
				Allowed: catalog.Default(),
			})

			assert.True(t, res.Fallback)
			assert.True(t, errors.Is(res.Err, tt.wantErr))
			require.Len(t, res.Actions, 1)
			assert.Equal(t, "search", res.Actions[0].Action)
			assert.Equal(t, "codo 3/4", res.Actions[0].Params["term"])
		})
	}
}

func TestPlan_TimeoutAgainstRealProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	provider := llm.NewOpenAI(srv.URL, "k", "gpt-4o-mini", 5*time.Second)
	cfg := DefaultConfig()
	cfg.Timeout = 30 * time.Millisecond

	res := New(provider, cfg, &TestLogger{t: t}).Plan(context.Background(), Request{
		Text:    "algo raro",
		Allowed: catalog.Default(),
	})

	assert.True(t, res.Fallback)
	assert.ErrorIs(t, res.Err, llm.ErrTimeout)
	assert.Equal(t, Fallback("algo raro"), res.Actions)
}
