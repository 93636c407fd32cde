// internal/api/server_test.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pos-interpreter/internal/common/config"
	"pos-interpreter/internal/common/llm"
	"pos-interpreter/internal/models"
	"pos-interpreter/internal/pos/interpreter"
	"pos-interpreter/internal/pos/resolver"
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

type stubProvider struct{ reply string }

func (s stubProvider) Model() string { return "stub" }

func (s stubProvider) Chat(ctx context.Context, messages []llm.Message, opts ...llm.Option) (string, error) {
	return s.reply, nil
}

type stubPayments struct {
	methods     []models.PaymentMethod
	err         error
	invalidated bool
}

func (s *stubPayments) Methods(ctx context.Context) ([]models.PaymentMethod, error) {
	return s.methods, s.err
}

func (s *stubPayments) Invalidate() { s.invalidated = true }

type stubResolver struct {
	res models.ResolutionResult
	err error
}

func (s stubResolver) ResolveQuery(ctx context.Context, query string) (models.ResolutionResult, error) {
	return s.res, s.err
}

func newTestServer(t *testing.T, provider llm.Provider, deps Dependencies) *Server {
	log := &TestLogger{t: t}
	if deps.Interpreter == nil {
		deps.Interpreter = interpreter.New(config.InterpretConfig{}, interpreter.Dependencies{Provider: provider}, log)
	}
	if deps.Blend == (resolver.BlendConfig{}) {
		deps.Blend = resolver.DefaultBlendConfig()
	}
	return New(deps, Options{Warehouse: "Sucursal Adrogue - HT", POSProfile: "Sucursal Adrogue"}, log)
}

func do(t *testing.T, s *Server, req *http.Request) (*http.Response, map[string]interface{}) {
	t.Helper()
	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &body), string(raw))
	return resp, body
}

func postJSON(path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// ==========================
// /bridge/interpret
// ==========================

func TestInterpret(t *testing.T) {
	s := newTestServer(t, stubProvider{}, Dependencies{})

	req := postJSON("/bridge/interpret", `{"text":"modo factura","state":{},"catalog":["set_mode","ask_user"]}`)
	req.Header.Set(TraceHeader, "trace-abc")
	resp, body := do(t, s, req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "trace-abc", resp.Header.Get(TraceHeader))
	assert.Len(t, body, 1, "only actions are returned")

	actions := body["actions"].([]interface{})
	require.Len(t, actions, 1)
	first := actions[0].(map[string]interface{})
	assert.Equal(t, "set_mode", first["action"])
	assert.Equal(t, map[string]interface{}{"mode": "FACTURA"}, first["params"])
}

func TestInterpret_GeneratesTraceID(t *testing.T) {
	s := newTestServer(t, stubProvider{}, Dependencies{})

	resp, _ := do(t, s, postJSON("/bridge/interpret", `{"text":"modo remito"}`))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, resp.Header.Get(TraceHeader), 36)
}

func TestInterpret_Errors(t *testing.T) {
	tests := []struct {
		name     string
		provider llm.Provider
		body     string
		want     int
	}{
		{name: "malformed JSON", provider: stubProvider{}, body: `{"text":`, want: http.StatusBadRequest},
		{name: "model not configured", provider: nil, body: `{"text":"modo factura"}`, want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, tt.provider, Dependencies{})
			resp, body := do(t, s, postJSON("/bridge/interpret", tt.body))
			assert.Equal(t, tt.want, resp.StatusCode)
			assert.Equal(t, false, body["ok"])
			assert.NotEmpty(t, body["detail"])
		})
	}
}

// ==========================
// /bridge/payment_methods
// ==========================

func TestPaymentMethods(t *testing.T) {
	pay := &stubPayments{methods: []models.PaymentMethod{
		{Name: "Cash", Accounts: []models.PaymentAccount{{Company: "Hi Tech", Account: "Caja - HT"}}},
	}}
	s := newTestServer(t, stubProvider{}, Dependencies{Payments: pay})

	resp, body := do(t, s, httptest.NewRequest(http.MethodGet, "/bridge/payment_methods", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	raw, err := json.Marshal(body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"message":[{"name":"Cash","accounts":[{"company":"Hi Tech","account":"Caja - HT"}]}]}`, string(raw))
}

func TestPaymentMethods_ERPDown(t *testing.T) {
	s := newTestServer(t, stubProvider{}, Dependencies{Payments: &stubPayments{err: errors.New("erp 500")}})

	resp, body := do(t, s, httptest.NewRequest(http.MethodGet, "/bridge/payment_methods", nil))
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Contains(t, body["detail"], "erp 500")
}

func TestCacheClear(t *testing.T) {
	pay := &stubPayments{}
	s := newTestServer(t, stubProvider{}, Dependencies{Payments: pay})

	resp, body := do(t, s, httptest.NewRequest(http.MethodPost, "/bridge/cache_clear", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["ok"])
	assert.True(t, pay.invalidated)
}

// ==========================
// /bridge/resolve and /bridge/health
// ==========================

func TestResolve(t *testing.T) {
	res := models.ResolutionResult{
		Best:                 models.Item{"item_code": "CO-34"},
		Candidates:           []models.ScoredItem{{Score: 0.9, Item: models.Item{"item_code": "CO-34"}}},
		ResolutionConfidence: 0.9,
	}
	s := newTestServer(t, stubProvider{}, Dependencies{Resolver: stubResolver{res: res}})

	resp, body := do(t, s, postJSON("/bridge/resolve", `{"query":"codo 3/4","llm_confidence":0.8}`))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.InDelta(t, 0.6*0.8+0.4*0.9, body["confidence"], 1e-9)
	assert.Equal(t, "act", body["decision"])
	assert.Equal(t, "CO-34", body["best"].(map[string]interface{})["item_code"])
	assert.Equal(t, 0.9, body["candidates"].([]interface{})[0].(map[string]interface{})["score"])
}

func TestResolve_NoCandidates(t *testing.T) {
	res := models.ResolutionResult{Candidates: []models.ScoredItem{}}
	s := newTestServer(t, stubProvider{}, Dependencies{Resolver: stubResolver{res: res}})

	resp, body := do(t, s, postJSON("/bridge/resolve", `{"query":"tornillo"}`))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	best, present := body["best"]
	assert.True(t, present)
	assert.Nil(t, best)
	assert.Equal(t, []interface{}{}, body["candidates"])
	assert.Equal(t, 0.0, body["resolution_confidence"])
	assert.Equal(t, "search", body["decision"])
}

func TestResolve_Errors(t *testing.T) {
	t.Run("empty query", func(t *testing.T) {
		s := newTestServer(t, stubProvider{}, Dependencies{Resolver: stubResolver{}})
		resp, _ := do(t, s, postJSON("/bridge/resolve", `{"query":""}`))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("not configured", func(t *testing.T) {
		s := newTestServer(t, stubProvider{}, Dependencies{})
		resp, _ := do(t, s, postJSON("/bridge/resolve", `{"query":"codo"}`))
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})

	t.Run("search down", func(t *testing.T) {
		s := newTestServer(t, stubProvider{}, Dependencies{Resolver: stubResolver{err: resolver.ErrCatalogSearchFailed}})
		resp, _ := do(t, s, postJSON("/bridge/resolve", `{"query":"codo"}`))
		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	})
}

func TestHealthAndPing(t *testing.T) {
	s := newTestServer(t, stubProvider{}, Dependencies{})

	resp, body := do(t, s, httptest.NewRequest(http.MethodGet, "/bridge/health", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "Sucursal Adrogue - HT", body["warehouse"])

	_, body = do(t, s, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, true, body["pong"])
}

func TestCORS_LocalOriginOnly(t *testing.T) {
	s := newTestServer(t, stubProvider{}, Dependencies{})

	req := httptest.NewRequest(http.MethodGet, "/bridge/health", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	resp, _ := do(t, s, req)
	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/bridge/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	resp, _ = do(t, s, req)
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}
