// internal/pos/resolver/resolver_test.go
package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pos-interpreter/internal/models"
)

// ==========================
// Test Logger Implementation
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

type stubSource struct {
	items []models.Item
	err   error
	limit int
	query string
}

func (s *stubSource) SearchItems(ctx context.Context, query string, limit int) ([]models.Item, error) {
	s.query, s.limit = query, limit
	return s.items, s.err
}

func catalogItems() []models.Item {
	return []models.Item{
		{"item_code": "CA-25", "item_name": "Caño PVC 25 mm", "item_group": "Caños"},
		{"item_code": "CA-20", "item_name": "Caño PVC 20 mm", "item_group": "Caños"},
		{"item_code": "CO-34", "item_name": "Codo 3/4", "brand": "Tigre"},
		{"item_code": "LL-12", "item_name": "Llave de paso 1/2", "item_barcode": []interface{}{"7791234"}},
	}
}

// ==========================
// Unit Tests
// ==========================

func TestTokenSortRatio(t *testing.T) {
	assert.Equal(t, 1.0, TokenSortRatio("pvc caño", "caño pvc"))
	assert.Equal(t, 1.0, TokenSortRatio("", ""))
	assert.Equal(t, 0.0, TokenSortRatio("abc", ""))
	assert.InDelta(t, 0.75, TokenSortRatio("abcd", "abcx"), 1e-9)
}

func TestIndexText(t *testing.T) {
	it := models.Item{
		"name":         "X1",
		"item_name":    "Caño Ñandú",
		"brand":        "Tigre",
		"item_barcode": []interface{}{"123", 456},
	}
	assert.Equal(t, "x1 cano nandu   tigre   123 456", IndexText(it))
}

func TestResolve_Empty(t *testing.T) {
	res := Resolve("caño", nil)
	assert.Nil(t, res.Best)
	assert.Empty(t, res.Candidates)
	assert.Equal(t, 0.0, res.ResolutionConfidence)
}

func TestResolve_MMBonusPicksMeasure(t *testing.T) {
	res := Resolve("cañon 20 mm", catalogItems())

	require.NotNil(t, res.Best)
	assert.Equal(t, "CA-20", res.Best.Code())
	assert.Len(t, res.Candidates, 4)
	assert.Equal(t, "CA-20", res.Candidates[0].Item.Code())
	assert.GreaterOrEqual(t, res.Candidates[0].Score, res.Candidates[1].Score)
	assert.LessOrEqual(t, res.ResolutionConfidence, 1.0)
}

func TestResolve_InchQueryMatchesNominalMM(t *testing.T) {
	res := Resolve("caño pvc media pulgada", catalogItems())
	assert.Equal(t, "CA-20", res.Best.Code())
}

func TestResolve_FractionBonus(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MMBonus = 0
	res := New(cfg).Resolve("codo 3/4", catalogItems())
	assert.Equal(t, "CO-34", res.Best.Code())
}

func TestResolve_LimitsAndRounds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxCandidates = 2
	res := New(cfg).Resolve("llave", catalogItems())

	assert.Len(t, res.Candidates, 2)
	for _, c := range res.Candidates {
		assert.Equal(t, round3(c.Score), c.Score)
	}
}

func TestResolve_StableForTies(t *testing.T) {
	items := []models.Item{
		{"item_code": "A", "item_name": "same"},
		{"item_code": "B", "item_name": "same"},
	}
	cfg := DefaultConfig()
	res := New(cfg).Resolve("zzz", []models.Item{
		{"item_code": "same"},
		{"item_code": "same"},
	})
	assert.Len(t, res.Candidates, 2)

	res = Resolve("same", items)
	assert.Equal(t, "A", res.Best.Code())
}

func TestResolve_ClampsConfidence(t *testing.T) {
	res := Resolve("caño 20 mm", []models.Item{{"item_code": "caño 20 mm"}})
	assert.Equal(t, 1.0, res.ResolutionConfidence)
	assert.Greater(t, res.Candidates[0].Score, 1.0)
}

func TestScoredItem_MarshalsFlat(t *testing.T) {
	res := Resolve("codo", []models.Item{{"item_code": "CO", "item_name": "codo"}})
	data, err := res.Candidates[0].MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"item_code":"CO","item_name":"codo","score":0.571}`, string(data))
}

func TestBlend(t *testing.T) {
	f := func(v float64) *float64 { return &v }

	assert.Equal(t, 0.0, Blend(nil, nil))
	assert.Equal(t, 0.3, Blend(nil, f(0.3)))
	assert.Equal(t, 0.9, Blend(f(0.9), nil))
	assert.InDelta(t, 0.6*0.9+0.4*0.5, Blend(f(0.9), f(0.5)), 1e-9)

	cfg := BlendConfig{LLMWeight: 0.5, ResolverWeight: 0.5}
	assert.InDelta(t, 0.7, cfg.Blend(f(0.9), f(0.5)), 1e-9)
}

func TestDecide(t *testing.T) {
	assert.Equal(t, DecisionAct, Decide(0.75))
	assert.Equal(t, DecisionAsk, Decide(0.5))
	assert.Equal(t, DecisionSearch, Decide(0.2))
}

// ==========================
// Service Tests
// ==========================

func TestService_ResolveQuery(t *testing.T) {
	src := &stubSource{items: catalogItems()}
	svc := NewService(src, New(DefaultConfig()), 0, &TestLogger{t: t})

	res, err := svc.ResolveQuery(context.Background(), "  caño 25 mm ")

	require.NoError(t, err)
	assert.Equal(t, "CA-25", res.Best.Code())
	assert.Equal(t, 20, src.limit)
	assert.Equal(t, "caño 25 mm", src.query)
}

func TestService_ResolveQuery_SourceError(t *testing.T) {
	src := &stubSource{err: errors.New("es down")}
	svc := NewService(src, New(DefaultConfig()), 10, &TestLogger{t: t})

	res, err := svc.ResolveQuery(context.Background(), "caño")

	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrCatalogSearchFailed))
	assert.Nil(t, res.Best)
	assert.Empty(t, res.Candidates)
}

func TestService_ResolveQuery_BlankQuery(t *testing.T) {
	src := &stubSource{}
	svc := NewService(src, New(DefaultConfig()), 10, &TestLogger{t: t})

	res, err := svc.ResolveQuery(context.Background(), "   ")

	assert.NoError(t, err)
	assert.Nil(t, res.Best)
	assert.Equal(t, "", src.query, "source must not be called")
}
