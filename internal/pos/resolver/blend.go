// internal/pos/resolver/blend.go
package resolver

// Decision is what a caller should do with a blended confidence.
type Decision string

const (
	DecisionAct    Decision = "act"
	DecisionAsk    Decision = "ask"
	DecisionSearch Decision = "search"
)

// BlendConfig holds the blend weights and decision thresholds.
type BlendConfig struct {
	LLMWeight      float64
	ResolverWeight float64
	ActThreshold   float64
	AskThreshold   float64
}

func DefaultBlendConfig() BlendConfig {
	return BlendConfig{
		LLMWeight:      0.6,
		ResolverWeight: 0.4,
		ActThreshold:   0.75,
		AskThreshold:   0.45,
	}
}

// Blend combines the planner's and the resolver's confidence. A missing
// value defers to the other one; both missing yields 0.
func (c BlendConfig) Blend(llm, res *float64) float64 {
	switch {
	case llm == nil && res == nil:
		return 0
	case llm == nil:
		return *res
	case res == nil:
		return *llm
	}
	return c.LLMWeight*(*llm) + c.ResolverWeight*(*res)
}

// Decide classifies a confidence against the thresholds.
func (c BlendConfig) Decide(conf float64) Decision {
	switch {
	case conf >= c.ActThreshold:
		return DecisionAct
	case conf >= c.AskThreshold:
		return DecisionAsk
	}
	return DecisionSearch
}

// Blend uses the default weights.
func Blend(llm, res *float64) float64 {
	return DefaultBlendConfig().Blend(llm, res)
}

// Decide uses the default thresholds.
func Decide(conf float64) Decision {
	return DefaultBlendConfig().Decide(conf)
}
