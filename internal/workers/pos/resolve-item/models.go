// internal/workers/pos/resolve-item/models.go
package resolveitem

import "pos-interpreter/internal/models"

type Input struct {
	Query         string   `json:"query"`
	LLMConfidence *float64 `json:"llmConfidence,omitempty"`
}

type Output struct {
	Best                 models.Item         `json:"best"`
	Candidates           []models.ScoredItem `json:"candidates"`
	ResolutionConfidence float64             `json:"resolutionConfidence"`
	Confidence           float64             `json:"confidence"`
	Decision             string              `json:"decision"` // act | ask | search
}
