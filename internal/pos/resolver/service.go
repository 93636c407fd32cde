// internal/pos/resolver/service.go
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"pos-interpreter/internal/models"
)

var ErrCatalogSearchFailed = errors.New("CATALOG_SEARCH_FAILED")

// CandidateSource supplies catalog items for a free-text query.
type CandidateSource interface {
	SearchItems(ctx context.Context, query string, limit int) ([]models.Item, error)
}

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Service fetches candidates and ranks them.
type Service struct {
	source     CandidateSource
	resolver   *Resolver
	fetchLimit int
	log        Logger
}

// NewService wires a resolver to its candidate source. fetchLimit is how many
// items are requested from the source; 0 means 20.
func NewService(source CandidateSource, resolver *Resolver, fetchLimit int, log Logger) *Service {
	if fetchLimit <= 0 {
		fetchLimit = 20
	}
	return &Service{source: source, resolver: resolver, fetchLimit: fetchLimit, log: log}
}

// ResolveQuery returns the best catalog match for query. A source failure is
// returned wrapped in ErrCatalogSearchFailed together with an empty result.
func (s *Service) ResolveQuery(ctx context.Context, query string) (models.ResolutionResult, error) {
	ctx, span := otel.Tracer("pos-interpreter/resolver").Start(ctx, "resolver.resolve")
	defer span.End()

	empty := models.ResolutionResult{Candidates: []models.ScoredItem{}}
	query = strings.TrimSpace(query)
	if query == "" {
		return empty, nil
	}

	start := time.Now()
	items, err := s.source.SearchItems(ctx, query, s.fetchLimit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "candidate search failed")
		s.log.Error("candidate search failed", map[string]interface{}{
			"query": query,
			"error": err.Error(),
		})
		return empty, fmt.Errorf("%w: %v", ErrCatalogSearchFailed, err)
	}

	res := s.resolver.Resolve(query, items)
	span.SetAttributes(
		attribute.Int("resolver.candidates", len(items)),
		attribute.Float64("resolver.confidence", res.ResolutionConfidence),
	)
	s.log.Info("query resolved", map[string]interface{}{
		"query":       query,
		"candidates":  len(items),
		"confidence":  res.ResolutionConfidence,
		"best":        res.Best.Code(),
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return res, nil
}
