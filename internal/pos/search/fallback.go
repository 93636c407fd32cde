// internal/pos/search/fallback.go
package search

import (
	"context"
	"errors"
	"fmt"

	"pos-interpreter/internal/models"
)

var ErrNoSources = errors.New("no search sources configured")

// Named pairs a source with the name used in logs.
type Named struct {
	Name   string
	Source Source
}

// Fallback asks each source in turn and returns the first non-empty
// result. An empty success from any source beats an error from a later one.
type Fallback struct {
	sources []Named
	log     Logger
}

func NewFallback(log Logger, sources ...Named) *Fallback {
	kept := make([]Named, 0, len(sources))
	for _, s := range sources {
		if s.Source != nil {
			kept = append(kept, s)
		}
	}
	return &Fallback{sources: kept, log: log}
}

func (f *Fallback) SearchItems(ctx context.Context, query string, limit int) ([]models.Item, error) {
	if len(f.sources) == 0 {
		return nil, ErrNoSources
	}

	var (
		lastErr  error
		answered bool
	)
	for _, s := range f.sources {
		items, err := s.Source.SearchItems(ctx, query, limit)
		if err != nil {
			f.log.Warn("search source failed", map[string]interface{}{
				"source": s.Name,
				"query":  query,
				"error":  err.Error(),
			})
			lastErr = fmt.Errorf("%s: %w", s.Name, err)
			continue
		}
		if len(items) > 0 {
			return items, nil
		}
		answered = true
	}
	if answered {
		return []models.Item{}, nil
	}
	return nil, lastErr
}
