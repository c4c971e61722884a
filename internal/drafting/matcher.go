// Package drafting implements template matching, variable resolution and rendering,
// and the per-request drafting state machine built on them.
package drafting

import (
	"context"
	"errors"

	"legaldraft/internal/domain"
	"legaldraft/internal/index"
)

// Searcher is the read side of the similarity index.
type Searcher interface {
	Len() int
	Query(ctx context.Context, text string, k int) ([]domain.Hit, error)
}

// Matcher picks the single best template for a free-text query.
type Matcher struct {
	index Searcher
}

func NewMatcher(ix Searcher) *Matcher {
	return &Matcher{index: ix}
}

// FindBest returns the id of the highest scoring template, or ok=false when the
// index is absent, empty or returns no hits.
func (m *Matcher) FindBest(ctx context.Context, query string) (id int64, ok bool, err error) {
	if m == nil || m.index == nil || m.index.Len() == 0 {
		return 0, false, nil
	}
	hits, err := m.index.Query(ctx, query, 1)
	if err != nil {
		if errors.Is(err, index.ErrEmpty) {
			return 0, false, nil
		}
		return 0, false, err
	}
	if len(hits) == 0 {
		return 0, false, nil
	}
	return hits[0].ID, true, nil
}
