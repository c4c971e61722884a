package vectorstore

import (
	"context"

	"legaldraft/internal/domain"
)

// Storage persists template vectors keyed by template id and supports similarity search.
// Upsert replaces any existing vector for the same template id.
type Storage interface {
	Init(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, entries []domain.IndexEntry, vectors [][]float64) error
	Delete(ctx context.Context, ids []int64) error
	Search(ctx context.Context, vector []float64, topK int) ([]domain.SearchResult, error)
	Clear(ctx context.Context) error
}
