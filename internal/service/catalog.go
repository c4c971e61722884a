package service

import (
	"context"
	"errors"

	"github.com/sahilm/fuzzy"

	"legaldraft/internal/apperrors"
	"legaldraft/internal/domain"
	"legaldraft/internal/store"
)

// Catalog answers read-only template lookups.
type Catalog struct {
	store store.TemplateStore
}

func NewCatalog(st store.TemplateStore) *Catalog {
	return &Catalog{store: st}
}

func (c *Catalog) Get(ctx context.Context, id int64) (*domain.Template, error) {
	t, err := c.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NotFound(apperrors.CodeTemplateNotFound, "template not found")
		}
		return nil, apperrors.StoreUnavailable(err)
	}
	return t, nil
}

// List returns all templates, or with a non-empty q the titles fuzzy-matching q, best first.
func (c *Catalog) List(ctx context.Context, q string) ([]*domain.Template, error) {
	all, err := c.store.List(ctx)
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	if q == "" {
		return all, nil
	}
	matches := fuzzy.FindFrom(q, titles(all))
	out := make([]*domain.Template, 0, len(matches))
	for _, m := range matches {
		out = append(out, all[m.Index])
	}
	return out, nil
}

type titles []*domain.Template

func (t titles) String(i int) string { return t[i].Title }
func (t titles) Len() int            { return len(t) }
