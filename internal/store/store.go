// Package store defines the authoritative template store.
package store

import (
	"context"
	"errors"

	"legaldraft/internal/domain"
)

// ErrNotFound is returned when a template id does not resolve.
var ErrNotFound = errors.New("template not found")

// TemplateStore persists templates together with their variables.
// Save assigns ID and CreatedAt, and the variable ids, on the passed template.
type TemplateStore interface {
	Get(ctx context.Context, id int64) (*domain.Template, error)
	List(ctx context.Context) ([]*domain.Template, error)
	Save(ctx context.Context, t *domain.Template) error
	Delete(ctx context.Context, id int64) error
	Ping(ctx context.Context) error
}
