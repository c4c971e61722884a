// Package session keeps the context a client has accumulated across drafting turns.
package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned for unknown or expired sessions.
var ErrNotFound = errors.New("session not found")

// Session pins a template and carries the answers collected so far.
type Session struct {
	ID         string         `json:"id"`
	TemplateID int64          `json:"template_id"`
	Query      string         `json:"query"`
	Context    map[string]any `json:"context"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// Store persists sessions with a sliding expiry.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}

// MergeContext overlays next on top of prev; keys in next win.
func MergeContext(prev, next map[string]any) map[string]any {
	out := make(map[string]any, len(prev)+len(next))
	for k, v := range prev {
		out[k] = v
	}
	for k, v := range next {
		out[k] = v
	}
	return out
}
