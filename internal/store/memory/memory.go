package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"legaldraft/internal/domain"
	"legaldraft/internal/store"
)

// Store keeps templates in process memory. Returned templates are copies.
type Store struct {
	mu        sync.RWMutex
	templates map[int64]*domain.Template
	nextID    int64
	nextVarID int64
	now       func() time.Time
}

func NewStore() *Store {
	return &Store{templates: make(map[int64]*domain.Template), now: time.Now}
}

func (s *Store) Get(_ context.Context, id int64) (*domain.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.templates[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return clone(t), nil
}

// List returns all templates ordered by id.
func (s *Store) List(_ context.Context) ([]*domain.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Template, 0, len(s.templates))
	for _, t := range s.templates {
		out = append(out, clone(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) Save(_ context.Context, t *domain.Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	t.ID = s.nextID
	t.CreatedAt = s.now().UTC()
	for i := range t.Variables {
		s.nextVarID++
		t.Variables[i].ID = s.nextVarID
		t.Variables[i].TemplateID = t.ID
	}
	s.templates[t.ID] = clone(t)
	return nil
}

// Delete removes a template and, with it, its variables.
func (s *Store) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.templates[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.templates, id)
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func clone(t *domain.Template) *domain.Template {
	c := *t
	c.Tags = append([]string(nil), t.Tags...)
	c.Variables = make([]domain.Variable, len(t.Variables))
	for i, v := range t.Variables {
		v.Enum = append([]string(nil), v.Enum...)
		c.Variables[i] = v
	}
	return &c
}
