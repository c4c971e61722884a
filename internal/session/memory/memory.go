package memory

import (
	"context"
	"sync"
	"time"

	"legaldraft/internal/session"
)

// Store keeps sessions in process memory. Expired entries are dropped lazily.
type Store struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]*session.Session
	now      func() time.Time
}

func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Store{ttl: ttl, sessions: make(map[string]*session.Session), now: time.Now}
}

func (s *Store) Get(_ context.Context, id string) (*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, session.ErrNotFound
	}
	if s.expired(sess) {
		delete(s.sessions, id)
		return nil, session.ErrNotFound
	}
	c := *sess
	c.Context = session.MergeContext(sess.Context, nil)
	return &c, nil
}

func (s *Store) Save(_ context.Context, sess *session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess.UpdatedAt = s.now()
	c := *sess
	c.Context = session.MergeContext(sess.Context, nil)
	s.sessions[sess.ID] = &c
	for id, other := range s.sessions {
		if s.expired(other) {
			delete(s.sessions, id)
		}
	}
	return nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *Store) expired(sess *session.Session) bool {
	return s.now().Sub(sess.UpdatedAt) > s.ttl
}
