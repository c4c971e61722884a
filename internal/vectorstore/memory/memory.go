package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"legaldraft/internal/domain"
)

// Storage is a simple in-memory vector store using brute-force cosine similarity.
type Storage struct {
	mu        sync.RWMutex
	dimension int
	vectors   [][]float64
	entries   []domain.IndexEntry
	pos       map[int64]int
}

func NewStorage() *Storage { return &Storage{pos: make(map[int64]int)} }

func (s *Storage) Init(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dimension = dimension
	s.vectors = nil
	s.entries = nil
	s.pos = make(map[int64]int)
	return nil
}

func (s *Storage) Upsert(_ context.Context, entries []domain.IndexEntry, vectors [][]float64) error {
	if len(entries) != len(vectors) {
		return errors.New("entries and vectors length mismatch")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range vectors {
		if len(v) != s.dimension {
			return errors.New("vector dimension mismatch")
		}
	}
	for i, e := range entries {
		if j, ok := s.pos[e.TemplateID]; ok {
			s.entries[j] = e
			s.vectors[j] = vectors[i]
			continue
		}
		s.pos[e.TemplateID] = len(s.entries)
		s.entries = append(s.entries, e)
		s.vectors = append(s.vectors, vectors[i])
	}
	return nil
}

func (s *Storage) Delete(_ context.Context, ids []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	drop := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	entries := s.entries[:0]
	vectors := s.vectors[:0]
	for i, e := range s.entries {
		if _, ok := drop[e.TemplateID]; ok {
			continue
		}
		entries = append(entries, e)
		vectors = append(vectors, s.vectors[i])
	}
	s.entries = entries
	s.vectors = vectors
	s.pos = make(map[int64]int, len(entries))
	for i, e := range entries {
		s.pos[e.TemplateID] = i
	}
	return nil
}

// Search returns up to topK entries ordered by descending score; ties keep insertion order.
func (s *Storage) Search(_ context.Context, vector []float64, topK int) ([]domain.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if topK <= 0 {
		topK = 5
	}
	// compute cosine similarity (vectors are assumed L2-normalized)
	scores := make([]float64, len(s.vectors))
	for i := range s.vectors {
		scores[i] = dot(s.vectors[i], vector)
	}
	idxs := argsortDesc(scores)
	if topK > len(idxs) {
		topK = len(idxs)
	}
	results := make([]domain.SearchResult, 0, topK)
	for i := 0; i < topK; i++ {
		j := idxs[i]
		results = append(results, domain.SearchResult{Entry: s.entries[j], Score: scores[j]})
	}
	return results, nil
}

func (s *Storage) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vectors = nil
	s.entries = nil
	s.pos = make(map[int64]int)
	return nil
}

// Len reports how many vectors are stored.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func dot(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

func argsortDesc(vals []float64) []int {
	idxs := make([]int, len(vals))
	for i := range vals {
		idxs[i] = i
	}
	sort.SliceStable(idxs, func(a, b int) bool { return vals[idxs[a]] > vals[idxs[b]] })
	return idxs
}
