// Package index owns the similarity index over template projections.
//
// An Index is created by the composition root and shared by the matcher and the
// ingestion path. Writers are serialized; readers always see a complete state.
package index

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"

	"legaldraft/internal/domain"
	"legaldraft/internal/embedding"
	"legaldraft/internal/vectorstore"
)

// ErrEmpty is returned by Query when the index holds no entries.
var ErrEmpty = errors.New("index is empty")

// Index maps template ids to embedded projection texts.
type Index struct {
	embedder embedding.Embedder
	store    vectorstore.Storage

	mu      sync.RWMutex
	order   []int64
	texts   map[int64]string
	dim     int
	lexical bool
}

// New creates an empty index backed by the given embedder and vector storage.
func New(embedder embedding.Embedder, store vectorstore.Storage) *Index {
	return &Index{embedder: embedder, store: store, texts: make(map[int64]string)}
}

// Len returns the number of indexed templates.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.order)
}

// Contains reports whether a template id is indexed.
func (ix *Index) Contains(id int64) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	_, ok := ix.texts[id]
	return ok
}

// Upsert adds or replaces the entry for e.TemplateID.
// A fitted embedder is refit on the whole corpus and every entry is re-embedded.
func (ix *Index) Upsert(ctx context.Context, e domain.IndexEntry) error {
	if e.TemplateID == 0 {
		return errors.New("index entry without template id")
	}
	if embedding.IsFitted(ix.embedder) {
		ix.mu.Lock()
		defer ix.mu.Unlock()
		order, texts := ix.withEntry(e)
		return ix.refitLocked(ctx, order, texts)
	}

	vec, err := ix.embedder.Embed(ctx, e.Text)
	if err != nil {
		return fmt.Errorf("embed template %d: %w", e.TemplateID, err)
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.dim == 0 {
		if err := ix.store.Init(ctx, len(vec)); err != nil {
			return err
		}
		ix.dim = len(vec)
	}
	if err := ix.store.Upsert(ctx, []domain.IndexEntry{e}, [][]float64{vec}); err != nil {
		return err
	}
	ix.order, ix.texts = ix.withEntry(e)
	return nil
}

// Remove drops the entry for id. Removing an unknown id is a no-op.
func (ix *Index) Remove(ctx context.Context, id int64) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if _, ok := ix.texts[id]; !ok {
		return nil
	}
	if err := ix.store.Delete(ctx, []int64{id}); err != nil {
		return err
	}
	delete(ix.texts, id)
	for i, v := range ix.order {
		if v == id {
			ix.order = append(ix.order[:i:i], ix.order[i+1:]...)
			break
		}
	}
	return nil
}

// Rebuild replaces the whole index content with entries.
func (ix *Index) Rebuild(ctx context.Context, entries []domain.IndexEntry) error {
	order := make([]int64, 0, len(entries))
	texts := make(map[int64]string, len(entries))
	for _, e := range entries {
		if _, ok := texts[e.TemplateID]; !ok {
			order = append(order, e.TemplateID)
		}
		texts[e.TemplateID] = e.Text
	}

	if embedding.IsFitted(ix.embedder) {
		ix.mu.Lock()
		defer ix.mu.Unlock()
		return ix.refitLocked(ctx, order, texts)
	}

	vectors := make([][]float64, len(order))
	for i, id := range order {
		vec, err := ix.embedder.Embed(ctx, texts[id])
		if err != nil {
			return fmt.Errorf("embed template %d: %w", id, err)
		}
		vectors[i] = vec
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.replaceLocked(ctx, order, texts, vectors)
}

// Query returns up to k hits for text, highest score first.
// When the embedding carries no signal the entries are ranked lexically.
func (ix *Index) Query(ctx context.Context, text string, k int) ([]domain.Hit, error) {
	if k <= 0 {
		k = 1
	}
	var vec []float64
	if !embedding.IsFitted(ix.embedder) {
		if ix.Len() == 0 {
			return nil, ErrEmpty
		}
		v, err := ix.embedder.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed query: %w", err)
		}
		vec = v
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if len(ix.order) == 0 {
		return nil, ErrEmpty
	}
	if ix.lexical {
		return ix.lexicalSearch(text, k), nil
	}
	if vec == nil {
		v, err := ix.embedder.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed query: %w", err)
		}
		vec = v
	}
	if embedding.IsZero(vec) {
		return ix.lexicalSearch(text, k), nil
	}
	res, err := ix.store.Search(ctx, vec, k)
	if err != nil {
		return nil, err
	}
	hits := make([]domain.Hit, 0, len(res))
	signal := false
	for _, r := range res {
		if _, ok := ix.texts[r.Entry.TemplateID]; !ok {
			continue
		}
		if r.Score > 1e-9 {
			signal = true
		}
		hits = append(hits, domain.Hit{ID: r.Entry.TemplateID, Score: r.Score})
	}
	if !signal {
		return ix.lexicalSearch(text, k), nil
	}
	return hits, nil
}

func (ix *Index) withEntry(e domain.IndexEntry) ([]int64, map[int64]string) {
	order := make([]int64, 0, len(ix.order)+1)
	order = append(order, ix.order...)
	texts := make(map[int64]string, len(ix.texts)+1)
	for id, t := range ix.texts {
		texts[id] = t
	}
	if _, ok := texts[e.TemplateID]; !ok {
		order = append(order, e.TemplateID)
	}
	texts[e.TemplateID] = e.Text
	return order, texts
}

func (ix *Index) refitLocked(ctx context.Context, order []int64, texts map[int64]string) error {
	corpus := make([]string, len(order))
	for i, id := range order {
		corpus[i] = texts[id]
	}
	if len(corpus) == 0 {
		return ix.replaceLocked(ctx, order, texts, nil)
	}
	if err := ix.embedder.Prepare(corpus); err != nil {
		if errors.Is(err, embedding.ErrEmptyVocabulary) {
			// nothing embeddable; serve lexical ranking only
			if err := ix.store.Clear(ctx); err != nil {
				return err
			}
			ix.order, ix.texts, ix.lexical = order, texts, true
			return nil
		}
		return err
	}
	vectors := make([][]float64, len(corpus))
	for i, t := range corpus {
		vec, err := ix.embedder.Embed(ctx, t)
		if err != nil {
			return fmt.Errorf("embed template %d: %w", order[i], err)
		}
		vectors[i] = vec
	}
	return ix.replaceLocked(ctx, order, texts, vectors)
}

func (ix *Index) replaceLocked(ctx context.Context, order []int64, texts map[int64]string, vectors [][]float64) error {
	if len(vectors) == 0 {
		if err := ix.store.Clear(ctx); err != nil {
			return err
		}
		ix.order, ix.texts, ix.lexical = order, texts, false
		return nil
	}
	dim := len(vectors[0])
	if err := ix.store.Init(ctx, dim); err != nil {
		return err
	}
	entries := make([]domain.IndexEntry, len(order))
	for i, id := range order {
		entries[i] = domain.IndexEntry{TemplateID: id, Text: texts[id]}
	}
	if err := ix.store.Upsert(ctx, entries, vectors); err != nil {
		return err
	}
	ix.order, ix.texts, ix.dim, ix.lexical = order, texts, dim, false
	return nil
}

var unicodeWordRe = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`)

func (ix *Index) lexicalSearch(query string, k int) []domain.Hit {
	qset := toTokenSet(query)
	hits := make([]domain.Hit, len(ix.order))
	for i, id := range ix.order {
		hits[i] = domain.Hit{ID: id, Score: overlapOchiai(qset, ix.texts[id])}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k]
}

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

// overlapOchiai is |A∩B| / sqrt(|A||B|) over distinct tokens.
func overlapOchiai(qset map[string]struct{}, text string) float64 {
	stoks := unicodeWordRe.FindAllString(strings.ToLower(text), -1)
	seen := make(map[string]struct{}, len(stoks))
	inter := 0
	for _, t := range stoks {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := qset[t]; ok {
			inter++
		}
	}
	if len(qset) == 0 || len(seen) == 0 {
		return 0
	}
	return float64(inter) / math.Sqrt(float64(len(qset))*float64(len(seen)))
}
