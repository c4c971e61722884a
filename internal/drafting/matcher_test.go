package drafting

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legaldraft/internal/domain"
	"legaldraft/internal/embedding/tfidf"
	"legaldraft/internal/index"
	"legaldraft/internal/vectorstore/memory"
)

type stubSearcher struct {
	n    int
	hits []domain.Hit
	err  error
}

func (s stubSearcher) Len() int { return s.n }
func (s stubSearcher) Query(context.Context, string, int) ([]domain.Hit, error) {
	return s.hits, s.err
}

func newIndex() *index.Index {
	return index.New(tfidf.NewEmbedder(), memory.NewStorage())
}

func TestFindBest_EmptyIndex(t *testing.T) {
	ctx := context.Background()
	for _, q := range []string{"", "lease", "I need an NDA", "contract"} {
		_, ok, err := NewMatcher(newIndex()).FindBest(ctx, q)
		require.NoError(t, err)
		assert.False(t, ok)

		_, ok, err = NewMatcher(nil).FindBest(ctx, q)
		require.NoError(t, err)
		assert.False(t, ok)
	}
}

func TestFindBest_NoHits(t *testing.T) {
	_, ok, err := NewMatcher(stubSearcher{n: 2}).FindBest(context.Background(), "x")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFindBest_EmptyErrorIsNoMatch(t *testing.T) {
	_, ok, err := NewMatcher(stubSearcher{n: 1, err: index.ErrEmpty}).FindBest(context.Background(), "x")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFindBest_PropagatesQueryFailure(t *testing.T) {
	boom := errors.New("embedding service down")
	_, _, err := NewMatcher(stubSearcher{n: 1, err: boom}).FindBest(context.Background(), "x")
	assert.ErrorIs(t, err, boom)
}

func TestFindBest_ReturnsTopHit(t *testing.T) {
	ctx := context.Background()
	ix := newIndex()
	lease := &domain.Template{ID: 10, Title: "Residential Lease", Description: "Apartment rental between landlord and tenant", Tags: []string{"lease", "rent"}}
	nda := &domain.Template{ID: 20, Title: "Non-Disclosure Agreement", Description: "Protects confidential information", Tags: []string{"nda", "confidentiality"}}
	require.NoError(t, ix.Upsert(ctx, domain.IndexEntry{TemplateID: lease.ID, Text: lease.Projection()}))
	require.NoError(t, ix.Upsert(ctx, domain.IndexEntry{TemplateID: nda.ID, Text: nda.Projection()}))

	id, ok, err := NewMatcher(ix).FindBest(ctx, "draft an nda to keep information confidential")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(20), id)

	id, ok, err = NewMatcher(ix).FindBest(ctx, "rent an apartment to a tenant")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(10), id)
}
