package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legaldraft/internal/apperrors"
	"legaldraft/internal/domain"
	"legaldraft/internal/drafting"
	"legaldraft/internal/session"
	sessmem "legaldraft/internal/session/memory"
)

type brokenGetter struct{}

func (brokenGetter) Get(context.Context, int64) (*domain.Template, error) {
	return nil, errors.New("connection refused")
}

func draftFixture(t *testing.T) (*fixture, *Drafter, *sessmem.Store, int64) {
	t.Helper()
	ctx := context.Background()
	f := newFixture(t, &fakeExtractor{dt: leaseExtraction()}, IngestOptions{})
	res, err := f.ingestor.IngestDocument(ctx, UploadInput{Path: writeDoc(t, "lease.txt", "Lease."), Filename: "lease.txt"})
	require.NoError(t, err)
	sessions := sessmem.NewStore(time.Hour)
	return f, NewDrafter(f.controller, sessions), sessions, res.Template.ID
}

func TestDraft_SessionAccumulatesContext(t *testing.T) {
	ctx := context.Background()
	_, d, sessions, id := draftFixture(t)

	res, err := d.Draft(ctx, DraftInput{Query: "residential lease for a tenant", Context: map[string]any{"landlord": "Acme Ltd"}})
	require.NoError(t, err)
	assert.Equal(t, "in_progress", res.Status)
	assert.Equal(t, msgInProgress, res.Message)
	assert.Equal(t, id, res.TemplateID)
	assert.Equal(t, []string{"tenant"}, res.Missing)
	assert.Equal(t, []string{"Regarding 'Tenant name', what is the value? (For example: ...)"}, res.Questions)
	require.NotEmpty(t, res.SessionID)

	stored, err := sessions.Get(ctx, res.SessionID)
	require.NoError(t, err)
	assert.Equal(t, id, stored.TemplateID)

	// follow-up carries only the new answer
	res2, err := d.Draft(ctx, DraftInput{SessionID: res.SessionID, Context: map[string]any{"tenant": "Bob"}})
	require.NoError(t, err)
	assert.Equal(t, "complete", res2.Status)
	assert.Equal(t, msgComplete, res2.Message)
	assert.Equal(t, "This lease is between Acme Ltd and Bob.", res2.Draft)
	assert.Empty(t, res2.SessionID)

	_, err = sessions.Get(ctx, res.SessionID)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestDraft_RequestContextOverridesSession(t *testing.T) {
	ctx := context.Background()
	_, d, _, _ := draftFixture(t)

	res, err := d.Draft(ctx, DraftInput{Query: "lease", Context: map[string]any{"landlord": "Old Co"}})
	require.NoError(t, err)

	res, err = d.Draft(ctx, DraftInput{SessionID: res.SessionID, Context: map[string]any{"landlord": "New Co", "tenant": "Bob"}})
	require.NoError(t, err)
	assert.Equal(t, "This lease is between New Co and Bob.", res.Draft)
}

func TestDraft_PinnedTemplateWithoutQuery(t *testing.T) {
	_, d, _, id := draftFixture(t)

	res, err := d.Draft(context.Background(), DraftInput{TemplateID: id, Context: map[string]any{"landlord": "A", "tenant": "B"}})
	require.NoError(t, err)
	assert.Equal(t, "complete", res.Status)
	assert.Equal(t, id, res.TemplateID)
}

func TestDraft_EmptyQueryRejected(t *testing.T) {
	_, d, _, _ := draftFixture(t)

	_, err := d.Draft(context.Background(), DraftInput{Query: "   "})
	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeInvalidRequest, appErr.Code)
}

func TestDraft_UnknownSessionStartsFresh(t *testing.T) {
	_, d, _, _ := draftFixture(t)

	res, err := d.Draft(context.Background(), DraftInput{Query: "lease", SessionID: "gone"})
	require.NoError(t, err)
	assert.Equal(t, "in_progress", res.Status)
	assert.NotEqual(t, "gone", res.SessionID)
	assert.NotEmpty(t, res.SessionID)
}

func TestDraft_NotFound(t *testing.T) {
	ctx := context.Background()
	f, d, _, id := draftFixture(t)
	require.NoError(t, f.store.Delete(ctx, id))

	_, err := d.Draft(ctx, DraftInput{Query: "lease"})
	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeTemplateNotFound, appErr.Code)
}

func TestDraft_StoreFailure(t *testing.T) {
	f, _, _, id := draftFixture(t)
	d := NewDrafter(drafting.NewController(brokenGetter{}, f.index, drafting.Options{}), nil)

	_, err := d.Draft(context.Background(), DraftInput{TemplateID: id})
	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeStoreUnavailable, appErr.Code)
}

type unreachableIndex struct{ err error }

func (u unreachableIndex) Len() int { return 1 }
func (u unreachableIndex) Query(context.Context, string, int) ([]domain.Hit, error) {
	return nil, u.err
}
func (u unreachableIndex) Upsert(context.Context, domain.IndexEntry) error { return u.err }

func TestDraft_IndexFailureReportedSeparately(t *testing.T) {
	f, _, _, _ := draftFixture(t)
	ix := unreachableIndex{err: errors.New("embedding endpoint returned 503")}
	d := NewDrafter(drafting.NewController(f.store, ix, drafting.Options{}), nil)

	_, err := d.Draft(context.Background(), DraftInput{Query: "lease"})
	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeIndexUnavailable, appErr.Code)
	assert.Equal(t, 503, appErr.HTTPStatus)
}

func TestDraft_StatelessWithoutSessionStore(t *testing.T) {
	f, _, _, _ := draftFixture(t)
	d := NewDrafter(f.controller, nil)

	res, err := d.Draft(context.Background(), DraftInput{Query: "lease"})
	require.NoError(t, err)
	assert.Equal(t, "in_progress", res.Status)
	assert.Empty(t, res.SessionID)
	assert.Equal(t, []string{"landlord", "tenant"}, res.Missing)
}
