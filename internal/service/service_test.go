package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"legaldraft/internal/domain"
	"legaldraft/internal/drafting"
	"legaldraft/internal/embedding/tfidf"
	"legaldraft/internal/extract"
	"legaldraft/internal/index"
	"legaldraft/internal/logger"
	storemem "legaldraft/internal/store/memory"
	vecmem "legaldraft/internal/vectorstore/memory"
)

func init() {
	_ = logger.Init("error", "json")
}

type fakeExtractor struct {
	dt  *extract.DocumentTemplate
	err error
}

func (f *fakeExtractor) Name() string { return "fake" }

func (f *fakeExtractor) Extract(context.Context, string) (*extract.DocumentTemplate, error) {
	if f.err != nil {
		return nil, f.err
	}
	cp := *f.dt
	return &cp, nil
}

type failingUpdater struct{ calls int }

func (f *failingUpdater) IngestIndexUpdate(context.Context, *domain.Template) error {
	f.calls++
	return errors.New("index offline")
}

type recordingReindexer struct {
	mu  sync.Mutex
	ids []int64
}

func (r *recordingReindexer) Schedule(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, id)
	return nil
}

func leaseExtraction() *extract.DocumentTemplate {
	return &extract.DocumentTemplate{
		Title:          "Residential lease agreement",
		Description:    "Lease of a residential property between landlord and tenant",
		SimilarityTags: []string{"lease", "rent", "tenant"},
		BodyMD:         "This lease is between {{landlord}} and {{tenant}}.",
		Variables: []extract.Variable{
			{Key: "landlord", Label: "Landlord name", Required: true, Example: "Acme Ltd"},
			{Key: "tenant", Label: "Tenant name", Required: true},
		},
	}
}

func writeDoc(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

type fixture struct {
	store      *storemem.Store
	index      *index.Index
	controller *drafting.Controller
	ingestor   *Ingestor
	reindexer  *recordingReindexer
}

func newFixture(t *testing.T, ex extract.Extractor, opts IngestOptions) *fixture {
	t.Helper()
	st := storemem.NewStore()
	ix := index.New(tfidf.NewEmbedder(), vecmem.NewStorage())
	c := drafting.NewController(st, ix, drafting.Options{})
	rx := &recordingReindexer{}
	return &fixture{
		store:      st,
		index:      ix,
		controller: c,
		ingestor:   NewIngestor(st, ex, c, ix, rx, opts),
		reindexer:  rx,
	}
}
