package reindex

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legaldraft/internal/domain"
	"legaldraft/internal/logger"
	storemem "legaldraft/internal/store/memory"
	"legaldraft/internal/worker"
)

func init() {
	_ = logger.Init("error", "json")
}

type flakyUpdater struct {
	mu       sync.Mutex
	failures int
	calls    int
	indexed  []int64
	done     chan struct{}
}

func (f *flakyUpdater) IngestIndexUpdate(_ context.Context, t *domain.Template) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failures {
		return errors.New("index unavailable")
	}
	f.indexed = append(f.indexed, t.ID)
	if f.done != nil {
		close(f.done)
	}
	return nil
}

func (f *flakyUpdater) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newPool(t *testing.T) *worker.Pool {
	t.Helper()
	p, err := worker.NewPool(context.Background(), "reindex-test", 2)
	require.NoError(t, err)
	t.Cleanup(func() { p.Shutdown(time.Second) })
	return p
}

func savedTemplate(t *testing.T, st *storemem.Store) *domain.Template {
	t.Helper()
	tpl := &domain.Template{Title: "Lease", Body: "{{x}}"}
	require.NoError(t, st.Save(context.Background(), tpl))
	return tpl
}

func TestPoolReindexer_RetriesUntilSuccess(t *testing.T) {
	st := storemem.NewStore()
	tpl := savedTemplate(t, st)
	up := &flakyUpdater{failures: 2, done: make(chan struct{})}
	r := NewPoolReindexer(newPool(t), st, up, PoolConfig{MaxRetries: 5, BaseDelay: time.Millisecond})

	require.NoError(t, r.Schedule(context.Background(), tpl.ID))
	select {
	case <-up.done:
	case <-time.After(5 * time.Second):
		t.Fatal("reindex did not succeed")
	}
	assert.Equal(t, 3, up.callCount())
	assert.Equal(t, []int64{tpl.ID}, up.indexed)
}

func TestPoolReindexer_GivesUpAfterMaxRetries(t *testing.T) {
	st := storemem.NewStore()
	tpl := savedTemplate(t, st)
	up := &flakyUpdater{failures: 100}
	r := NewPoolReindexer(newPool(t), st, up, PoolConfig{MaxRetries: 3, BaseDelay: time.Millisecond})

	r.run(context.Background(), tpl.ID)
	assert.Equal(t, 3, up.callCount())
	assert.Empty(t, up.indexed)
}

func TestPoolReindexer_DeletedTemplateStops(t *testing.T) {
	up := &flakyUpdater{}
	r := NewPoolReindexer(newPool(t), storemem.NewStore(), up, PoolConfig{MaxRetries: 3, BaseDelay: time.Millisecond})

	r.run(context.Background(), 77)
	assert.Zero(t, up.callCount())
}

func TestPoolReindexer_Delay(t *testing.T) {
	r := NewPoolReindexer(nil, nil, nil, PoolConfig{BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second})
	assert.Equal(t, 100*time.Millisecond, r.delay(1))
	assert.Equal(t, 400*time.Millisecond, r.delay(3))
	assert.Equal(t, time.Second, r.delay(10))
	assert.Equal(t, time.Second, r.delay(80))
}

func TestArgs(t *testing.T) {
	assert.Equal(t, "template_reindex", Args{}.Kind())
	opts := Args{}.InsertOpts()
	assert.Equal(t, river.QueueDefault, opts.Queue)
	assert.Equal(t, 5, opts.MaxAttempts)
	assert.True(t, opts.UniqueOpts.ByArgs)
}

func TestWorker_Work(t *testing.T) {
	st := storemem.NewStore()
	tpl := savedTemplate(t, st)
	up := &flakyUpdater{failures: 1}
	w := NewWorker(st, up)
	job := &river.Job[Args]{JobRow: &rivertype.JobRow{Attempt: 1}, Args: Args{TemplateID: tpl.ID}}

	assert.Error(t, w.Work(context.Background(), job))
	assert.NoError(t, w.Work(context.Background(), job))
	assert.Equal(t, []int64{tpl.ID}, up.indexed)
}

func TestWorker_WorkDeletedTemplateCompletes(t *testing.T) {
	w := NewWorker(storemem.NewStore(), &flakyUpdater{})
	job := &river.Job[Args]{JobRow: &rivertype.JobRow{Attempt: 1}, Args: Args{TemplateID: 5}}
	assert.NoError(t, w.Work(context.Background(), job))
}

func TestWorker_WorkUninitialized(t *testing.T) {
	w := NewWorker(nil, nil)
	job := &river.Job[Args]{JobRow: &rivertype.JobRow{Attempt: 1}, Args: Args{TemplateID: 5}}
	assert.Error(t, w.Work(context.Background(), job))
}
