package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legaldraft/internal/logger"
)

func init() {
	_ = logger.Init("error", "json")
}

func TestPool_Submit(t *testing.T) {
	p, err := NewPool(context.Background(), "test", 4)
	require.NoError(t, err)
	defer p.Shutdown(time.Second)

	var executed atomic.Bool
	var wg sync.WaitGroup
	wg.Add(1)
	require.NoError(t, p.Submit(context.Background(), func(ctx context.Context) {
		executed.Store(true)
		wg.Done()
	}))
	wg.Wait()
	assert.True(t, executed.Load())
}

func TestPool_SubmitCancelledContext(t *testing.T) {
	p, err := NewPool(context.Background(), "test", 1)
	require.NoError(t, err)
	defer p.Shutdown(time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = p.Submit(ctx, func(context.Context) { t.Error("task must not run") })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPool_SubmitDetachedUsesServiceContext(t *testing.T) {
	p, err := NewPool(context.Background(), "test", 2)
	require.NoError(t, err)
	defer p.Shutdown(time.Second)

	done := make(chan error, 1)
	require.NoError(t, p.SubmitDetached(func(ctx context.Context) {
		done <- ctx.Err()
	}))
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("detached task did not run")
	}
}

func TestPool_PanicIsRecovered(t *testing.T) {
	p, err := NewPool(context.Background(), "test", 1)
	require.NoError(t, err)
	defer p.Shutdown(time.Second)

	require.NoError(t, p.Submit(context.Background(), func(context.Context) { panic("boom") }))

	ran := make(chan struct{})
	require.NoError(t, p.Submit(context.Background(), func(context.Context) { close(ran) }))
	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("pool unusable after panic")
	}
}

func TestPool_SubmitAfterShutdown(t *testing.T) {
	p, err := NewPool(context.Background(), "test", 1)
	require.NoError(t, err)
	p.Shutdown(time.Second)

	err = p.SubmitDetached(func(context.Context) {})
	assert.ErrorIs(t, err, ErrPoolClosed)
}

func TestPool_Metrics(t *testing.T) {
	p, err := NewPool(context.Background(), "test", 3)
	require.NoError(t, err)
	defer p.Shutdown(time.Second)
	assert.Equal(t, 3, p.Metrics()["cap"])
}
