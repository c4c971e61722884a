// Package reindex retries similarity index updates that failed after a
// template was already committed to the store.
package reindex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"legaldraft/internal/domain"
	"legaldraft/internal/logger"
	"legaldraft/internal/store"
	"legaldraft/internal/worker"
)

// Reindexer schedules an out-of-band index update for a stored template.
type Reindexer interface {
	Schedule(ctx context.Context, templateID int64) error
}

// TemplateGetter loads the authoritative template.
type TemplateGetter interface {
	Get(ctx context.Context, id int64) (*domain.Template, error)
}

// Updater upserts a template's projection into the similarity index.
type Updater interface {
	IngestIndexUpdate(ctx context.Context, t *domain.Template) error
}

// errGone marks templates deleted before their reindex ran.
var errGone = errors.New("template deleted before reindex")

func reindexOnce(ctx context.Context, templates TemplateGetter, updater Updater, id int64) error {
	t, err := templates.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errGone
		}
		return fmt.Errorf("load template %d: %w", id, err)
	}
	if err := updater.IngestIndexUpdate(ctx, t); err != nil {
		return fmt.Errorf("index template %d: %w", id, err)
	}
	return nil
}

// PoolConfig bounds the in-process retry loop.
type PoolConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// PoolReindexer retries on the worker pool with exponential backoff.
// Pending retries are lost on restart; the startup rebuild covers them.
type PoolReindexer struct {
	pool      *worker.Pool
	templates TemplateGetter
	updater   Updater
	cfg       PoolConfig
}

func NewPoolReindexer(pool *worker.Pool, templates TemplateGetter, updater Updater, cfg PoolConfig) *PoolReindexer {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 500 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 30 * time.Second
	}
	return &PoolReindexer{pool: pool, templates: templates, updater: updater, cfg: cfg}
}

func (r *PoolReindexer) Schedule(_ context.Context, templateID int64) error {
	return r.pool.SubmitDetached(func(ctx context.Context) {
		r.run(ctx, templateID)
	})
}

func (r *PoolReindexer) run(ctx context.Context, id int64) {
	for attempt := 1; attempt <= r.cfg.MaxRetries; attempt++ {
		err := reindexOnce(ctx, r.templates, r.updater, id)
		switch {
		case err == nil:
			logger.Info("Template reindexed", zap.Int64("template_id", id), zap.Int("attempt", attempt))
			return
		case errors.Is(err, errGone):
			logger.Info("Reindex skipped: template deleted", zap.Int64("template_id", id))
			return
		}
		logger.Warn("Reindex attempt failed",
			zap.Int64("template_id", id),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if attempt == r.cfg.MaxRetries {
			break
		}
		t := time.NewTimer(r.delay(attempt))
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
	logger.Error("Reindex gave up; template stays unsearchable until the next rebuild",
		zap.Int64("template_id", id),
		zap.Int("attempts", r.cfg.MaxRetries),
	)
}

func (r *PoolReindexer) delay(attempt int) time.Duration {
	d := r.cfg.BaseDelay << (attempt - 1)
	if d <= 0 || d > r.cfg.MaxDelay {
		d = r.cfg.MaxDelay
	}
	return d
}
