package reindex

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"go.uber.org/zap"

	"legaldraft/internal/logger"
)

// Args carries only the template id; the worker reloads the template.
type Args struct {
	TemplateID int64 `json:"template_id"`
}

// Kind returns the job kind identifier for template reindexing.
func (Args) Kind() string { return "template_reindex" }

// InsertOpts returns default insert options for reindex jobs.
func (Args) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:       river.QueueDefault,
		MaxAttempts: 5,
		UniqueOpts: river.UniqueOpts{
			ByArgs:  true,
			ByQueue: true,
		},
	}
}

// Worker processes template_reindex jobs. River retries returned errors.
type Worker struct {
	river.WorkerDefaults[Args]
	templates TemplateGetter
	updater   Updater
}

func NewWorker(templates TemplateGetter, updater Updater) *Worker {
	return &Worker{templates: templates, updater: updater}
}

// Work reindexes one template.
func (w *Worker) Work(ctx context.Context, job *river.Job[Args]) error {
	if w.templates == nil || w.updater == nil {
		return river.JobCancel(errors.New("reindex worker is not initialized"))
	}
	id := job.Args.TemplateID
	logger.Info("Processing template reindex job",
		zap.Int64("template_id", id),
		zap.Int64("attempt", int64(job.Attempt)),
	)
	err := reindexOnce(ctx, w.templates, w.updater, id)
	if errors.Is(err, errGone) {
		logger.Info("Reindex skipped: template deleted", zap.Int64("template_id", id))
		return nil
	}
	return err
}

// RiverConfig sizes the River client.
type RiverConfig struct {
	MaxWorkers  int
	MaxAttempts int
}

// RiverReindexer enqueues durable reindex jobs in PostgreSQL.
type RiverReindexer struct {
	client      *river.Client[pgx.Tx]
	maxAttempts int
}

// NewRiverReindexer registers the worker and creates the River client on pool.
// The River tables must exist (database.AutoMigrate).
func NewRiverReindexer(pool *pgxpool.Pool, templates TemplateGetter, updater Updater, cfg RiverConfig) (*RiverReindexer, error) {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 4
	}
	workers := river.NewWorkers()
	if err := river.AddWorkerSafely(workers, NewWorker(templates, updater)); err != nil {
		return nil, fmt.Errorf("register reindex worker: %w", err)
	}
	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: cfg.MaxWorkers},
		},
		Workers: workers,
	})
	if err != nil {
		return nil, fmt.Errorf("create river client: %w", err)
	}
	logger.Info("River client initialized", zap.Int("max_workers", cfg.MaxWorkers))
	return &RiverReindexer{client: client, maxAttempts: cfg.MaxAttempts}, nil
}

func (r *RiverReindexer) Start(ctx context.Context) error {
	return r.client.Start(ctx)
}

func (r *RiverReindexer) Stop(ctx context.Context) error {
	return r.client.Stop(ctx)
}

func (r *RiverReindexer) Schedule(ctx context.Context, templateID int64) error {
	opts := Args{}.InsertOpts()
	if r.maxAttempts > 0 {
		opts.MaxAttempts = r.maxAttempts
	}
	if _, err := r.client.Insert(ctx, Args{TemplateID: templateID}, &opts); err != nil {
		return fmt.Errorf("enqueue reindex for template %d: %w", templateID, err)
	}
	return nil
}
