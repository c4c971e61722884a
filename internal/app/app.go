// Package app is the composition root: it turns an AppConfig into wired services.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"legaldraft/internal/api"
	"legaldraft/internal/config"
	"legaldraft/internal/database"
	"legaldraft/internal/drafting"
	"legaldraft/internal/embedding"
	"legaldraft/internal/embedding/openai"
	"legaldraft/internal/embedding/tfidf"
	"legaldraft/internal/extract"
	"legaldraft/internal/extract/gemini"
	"legaldraft/internal/extract/heuristic"
	"legaldraft/internal/index"
	"legaldraft/internal/logger"
	"legaldraft/internal/reindex"
	"legaldraft/internal/service"
	"legaldraft/internal/session"
	sessmem "legaldraft/internal/session/memory"
	sessredis "legaldraft/internal/session/redis"
	"legaldraft/internal/store"
	storemem "legaldraft/internal/store/memory"
	"legaldraft/internal/store/postgres"
	"legaldraft/internal/vectorstore"
	vecmem "legaldraft/internal/vectorstore/memory"
	"legaldraft/internal/vectorstore/qdrant"
	"legaldraft/internal/worker"
)

// Application holds composed application dependencies.
type Application struct {
	Config   *config.AppConfig
	Router   *gin.Engine
	Store    store.TemplateStore
	Index    *index.Index
	Ingestor *service.Ingestor
	Catalog  *service.Catalog
	Drafter  *service.Drafter
	Pool     *worker.Pool

	db    *pgxpool.Pool
	redis *goredis.Client
	river *reindex.RiverReindexer
}

// Bootstrap builds every component selected by cfg. ctx bounds connection
// setup and is the parent of detached background work.
func Bootstrap(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	a := &Application{Config: cfg}
	ok := false
	defer func() {
		if !ok {
			a.Close(context.Background())
		}
	}()

	var err error
	if a.Store, err = a.newStore(ctx); err != nil {
		return nil, fmt.Errorf("init template store: %w", err)
	}
	emb, err := newEmbedder(cfg.Embedder)
	if err != nil {
		return nil, fmt.Errorf("init embedder: %w", err)
	}
	vs, err := newVectorStore(cfg.VectorStore)
	if err != nil {
		return nil, fmt.Errorf("init vector store: %w", err)
	}
	a.Index = index.New(emb, vs)

	ex, err := newExtractor(ctx, cfg.Extractor)
	if err != nil {
		return nil, fmt.Errorf("init extractor: %w", err)
	}
	sessions, err := a.newSessionStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("init session store: %w", err)
	}

	if a.Pool, err = worker.NewPool(ctx, "reindex", cfg.Worker.PoolSize); err != nil {
		return nil, fmt.Errorf("init worker pool: %w", err)
	}

	controller := drafting.NewController(a.Store, a.Index, drafting.Options{RequiredOnly: cfg.Drafting.RequiredOnly})
	rx, err := a.newReindexer(controller)
	if err != nil {
		return nil, fmt.Errorf("init reindexer: %w", err)
	}

	a.Ingestor = service.NewIngestor(a.Store, ex, controller, a.Index, rx,
		service.IngestOptions{StrictPlaceholders: cfg.Ingest.StrictPlaceholders})
	a.Catalog = service.NewCatalog(a.Store)
	a.Drafter = service.NewDrafter(controller, sessions)

	h := api.NewHandler(a.Ingestor, a.Catalog, a.Drafter, api.Health{
		Store:   a.Store,
		Index:   a.Index,
		Metrics: a.Pool.Metrics,
	}, cfg.Server.MaxUploadMB)
	a.Router = api.NewRouter(h, cfg.Server, cfg.RateLimit)

	logger.Info("Application bootstrapped",
		zap.String("store", cfg.Store.Type),
		zap.String("embedder", emb.Name()),
		zap.String("vector_store", cfg.VectorStore.Type),
		zap.String("extractor", ex.Name()),
		zap.String("session", cfg.Session.Type),
		zap.String("reindexer", cfg.Worker.Reindexer),
	)
	ok = true
	return a, nil
}

// Start rebuilds the index from the store and starts background job processing.
func (a *Application) Start(ctx context.Context) error {
	n, err := a.Ingestor.RebuildIndex(ctx)
	if err != nil {
		return err
	}
	logger.Info("Similarity index rebuilt", zap.Int("templates", n))
	if a.river != nil {
		if err := a.river.Start(ctx); err != nil {
			return fmt.Errorf("start river client: %w", err)
		}
	}
	return nil
}

// Close releases background workers and connections. Safe on a partial Application.
func (a *Application) Close(ctx context.Context) {
	if a.river != nil {
		if err := a.river.Stop(ctx); err != nil {
			logger.Warn("River client stop failed", zap.Error(err))
		}
	}
	if a.Pool != nil {
		a.Pool.Shutdown(10 * time.Second)
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}

func (a *Application) newStore(ctx context.Context) (store.TemplateStore, error) {
	switch a.Config.Store.Type {
	case "memory", "":
		return storemem.NewStore(), nil
	case "postgres":
		pg := a.Config.Store.Postgres
		if pg == nil {
			return nil, errors.New("postgres store config missing")
		}
		pool, err := database.NewPool(ctx, *pg)
		if err != nil {
			return nil, err
		}
		a.db = pool
		if pg.AutoMigrate {
			if err := database.AutoMigrate(ctx, pool, a.Config.Worker.Reindexer == "river"); err != nil {
				return nil, err
			}
		}
		return postgres.NewStore(pool), nil
	default:
		return nil, fmt.Errorf("unknown store: %s", a.Config.Store.Type)
	}
}

func newEmbedder(cfg config.EmbedderConfig) (embedding.Embedder, error) {
	switch cfg.Type {
	case "tfidf", "":
		return tfidf.NewEmbedder(), nil
	case "openai":
		if cfg.OpenAI == nil {
			return nil, errors.New("openai embedder config missing")
		}
		client, err := openai.NewClient(openai.Config{
			BaseURL:   cfg.OpenAI.BaseURL,
			APIKeyEnv: cfg.OpenAI.APIKeyEnv,
			Model:     cfg.OpenAI.Model,
			Timeout:   time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Type)
	}
}

func newVectorStore(cfg config.VectorStoreConfig) (vectorstore.Storage, error) {
	switch cfg.Type {
	case "memory", "":
		return vecmem.NewStorage(), nil
	case "qdrant":
		if cfg.Qdrant == nil {
			return nil, errors.New("qdrant config missing")
		}
		var key string
		if cfg.Qdrant.APIKeyEnv != "" {
			key = os.Getenv(cfg.Qdrant.APIKeyEnv)
		}
		return qdrant.NewStorage(qdrant.Config{
			URL:        cfg.Qdrant.URL,
			APIKey:     key,
			Collection: cfg.Qdrant.Collection,
			Timeout:    time.Duration(cfg.Qdrant.TimeoutSecs) * time.Second,
		}), nil
	default:
		return nil, fmt.Errorf("unknown vector store: %s", cfg.Type)
	}
}

func newExtractor(ctx context.Context, cfg config.ExtractorConfig) (extract.Extractor, error) {
	switch cfg.Type {
	case "heuristic", "":
		return heuristic.New(cfg.SummarySentences), nil
	case "gemini":
		if cfg.Gemini == nil {
			return nil, errors.New("gemini extractor config missing")
		}
		ex, err := gemini.New(ctx, gemini.Config{
			APIKeyEnv:   cfg.Gemini.APIKeyEnv,
			Model:       cfg.Gemini.Model,
			Temperature: cfg.Gemini.Temperature,
		})
		if err != nil {
			return nil, err
		}
		return ex, nil
	default:
		return nil, fmt.Errorf("unknown extractor: %s", cfg.Type)
	}
}

func (a *Application) newSessionStore(ctx context.Context) (session.Store, error) {
	cfg := a.Config.Session
	switch cfg.Type {
	case "memory", "":
		return sessmem.NewStore(cfg.TTL()), nil
	case "redis":
		if cfg.Redis == nil {
			return nil, errors.New("redis session config missing")
		}
		var password string
		if cfg.Redis.PasswordEnv != "" {
			password = os.Getenv(cfg.Redis.PasswordEnv)
		}
		rdb, err := sessredis.Connect(ctx, cfg.Redis.Addr, password, cfg.Redis.DB)
		if err != nil {
			return nil, err
		}
		a.redis = rdb
		return sessredis.NewStore(rdb, cfg.Redis.KeyPrefix, cfg.TTL()), nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown session store: %s", cfg.Type)
	}
}

func (a *Application) newReindexer(controller *drafting.Controller) (reindex.Reindexer, error) {
	cfg := a.Config.Worker
	switch cfg.Reindexer {
	case "pool", "":
		return reindex.NewPoolReindexer(a.Pool, a.Store, controller, reindex.PoolConfig{MaxRetries: cfg.ReindexMaxRetries}), nil
	case "river":
		if a.db == nil {
			return nil, errors.New("river reindexer requires the postgres store")
		}
		rx, err := reindex.NewRiverReindexer(a.db, a.Store, controller, reindex.RiverConfig{MaxAttempts: cfg.ReindexMaxRetries})
		if err != nil {
			return nil, err
		}
		a.river = rx
		return rx, nil
	default:
		return nil, fmt.Errorf("unknown reindexer: %s", cfg.Reindexer)
	}
}
