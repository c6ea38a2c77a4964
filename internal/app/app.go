// Package app is the composition root. It turns a config.Config into a
// running Simulator and owns the lifecycle of everything it opened.
package app

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/abhisek/rounds/internal/chunkcache"
	"github.com/abhisek/rounds/internal/config"
	"github.com/abhisek/rounds/internal/document"
	"github.com/abhisek/rounds/internal/grading"
	"github.com/abhisek/rounds/internal/llm"
	"github.com/abhisek/rounds/internal/logger"
	"github.com/abhisek/rounds/internal/mastery"
	"github.com/abhisek/rounds/internal/question"
	"github.com/abhisek/rounds/internal/retrieval"
	"github.com/abhisek/rounds/internal/server"
	"github.com/abhisek/rounds/internal/simulator"
	"github.com/abhisek/rounds/internal/store"
)

// App holds the wired engine.
type App struct {
	Config    config.Config
	Log       *logger.Logger
	Store     *store.Store
	Provider  llm.Provider
	Simulator *simulator.Simulator

	redis *goredis.Client
}

type options struct {
	provider   llm.Provider
	log        *logger.Logger
	shuffler   retrieval.Shuffler
	requireLLM bool
}

type Option func(*options)

// WithProvider bypasses provider construction from config.
func WithProvider(p llm.Provider) Option {
	return func(o *options) { o.provider = p }
}

// WithLogger bypasses logger construction from config.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithShuffler seeds retrieval sampling.
func WithShuffler(s retrieval.Shuffler) Option {
	return func(o *options) { o.shuffler = s }
}

// WithoutLLM skips credential checks for commands that never call a model.
// Generation and grading then fail with a provider error.
func WithoutLLM() Option {
	return func(o *options) { o.requireLLM = false }
}

// New opens the store, connects the optional chunk cache, builds the LLM
// provider chain and assembles the Simulator. Call Close when done.
func New(ctx context.Context, cfg config.Config, opts ...Option) (*App, error) {
	o := options{requireLLM: true}
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{Config: cfg, Log: o.log}
	if a.Log == nil {
		l, err := logger.New(cfg.Log)
		if err != nil {
			return nil, fmt.Errorf("init logger: %w", err)
		}
		a.Log = l
	}

	if err := a.openStore(ctx); err != nil {
		return nil, err
	}

	var chunks retrieval.ChunkSource = a.Store
	if cfg.Cache.Addr != "" {
		rdb, err := chunkcache.Dial(ctx, cfg.Cache)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect chunk cache: %w", err)
		}
		a.redis = rdb
		chunks = chunkcache.New(rdb, a.Store, cfg.Cache.TTL, a.Log)
	}

	a.Provider = o.provider
	if a.Provider == nil {
		p, err := a.buildProvider(ctx, o.requireLLM)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Provider = p
	}

	retrievalOpts := []retrieval.Option{retrieval.WithTopK(cfg.Engine.TopK)}
	if o.shuffler != nil {
		retrievalOpts = append(retrievalOpts, retrieval.WithShuffler(o.shuffler))
	}
	policy := retrieval.New(chunks, retrievalOpts...)

	engine := mastery.NewEngine(cfg.Engine.Mastery)
	a.Simulator = simulator.New(simulator.Deps{
		Store:    a.Store,
		Composer: question.NewComposer(a.Provider, policy, a.Store, cfg.Engine.Question, a.Log),
		Grader:   grading.NewGrader(a.Provider, cfg.Engine.Grading, a.Log),
		Recorder: mastery.NewAggregator(engine, a.Store, a.Log),
		Ingester: document.NewIngester(a.Store, a.Log),
		Logger:   a.Log,
	})

	a.Log.Debug("engine ready",
		"db_driver", a.Store.Dialect(),
		"llm_model", a.Provider.ModelID(),
		"chunk_cache", cfg.Cache.Addr != "",
		"consistency_counter", string(cfg.Engine.Mastery.ConsistencyCounter),
	)
	return a, nil
}

func (a *App) openStore(ctx context.Context) error {
	cfg := a.Config.Store
	if (cfg.Driver == "" || cfg.Driver == "sqlite") && cfg.DSN == "" {
		p, err := store.DefaultDBPath()
		if err != nil {
			return fmt.Errorf("resolve database path: %w", err)
		}
		cfg.DSN = p
	}
	s, err := store.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	a.Store = s
	return nil
}

func (a *App) buildProvider(ctx context.Context, require bool) (llm.Provider, error) {
	if err := a.Config.RequireLLM(); err != nil {
		if require {
			return nil, fmt.Errorf("llm provider not configured: %w", err)
		}
		a.Log.Warn("llm provider not configured, generation and grading unavailable", "error", err.Error())
		return unavailableProvider{}, nil
	}
	p, err := llm.NewProvider(ctx, a.Config.LLM, a.Store, a.Log)
	if err != nil {
		return nil, fmt.Errorf("build llm provider: %w", err)
	}
	return p, nil
}

// Server builds the HTTP surface over the Simulator.
func (a *App) Server() *server.Server {
	return server.New(a.Config.Server, a.Simulator, a.Log, server.WithHealthCheck(a.Store.Ping))
}

// Close releases the cache connection and the store, then flushes the log.
func (a *App) Close() error {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	if a.Log != nil {
		a.Log.Sync()
	}
	return errors.Join(errs...)
}

// unavailableProvider stands in when no credentials exist so read-only
// commands still work.
type unavailableProvider struct{}

func (unavailableProvider) Generate(context.Context, llm.Request) (*llm.Response, error) {
	return nil, &llm.ErrProviderUnavailable{Err: errors.New("no llm credentials configured")}
}

func (unavailableProvider) ModelID() string { return "none" }
