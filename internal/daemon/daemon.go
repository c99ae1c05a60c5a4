package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/studyquest/studyquest/internal/api"
	"github.com/studyquest/studyquest/internal/app/engagement"
	"github.com/studyquest/studyquest/internal/domain"
	"github.com/studyquest/studyquest/internal/health"
	"github.com/studyquest/studyquest/internal/infra/catalog"
	"github.com/studyquest/studyquest/internal/infra/persist"
	"github.com/studyquest/studyquest/internal/infra/redisstore"
	"github.com/studyquest/studyquest/internal/infra/sqlite"
)

// Store is a StatsStore that can also page back through the session log.
type Store interface {
	domain.StatsStore
	ListSessions(ctx context.Context, accountID string, limit int) ([]domain.SessionRecord, error)
}

// Daemon is the studyquest runtime. It wires together all services.
type Daemon struct {
	Config    Config
	Log       zerolog.Logger
	Store     Store
	Persister *persist.Persister
	Engine    *engagement.Engine
	Health    *health.Checker
	Server    *api.Server

	cancel    context.CancelFunc
	closeOnce sync.Once
	closeErr  error
}

// New loads the config and creates a Daemon.
func New(ctx context.Context) (*Daemon, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return NewWithConfig(ctx, cfg, NewLogger(cfg.Logging))
}

// NewWithConfig creates a Daemon with the given configuration: opens the
// store, loads the account's stats, and starts the write-behind worker.
func NewWithConfig(ctx context.Context, cfg Config, log zerolog.Logger) (*Daemon, error) {
	if cfg.Home == "" {
		cfg.Home = studyquestHome()
	}
	if err := os.MkdirAll(cfg.Home, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	stats, err := store.LoadStats(ctx, cfg.Account.ID)
	switch {
	case errors.Is(err, domain.ErrStatsNotFound):
		stats = domain.NewUserStats()
		log.Info().Str("account", cfg.Account.ID).Msg("no saved progress, starting fresh")
	case err != nil:
		store.Close()
		return nil, fmt.Errorf("load stats: %w", err)
	}

	categories, err := questCategories(cfg.Quests)
	if err != nil {
		store.Close()
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	p := persist.New(store, cfg.Account.ID, cfg.PersistSettings(), log)
	p.Start(runCtx)

	engine := engagement.NewEngine(stats, engagement.Options{
		AccountID:         cfg.Account.ID,
		Logger:            &log,
		PremiumMultiplier: cfg.Progression.PremiumMultiplier,
		RecentWindow:      cfg.Progression.RecentWindow,
		Categories:        categories,
		Hook:              p,
	})

	checker := health.NewChecker(store, p.Backlog, cfg.Home, log)

	srv := api.NewServer(engine, log)
	srv.SetHealth(checker)
	if cfg.API.Metrics {
		srv.EnableMetrics()
	}

	return &Daemon{
		Config:    cfg,
		Log:       log.With().Str("component", "daemon").Logger(),
		Store:     store,
		Persister: p,
		Engine:    engine,
		Health:    checker,
		Server:    srv,
		cancel:    cancel,
	}, nil
}

func openStore(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Storage.Backend {
	case BackendRedis:
		s, err := redisstore.Open(ctx, redisstore.Options{
			Addr:     cfg.Storage.RedisAddr,
			Password: cfg.Storage.RedisPassword,
			DB:       cfg.Storage.RedisDB,
		})
		if err != nil {
			return nil, fmt.Errorf("open redis store: %w", err)
		}
		return s, nil
	default:
		db, err := sqlite.Open(cfg.Home)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		return db, nil
	}
}

// questCategories loads the catalog and applies the configured counts.
func questCategories(cfg QuestsConfig) ([]domain.CategorySpec, error) {
	specs, err := catalog.LoadOrDefault(cfg.CatalogFile)
	if err != nil {
		return nil, fmt.Errorf("load quest catalog: %w", err)
	}
	for i := range specs {
		switch specs[i].Category {
		case domain.QuestDaily:
			if cfg.DailyCount > 0 {
				specs[i].MaxQuests = cfg.DailyCount
			}
		case domain.QuestWeekly:
			if cfg.WeeklyCount > 0 {
				specs[i].MaxQuests = cfg.WeeklyCount
			}
		}
	}
	return specs, nil
}

// Serve starts the HTTP server and blocks until shutdown.
func (d *Daemon) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go d.Health.Run(ctx)

	addr := d.Config.Addr()
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           d.Server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case <-sigCh:
			d.Log.Info().Msg("shutdown signal received")
		case <-ctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	d.Log.Info().
		Str("addr", "http://"+addr).
		Str("account", d.Config.Account.ID).
		Str("storage", d.Config.Storage.Backend).
		Bool("metrics", d.Config.API.Metrics).
		Msg("studyquest serving")

	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		d.Close(context.Background())
		return err
	}
	return d.Close(context.Background())
}

// Flush waits until every committed write has reached the store.
func (d *Daemon) Flush(ctx context.Context) error {
	return d.Persister.Flush(ctx)
}

// Close drains pending writes and releases the store. Later calls return
// the first result.
func (d *Daemon) Close(ctx context.Context) error {
	d.closeOnce.Do(func() { d.closeErr = d.close(ctx) })
	return d.closeErr
}

func (d *Daemon) close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var err error
	if d.Persister != nil {
		if perr := d.Persister.Close(ctx); perr != nil {
			d.Log.Warn().Err(perr).Int("backlog", d.Persister.Backlog()).Msg("pending writes not flushed")
			err = perr
		}
	}
	if d.cancel != nil {
		d.cancel()
	}
	if d.Store != nil {
		if cerr := d.Store.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	d.Log.Info().Msg("studyquest stopped")
	return err
}
