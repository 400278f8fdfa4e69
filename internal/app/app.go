package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrSnakeDoc/ideabox/internal/config"
	"github.com/MrSnakeDoc/ideabox/internal/httpserver"
	"github.com/MrSnakeDoc/ideabox/internal/httpserver/deps"
	"github.com/MrSnakeDoc/ideabox/internal/httpserver/mw"
	"github.com/MrSnakeDoc/ideabox/internal/ideas"
	"github.com/MrSnakeDoc/ideabox/internal/logger"
	"github.com/MrSnakeDoc/ideabox/internal/redis"
	"github.com/MrSnakeDoc/ideabox/internal/seed"
	"github.com/MrSnakeDoc/ideabox/internal/store/memory"
	"github.com/MrSnakeDoc/ideabox/internal/store/postgres"
	redisstore "github.com/MrSnakeDoc/ideabox/internal/store/redis"
	"github.com/MrSnakeDoc/ideabox/internal/utils"
	"github.com/MrSnakeDoc/ideabox/internal/version"
	"github.com/MrSnakeDoc/ideabox/internal/web"
)

type App struct {
	cfg     *config.Config
	logger  logger.Logger
	server  *httpserver.Server
	service *ideas.Service
	closers []namedCloser
}

type namedCloser struct {
	name string
	c    io.Closer
}

// New wires the store, the optional cache and the HTTP server.
func New(ctx context.Context) (*App, error) {
	cfg := config.Load()
	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	a := &App{cfg: cfg, logger: loggerClient}

	repo, storeKind, err := a.openStore(ctx)
	if err != nil {
		a.closeAll()
		return nil, err
	}
	if repo == nil {
		// migrations only
		return a, nil
	}

	var cache ideas.Cache
	redisClient, err := redis.New(ctx, redis.ConnectOptions{
		Addr:           cfg.RedisAddr,
		User:           cfg.RedisUser,
		Password:       cfg.RedisPassword,
		RedisDB:        cfg.RedisDB,
		DialTimeout:    cfg.RedisDT,
		ReadTimeout:    cfg.RedisRT,
		WriteTimeout:   cfg.RedisWT,
		PoolSize:       cfg.RedisPoolSize,
		ConnectTimeout: cfg.RedisConnectTimeout,
		RetryInterval:  cfg.RedisRetryInterval,
		MaxWait:        cfg.RedisMaxWait,
		PingTimeout:    cfg.RedisPingTimeout,
		WarnThreshold:  cfg.RedisWarnThreshold,
	}, loggerClient)
	switch {
	case errors.Is(err, redis.ErrDisabled):
		loggerClient.Info("redis not configured, list cache disabled")
	case err != nil:
		loggerClient.Warn("redis unavailable, continuing without list cache", logger.Error(err))
	default:
		a.closers = append(a.closers, namedCloser{"redis", redisClient})
		cache = redisstore.NewCache(redisClient, cfg.CacheTTL)
		loggerClient.Info("redis list cache enabled", logger.Duration("ttl", cfg.CacheTTL))
	}

	a.service = ideas.NewService(repo, cache, loggerClient)

	if cfg.SeedFile != "" {
		if err := a.seed(ctx); err != nil {
			a.closeAll()
			return nil, err
		}
	}

	page, err := web.NewPage()
	if err != nil {
		a.closeAll()
		return nil, fmt.Errorf("failed to parse page template: %w", err)
	}

	d := deps.Deps{
		Logger:       loggerClient,
		StartTime:    time.Now(),
		Version:      version.Version,
		Commit:       version.Commit,
		BuildDate:    version.BuildDate,
		GoVersion:    version.GoVersion,
		TimeNow:      time.Now,
		AllowedHosts: cfg.AllowedHosts,
		AllowedCIDRS: cfg.AllowedCIDRS,
		TrustProxy:   cfg.TrustProxy,
		RateBurst:    cfg.RateBurst,
		RatePerMin:   cfg.RatePerMin,
		StoreKind:    storeKind,
		Ideas:        a.service,
		Metrics:      mw.NewMetrics("ideabox"),
		Page:         page,
	}

	a.server = httpserver.New(cfg, loggerClient, d)
	return a, nil
}

// openStore returns a nil repository when only migrations were requested.
func (a *App) openStore(ctx context.Context) (ideas.Repository, string, error) {
	if a.cfg.DatabaseURL == "" {
		if a.cfg.MigrationsOnly {
			return nil, "", errors.New("IDEABOX_MIGRATIONS_ONLY needs IDEABOX_DATABASE_URL")
		}
		a.logger.Warn("no database configured, ideas are kept in memory and lost on exit")
		return memory.NewStore(), "memory", nil
	}

	pool, err := postgres.Connect(ctx, a.cfg.DatabaseURL, postgres.PoolOptions{
		MaxConns:    a.cfg.DBMaxConns,
		MinConns:    a.cfg.DBMinConns,
		PingTimeout: a.cfg.DBPingTimeout,
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to connect to postgres: %w", err)
	}
	a.closers = append(a.closers, namedCloser{"postgres", utils.CloserFunc(pool.Close)})
	a.logger.Info("postgres connected")

	if err := postgres.Migrate(ctx, pool); err != nil {
		return nil, "", fmt.Errorf("failed to migrate: %w", err)
	}
	a.logger.Info("migrations applied")

	if a.cfg.MigrationsOnly {
		return nil, "postgres", nil
	}
	return postgres.NewStore(pool), "postgres", nil
}

func (a *App) seed(ctx context.Context) error {
	f, err := seed.NewLoader(a.cfg.SeedFile).Load()
	if err != nil {
		return err
	}
	n, err := seed.Apply(ctx, a.service, f, a.logger)
	if err != nil {
		return fmt.Errorf("failed to seed ideas: %w", err)
	}
	a.logger.Info("seed applied", logger.String("file", a.cfg.SeedFile), logger.Int("created", n))
	return nil
}

func (a *App) Run(ctx context.Context) error {
	if a.server == nil {
		a.logger.Info("migrations complete, exiting")
		a.closeAll()
		return nil
	}

	a.logger.Infof("🚀 Starting Idea Box v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("ideabox %s (commit=%s, built=%s, go=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		a.closeAll()
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		a.closeAll()
		return fmt.Errorf("failed to stop server: %w", err)
	}

	a.closeAll()
	a.logger.Info("✅ Idea Box stopped cleanly")
	_ = a.logger.Sync()
	return nil
}

// closeAll releases resources in reverse order of acquisition.
func (a *App) closeAll() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		utils.MustClose(a.logger, a.closers[i].name, a.closers[i].c)
	}
	a.closers = nil
}
