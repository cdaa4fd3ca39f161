package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/top-movies/internal/cache"
	"github.com/iliyamo/top-movies/internal/config"
	"github.com/iliyamo/top-movies/internal/database"
	"github.com/iliyamo/top-movies/internal/logging"
	"github.com/iliyamo/top-movies/internal/middleware"
	"github.com/iliyamo/top-movies/internal/queue"
	"github.com/iliyamo/top-movies/internal/repository"
	"github.com/iliyamo/top-movies/internal/router"
	"github.com/iliyamo/top-movies/internal/scheduler"
	"github.com/iliyamo/top-movies/internal/service"
	"github.com/iliyamo/top-movies/internal/storage"
	"github.com/iliyamo/top-movies/internal/tmdb"
	"github.com/iliyamo/top-movies/internal/view"
)

func main() {
	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg, log)
	if err != nil {
		log.Error("database open failed", "error", err)
		os.Exit(1)
	}
	if err := repository.Migrate(db); err != nil {
		log.Error("schema migration failed", "error", err)
		os.Exit(1)
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn("redis unavailable; lookup cache, response cache and rate limiting are off")
	} else {
		defer rdb.Close()
	}

	tmdbOpts := tmdb.Options{
		BaseURL:  cfg.TMDBBaseURL,
		ImageURL: cfg.TMDBImageURL,
		APIKey:   cfg.TMDBAPIKey,
		Timeout:  cfg.TMDBTimeout,
		CacheTTL: cfg.LookupCacheTTL,
		Logger:   log.Named("tmdb"),
	}
	if rdb != nil {
		tmdbOpts.Cache = cache.NewJSONCache(rdb, "movies:tmdb")
	}

	responseCache := middleware.NewResponseCache(config.LoadCacheConfig(), rdb, log)
	deps := service.Deps{
		Store:  repository.NewMovieRepo(db),
		Lookup: tmdb.New(tmdbOpts),
		Cache:  responseCache,
		Logger: log,
	}
	posters, err := storage.NewPosterStore(ctx, config.LoadPosterConfig())
	if err != nil {
		log.Warn("poster mirror disabled", "error", err)
	} else if posters != nil {
		deps.Posters = posters
	}
	if pub := queue.NewPublisher(cfg.AMQPURL, log.Named("events")); pub != nil {
		deps.Events = pub
	}
	movies := service.NewMovieService(deps)

	renderer, err := newRenderer(ctx, cfg, log)
	if err != nil {
		log.Error("template setup failed", "error", err)
		os.Exit(1)
	}

	sched, err := scheduler.Start(ctx, cfg.RefreshInterval, movies, log)
	if err != nil {
		log.Error("scheduler start failed", "error", err)
		os.Exit(1)
	}

	e := router.New(router.Deps{
		Cfg:           cfg,
		RateLimit:     config.LoadRateLimitConfig(),
		Log:           log,
		DB:            db,
		Redis:         rdb,
		ResponseCache: responseCache,
		Movies:        movies,
		Renderer:      renderer,
	})

	addr := ":" + cfg.Port
	go func() {
		log.Info("listening", "addr", addr, "env", cfg.Env, "db", cfg.DBDriver)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", "error", err)
	}
	if err := sched.Shutdown(); err != nil {
		log.Error("scheduler shutdown failed", "error", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// newRenderer uses the embedded templates unless TEMPLATE_DIR points at a
// directory to load and watch.
func newRenderer(ctx context.Context, cfg config.Config, log hclog.Logger) (echo.Renderer, error) {
	if cfg.TemplateDir == "" {
		return view.New(log)
	}
	r, err := view.NewFromDir(cfg.TemplateDir, log)
	if err != nil {
		return nil, err
	}
	if err := r.Watch(ctx, cfg.TemplateDir); err != nil {
		return nil, err
	}
	log.Info("serving templates from disk", "dir", cfg.TemplateDir)
	return r, nil
}
