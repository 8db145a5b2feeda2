package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ChristinaDay/FabLab/internal/config"
	dbPostgres "github.com/ChristinaDay/FabLab/internal/db/postgres"
	dbRedis "github.com/ChristinaDay/FabLab/internal/db/redis"
	logpkg "github.com/ChristinaDay/FabLab/internal/logger"
	"github.com/ChristinaDay/FabLab/internal/metrics"
	"github.com/ChristinaDay/FabLab/internal/repository/curated"
	"github.com/ChristinaDay/FabLab/internal/repository/respcache"
	"github.com/ChristinaDay/FabLab/internal/scheduler"
	"github.com/ChristinaDay/FabLab/internal/transport/adzuna"
	chiTransport "github.com/ChristinaDay/FabLab/internal/transport/chi"
	"github.com/ChristinaDay/FabLab/internal/transport/jobhttp"
	"github.com/ChristinaDay/FabLab/internal/transport/jsearch"
	"github.com/ChristinaDay/FabLab/internal/usecase/health"
	"github.com/ChristinaDay/FabLab/internal/usecase/ratelimit"
	"github.com/ChristinaDay/FabLab/internal/usecase/relevance"
	searchuc "github.com/ChristinaDay/FabLab/internal/usecase/search"
	"github.com/ChristinaDay/FabLab/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting FabLab search API",
		zap.String("version", version.String()),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("cache_driver", cfg.Cache.Driver),
		zap.Bool("curated_store", cfg.Database.URL != ""),
	)

	// Register search metrics explicitly (no init())
	metrics.RegisterSearchMetrics()
	metrics.RegisterHTTPMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checks := map[string]health.Pinger{}

	// Curated store. Pass nil interfaces (not typed nil pointers) when it is not configured.
	var (
		curatedReader searchuc.CuratedReader
		sourceLister  relevance.SourceQueryLister
	)
	if cfg.Database.URL != "" {
		pool, err := dbPostgres.NewPool(ctx, dbPostgres.Config{
			URL:      cfg.Database.URL,
			MaxConns: cfg.Database.MaxConns,
		})
		if err != nil {
			logger.Fatal("Failed to connect to curated store", zap.Error(err))
		}
		defer pool.Close()

		repo := curated.New(pool)
		curatedReader = repo
		sourceLister = repo
		checks["database"] = poolPinger(pool)
		logger.Info("Connected to curated store")
	} else {
		logger.Warn("No database configured, serving provider results only")
	}

	cache, closeCache := buildCache(ctx, cfg.Cache, checks, logger)
	defer closeCache()

	providers := []searchuc.Provider{
		adzuna.New(adzuna.Config{
			AppID:          cfg.Providers.Adzuna.AppID,
			AppKey:         cfg.Providers.Adzuna.AppKey,
			Country:        cfg.Providers.Adzuna.Country,
			BaseURL:        cfg.Providers.Adzuna.BaseURL,
			ResultsPerPage: cfg.Providers.Adzuna.ResultsPerPage,
			HTTP:           httpConfig(cfg.Providers, cfg.Providers.Adzuna.Throttle),
		}, logger),
		jsearch.New(jsearch.Config{
			APIKey:  cfg.Providers.JSearch.APIKey,
			Host:    cfg.Providers.JSearch.Host,
			BaseURL: cfg.Providers.JSearch.BaseURL,
			HTTP:    httpConfig(cfg.Providers, cfg.Providers.JSearch.Throttle),
		}, logger),
	}

	vocab := relevance.NewVocabulary(sourceLister, relevance.Config{
		RefreshInterval: cfg.Relevance.RefreshInterval(),
		ExtraTerms:      cfg.Relevance.ExtraTerms,
		NegativeTerms:   cfg.Relevance.NegativeTerms,
		SourceQueries:   cfg.Relevance.SourceQueries,
	}, logger)
	limiter := ratelimit.New(cfg.RateLimit.Window(), cfg.RateLimit.MaxRequests)

	// One search service per process owns the cache and the limiter.
	searchSvc := searchuc.New(providers, curatedReader, vocab, cache, limiter, searchuc.Config{
		ProviderTimeout: cfg.Providers.ProviderTimeout(),
		CuratedLimit:    cfg.Search.CuratedLimit,
	}, logger)
	healthSvc := health.New(checks)
	logger.Info("Health checks registered", zap.Strings("components", healthSvc.Names()))

	sched := scheduler.New(vocab, limiter, scheduler.Config{
		RefreshInterval: cfg.Relevance.RefreshInterval(),
		SweepInterval:   cfg.RateLimit.Window(),
	}, logger)
	if err := sched.Start(ctx); err != nil {
		logger.Fatal("Failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	server := chiTransport.NewServer(searchSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())
	server.Mount(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildCache selects the response cache by driver and registers its health check.
func buildCache(
	ctx context.Context, cfg config.CacheConfig, checks map[string]health.Pinger, logger *zap.Logger,
) (searchuc.Cache, func()) {
	switch cfg.Driver {
	case "redis":
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:          cfg.Addrs,
			Password:       cfg.Password,
			ClientCacheTTL: cfg.ClientCacheTTL(),
		})
		if err != nil {
			logger.Fatal("Failed to create cache store", zap.Error(err))
		}
		if err := store.WaitForReady(ctx, time.Duration(cfg.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Cache store not ready", zap.Error(err))
		}
		checks["cache"] = store
		logger.Info("Connected to cache store", zap.Strings("addrs", cfg.Addrs))
		return respcache.NewKV(store, cfg.KeyPrefix, cfg.TTL()), store.Close
	default:
		return respcache.NewMemory(cfg.TTL()), func() {}
	}
}

func httpConfig(p config.ProvidersConfig, t config.ThrottleConfig) jobhttp.Config {
	return jobhttp.Config{
		Timeout:           p.ProviderTimeout(),
		RequestsPerSecond: t.RequestsPerSecond,
		Burst:             t.Burst,
	}
}

func poolPinger(pool *pgxpool.Pool) health.Pinger {
	return health.PingFunc(func(ctx context.Context) error {
		if err := pool.Ping(ctx); err != nil {
			return fmt.Errorf("curated store ping: %w", err)
		}
		return nil
	})
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
						Code:    chiTransport.CodeInternal,
						Message: "search failed",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line, one per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("query", r.URL.RawQuery),
				zap.Int("status", ww.Status()),
				zap.String("x_cache", ww.Header().Get("X-Cache")),
				zap.Duration("latency", time.Since(start)),
				zap.String("client", chiTransport.ClientID(r)),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
