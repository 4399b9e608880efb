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
	"go.uber.org/zap"

	"github.com/querie/querie/internal/config"
	"github.com/querie/querie/internal/db"
	dbRedis "github.com/querie/querie/internal/db/redis"
	"github.com/querie/querie/internal/domain"
	"github.com/querie/querie/internal/fetcher"
	logpkg "github.com/querie/querie/internal/logger"
	"github.com/querie/querie/internal/metrics"
	"github.com/querie/querie/internal/repository/embcache"
	"github.com/querie/querie/internal/repository/paperindex"
	"github.com/querie/querie/internal/source"
	chiTransport "github.com/querie/querie/internal/transport/chi"
	openaiTransport "github.com/querie/querie/internal/transport/openai"
	"github.com/querie/querie/internal/transport/serp"
	healthuc "github.com/querie/querie/internal/usecase/health"
	indexuc "github.com/querie/querie/internal/usecase/index"
	queryuc "github.com/querie/querie/internal/usecase/query"
	rankuc "github.com/querie/querie/internal/usecase/rank"
	researchuc "github.com/querie/querie/internal/usecase/research"
	summaryuc "github.com/querie/querie/internal/usecase/summary"
	"github.com/querie/querie/internal/version"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting querie API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register pipeline metrics explicitly (no init())
	metrics.RegisterPipelineMetrics()

	embedder := buildEmbedder(cfg.Embedding, store, logger)
	logger.Info("Embedder created",
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	chat := openaiTransport.NewChat(openaiTransport.ChatConfig{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
	})

	webSearch := serp.New(serp.Config{
		BaseURL:    cfg.WebSearch.BaseURL,
		APIKey:     cfg.WebSearch.APIKey,
		NumResults: cfg.WebSearch.NumResults,
		TimeoutSec: cfg.WebSearch.TimeoutSec,
		Logger:     logger,
	})

	registry := buildRegistry(cfg.Sources, logger)
	logger.Info("Source connectors registered", zap.Int("count", registry.Len()))

	paperFetcher := fetcher.New(registry, logger)
	paperRepo := paperindex.New(store, cfg.Index.Name, cfg.Embedding.Dimensions)

	validatorSvc := queryuc.New(chat, cfg.LLM.ValidatorModel, logger)
	rankSvc := rankuc.New(embedder, cfg.Search.BatchSize, cfg.Search.AbstractPrefix, logger)
	summarySvc := summaryuc.New(chat, cfg.LLM.SummaryModel, logger)

	researchSvc := researchuc.New(researchuc.Config{
		Validator:    validatorSvc,
		Fetcher:      paperFetcher,
		Embedder:     embedder,
		Ranker:       rankSvc,
		WebSearcher:  webSearch,
		Summarizer:   summarySvc,
		MaxPerSource: cfg.Search.MaxPerSource,
		TopK:         cfg.Search.TopK,
		Logger:       logger,
	})

	indexSvc := indexuc.New(indexuc.Config{
		Repo:           paperRepo,
		Fetcher:        paperFetcher,
		Embedder:       embedder,
		BatchSize:      cfg.Search.BatchSize,
		AbstractPrefix: cfg.Search.AbstractPrefix,
		Retries:        cfg.Index.IngestRetries,
		Logger:         logger,
	})
	if err := indexSvc.Ready(ctx); err != nil {
		logger.Fatal("Failed to ensure paper index", zap.Error(err))
	}

	healthSvc := healthuc.New(store, newEmbeddingHealthChecker(embedder))

	server := chiTransport.NewServer(researchSvc, indexSvc, healthSvc, cfg.Search.SummaryPreview, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuth(cfg.HTTP.APIKeys))
	r.Use(chiTransport.RateLimit(store, cfg.RateLimit.RequestsPerHour, logger))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildEmbedder assembles the embedding chain: OpenAI provider wrapped in
// the store-backed cache.
func buildEmbedder(cfg config.EmbeddingConfig, store db.Store, logger *zap.Logger) *embcache.CachedEmbedder {
	base := openaiTransport.NewEmbedder(openaiTransport.EmbedderConfig{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
	})
	ttl := time.Duration(cfg.CacheTTLHours) * time.Hour
	return embcache.New(base, store, ttl, metrics.EmbeddingCacheTotal, logger)
}

// buildRegistry registers one connector per enabled provider. All connectors
// share one pacer, so pacing holds across concurrent requests.
func buildRegistry(sources config.SourcesConfig, logger *zap.Logger) *source.Registry {
	pacer := source.NewPacer()
	registry := source.NewRegistry()

	if sc := sources["arxiv"]; sc.Enabled {
		registry.Register(source.NewArxiv(sc, pacer))
	}
	if sc := sources["open_alex"]; sc.Enabled {
		registry.Register(source.NewOpenAlex(sc, pacer))
	}
	if sc := sources["pubmed"]; sc.Enabled {
		registry.Register(source.NewPubMed(sc, pacer, logger))
	}
	if sc := sources["crossref"]; sc.Enabled {
		registry.Register(source.NewCrossref(sc, pacer))
	}
	if sc := sources["semantic_scholar"]; sc.Enabled {
		registry.Register(source.NewSemanticScholar(sc, pacer))
	}
	return registry
}

// embeddingHealthChecker adapts the embedder chain to health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain
// text stacktrace.
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
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
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

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line, one per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
