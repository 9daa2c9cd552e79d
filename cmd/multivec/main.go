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

	"github.com/kailas-cloud/multivec/internal/codec"
	"github.com/kailas-cloud/multivec/internal/config"
	dbRedis "github.com/kailas-cloud/multivec/internal/db/redis"
	logpkg "github.com/kailas-cloud/multivec/internal/logger"
	"github.com/kailas-cloud/multivec/internal/metrics"
	itemrepo "github.com/kailas-cloud/multivec/internal/repository/item"
	searchrepo "github.com/kailas-cloud/multivec/internal/repository/search"
	chiTransport "github.com/kailas-cloud/multivec/internal/transport/chi"
	openaiEmb "github.com/kailas-cloud/multivec/internal/transport/openai"
	"github.com/kailas-cloud/multivec/internal/usecase/health"
	"github.com/kailas-cloud/multivec/internal/usecase/ingest"
	"github.com/kailas-cloud/multivec/internal/usecase/rerank"
	searchuc "github.com/kailas-cloud/multivec/internal/usecase/search"
	"github.com/kailas-cloud/multivec/internal/version"
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

	logger.Info("Starting multivec API server",
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

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterSearchMetrics()

	embedder := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Logger:     logger,
	})
	logger.Info("Embedder created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	matrixCodec, err := codec.New(codec.DefaultLevel)
	if err != nil {
		logger.Fatal("Failed to create codec", zap.Error(err))
	}

	// Create repositories (domain-native, no adapters)
	itemRepo := itemrepo.New(store, matrixCodec, itemrepo.Config{
		KeyPrefix:       cfg.Engine.KeyPrefix,
		Dim:             cfg.Embedding.Dimensions,
		MaxPayloadBytes: cfg.Engine.MaxPayloadBytes,
		HNSW: itemrepo.HNSWConfig{
			M:           cfg.Index.HNSWM,
			EFConstruct: cfg.Index.HNSWEFConstruct,
		},
	})
	searchRepo := searchrepo.New(store, searchrepo.Config{
		KeyPrefix:    cfg.Engine.KeyPrefix,
		ReturnFields: itemrepo.MetadataReturnFields(),
	})

	if cfg.Index.RecreateOnStart {
		logger.Warn("Recreating indexes from scratch")
		err = itemRepo.RebuildIndexes(ctx)
	} else {
		err = itemRepo.EnsureIndexes(ctx)
	}
	if err != nil {
		logger.Fatal("Failed to create indexes", zap.Error(err))
	}
	logger.Info("Indexes ready",
		zap.Int("hnsw_m", cfg.Index.HNSWM),
		zap.Int("hnsw_ef_construction", cfg.Index.HNSWEFConstruct),
	)

	// Create use case services
	rerankSvc := rerank.New(itemRepo, cfg.Engine.RerankWorkers)
	searchSvc := searchuc.New(embedder, searchRepo, rerankSvc, searchuc.Config{
		EmbedTimeout:  time.Duration(cfg.Engine.EmbedTimeoutMS) * time.Millisecond,
		Stage1Timeout: time.Duration(cfg.Engine.Stage1TimeoutMS) * time.Millisecond,
		Stage2Timeout: time.Duration(cfg.Engine.Stage2TimeoutMS) * time.Millisecond,
	})
	ingestSvc := ingest.New(itemRepo).WithMaxBatchSize(cfg.Engine.MaxBatchSize)
	healthSvc := health.New(store, embedder)

	// Create chi server
	server := chiTransport.NewServer(searchSvc, ingestSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
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

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
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
