// Package main is the entry point for the API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/paintquote-ai/quote-platform/internal/config"
	"github.com/paintquote-ai/quote-platform/internal/conversation"
	"github.com/paintquote-ai/quote-platform/internal/handler"
	"github.com/paintquote-ai/quote-platform/internal/llm"
	"github.com/paintquote-ai/quote-platform/internal/middleware"
	"github.com/paintquote-ai/quote-platform/internal/model"
	natsclient "github.com/paintquote-ai/quote-platform/internal/nats"
	"github.com/paintquote-ai/quote-platform/internal/storage"
	"github.com/paintquote-ai/quote-platform/pkg/logger"
	"github.com/paintquote-ai/quote-platform/pkg/tracing"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting quote API server")

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "quote-platform", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Connect to NATS; the engine runs without it, events just stay local.
	var streamManager *natsclient.StreamManager
	natsClient, err := natsclient.Connect(ctx, natsclient.Config{
		URL:      cfg.NATSURL,
		CAFile:   cfg.NATSCAFile,
		CertFile: cfg.NATSCertFile,
		KeyFile:  cfg.NATSKeyFile,
		Token:    cfg.NATSToken,
	}, log)
	if err != nil {
		log.Warn("NATS unavailable, continuing without event publishing", zap.Error(err))
	} else {
		defer natsClient.Close()
		streamManager = natsclient.NewStreamManager(natsClient)
		if err := streamManager.EnsureStream(ctx); err != nil {
			log.Error("failed to ensure quote stream", zap.Error(err))
			os.Exit(1)
		}
	}

	// Open durable quote storage
	quoteStore, err := storage.Open(cfg.QuoteDBPath)
	if err != nil {
		log.Error("failed to open quote storage", zap.Error(err))
		os.Exit(1)
	}
	defer quoteStore.Close()

	// Initialize the optional prompt-enrichment client
	var llmClient llm.Client
	if cfg.AnthropicAPIKey != "" {
		llmClient, err = llm.NewAnthropicClient(cfg.AnthropicAPIKey)
		if err != nil {
			log.Warn("failed to create Anthropic client, prompt enrichment disabled")
		}
	} else if cfg.OpenAIAPIKey != "" {
		llmClient, err = llm.NewOpenAIClient(cfg.OpenAIAPIKey)
		if err != nil {
			log.Warn("failed to create OpenAI client, prompt enrichment disabled")
		}
	}

	// Build the conversation engine
	settings := conversation.Settings{
		MaxConversationTime: cfg.MaxConversationTime,
		CompletionGrace:     cfg.CompletionGracePeriod,
		MaxRetries:          cfg.MaxRetries,
		StuckThreshold:      cfg.StuckThreshold,
		MaxMessages:         cfg.MaxMessages,
		EnrichTimeout:       cfg.LLMTimeout,
		Rates: model.PricingRates{
			Walls:    cfg.WallsRate,
			Ceilings: cfg.CeilingsRate,
			Trim:     cfg.TrimRate,
		},
		TaxRate: cfg.TaxRate,
	}

	registry := conversation.NewRegistry()
	store := conversation.NewMemoryStore(registry, settings)

	opts := []conversation.ManagerOption{
		conversation.WithRepository(quoteStore),
	}
	if streamManager != nil {
		opts = append(opts, conversation.WithPublisher(streamManager))
	}
	if llmClient != nil {
		opts = append(opts, conversation.WithEnricher(llm.NewPromptEnricher(llmClient)))
	}
	manager := conversation.NewManager(store, registry, settings, log, opts...)
	defer manager.Close()

	// Background expiry sweep
	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go func() {
		ticker := time.NewTicker(cfg.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				manager.CleanupExpired(sweepCtx)
			}
		}
	}()

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(natsClient)
	sessionHandler := handler.NewSessionHandler(manager, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"Link", "X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// API routes with authentication
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Route("/quote-sessions", func(r chi.Router) {
			r.Post("/", sessionHandler.Start)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", sessionHandler.Get)
				r.Delete("/", sessionHandler.Delete)
				r.Post("/messages", sessionHandler.SendInput)
				r.Post("/reset", sessionHandler.Reset)
				r.Post("/complete", sessionHandler.Complete)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireScope("admin"))
			r.Post("/cleanup", sessionHandler.Cleanup)
		})
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
