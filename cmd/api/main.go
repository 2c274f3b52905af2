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

	"github.com/relaylabs/chatrelay/internal/config"
	"github.com/relaylabs/chatrelay/internal/events"
	"github.com/relaylabs/chatrelay/internal/handler"
	"github.com/relaylabs/chatrelay/internal/llm"
	"github.com/relaylabs/chatrelay/internal/middleware"
	"github.com/relaylabs/chatrelay/internal/service"
	"github.com/relaylabs/chatrelay/internal/store"
	"github.com/relaylabs/chatrelay/internal/store/memory"
	"github.com/relaylabs/chatrelay/internal/store/postgres"
	"github.com/relaylabs/chatrelay/pkg/logger"
	"github.com/relaylabs/chatrelay/pkg/tracing"
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

	log.Info("starting API server")

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "chatrelay", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing")
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Select storage backend
	var st store.Store
	if cfg.DatabaseURL != "" {
		pg, err := postgres.New(cfg.DatabaseURL)
		if err != nil {
			log.Error("failed to connect to database", zap.Error(err))
			os.Exit(1)
		}
		st = pg
		log.Info("using postgres store")
	} else {
		st = memory.New()
		log.Warn("no DATABASE_URL set, using in-memory store")
	}
	defer st.Close()

	// Connect turn event publisher when NATS is configured
	var publisher *events.Publisher
	if cfg.NATSURL != "" {
		natsClient, err := events.Connect(events.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			log.Warn("failed to connect to NATS, turn events disabled")
		} else {
			defer natsClient.Close()
			publisher = events.NewPublisher(natsClient)
			if err := publisher.EnsureStream(ctx); err != nil {
				log.Warn("failed to ensure turn stream, turn events disabled")
				publisher = nil
			}
		}
	}

	// Initialize LLM client with the fixed sampling configuration
	llmClient := llm.NewClient(llm.Provider(cfg.Provider), cfg.APIKey(), cfg.BaseURL, llm.Params{
		Model:            cfg.Model,
		Temperature:      float32(cfg.Temperature),
		TopP:             float32(cfg.TopP),
		PresencePenalty:  float32(cfg.PresencePenalty),
		FrequencyPenalty: float32(cfg.FrequencyPenalty),
		MaxTokens:        cfg.MaxTokens,
	})

	// Initialize services
	sessionSvc := service.NewSessionService(st, log)
	chatSvc := service.NewChatService(st, llmClient, publisher, cfg.SystemPrompt, cfg.CompletionTimeout, log)

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(st)
	sessionHandler := handler.NewSessionHandler(sessionSvc, log)
	chatHandler := handler.NewChatHandler(chatSvc, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health endpoints
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// Chat relay endpoints
	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Post("/login", sessionHandler.Login)
		r.Post("/chat", chatHandler.Chat)
	})

	// Static assets at the root path
	r.Handle("/*", http.FileServer(http.Dir(cfg.StaticDir)))

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
