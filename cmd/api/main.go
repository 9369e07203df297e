// Package main is the entry point for the booking assistant API server.
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

	"github.com/bookwise-ai/booking-assistant/internal/calendar"
	"github.com/bookwise-ai/booking-assistant/internal/config"
	"github.com/bookwise-ai/booking-assistant/internal/dialog"
	"github.com/bookwise-ai/booking-assistant/internal/handler"
	"github.com/bookwise-ai/booking-assistant/internal/intent"
	"github.com/bookwise-ai/booking-assistant/internal/llm"
	"github.com/bookwise-ai/booking-assistant/internal/middleware"
	natsclient "github.com/bookwise-ai/booking-assistant/internal/nats"
	"github.com/bookwise-ai/booking-assistant/internal/service"
	"github.com/bookwise-ai/booking-assistant/pkg/logger"
	"github.com/bookwise-ai/booking-assistant/pkg/tracing"
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

	log.Info("starting booking assistant")

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "booking-assistant", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Connect to NATS when event publishing is enabled
	var natsClient *natsclient.Client
	var bookingStream *natsclient.BookingStream
	if cfg.EventsEnabled {
		natsClient, err = natsclient.Connect(natsclient.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			log.Error("failed to connect to NATS", zap.Error(err))
			os.Exit(1)
		}
		defer natsClient.Close()

		bookingStream = natsclient.NewBookingStream(natsClient)
		if err := bookingStream.EnsureStream(ctx); err != nil {
			log.Error("failed to ensure booking stream", zap.Error(err))
			os.Exit(1)
		}
	}

	// Initialize LLM client for meeting title suggestions
	var llmClient llm.Client
	if cfg.AnthropicAPIKey != "" {
		llmClient, err = llm.NewAnthropicClient(cfg.AnthropicAPIKey)
		if err != nil {
			log.Warn("failed to create Anthropic client, title suggestions disabled", zap.Error(err))
		}
	} else if cfg.OpenAIAPIKey != "" {
		llmClient, err = llm.NewOpenAIClient(cfg.OpenAIAPIKey)
		if err != nil {
			log.Warn("failed to create OpenAI client, title suggestions disabled", zap.Error(err))
		}
	}

	// Initialize the calendar engine
	calendarSvc := calendar.NewMemoryService(calendar.Config{
		BusinessStart: cfg.BusinessStart,
		BusinessEnd:   cfg.BusinessEnd,
		SlotMinutes:   cfg.SlotMinutes,
	}, log)
	if cfg.SeedDemoData {
		calendarSvc.SeedDemoData()
	}

	// Initialize the conversation pipeline
	classifier := intent.NewClassifier(log)
	graphOpts := []dialog.Option{}
	if llmClient != nil {
		graphOpts = append(graphOpts, dialog.WithTitler(service.NewLLMTitler(llmClient, log)))
	}
	graph := dialog.NewGraph(calendarSvc, log, graphOpts...)

	store := service.NewConversationStore()
	agentOpts := []service.AgentOption{}
	if bookingStream != nil {
		agentOpts = append(agentOpts, service.WithEventPublisher(bookingStream))
	}
	agent := service.NewAgent(store, classifier, graph, calendarSvc, log, agentOpts...)

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(natsClient)
	chatHandler := handler.NewChatHandler(agent, log)
	availabilityHandler := handler.NewAvailabilityHandler(agent, log)
	conversationHandler := handler.NewConversationHandler(agent, log)

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
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health endpoints
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// API routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Post("/chat", chatHandler.Chat)
		r.Get("/availability/{date}", availabilityHandler.Availability)
		r.Get("/conversations/{id}", conversationHandler.Get)
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
