package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agentmvp/agent-gateway/internal/agent"
	"github.com/agentmvp/agent-gateway/internal/api/router"
	appconfig "github.com/agentmvp/agent-gateway/internal/config"
	"github.com/agentmvp/agent-gateway/internal/llm"
	"github.com/agentmvp/agent-gateway/internal/observability/metrics"
	"github.com/agentmvp/agent-gateway/pkg/logging"
)

const version = "1.0.0"

func main() {
	// Load configuration (.env is optional; real deployments use the environment)
	_ = godotenv.Load()
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger.Info("starting agent-gateway API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"model", cfg.Model,
	)

	handler, err := buildServer(cfg, logger)
	if err != nil {
		logger.Error("failed to build server", "error", err)
		os.Exit(1)
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// buildServer assembles the request pipeline: OpenAI client → retry wrapper →
// agent service → HTTP router.
func buildServer(cfg *appconfig.Config, logger *logging.Logger) (http.Handler, error) {
	registry := prometheus.NewRegistry()
	gatewayMetrics := metrics.NewGatewayMetrics(registry)

	openaiClient, err := llm.NewOpenAIClient(llm.OpenAIConfig{
		APIKey:      cfg.OpenAIAPIKey,
		BaseURL:     cfg.OpenAIBaseURL,
		Model:       cfg.Model,
		MaxTokens:   int32(cfg.MaxOutputTokens),
		Temperature: float32(cfg.Temperature),
		Timeout:     cfg.RequestTimeout,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}

	llmClient := llm.NewRetryingClient(openaiClient, llm.RetryConfig{
		Policy: llm.RetryPolicy{
			MaxRetries: cfg.RetryMaxAttempts,
			BaseDelay:  cfg.RetryBaseDelay,
			MaxDelay:   cfg.RetryMaxDelay,
			Jitter:     0.2,
		},
		Logger:  logger,
		Metrics: gatewayMetrics,
	})

	service := agent.NewService(llmClient, agent.ServiceConfig{
		Model:            cfg.Model,
		MaxMessageLength: cfg.MaxMessageLength,
		MaxTokens:        int32(cfg.MaxOutputTokens),
		Temperature:      float32(cfg.Temperature),
		Logger:           logger,
		Metrics:          gatewayMetrics,
	})

	return router.New(&router.Config{
		Logger:             logger,
		AgentHandler:       agent.NewHandler(service, logger),
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		Version:            version,
	}), nil
}
