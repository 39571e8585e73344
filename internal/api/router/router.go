// Package router wires the HTTP surface: path dispatch, middleware, and the
// trivial liveness endpoints. No decision logic lives here.
package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/agentmvp/agent-gateway/internal/agent"
	httpmiddleware "github.com/agentmvp/agent-gateway/internal/http/middleware"
	"github.com/agentmvp/agent-gateway/pkg/logging"
)

// Config carries the router's dependencies.
type Config struct {
	Logger             *logging.Logger
	AgentHandler       *agent.Handler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
	Version            string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/", serviceInfo(cfg.Version))

	// Liveness check with no dependency on the upstream API.
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]string{"status": "healthy"})
	})

	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/agent", func(r chi.Router) {
		r.Post("/process", cfg.AgentHandler.Process)
	})

	return r
}

func serviceInfo(version string) http.HandlerFunc {
	if version == "" {
		version = "dev"
	}
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]string{
			"service": "agent-gateway",
			"status":  "running",
			"version": version,
		})
	}
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(payload)
}
