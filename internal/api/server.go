// Package api provides the HTTP server for studyquest.
// It exposes the progression engine as a JSON API plus a websocket feed
// of reward events for the presentation layer.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/studyquest/studyquest/internal/app/engagement"
	"github.com/studyquest/studyquest/internal/health"
)

// Server is the studyquest HTTP API server.
type Server struct {
	engine         *engagement.Engine
	health         *health.Checker
	metricsEnabled bool
	log            zerolog.Logger
}

// NewServer creates a new API server over a running engine.
func NewServer(engine *engagement.Engine, log zerolog.Logger) *Server {
	return &Server{
		engine: engine,
		log:    log.With().Str("component", "api").Logger(),
	}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// SetHealth attaches a health checker to /health.
func (s *Server) SetHealth(c *health.Checker) { s.health = c }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		// The websocket route must not sit behind the timeout middleware.
		r.Get("/rewards/ws", s.handleRewardsWS)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))

			r.Get("/stats", s.handleStats)
			r.Post("/sessions", s.handleCompleteSession)

			r.Get("/streak", s.handleStreak)
			r.Post("/streak/saver", s.handleUseSaver)
			r.Post("/streak/accept-break", s.handleAcceptBreak)

			r.Post("/prestige", s.handlePrestige)

			r.Get("/quests", s.handleQuests)
			r.Post("/quests/{category}/generate", s.handleGenerateQuests)
			r.Post("/quests/progress", s.handleQuestProgress)

			r.Get("/achievements", s.handleAchievements)
			r.Post("/achievements/check", s.handleCheckAchievements)

			r.Get("/rewards", s.handleRewards)
			r.Post("/rewards/next", s.handleNextReward)
			r.Delete("/rewards/{id}", s.handleDismissReward)
		})
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	status, code := "ok", http.StatusOK
	if !s.health.IsHealthy() {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status": status,
		"checks": s.health.Statuses(),
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    "error",
		},
	})
}

// corsMiddleware adds CORS headers for local front ends.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
