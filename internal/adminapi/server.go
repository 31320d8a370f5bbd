package adminapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"autonomy-core/internal/adminapi/middleware"
)

// Server is the admin HTTP server exposing health, metrics, and the
// operator-authenticated admin routes.
type Server struct {
	httpServer *http.Server
}

// Config configures the admin server's auth and optional metrics
// endpoint.
type Config struct {
	Addr           string
	StaticSecret   string
	JWTSecret      string
	MetricsHandler http.Handler
}

// NewServer builds the admin HTTP server, routing every /admin/*
// endpoint through RequireOperatorAuth and leaving /healthz, /readyz
// public for orchestrator liveness/readiness probes.
func NewServer(h *Handlers, cfg Config) *Server {
	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(chimw.Recoverer)

	router.Get("/healthz", h.Healthz)
	router.Get("/readyz", h.Readyz)
	if cfg.MetricsHandler != nil {
		router.Handle("/metrics", cfg.MetricsHandler)
	}

	router.Route("/admin", func(admin chi.Router) {
		admin.Use(middleware.RequireOperatorAuth(cfg.StaticSecret, cfg.JWTSecret))

		admin.Get("/status", h.Status)
		admin.Get("/mcp", h.MCP)

		admin.Get("/schedule", h.ListSchedule)
		admin.Post("/schedule", h.AddSchedule)
		admin.Post("/schedule/{id}/run", h.RunSchedule)
		admin.Put("/schedule/{id}/enabled", h.SetScheduleEnabled)
		admin.Delete("/schedule/{id}", h.DeleteSchedule)

		admin.Post("/memories", h.AddMemory)
		admin.Post("/memories/search", h.SearchMemories)

		admin.Get("/personality/{user_id}", h.Personality)

		admin.Post("/reset", h.Reset)
		admin.Get("/example", h.Example)
	})

	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Addr,
			Handler:      router,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}
}

// Run starts the HTTP server. It blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		shutDownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.Shutdown(shutDownCtx)
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
