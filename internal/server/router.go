// Package server assembles the HTTP router.
package server

import (
	"log/slog"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ayush/todo-api/internal/auth"
	"github.com/ayush/todo-api/internal/logging"
	"github.com/ayush/todo-api/internal/middleware"
	"github.com/ayush/todo-api/internal/respond"
	"github.com/ayush/todo-api/internal/todo"
)

// Deps are the collaborators the router dispatches to.
type Deps struct {
	Auth           *auth.Service
	Guard          *auth.Guard
	Todos          *todo.Service
	Logger         *slog.Logger
	AllowedOrigins []string
	// Registry receives the HTTP metrics and backs /metrics.
	// A nil Registry gets a fresh one.
	Registry *prometheus.Registry
}

// NewRouter builds the full route table.
func NewRouter(d Deps) http.Handler {
	reg := d.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	metrics := middleware.NewMetrics(reg)

	authHandler := auth.NewHandler(d.Auth, d.Logger)
	todoHandler := todo.NewHandler(d.Todos, d.Logger)
	requireAuth := middleware.RequireAuth(d.Guard, d.Logger)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(logging.AccessLog(d.Logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.StripSlashes)
	r.Use(metrics.Instrument)
	// Browsers reject credentialed responses for a wildcard origin.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: !slices.Contains(d.AllowedOrigins, "*"),
		MaxAge:           300,
	}))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		respond.JSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		respond.JSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	})

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		respond.JSON(w, http.StatusOK, map[string]string{"message": "Welcome to the Todo API"})
	})
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		respond.JSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Post("/signup", authHandler.Signup)
	r.Post("/login", authHandler.Login)
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/me", authHandler.Me)
		r.Delete("/me", authHandler.DeleteMe)
	})

	r.Route("/todos", func(r chi.Router) {
		r.Use(requireAuth)
		todoHandler.Routes(r)
	})

	return r
}
