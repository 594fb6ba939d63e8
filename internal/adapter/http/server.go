// Package http exposes the discovery API, favorites and preferences, the
// offline PWA shell and the health and metrics endpoints.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/pukaar-service/internal/discovery"
	"github.com/couchcryptid/pukaar-service/internal/observability"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SessionHeader carries the client session id. Requests without it share
// the default session.
const SessionHeader = "X-Session-ID"

// Dependencies are the collaborators the API serves.
type Dependencies struct {
	Sessions  *discovery.Registry
	Favorites FavoritesStore
	Ready     sharedobs.ReadinessChecker
	Metrics   *observability.Metrics
	// Shell, when set, is mounted under /app.
	Shell       http.Handler
	CORSOrigins []string
	// WriteTimeout bounds a whole response, so it must cover the longest
	// fetch cycle. Zero means DefaultWriteTimeout.
	WriteTimeout time.Duration
}

// DefaultWriteTimeout covers a cycle under the default location and
// Overpass timeouts.
const DefaultWriteTimeout = 90 * time.Second

// Server is the service's HTTP front end.
type Server struct {
	httpServer *http.Server
	deps       Dependencies
	logger     *slog.Logger
}

// NewServer creates an HTTP server with the API, /app, /healthz, /readyz
// and /metrics routes.
func NewServer(addr string, deps Dependencies, logger *slog.Logger) *Server {
	r := chi.NewRouter()

	writeTimeout := deps.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = DefaultWriteTimeout
	}
	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: writeTimeout,
			IdleTimeout:  60 * time.Second,
		},
		deps:   deps,
		logger: logger,
	}

	origins := deps.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", SessionHeader},
		MaxAge:         300,
	}))

	r.Get("/healthz", sharedobs.LivenessHandler())
	r.Get("/readyz", sharedobs.ReadinessHandler(deps.Ready))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/services", s.handleFindNearby)
		r.Get("/services/current", s.handleRerank)
		r.Get("/markers", s.handleMarkers)

		r.Get("/favorites", s.handleListFavorites)
		r.Post("/favorites", s.handleToggleFavorite)
		// Identity keys of Overpass records contain a slash.
		r.Get("/favorites/*", s.handleContainsFavorite)
		r.Delete("/favorites/*", s.handleRemoveFavorite)

		r.Get("/preferences/{key}", s.handleGetPreference)
		r.Put("/preferences/{key}", s.handleSetPreference)
	})

	if deps.Shell != nil {
		r.Handle("/app/*", http.StripPrefix("/app", deps.Shell))
		r.Get("/app", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/app/", http.StatusMovedPermanently)
		})
	}

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) session(r *http.Request) *discovery.Session {
	return s.deps.Sessions.Session(r.Header.Get(SessionHeader))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": msg})
}
