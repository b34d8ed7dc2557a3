package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ossuary/ossuary/pkg/cache"
	"github.com/ossuary/ossuary/pkg/core/logging"
	"github.com/ossuary/ossuary/pkg/orchestrator"
)

// Options configures the HTTP server.
type Options struct {
	Port      int
	DevMode   bool
	CacheDays int
}

// Server is ossuary's HTTP scoring API, grounded on the teacher's
// pkg/api/server.go chi router construction (middleware stack, CORS,
// graceful shutdown).
type Server struct {
	router chi.Router
	port   int
	log    *logging.Logger
}

// NewServer builds a Server that serves scores from orch and movers
// from store.
func NewServer(orch scorer, store cache.Cache, opts Options, log *logging.Logger) *Server {
	s := &Server{port: opts.Port, log: log}
	s.setupRoutes(orch, store, opts)
	return s
}

func (s *Server) setupRoutes(orch scorer, store cache.Cache, opts Options) {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(orchestrator.DefaultTaskDeadline + 10*time.Second))

	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://127.0.0.1:3000"},
		AllowedMethods:   []string{"GET"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}
	if opts.DevMode {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	cacheDays := opts.CacheDays
	if cacheDays <= 0 {
		cacheDays = 7
	}
	scoreHandler := NewScoreHandler(orch, cacheDays)
	moversHandler := NewMoversHandler(store)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
		r.Get("/packages/{ecosystem}/*", scoreHandler.Score)
		r.Get("/movers", moversHandler.Movers)
	})

	s.router = r
}

// Router returns the chi router, primarily for httptest-based testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// Run starts the HTTP server and blocks until ctx is cancelled or the
// server fails.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: orchestrator.DefaultTaskDeadline + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	s.log.Infof("api: listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
