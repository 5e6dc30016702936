// Package server provides the HTTP API: repository and profile lookups,
// similarity ranking, profile insights, and rate-limit introspection.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gitline/gitline/internal/cache"
	"github.com/gitline/gitline/internal/config"
	"github.com/gitline/gitline/internal/fetcher"
	"github.com/gitline/gitline/internal/github"
	"github.com/gitline/gitline/internal/ratelimit"
	"github.com/gitline/gitline/internal/similarity"
)

// Service is the fetch pipeline surface the handlers consume
type Service interface {
	UserRepositories(ctx context.Context, username, sort string) (*fetcher.RepositoryList, error)
	UserProfile(ctx context.Context, username string) (*fetcher.ProfileResult, error)
	TopContributors(ctx context.Context, username string, limit int) ([]fetcher.TopContributor, error)
	LiveRateLimit(ctx context.Context) (*github.RateSnapshot, error)
	Budget() ratelimit.Status
	CacheStats() cache.Stats
}

// Server is the HTTP server with its injected dependencies
type Server struct {
	service Service
	ranker  *similarity.Ranker
	config  *config.ServerConfig
	logger  *zap.Logger
	server  *http.Server
}

// NewServer creates a server with the given dependencies
func NewServer(
	service Service,
	ranker *similarity.Ranker,
	cfg *config.ServerConfig,
	logger *zap.Logger,
) *Server {
	return &Server{
		service: service,
		ranker:  ranker,
		config:  cfg,
		logger:  logger,
	}
}

// Router builds the chi router with the full middleware chain and routes
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.config.RequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.config.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/users/{username}", s.handleProfile)
		r.Get("/users/{username}/repos", s.handleRepositories)
		r.Get("/users/{username}/repos/{repo}/similar", s.handleSimilar)
		r.Get("/users/{username}/insights", s.handleInsights)
		r.Get("/users/{username}/contributors", s.handleContributors)
		r.Get("/rate-limit", s.handleRateLimit)
		r.Get("/cache/stats", s.handleCacheStats)
	})
	r.Get("/health", s.handleHealth)

	return r
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("starting server", zap.String("addr", addr))

	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}

	return nil
}

type contextKey string

const requestIDKey contextKey = "request_id"

// requestID tags every request with a UUID, echoed in X-Request-ID
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-ID", id)

		ctx := context.WithValue(r.Context(), requestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requestLogger logs one line per request with status and duration
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		id, _ := r.Context().Value(requestIDKey).(string)
		s.logger.Info("request",
			zap.String("request_id", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
