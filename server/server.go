// Package server exposes the dashboard operations as a JSON and HTML API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/Pabloo22/pokedex-dashboard/assets"
	"github.com/Pabloo22/pokedex-dashboard/metrics"
	"github.com/Pabloo22/pokedex-dashboard/pokedex"
)

// Options configures a Server.
type Options struct {
	Addr           string
	RateLimit      float64 // Requests per second per client; 0 disables
	Burst          int
	AllowedOrigins []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration

	Service *pokedex.Service
	Assets  *assets.Store

	// Metrics records request counts and latencies when set. Gatherer backs /metrics
	// and defaults to prometheus.DefaultGatherer.
	Metrics  *metrics.Registry
	Gatherer prometheus.Gatherer

	Logger zerolog.Logger
}

// Server represents the HTTP API server.
type Server struct {
	opts       Options
	router     chi.Router
	httpServer *http.Server
	logger     zerolog.Logger
}

// New creates a server and registers its routes.
func New(opts Options) *Server {
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	s := &Server{
		opts:   opts,
		router: chi.NewRouter(),
		logger: opts.Logger.With().Str("component", "server").Logger(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(hlog.NewHandler(s.logger))
	s.router.Use(hlog.AccessHandler(s.logRequest))
	s.router.Use(middleware.Recoverer)

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"Link", "Retry-After"},
		MaxAge:         300,
	}))

	if s.opts.RateLimit > 0 {
		s.router.Use(newClientLimiter(s.opts.RateLimit, s.opts.Burst).middleware)
	}
}

// logRequest runs after every request and reports it to the log and the metrics
// registry under the matched route pattern.
func (s *Server) logRequest(r *http.Request, status, size int, duration time.Duration) {
	route := "unmatched"
	if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
		route = rctx.RoutePattern()
	}
	if s.opts.Metrics != nil {
		s.opts.Metrics.ObserveRequest(route, status, duration)
	}
	hlog.FromRequest(r).Debug().
		Str("request_id", middleware.GetReqID(r.Context())).
		Str("method", r.Method).
		Str("route", route).
		Int("status", status).
		Int("size", size).
		Dur("duration", duration).
		Msg("request")
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.router,
		ReadTimeout:       s.opts.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      s.opts.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.opts.Addr).Msg("API server starting")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("API server error: %w", err)
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info().Msg("shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.health)
	s.router.Handle("/metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Route("/pokemon", func(r chi.Router) {
			r.Get("/", s.listPokemon)
			r.Route("/{key}", func(r chi.Router) {
				r.Get("/", s.getPokemon)
				r.Get("/similar", s.similar)
				r.Get("/evolution", s.evolution)
				r.Get("/image", s.image)
			})
		})

		r.Get("/embedding", s.embedding)

		r.Route("/charts", func(r chi.Router) {
			r.Get("/embedding", s.embeddingChart)
			r.Get("/stats/{key}", s.statsChart)
		})

		r.Post("/reload", s.reload)
	})
}
