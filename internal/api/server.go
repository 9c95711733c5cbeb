// Package api exposes the HTTP and WebSocket surface over the land state
// store: point reads, a full listing, and a live update stream.
package api

import (
	"context"
	"net/http"
	"time"

	"landwatch/internal/store"
	"landwatch/internal/stream"

	"github.com/gorilla/mux"
)

// Config controls the listener port and the per-IP rate limit applied to
// every route except the health check and the stream endpoint.
type Config struct {
	Port           string
	RateLimitRPS   float64
	RateLimitBurst int
	RateLimitTTL   time.Duration
	AggregateTTL   time.Duration
}

// Server wires the land StateStore and the StreamBroadcaster behind a
// gorilla/mux router.
type Server struct {
	store        store.StateStore
	broadcaster  *stream.Broadcaster
	maxLand      int
	cache        *responseCache
	limiter      *ipLimiter
	aggregateTTL time.Duration
	httpServer   *http.Server
}

// NewServer builds a Server ready to Start. maxLand bounds the /land/{n}
// path; the aggregate listing is not filtered by it.
func NewServer(st store.StateStore, broadcaster *stream.Broadcaster, maxLand int, cfg Config) *Server {
	if cfg.AggregateTTL <= 0 {
		cfg.AggregateTTL = 2 * time.Second
	}

	s := &Server{
		store:        st,
		broadcaster:  broadcaster,
		maxLand:      maxLand,
		cache:        newResponseCache(),
		aggregateTTL: cfg.AggregateTTL,
	}
	if cfg.RateLimitRPS > 0 {
		s.limiter = newIPLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, cfg.RateLimitTTL)
	}

	router := mux.NewRouter()
	router.Use(commonMiddleware)
	router.Use(s.rateLimitMiddleware)
	registerRoutes(router, s)

	s.httpServer = &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}
	return s
}

// Start blocks serving HTTP until the listener is closed by Shutdown.
func (s *Server) Start() error {
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully drains in-flight requests, bounded by ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func commonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
