// Package web serves a read-only browser over the loaded tables: a JSON API,
// HTML pages, and an endpoint that re-runs the load.
package web

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/datasetloader/internal/config"
	"github.com/JonMunkholm/datasetloader/internal/loader"
	"github.com/JonMunkholm/datasetloader/internal/logging"
	"github.com/JonMunkholm/datasetloader/internal/web/middleware"
)

// MaxPageSize caps the page_size query parameter.
const MaxPageSize = 1000

// Source produces a fresh result set. It backs POST /api/reload.
type Source interface {
	Load(ctx context.Context) (loader.ResultSet, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (loader.ResultSet, error)

// Load calls f.
func (f SourceFunc) Load(ctx context.Context) (loader.ResultSet, error) {
	return f(ctx)
}

// Server is the HTTP server for the table browser.
type Server struct {
	source  Source
	dataset string
	cfg     config.ServerConfig
	sec     config.SecurityConfig
	router  *chi.Mux
	server  *http.Server

	mu       sync.RWMutex
	tables   loader.ResultSet
	loadedAt time.Time

	reloadMu sync.Mutex
}

// NewServer creates a Server that serves tables until the next reload.
func NewServer(source Source, tables loader.ResultSet, cfg *config.Config) *Server {
	s := &Server{
		source:   source,
		dataset:  cfg.Dataset.Name,
		cfg:      cfg.Server,
		sec:      cfg.Security,
		router:   chi.NewRouter(),
		tables:   tables,
		loadedAt: time.Now(),
	}
	if s.cfg.PageSize <= 0 {
		s.cfg.PageSize = 100
	}
	s.setupMiddleware()
	s.setupRoutes()
	s.server = &http.Server{
		Addr:        s.cfg.Addr(),
		Handler:     s.router,
		ReadTimeout: s.cfg.ReadTimeout,
		IdleTimeout: 60 * time.Second,
	}
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(chimw.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Compress(5))
	s.router.Use(securityHeaders)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	// Pages
	s.router.Get("/", s.handleDashboard)
	s.router.Get("/tables/{key}", s.handleTableView)

	// API routes
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/tables", s.handleListTables)
		r.Get("/tables/{key}", s.handleGetTable)

		r.Group(func(r chi.Router) {
			r.Use(middleware.APIKeyAuth(&s.sec))
			r.Use(newRateLimiter(6, time.Minute).middleware)
			r.Post("/reload", s.handleReload)
		})
	})
}

// Start begins listening for HTTP requests on the configured address.
// It returns http.ErrServerClosed after Shutdown.
func (s *Server) Start() error {
	logging.WithFields(context.Background(), "addr", s.server.Addr).Info("server starting")
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// snapshot returns the current tables and their load time.
func (s *Server) snapshot() (loader.ResultSet, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tables, s.loadedAt
}

// reload runs the source and swaps in the result. Concurrent calls fail
// fast with errReloadInProcess.
func (s *Server) reload(ctx context.Context) (loader.ResultSet, error) {
	if !s.reloadMu.TryLock() {
		return nil, errReloadInProcess
	}
	defer s.reloadMu.Unlock()

	rs, err := s.source.Load(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.tables = rs
	s.loadedAt = time.Now()
	s.mu.Unlock()
	return rs, nil
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// rateLimiter is a fixed-window limiter per client IP.
type rateLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	rate      int
	window    time.Duration
	lastSweep time.Time
}

type visitor struct {
	tokens    int
	lastReset time.Time
}

func newRateLimiter(rate int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		visitors:  make(map[string]*visitor),
		rate:      rate,
		window:    window,
		lastSweep: time.Now(),
	}
}

// allow consumes a token for ip if one is left in the current window.
func (rl *rateLimiter) allow(ip string, now time.Time) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.Sub(rl.lastSweep) > rl.window*2 {
		for k, v := range rl.visitors {
			if now.Sub(v.lastReset) > rl.window*2 {
				delete(rl.visitors, k)
			}
		}
		rl.lastSweep = now
	}

	v, ok := rl.visitors[ip]
	if !ok || now.Sub(v.lastReset) > rl.window {
		rl.visitors[ip] = &visitor{tokens: rl.rate - 1, lastReset: now}
		return true
	}
	if v.tokens <= 0 {
		return false
	}
	v.tokens--
	return true
}

func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// RemoteAddr is already rewritten by chi's RealIP
		if !rl.allow(r.RemoteAddr, time.Now()) {
			w.Header().Set("Retry-After", "60")
			respondErrorJSON(w, UserMessage{
				Message: "Rate limit exceeded",
				Action:  "Wait a minute and try again",
				Code:    "REQ003",
			}, http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// writeJSON encodes v as JSON and writes it to w.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context()).Error("json encode error", "error", err)
	}
}
