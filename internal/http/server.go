package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"gagyebu/internal/cache"
	"gagyebu/internal/core"
	"gagyebu/internal/log"
	"gagyebu/internal/middleware/ratelimit"
	"gagyebu/internal/middleware/security"
	"gagyebu/internal/middleware/trace"
	"gagyebu/internal/services"
	"gagyebu/internal/store"
)

const (
	summaryCacheSize = 120
	summaryCacheTTL  = time.Minute
	cacheSweepEvery  = 5 * time.Minute
	readyTimeout     = 2 * time.Second
	streamKeepAlive  = 30 * time.Second
)

// Deps are the collaborators the API is served from.
type Deps struct {
	Store        store.Store
	Recurring    *services.RecurringService
	Transactions *services.TransactionService
	Generator    *services.GenerationCoordinator
	Logger       *log.Logger

	// RateLimitPerMinute bounds /api requests per client. Zero uses the
	// limiter default.
	RateLimitPerMinute int

	// Now overrides the clock used for default months.
	Now func() time.Time
}

type Server struct {
	http.Server

	store        store.Store
	recurring    *services.RecurringService
	transactions *services.TransactionService
	generator    *services.GenerationCoordinator
	logger       *log.Logger
	now          func() time.Time

	limiter   *ratelimit.Limiter
	summaries *cache.LRUCache[core.MonthSummary]
	caches    *cache.Manager
	keepAlive time.Duration

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.Config{Component: log.ComponentHTTP})
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	limitCfg := ratelimit.DefaultConfig()
	if deps.RateLimitPerMinute > 0 {
		limitCfg.RequestsPerMinute = deps.RateLimitPerMinute
	}

	s := &Server{
		store:        deps.Store,
		recurring:    deps.Recurring,
		transactions: deps.Transactions,
		generator:    deps.Generator,
		logger:       logger,
		now:          now,
		limiter:      ratelimit.NewLimiter(limitCfg),
		summaries:    cache.NewLRUCache[core.MonthSummary](summaryCacheSize, summaryCacheTTL),
		caches:       cache.NewManager(),
		keepAlive:    streamKeepAlive,
	}
	s.caches.Register(s.summaries)
	s.caches.StartCleanup(cacheSweepEvery)

	api := http.NewServeMux()
	api.HandleFunc("GET /api/categories", s.handleCategories)
	api.HandleFunc("GET /api/templates", s.handleTemplates)

	api.HandleFunc("GET /api/recurring", s.handleListDefinitions)
	api.HandleFunc("POST /api/recurring", s.handleCreateDefinition)
	api.HandleFunc("GET /api/recurring/stream", s.handleStreamDefinitions)
	api.HandleFunc("GET /api/recurring/status", s.handleGenerationStatus)
	api.HandleFunc("POST /api/recurring/generate", s.handleGenerate)
	api.HandleFunc("GET /api/recurring/projection", s.handleProjection)
	api.HandleFunc("GET /api/recurring/{id}", s.handleGetDefinition)
	api.HandleFunc("PUT /api/recurring/{id}", s.handleUpdateDefinition)
	api.HandleFunc("DELETE /api/recurring/{id}", s.handleDeleteDefinition)
	api.HandleFunc("POST /api/recurring/{id}/toggle", s.handleToggleDefinition)

	api.HandleFunc("GET /api/transactions", s.handleListTransactions)
	api.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	api.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)
	api.HandleFunc("GET /api/summary", s.handleSummary)

	resolver := security.NewClientIPResolver()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("/api/", s.limiter.Middleware(resolver.ClientIP, s.rejectRateLimited)(api))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	})

	var handler http.Handler = mux
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = log.Middleware(logger, trace.RequestIDFromRequest, resolver.ClientIP)(handler)
	handler = trace.NewMiddleware().Middleware(handler)

	// No write timeout: the definitions stream stays open.
	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Shutdown gracefully shuts down the server and its cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) rejectRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded, try again later"})
}

func (s *Server) monthParams(r *http.Request) (MonthParams, error) {
	return ParseMonthParams(r.URL.Query(), s.now())
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err.Error())
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
