// Package http serves the expense tracker JSON API consumed by the remote
// repository.
package http

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"expensetracker/internal/cache"
	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/middleware/ratelimit"
	"expensetracker/internal/middleware/security"
	"expensetracker/internal/middleware/trace"
	"expensetracker/internal/ports"
	"expensetracker/internal/services"
)

const (
	userCacheSize     = 1000
	userCacheTTL      = 5 * time.Minute
	cacheSweepEvery   = 10 * time.Minute
	maxRequestBody    = 1 << 20
	readHeaderTimeout = 10 * time.Second
)

// Authenticator is the server side of authentication: credentials in,
// tokens out, and tokens back to users.
type Authenticator interface {
	ports.Authenticator
	Authenticate(ctx context.Context, token string) (core.User, error)
}

// Deps are the collaborators the API needs.
type Deps struct {
	Expenses   *services.ExpenseService
	Categories ports.CategoryRepository
	Auth       Authenticator
	Logger     *log.Logger

	// RequestsPerMinute per client IP; 0 uses the limiter default.
	RequestsPerMinute int
}

type Server struct {
	http.Server

	expenses   *services.ExpenseService
	categories ports.CategoryRepository
	auth       Authenticator
	logger     *log.Logger
	startedAt  time.Time

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware

	// Resolved bearer tokens; avoids a user lookup per request.
	users        *cache.LRUCache[core.User]
	cacheManager *cache.Manager

	shutdownOnce sync.Once
}

func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.Nop()
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		expenses:         deps.Expenses,
		categories:       deps.Categories,
		auth:             deps.Auth,
		logger:           logger,
		startedAt:        time.Now(),
		rateLimiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: deps.RequestsPerMinute}),
		securityDetector: security.NewDetector(),
		users:            cache.NewLRUCache[core.User](userCacheSize, userCacheTTL),
		cacheManager:     cache.NewManager(logger),
	}
	s.traceMiddleware = trace.NewMiddleware(logger, s.securityDetector.ExtractClientIP)
	s.cacheManager.Register(s.users)
	s.cacheManager.StartCleanup(cacheSweepEvery)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("POST /auth/signup", s.handleSignup)
	mux.HandleFunc("POST /auth/login", s.handleLogin)

	mux.Handle("GET /categories", s.requireUser(s.handleCategories))
	mux.Handle("GET /expenses", s.requireUser(s.handleListExpenses))
	mux.Handle("POST /expenses", s.requireUser(s.handleCreateExpense))
	mux.Handle("GET /expenses/{id}", s.requireUser(s.handleGetExpense))
	mux.Handle("PUT /expenses/{id}", s.requireUser(s.handleUpdateExpense))
	mux.Handle("DELETE /expenses/{id}", s.requireUser(s.handleDeleteExpense))

	var h http.Handler = mux
	h = s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusTooManyRequests, "Too many requests, please slow down")
	})(h)
	h = s.securityDetector.Middleware(logger)(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.traceMiddleware.Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	return s
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		s.cacheManager.Stop()
		err = s.Server.Shutdown(ctx)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
	})
	return err
}
