package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"expensetracker/internal/auth"
	"expensetracker/internal/core"
	"expensetracker/internal/log"
)

type userKey struct{}

func userFrom(ctx context.Context) core.User {
	u, _ := ctx.Value(userKey{}).(core.User)
	return u
}

// requireUser resolves the bearer token to a user or answers 401.
func (s *Server) requireUser(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeMessage(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		user, ok := s.users.Get(token)
		if !ok {
			var err error
			user, err = s.auth.Authenticate(r.Context(), token)
			if err != nil {
				s.writeError(w, r, log.OpValidate, err)
				return
			}
			if ttl := cacheTTL(token); ttl > 0 {
				s.users.SetWithTTL(token, user, ttl)
			}
		}
		ctx := context.WithValue(r.Context(), userKey{}, user)
		ctx = log.NewContext(ctx, log.FromContext(ctx).With(log.FieldUserID, user.UserID))
		next(w, r.WithContext(ctx))
	})
}

// cacheTTL keeps a resolved token no longer than the token itself is valid.
func cacheTTL(token string) time.Duration {
	ttl := userCacheTTL
	if exp, ok := auth.ExpiresAt(token); ok {
		if left := time.Until(exp); left < ttl {
			ttl = left
		}
	}
	return ttl
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
	})
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := map[string]any{}
	if _, err := s.categories.ListCategories(ctx); err != nil {
		checks["storage"] = fmt.Sprintf("failed: %v", err)
		status, code = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["storage"] = "ok"
	}
	checks["user_cache"] = map[string]any{"entries": s.users.Size()}
	checks["rate_limiter"] = map[string]any{"active_clients": s.rateLimiter.ActiveClients()}

	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics provides request and security counters in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	traceMetrics := s.traceMiddleware.GetMetrics()
	rateMetrics := s.rateLimiter.GetMetrics()
	securityMetrics := s.securityDetector.GetMetrics()

	fmt.Fprintf(w, "# HELP http_requests_total Total number of HTTP requests\n")
	fmt.Fprintf(w, "# TYPE http_requests_total counter\n")
	fmt.Fprintf(w, "http_requests_total %d\n\n", traceMetrics.TotalRequests)

	fmt.Fprintf(w, "# HELP rate_limit_hits_total Total rate limit hits\n")
	fmt.Fprintf(w, "# TYPE rate_limit_hits_total counter\n")
	fmt.Fprintf(w, "rate_limit_hits_total %d\n\n", rateMetrics.TotalHits)

	fmt.Fprintf(w, "# HELP suspicious_requests_total Total suspicious requests rejected\n")
	fmt.Fprintf(w, "# TYPE suspicious_requests_total counter\n")
	fmt.Fprintf(w, "suspicious_requests_total %d\n\n", securityMetrics.SuspiciousRequests)

	fmt.Fprintf(w, "# HELP user_cache_entries Cached bearer tokens\n")
	fmt.Fprintf(w, "# TYPE user_cache_entries gauge\n")
	fmt.Fprintf(w, "user_cache_entries %d\n\n", s.users.Size())

	fmt.Fprintf(w, "# HELP uptime_seconds Application uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n", time.Since(s.startedAt).Seconds())
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req core.SignupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpSignup, err)
		return
	}
	resp, err := s.auth.Signup(r.Context(), req)
	if err != nil {
		s.writeError(w, r, log.OpSignup, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req core.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpLogin, err)
		return
	}
	resp, err := s.auth.Login(r.Context(), req)
	if err != nil {
		s.writeError(w, r, log.OpLogin, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.categories.ListCategories(r.Context())
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, cats)
}
