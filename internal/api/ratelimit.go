package api

import (
	"net"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/tagview/tagview-server/internal/errors"
	"github.com/tagview/tagview-server/internal/http/response"
	"github.com/tagview/tagview-server/internal/ratelimit"
)

const rateLimitMessage = "Too many requests. Please try again later."

// RateLimitMiddleware rate limits plain chi routes by client IP.
// Returns 429 Too Many Requests when limit is exceeded.
func RateLimitMiddleware(limiter *ratelimit.KeyedRateLimiter, logger interface{ Warn(msg string, args ...any) }) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientIP(r.Header, r.RemoteAddr)

			if !limiter.Allow(key) {
				logger.Warn("Rate limit exceeded", "ip", key, "path", r.URL.Path)
				response.TooManyRequests(w, rateLimitMessage, nil)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// submitRateLimit is the huma counterpart of RateLimitMiddleware, applied to
// the submission operations.
func (s *Server) submitRateLimit(ctx huma.Context, next func(huma.Context)) {
	if s.submitLimiter == nil {
		next(ctx)
		return
	}

	header := http.Header{}
	for _, name := range []string{"X-Forwarded-For", "X-Real-IP"} {
		if v := ctx.Header(name); v != "" {
			header.Set(name, v)
		}
	}
	key := clientIP(header, ctx.RemoteAddr())

	if !s.submitLimiter.Allow(key) {
		s.logger.Warn("Rate limit exceeded", "ip", key, "path", ctx.URL().Path)
		_ = huma.WriteErr(s.api, ctx, http.StatusTooManyRequests, rateLimitMessage, domainerrors.RateLimited(rateLimitMessage))
		return
	}
	next(ctx)
}

// clientIP extracts the client IP from forwarding headers, falling back to
// the remote address without its port.
func clientIP(h http.Header, remoteAddr string) string {
	if xff := h.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := h.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}
