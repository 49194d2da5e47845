package ratelimit

import (
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/oriys/inkwell/internal/logging"
)

// Middleware limits mutating requests per client and write class. GET, HEAD
// and OPTIONS pass straight through.
func Middleware(limiter *Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			res, err := limiter.Allow(r.Context(), Key(writeClass(r.URL.Path), clientIP(r)))
			if err != nil {
				// Fail open.
				logging.FromContext(r.Context()).Warn("rate limit check failed", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			if !res.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(max(int(res.RetryAfter.Seconds()), 1)))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"error":"rate_limited","message":"too many writes, retry later"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// writeClass buckets a write by the route it targets.
func writeClass(path string) string {
	switch {
	case strings.HasSuffix(path, "/like"):
		return ClassLike
	case strings.Contains(path, "/comments"):
		return ClassComment
	default:
		return ClassPost
	}
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the
// connection's remote address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
