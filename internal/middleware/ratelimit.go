package middleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/darkodi/tinyurl/internal/apperrors"
	"github.com/darkodi/tinyurl/internal/logger"
)

// Limiter admits or rejects one request for key. When it denies, retryAfter
// says how long until the key has capacity again.
type Limiter interface {
	Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration, err error)
}

// RateLimit rejects requests over the limit with 429. A limiter error lets
// the request through. Clients are keyed by the TCP peer address; forwarding
// headers count only when trustProxy is set.
func RateLimit(limiter Limiter, trustProxy bool, log *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := getClientIP(r, trustProxy)

			allowed, retryAfter, err := limiter.Allow(r.Context(), ip)
			if err != nil {
				log.Warn("Rate limiter unavailable, allowing request",
					"request_id", GetRequestID(r.Context()),
					"ip", ip,
					"error", err,
				)
				next.ServeHTTP(w, r)
				return
			}

			if !allowed {
				seconds := int(math.Ceil(retryAfter.Seconds()))
				if seconds < 1 {
					seconds = 1
				}
				log.Warn("Rate limit exceeded",
					"request_id", GetRequestID(r.Context()),
					"ip", ip,
					"path", r.URL.Path,
				)

				w.Header().Set("Retry-After", strconv.Itoa(seconds))
				apperrors.RateLimitExceeded(strconv.Itoa(seconds) + "s").WriteJSON(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// getClientIP extracts the client IP from the request. X-Forwarded-For and
// X-Real-IP are client-controlled unless a proxy in front overwrites them.
func getClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			return strings.TrimSpace(first)
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return strings.TrimSpace(xri)
		}
	}

	// Fall back to RemoteAddr without the port
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
