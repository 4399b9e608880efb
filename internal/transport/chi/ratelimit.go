package chi

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/querie/querie/internal/domain"
)

const rateLimitPrefix = domain.KeyPrefix + "ratelimit:"

// rateCounter is the slice of the KV store the limiter needs.
type rateCounter interface {
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}

// RateLimit enforces a fixed-window per-client request budget backed by the
// shared store, so the limit holds across replicas. The store being down
// fails open: availability beats throttling accuracy.
func RateLimit(store rateCounter, perHour int, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			key := rateLimitPrefix + ip

			count, err := store.Incr(r.Context(), key)
			if err != nil {
				logger.Warn("rate limit store unavailable, failing open", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			// NX keeps the window anchored at the first request.
			if err := store.Expire(r.Context(), key, time.Hour, true); err != nil {
				logger.Warn("rate limit expire failed", zap.Error(err))
			}

			if count > int64(perHour) {
				logger.Warn("rate limit exceeded",
					zap.String("ip", ip),
					zap.Int64("count", count),
					zap.Int("limit", perHour))
				writeError(w, http.StatusTooManyRequests, codeRateLimited, domain.ErrRateLimited.Error())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP resolves the client address, preferring the first hop recorded
// by a trusted proxy.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			fwd = fwd[:i]
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
