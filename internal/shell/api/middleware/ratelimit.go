package middleware

import (
	"log/slog"
	"net/http"

	"golang.org/x/time/rate"
)

// RateLimitConfig holds configuration for the rate limit middleware.
type RateLimitConfig struct {
	// Rate is the sustained number of requests per second. Zero disables limiting.
	Rate rate.Limit

	// Burst is the bucket size. Default: 1.
	Burst int

	// Logger for rate limit logging.
	Logger *slog.Logger
}

// RateLimiter applies one token bucket to every request it wraps.
type RateLimiter struct {
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewRateLimiter creates a rate limiter. A zero Rate yields a pass-through.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	rl := &RateLimiter{logger: cfg.Logger}
	if cfg.Rate > 0 {
		rl.limiter = rate.NewLimiter(cfg.Rate, cfg.Burst)
	}
	return rl
}

// Handler returns the middleware handler function.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	if rl.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.limiter.Allow() {
			rl.logger.Warn("rate limit exceeded",
				"remote_addr", r.RemoteAddr,
				"path", r.URL.Path,
			)
			w.Header().Set("Retry-After", "1")
			writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded", "RATE_LIMITED")
			return
		}
		next.ServeHTTP(w, r)
	})
}
