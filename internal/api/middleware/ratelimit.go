package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"
)

// RateLimitExceededMessage is returned with 429 responses.
const RateLimitExceededMessage = "Rate limit exceeded. Please try again later."

// RateLimitConfig holds configuration for rate limiting.
type RateLimitConfig struct {
	// Requests per window
	RequestLimit int
	// Window duration
	WindowLength time.Duration
}

// RouteComputeRateLimit applies to route computation, which is expensive (30 req/min).
var RouteComputeRateLimit = RateLimitConfig{
	RequestLimit: 30,
	WindowLength: time.Minute,
}

// RateLimitByIP limits requests per client IP. Behind a proxy, chi's RealIP
// middleware must run first.
func RateLimitByIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	retryAfter := strconv.Itoa(int(cfg.WindowLength.Round(time.Second).Seconds()))
	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowLength,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			// httprate does not expose the reset time; a full window is an upper bound.
			w.Header().Set("Retry-After", retryAfter)
			writeError(w, http.StatusTooManyRequests, RateLimitExceededMessage)
		}),
	)
}
