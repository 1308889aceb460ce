package xclient

import (
	"os"
	"strconv"

	"golang.org/x/time/rate"
)

// Search and home timeline share a budget of roughly 50 requests per
// 15 minutes per session, so stay well under one request per second.
const (
	defaultRPS   = 0.5
	defaultBurst = 5
)

// newDefaultLimiter creates a rate limiter using env overrides if present.
func newDefaultLimiter() *rate.Limiter {
	rps := defaultRPS
	burst := defaultBurst
	if v := os.Getenv("X_API_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			rps = f
		}
	}
	burst = getEnvInt("X_API_BURST", burst)
	return rate.NewLimiter(rate.Limit(rps), burst)
}
