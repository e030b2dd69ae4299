package weather

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimited wraps a Provider so that calls respect the upstream quota.
type RateLimited struct {
	provider Provider
	limiter  *rate.Limiter
}

// NewRateLimited allows rps requests per second with the given burst.
// rps may be fractional for quotas below one request per second.
func NewRateLimited(provider Provider, rps float64, burst int) *RateLimited {
	return &RateLimited{
		provider: provider,
		limiter:  rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Forecast waits for the limiter or ctx, then forwards the call.
func (r *RateLimited) Forecast(ctx context.Context, lonDeg, latDeg float64) (Bundle, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return Bundle{}, fmt.Errorf("rate limit wait canceled: %w", err)
	}
	return r.provider.Forecast(ctx, lonDeg, latDeg)
}

var _ Provider = (*RateLimited)(nil)
