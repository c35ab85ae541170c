package extract

import (
	"context"

	"github.com/sells-group/invoice-cli/internal/resilience"
)

// Retrying wraps an Extractor with the extraction retry policy and an
// optional circuit breaker. It never touches invoice state.
type Retrying struct {
	next    Extractor
	cfg     resilience.RetryConfig
	breaker *resilience.CircuitBreaker
}

// NewRetrying wraps next. A nil ShouldRetry retries rate-limit and
// unavailability errors only.
func NewRetrying(next Extractor, cfg resilience.RetryConfig, breaker *resilience.CircuitBreaker) *Retrying {
	if cfg.ShouldRetry == nil {
		cfg.ShouldRetry = resilience.IsRetryableProviderError
	}
	if cfg.OnRetry == nil {
		cfg.OnRetry = resilience.RetryLogger("extraction", "extract")
	}
	return &Retrying{next: next, cfg: cfg, breaker: breaker}
}

// Extract implements Extractor. After the last attempt the final error is
// returned unchanged.
func (r *Retrying) Extract(ctx context.Context, locator string) (map[string]any, error) {
	attempt := func(ctx context.Context) (map[string]any, error) {
		return resilience.DoVal(ctx, r.cfg, func(ctx context.Context) (map[string]any, error) {
			return r.next.Extract(ctx, locator)
		})
	}
	if r.breaker == nil {
		return attempt(ctx)
	}
	return resilience.ExecuteVal(ctx, r.breaker, attempt)
}
