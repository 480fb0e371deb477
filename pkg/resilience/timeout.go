package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/pkg/errors"
)

// WithTimeout runs fn under a deadline of d. fn must honour its context. A
// deadline that expires here is reported as apperrors.ErrTimeout; one
// inherited from ctx is passed through unchanged.
func WithTimeout(ctx context.Context, d time.Duration, name string, fn func(ctx context.Context) error) error {
	if d <= 0 {
		return fn(ctx)
	}
	tctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	err := fn(tctx)
	if err != nil && ctx.Err() == nil && errors.Is(tctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s exceeded %v: %w", name, d, errors.Join(apperrors.ErrTimeout, err))
	}
	return err
}

// Policy applies a breaker, retries and a deadline to one call, in that
// order from the outside in: the deadline covers every attempt and an open
// breaker short-circuits before any attempt is made.
type Policy struct {
	Breaker *CircuitBreaker
	Retry   RetryConfig
	Timeout time.Duration
}

// Do runs fn under the policy. A nil Breaker disables circuit breaking.
func (p *Policy) Do(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	return WithTimeout(ctx, p.Timeout, name, func(ctx context.Context) error {
		return Retry(ctx, name, p.Retry, func(ctx context.Context) error {
			if p.Breaker == nil {
				return fn(ctx)
			}
			return p.Breaker.Execute(func() error { return fn(ctx) })
		})
	})
}
