// Package retry is the single retry primitive shared by submission and polling.
package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/uniedit/mediagen/internal/domain/media"
)

// Policy configures exponential backoff.
type Policy struct {
	// MaxRetries is the number of retries after the first attempt. Zero disables retrying.
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       bool

	// Retryable decides whether an error earns another attempt. Nil means media.IsTransient.
	Retryable func(error) bool
	OnRetry   func(attempt int, err error, delay time.Duration)
}

// DefaultPolicy returns the transient-failure policy used while polling.
func DefaultPolicy() *Policy {
	return &Policy{
		MaxRetries:   2,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// Retryer runs functions under a Policy.
type Retryer struct {
	policy Policy
	logger *zap.Logger
}

// New creates a retryer. A nil policy uses DefaultPolicy.
func New(policy *Policy, logger *zap.Logger) *Retryer {
	if policy == nil {
		policy = DefaultPolicy()
	}
	p := *policy
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = 500 * time.Millisecond
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 5 * time.Second
	}
	if p.Multiplier < 1.0 {
		p.Multiplier = 2.0
	}
	if p.Retryable == nil {
		p.Retryable = media.IsTransient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retryer{policy: p, logger: logger}
}

// Do runs fn until it succeeds, fails permanently, or the budget is spent.
func (r *Retryer) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := DoValue(ctx, r, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoValue is Do for functions returning a value.
func DoValue[T any](ctx context.Context, r *Retryer, fn func(ctx context.Context) (T, error)) (T, error) {
	var (
		zero    T
		lastErr error
	)

	for attempt := 0; attempt <= r.policy.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := r.delay(attempt)
			r.logger.Debug("Retrying",
				zap.Int("attempt", attempt),
				zap.Int("max_retries", r.policy.MaxRetries),
				zap.Duration("delay", delay),
				zap.Error(lastErr),
			)
			if r.policy.OnRetry != nil {
				r.policy.OnRetry(attempt, lastErr, delay)
			}

			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, ctx.Err()
			case <-timer.C:
			}
		}

		result, err := fn(ctx)
		if err == nil {
			if attempt > 0 {
				r.logger.Debug("Retry succeeded", zap.Int("attempt", attempt))
			}
			return result, nil
		}
		lastErr = err

		if ctx.Err() != nil || !r.policy.Retryable(err) {
			return zero, err
		}
	}

	if r.policy.MaxRetries == 0 {
		return zero, lastErr
	}
	r.logger.Warn("Retries exhausted",
		zap.Int("attempts", r.policy.MaxRetries+1),
		zap.Error(lastErr),
	)
	return zero, fmt.Errorf("after %d retries: %w", r.policy.MaxRetries, lastErr)
}

// delay is initial * multiplier^(attempt-1), capped, with optional ±25% jitter.
func (r *Retryer) delay(attempt int) time.Duration {
	d := float64(r.policy.InitialDelay) * math.Pow(r.policy.Multiplier, float64(attempt-1))
	if d > float64(r.policy.MaxDelay) {
		d = float64(r.policy.MaxDelay)
	}
	if r.policy.Jitter {
		jitter := d * 0.25
		d += (rand.Float64()*2 - 1) * jitter
	}
	if d < float64(r.policy.InitialDelay) {
		d = float64(r.policy.InitialDelay)
	}
	return time.Duration(d)
}
