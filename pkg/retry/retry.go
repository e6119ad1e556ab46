package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy is a reusable bounded-exponential-backoff policy for external
// collaborator calls (LLM classification, embeddings). Catalog queries must
// NOT go through a policy; they fail fast.
type Policy struct {
	MaxAttempts uint64
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultPolicy is the standard policy for LLM and embedding calls: up to
// 3 attempts starting around 800ms.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   800 * time.Millisecond,
		MaxDelay:    10 * time.Second,
	}
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.BaseDelay
	eb.MaxInterval = p.MaxDelay
	attempts := p.MaxAttempts
	if attempts == 0 {
		attempts = 1
	}
	return backoff.WithContext(backoff.WithMaxRetries(eb, attempts-1), ctx)
}

// Do runs op under the policy until it succeeds or attempts are exhausted.
func (p Policy) Do(ctx context.Context, op func() error) error {
	return backoff.Retry(op, p.backOff(ctx))
}

// DoWithData runs op under the policy and returns its result.
func DoWithData[T any](ctx context.Context, p Policy, op func() (T, error)) (T, error) {
	return backoff.RetryWithData(op, p.backOff(ctx))
}

// Permanent marks an error as non-retryable (e.g. a malformed request that
// will never succeed).
func Permanent(err error) error {
	return backoff.Permanent(err)
}
