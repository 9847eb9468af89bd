package service

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"

	"github.com/noah-isme/siports-api/internal/outbox"
)

var tracer = otel.Tracer("github.com/noah-isme/siports-api/internal/service")

// errStaleWrite marks a conditional update that lost a race. It triggers a retry.
var errStaleWrite = errors.New("stale write")

type txRunner interface {
	WithinTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error
}

type eventWriter interface {
	Insert(ctx context.Context, exec sqlx.ExtContext, evt outbox.Event) error
}

// RetryPolicy bounds optimistic-concurrency retries.
type RetryPolicy struct {
	Attempts        int
	InitialInterval time.Duration
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.Attempts <= 0 {
		p.Attempts = 3
	}
	if p.InitialInterval <= 0 {
		p.InitialInterval = 50 * time.Millisecond
	}
	return p
}

// retryStale runs op until it succeeds, fails with anything other than errStaleWrite,
// or exhausts the policy. onRetry is called before each new attempt.
func retryStale(ctx context.Context, policy RetryPolicy, onRetry func(), op func() error) error {
	policy = policy.normalized()
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = policy.InitialInterval
	b.MaxInterval = 10 * policy.InitialInterval

	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		if attempt > 0 && onRetry != nil {
			onRetry()
		}
		attempt++
		err := op()
		if err == nil || errors.Is(err, errStaleWrite) {
			return struct{}{}, err
		}
		return struct{}{}, backoff.Permanent(err)
	}, backoff.WithBackOff(b), backoff.WithMaxTries(uint(policy.Attempts)))
	return err
}
