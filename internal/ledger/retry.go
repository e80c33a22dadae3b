package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

type retryConfig struct {
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

func defaultRetryConfig() retryConfig {
	return retryConfig{maxRetries: 3, baseDelay: 25 * time.Millisecond, maxDelay: 500 * time.Millisecond}
}

// isRetryable reports whether err is a transient Postgres conflict. The whole
// unit of work was rolled back, so running it again is safe.
func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgSerializationFailure || pgErr.Code == pgDeadlockDetected
}

// runWithRetry runs fn, re-running it on retryable store errors with jittered
// exponential backoff.
func runWithRetry[R any](ctx context.Context, cfg retryConfig, onRetry func(attempt int, err error), fn func(ctx context.Context) (R, error)) (R, error) {
	builder := retrypolicy.NewBuilder[R]().
		HandleIf(func(_ R, err error) bool { return isRetryable(err) }).
		WithMaxRetries(cfg.maxRetries).
		WithBackoff(cfg.baseDelay, cfg.maxDelay).
		WithJitterFactor(0.1).
		ReturnLastFailure()
	if onRetry != nil {
		builder = builder.OnRetry(func(e failsafe.ExecutionEvent[R]) {
			onRetry(e.Attempts(), e.LastError())
		})
	}
	return failsafe.With[R](builder.Build()).WithContext(ctx).Get(func() (R, error) {
		return fn(ctx)
	})
}
