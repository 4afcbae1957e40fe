// Package retry wraps fallible operations with bounded exponential backoff.
package retry

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Executor retries an operation up to MaxRetries additional attempts,
// waiting 1<<attempt units between attempts. It knows nothing about what
// the operation does; fatal classification is injected by the caller.
type Executor struct {
	Logger     *zap.Logger
	MaxRetries int

	// Unit scales the backoff. Defaults to one second.
	Unit time.Duration

	// IsFatal short-circuits the retry loop for errors that are real
	// failures rather than transient ones. Optional.
	IsFatal func(error) bool

	// Sleep is overridable for tests. Defaults to a context-aware wait.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Do executes fn, retrying on failure. The returned error from the final
// failure is annotated with the operation name and total attempt count.
func Do[T any](ctx context.Context, e *Executor, name string, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	unit := e.Unit
	if unit == 0 {
		unit = time.Second
	}
	sleep := e.Sleep
	if sleep == nil {
		sleep = defaultSleep
	}

	var lastErr error
	attempts := e.MaxRetries + 1

	for attempt := 0; attempt < attempts; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if e.IsFatal != nil && e.IsFatal(err) {
			return zero, fmt.Errorf("%s: %w", name, err)
		}

		if attempt < attempts-1 {
			wait := time.Duration(1<<attempt) * unit
			e.Logger.Warn("operation failed, retrying",
				zap.String("operation", name),
				zap.Int("attempt", attempt+1),
				zap.Int("max_attempts", attempts),
				zap.Duration("wait", wait),
				zap.Error(err),
			)
			if serr := sleep(ctx, wait); serr != nil {
				return zero, fmt.Errorf("%s: %w", name, serr)
			}
		}
	}

	e.Logger.Error("operation failed after all attempts",
		zap.String("operation", name),
		zap.Int("attempts", attempts),
		zap.Error(lastErr),
	)
	return zero, fmt.Errorf("%s failed after %d attempts: %w", name, attempts, lastErr)
}

func defaultSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
