// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
)

// backoffBase controls the base duration for exponential backoff between
// model call attempts. Tests override this to avoid real sleeps.
var backoffBase = 2 * time.Second

const defaultAttempts = 3

// callWithRetry runs fn up to attempts times, backing off exponentially
// between transient failures. Non-transient errors return immediately. When
// every attempt fails the last error is wrapped with ErrAttemptsExhausted.
func callWithRetry(ctx context.Context, attempts int, log zerolog.Logger, fn func(context.Context) (string, error)) (string, error) {
	if attempts <= 0 {
		attempts = defaultAttempts
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			log.Debug().Err(lastErr).Dur("backoff", backoff).Int("attempt", attempt+1).Msg("retrying model call")
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		out, err := fn(ctx)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if !isTransient(err) {
			return "", err
		}
	}
	return "", fmt.Errorf("%w after %d attempts: %w", ErrAttemptsExhausted, attempts, lastErr)
}
