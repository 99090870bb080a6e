// File: internal/services/mail/retry.go
package mail

import (
	"context"
	"errors"
	"time"
)

// RetryConfig defines simple retry behavior
type RetryConfig struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultRetryConfig provides sensible defaults
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts: 3,
		Delay:       500 * time.Millisecond,
	}
}

// RetryWithBackoff executes fn until it succeeds, returns a non-retryable
// error, or runs out of attempts. The delay doubles after each failure.
func RetryWithBackoff(ctx context.Context, config *RetryConfig, fn func(ctx context.Context) error) error {
	var lastErr error
	delay := config.Delay

	for attempt := 0; attempt < config.MaxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		var mailErr *MailError
		if errors.As(err, &mailErr) && !mailErr.retryable() {
			return err
		}

		if attempt < config.MaxAttempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
	}

	return lastErr
}
