// Package retry re-executes fallible operations until they succeed.
//
// The posting pipeline depends on flaky third parties (OAuth token endpoint,
// chat completion API, search scraping, Telegram delivery), so the default
// policy for every preset is unbounded: keep retrying until the operation
// succeeds or the context is cancelled, logging each failure. A positive
// MaxAttempts bounds the loop; shipping a bounded default for any pipeline
// step requires product sign-off.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"time"
)

// Config holds the configuration for retry logic.
type Config struct {
	// MaxAttempts is the maximum number of attempts.
	// Zero means no bound: retry until success or context cancellation.
	MaxAttempts int

	// InitialDelay is the delay before the first retry.
	InitialDelay time.Duration

	// MaxDelay is the maximum delay between retries.
	MaxDelay time.Duration

	// Multiplier is the multiplier for exponential backoff.
	Multiplier float64

	// JitterFraction is the fraction of delay to add as random jitter (0.0 to 1.0).
	JitterFraction float64
}

// Unbounded returns a configuration that retries forever with a short,
// capped backoff. This is the baseline policy for pipeline steps.
func Unbounded() Config {
	return Config{
		MaxAttempts:    0,
		InitialDelay:   1 * time.Second,
		MaxDelay:       30 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
	}
}

// TokenIssueConfig returns the policy for OAuth token issuance.
func TokenIssueConfig() Config {
	return Unbounded()
}

// GenerationConfig returns the policy for chat completion calls.
// Longer backoff cap since each failed call still costs provider quota.
func GenerationConfig() Config {
	cfg := Unbounded()
	cfg.InitialDelay = 2 * time.Second
	return cfg
}

// ArticleSearchConfig returns the policy for primary article retrieval.
func ArticleSearchConfig() Config {
	return Unbounded()
}

// ImageSearchConfig returns the policy for image search scraping.
func ImageSearchConfig() Config {
	return Unbounded()
}

// DeliveryConfig returns the policy for per-channel message delivery.
func DeliveryConfig() Config {
	return Unbounded()
}

// Do executes fn under the given config until it succeeds.
//
// Every failure is logged with the operation name and the causing error, then
// fn is invoked again after a backoff delay. With MaxAttempts == 0 the only
// way Do returns an error is context cancellation; with a positive bound the
// last error is returned once the bound is exhausted.
func Do(ctx context.Context, op string, cfg Config, fn func() error) error {
	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 1; ; attempt++ {
		lastErr = fn()

		if lastErr == nil {
			if attempt > 1 {
				slog.Info("operation succeeded after retry",
					slog.String("operation", op),
					slog.Int("attempt", attempt))
			}
			return nil
		}

		slog.Warn("operation failed, retrying",
			slog.String("operation", op),
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slog.Any("error", lastErr))

		if cfg.MaxAttempts > 0 && attempt >= cfg.MaxAttempts {
			return fmt.Errorf("%s: max retry attempts (%d) exceeded: %w", op, cfg.MaxAttempts, lastErr)
		}

		select {
		case <-time.After(addJitter(delay, cfg.JitterFraction)):
		case <-ctx.Done():
			return fmt.Errorf("%s: retry aborted: %w", op, ctx.Err())
		}

		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}
}

// DoValue executes fn under the given config until it succeeds and returns
// its value. It is the value-returning counterpart of Do.
func DoValue[T any](ctx context.Context, op string, cfg Config, fn func() (T, error)) (T, error) {
	var result T
	err := Do(ctx, op, cfg, func() error {
		v, err := fn()
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	return result, err
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// IsServerError reports whether the error represents a 5xx response.
func (e *HTTPError) IsServerError() bool {
	return e.StatusCode >= http.StatusInternalServerError
}

// addJitter adds random jitter to a duration to prevent thundering herd.
func addJitter(duration time.Duration, jitterFraction float64) time.Duration {
	if jitterFraction <= 0 {
		return duration
	}
	if jitterFraction > 1.0 {
		jitterFraction = 1.0
	}
	// #nosec G404 -- math/rand is fine for backoff jitter.
	jitter := time.Duration(rand.Float64() * float64(duration) * jitterFraction)
	return duration + jitter
}
