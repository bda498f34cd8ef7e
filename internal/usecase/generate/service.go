// Package generate produces the post body for a topic. It resolves an access
// token through the credential cache, issues a single non-streaming
// completion with the steering context, and optionally regenerates until the
// result falls inside a configured length band.
package generate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"promopost/internal/observability/metrics"
	"promopost/internal/resilience/circuitbreaker"
	"promopost/internal/resilience/retry"
	"promopost/internal/utils/text"
)

// TokenSource resolves a valid access token for a credential seed.
type TokenSource interface {
	Token(ctx context.Context, seed string) (string, error)
}

// Completer issues a single chat completion.
type Completer interface {
	Complete(ctx context.Context, accessToken, system, user string) (string, error)
}

// LengthBand is the acceptable post length range in runes.
// A zero band disables validation.
type LengthBand struct {
	Min int
	Max int
}

// Enabled reports whether the band constrains generation.
func (b LengthBand) Enabled() bool { return b.Min > 0 || b.Max > 0 }

// Accepts reports whether n runes fall within the band.
func (b LengthBand) Accepts(n int) bool {
	if b.Min > 0 && n < b.Min {
		return false
	}
	if b.Max > 0 && n > b.Max {
		return false
	}
	return true
}

// Service generates post text.
type Service struct {
	tokens    TokenSource
	completer Completer
	seed      string
	retryCfg  retry.Config
	breaker   *circuitbreaker.CircuitBreaker
	band      LengthBand
}

// Option customizes the service.
type Option func(*Service)

// WithRetryConfig overrides the completion retry policy.
func WithRetryConfig(cfg retry.Config) Option {
	return func(s *Service) { s.retryCfg = cfg }
}

// WithLengthBand enables the validation gate: generation is repeated until
// the post length falls within the band.
func WithLengthBand(band LengthBand) Option {
	return func(s *Service) { s.band = band }
}

// WithCircuitBreaker overrides the completion circuit breaker.
func WithCircuitBreaker(cb *circuitbreaker.CircuitBreaker) Option {
	return func(s *Service) { s.breaker = cb }
}

// NewService creates the generation service for a fixed credential seed.
func NewService(tokens TokenSource, completer Completer, seed string, opts ...Option) *Service {
	s := &Service{
		tokens:    tokens,
		completer: completer,
		seed:      seed,
		retryCfg:  retry.GenerationConfig(),
		breaker:   circuitbreaker.New(circuitbreaker.GenerationAPIConfig()),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Generate produces a post for the topic steered by the given context.
// The completion text is returned verbatim; when a length band is configured,
// out-of-band results trigger regeneration with the same topic rather than an
// error.
func (s *Service) Generate(ctx context.Context, topic, steering string) (string, error) {
	start := time.Now()

	for {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("generate %q: %w", topic, err)
		}

		post, err := s.completeOnce(ctx, topic, steering)
		if err != nil {
			return "", err
		}

		n := text.CountRunes(post)
		if !s.band.Enabled() || s.band.Accepts(n) {
			metrics.RecordGenerationDuration(time.Since(start))
			slog.Info("post generated",
				slog.String("topic", topic),
				slog.Int("length", n))
			return post, nil
		}

		slog.Warn("generated post outside length band, regenerating",
			slog.String("topic", topic),
			slog.Int("length", n),
			slog.Int("band_min", s.band.Min),
			slog.Int("band_max", s.band.Max))
	}
}

// completeOnce runs one token-resolve + completion cycle under the retry
// policy and the circuit breaker. Transient provider failures never surface
// past here with the default unbounded policy.
func (s *Service) completeOnce(ctx context.Context, topic, steering string) (string, error) {
	return retry.DoValue(ctx, "generate.completion", s.retryCfg, func() (string, error) {
		token, err := s.tokens.Token(ctx, s.seed)
		if err != nil {
			return "", fmt.Errorf("resolve token: %w", err)
		}

		result, err := s.breaker.Execute(func() (interface{}, error) {
			return s.completer.Complete(ctx, token, steering, topic)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				return "", fmt.Errorf("generation api unavailable: circuit breaker open")
			}
			return "", err
		}

		return result.(string), nil
	})
}
