// Package deliver publishes a finished (text, picture) pair to every
// configured channel, strictly in list order. Each channel is retried under
// the delivery policy before the next channel is attempted, so a chronically
// failing channel blocks the channels after it — a known limitation of the
// sequential design, accepted for its simplicity.
package deliver

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"promopost/internal/domain/entity"
	"promopost/internal/observability/metrics"
	"promopost/internal/resilience/retry"
)

// captionMarker is the formatting marker stripped from post text before
// transmission; callers must not rely on markup surviving delivery.
const captionMarker = "*"

// Sink publishes a single post to a single channel.
type Sink interface {
	Publish(ctx context.Context, channel, text string, picture []byte) error
}

// Service fans a post out to a list of channels.
type Service struct {
	sink     Sink
	retryCfg retry.Config
}

// Option customizes the service.
type Option func(*Service)

// WithRetryConfig overrides the per-channel delivery retry policy.
func WithRetryConfig(cfg retry.Config) Option {
	return func(s *Service) { s.retryCfg = cfg }
}

// NewService creates the delivery service.
func NewService(sink Sink, opts ...Option) *Service {
	s := &Service{
		sink:     sink,
		retryCfg: retry.DeliveryConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Deliver publishes the post to every channel in order. No partial-delivery
// tracking is kept: a crash mid-fan-out loses the information of which
// channels already received the post.
func (s *Service) Deliver(ctx context.Context, channels []string, postText string, picture entity.Picture) error {
	caption := strings.ReplaceAll(postText, captionMarker, "")

	for _, channel := range channels {
		ch := channel
		err := retry.Do(ctx, "deliver "+ch, s.retryCfg, func() error {
			err := s.sink.Publish(ctx, ch, caption, picture)
			metrics.RecordDelivery(ch, err == nil)
			return err
		})
		if err != nil {
			return fmt.Errorf("deliver to %s: %w", ch, err)
		}

		slog.Info("delivered to channel", slog.String("channel", ch))
	}

	return nil
}
