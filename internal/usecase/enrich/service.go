// Package enrich augments the steering context with reference material
// retrieved for the topic before generation. A primary encyclopedia source is
// tried first (with best-match title selection); a best-effort web search
// fallback covers topics the encyclopedia does not. Enrichment degrading to
// empty is never fatal for the pipeline.
package enrich

import (
	"context"
	"log/slog"

	"promopost/internal/observability/metrics"
	"promopost/internal/resilience/retry"
)

// PrimarySource is a searchable article source with spelling correction.
type PrimarySource interface {
	// Search returns candidate article titles in engine order and the
	// engine's spelling suggestion for the query, if any.
	Search(ctx context.Context, query string) (titles []string, suggestion string, err error)

	// Fetch returns the full text of the article with the given title.
	Fetch(ctx context.Context, title string) (string, error)
}

// SecondarySource is a best-effort fallback article source.
type SecondarySource interface {
	// FetchByQuery returns article text for a free-text query; empty is a
	// legitimate result.
	FetchByQuery(ctx context.Context, query string) (string, error)
}

// Service retrieves a reference article for a topic.
type Service struct {
	primary   PrimarySource
	secondary SecondarySource
	retryCfg  retry.Config
}

// Option customizes the service.
type Option func(*Service)

// WithRetryConfig overrides the primary-source retry policy.
func WithRetryConfig(cfg retry.Config) Option {
	return func(s *Service) { s.retryCfg = cfg }
}

// NewService creates the enrichment service.
func NewService(primary PrimarySource, secondary SecondarySource, opts ...Option) *Service {
	s := &Service{
		primary:   primary,
		secondary: secondary,
		retryCfg:  retry.ArticleSearchConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Enrich returns a context suffix for the topic, possibly empty.
//
// The primary source runs under the retry policy, so transient failures are
// absorbed there; an empty primary result (no error) falls through to the
// secondary source, which gets a single attempt. Both coming back empty
// yields "" and a warning, never an error — downstream treats empty
// enrichment as valid input. The returned error is non-nil only on context
// cancellation or an exhausted bounded retry budget.
func (s *Service) Enrich(ctx context.Context, topic string) (string, error) {
	text, err := retry.DoValue(ctx, "enrich.primary", s.retryCfg, func() (string, error) {
		return s.fetchPrimary(ctx, topic)
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", err
		}
		slog.Warn("primary enrichment exhausted retries, falling back",
			slog.String("topic", topic),
			slog.Any("error", err))
	}

	if text != "" {
		metrics.RecordEnrichment("wikipedia", "found")
		return text, nil
	}
	metrics.RecordEnrichment("wikipedia", "empty")

	text, err = s.secondary.FetchByQuery(ctx, topic)
	if err != nil {
		slog.Warn("secondary enrichment failed",
			slog.String("topic", topic),
			slog.Any("error", err))
		metrics.RecordEnrichment("websearch", "empty")
		return "", nil
	}
	if text == "" {
		slog.Warn("no reference article found for topic",
			slog.String("topic", topic))
		metrics.RecordEnrichment("websearch", "empty")
		return "", nil
	}

	metrics.RecordEnrichment("websearch", "found")
	return text, nil
}

// fetchPrimary performs one primary-source attempt: search (re-searching
// with the engine's corrected query when one is offered), best-match title
// selection, then article fetch. An empty candidate list is an empty-result
// condition, not an error.
func (s *Service) fetchPrimary(ctx context.Context, topic string) (string, error) {
	titles, suggestion, err := s.primary.Search(ctx, topic)
	if err != nil {
		return "", err
	}

	if suggestion != "" {
		corrected, _, err := s.primary.Search(ctx, suggestion)
		if err != nil {
			return "", err
		}
		titles = corrected
	}

	best, ok := bestMatch(topic, titles)
	if !ok {
		slog.Warn("no article candidates found", slog.String("topic", topic))
		return "", nil
	}

	slog.Debug("article selected",
		slog.String("topic", topic),
		slog.String("title", best))
	return s.primary.Fetch(ctx, best)
}
