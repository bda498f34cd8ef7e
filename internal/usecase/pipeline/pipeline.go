// Package pipeline sequences the content-assembly steps: enrich the steering
// context, generate the post, normalize its length, acquire an image and fan
// the result out to the configured channels. Data flows strictly forward;
// there are no backward transitions.
package pipeline

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"

	"promopost/internal/domain/entity"
	"promopost/internal/observability/metrics"
	"promopost/internal/resilience/retry"
	"promopost/internal/utils/text"
)

// fallbackImage is the bundled last-resort illustration, substituted when a
// bounded image-acquisition policy exhausts its attempts.
//
//go:embed assets/fallback.png
var fallbackImage []byte

// Enricher retrieves a reference article suffix for the steering context.
type Enricher interface {
	Enrich(ctx context.Context, topic string) (string, error)
}

// Generator produces the post body.
type Generator interface {
	Generate(ctx context.Context, topic, steering string) (string, error)
}

// ImageSource retrieves one representative image for a query.
type ImageSource interface {
	AcquireImage(ctx context.Context, query string) ([]byte, error)
}

// Deliverer publishes the finished post to the channels.
type Deliverer interface {
	Deliver(ctx context.Context, channels []string, postText string, picture entity.Picture) error
}

// Config holds the per-run pipeline settings, resolved once at process start
// and passed in explicitly.
type Config struct {
	// Channels is the ordered delivery list.
	Channels []string

	// BaseContext is the fixed role-instruction template the enrichment
	// suffix is appended to.
	BaseContext string

	// MaxPostChars is the delivery length budget in runes. Posts over the
	// budget are shortened to a paragraph-aligned prefix.
	MaxPostChars int

	// ImageRetry is the image-acquisition retry policy. The default is
	// unbounded; with a bounded policy, exhausted attempts substitute the
	// bundled fallback image instead of failing the run.
	ImageRetry retry.Config
}

// Pipeline orchestrates one posting run.
type Pipeline struct {
	enricher  Enricher
	generator Generator
	images    ImageSource
	deliverer Deliverer
	cfg       Config
}

// New wires the pipeline from its collaborators.
func New(enricher Enricher, generator Generator, images ImageSource, deliverer Deliverer, cfg Config) *Pipeline {
	return &Pipeline{
		enricher:  enricher,
		generator: generator,
		images:    images,
		deliverer: deliverer,
		cfg:       cfg,
	}
}

// Run executes the pipeline for the topic and returns the delivered post.
func (p *Pipeline) Run(ctx context.Context, topic string) (*entity.Post, error) {
	if topic == "" {
		return nil, entity.ErrEmptyTopic
	}

	post, err := p.run(ctx, topic)
	metrics.RecordPipelineRun(err == nil)
	return post, err
}

func (p *Pipeline) run(ctx context.Context, topic string) (*entity.Post, error) {
	slog.Info("pipeline run started", slog.String("topic", topic))

	suffix, err := p.enricher.Enrich(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("enrich: %w", err)
	}
	steering := p.cfg.BaseContext
	if suffix != "" {
		steering += "\n\n" + suffix
	}

	body, err := p.generator.Generate(ctx, topic, steering)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}

	if text.CountRunes(body) > p.cfg.MaxPostChars {
		shortened := text.ShortenByParagraphs(body, p.cfg.MaxPostChars)
		slog.Info("post shortened to budget",
			slog.Int("original_length", text.CountRunes(body)),
			slog.Int("shortened_length", text.CountRunes(shortened)),
			slog.Int("budget", p.cfg.MaxPostChars))
		body = shortened
	}
	// A first paragraph over the budget shortens to nothing. Fail here,
	// before spending an image acquisition on an undeliverable post.
	if body == "" {
		return nil, fmt.Errorf("no whole paragraph fits the %d character budget: %w",
			p.cfg.MaxPostChars, entity.ErrEmptyPost)
	}

	picture, err := p.acquirePicture(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("acquire image: %w", err)
	}

	post := entity.NewPost(topic, body, picture, suffix != "")
	if err := post.Validate(); err != nil {
		return nil, fmt.Errorf("assembled post invalid: %w", err)
	}

	if err := p.deliverer.Deliver(ctx, p.cfg.Channels, post.Text, post.Picture); err != nil {
		return nil, fmt.Errorf("deliver: %w", err)
	}

	slog.Info("pipeline run finished",
		slog.String("topic", topic),
		slog.Int("channels", len(p.cfg.Channels)))
	return post, nil
}

// acquirePicture retrieves the illustration under the image retry policy.
// With the default unbounded policy this only fails on context cancellation;
// a bounded policy that exhausts its attempts degrades to the bundled static
// image rather than failing the whole run.
func (p *Pipeline) acquirePicture(ctx context.Context, topic string) (entity.Picture, error) {
	picture, err := retry.DoValue(ctx, "pipeline.acquire_image", p.cfg.ImageRetry, func() ([]byte, error) {
		return p.images.AcquireImage(ctx, topic)
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		slog.Warn("image acquisition exhausted attempts, using bundled fallback",
			slog.String("topic", topic),
			slog.Any("error", err))
		metrics.RecordImageAcquired("fallback")
		return fallbackImage, nil
	}

	metrics.RecordImageAcquired("fetched")
	return picture, nil
}
