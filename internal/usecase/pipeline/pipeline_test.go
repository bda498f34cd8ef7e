package pipeline

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promopost/internal/domain/entity"
	"promopost/internal/resilience/retry"
)

type fakeEnricher struct {
	calls   int
	article string
	err     error
}

func (f *fakeEnricher) Enrich(_ context.Context, _ string) (string, error) {
	f.calls++
	return f.article, f.err
}

type fakeGenerator struct {
	calls    int
	body     string
	err      error
	steering []string
}

func (f *fakeGenerator) Generate(_ context.Context, _, steering string) (string, error) {
	f.calls++
	f.steering = append(f.steering, steering)
	return f.body, f.err
}

type fakeImageSource struct {
	calls   int
	picture []byte
	err     error
}

func (f *fakeImageSource) AcquireImage(_ context.Context, _ string) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.picture, nil
}

type delivery struct {
	channels []string
	text     string
	picture  entity.Picture
}

type fakeDeliverer struct {
	calls []delivery
	err   error
}

func (f *fakeDeliverer) Deliver(_ context.Context, channels []string, postText string, picture entity.Picture) error {
	f.calls = append(f.calls, delivery{channels: channels, text: postText, picture: picture})
	return f.err
}

func boundedRetry(attempts int) retry.Config {
	return retry.Config{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     time.Millisecond,
		Multiplier:   1,
	}
}

func TestPipelineRunHappyPath(t *testing.T) {
	article := strings.Repeat("с", 500)
	body := strings.Repeat("о", 600) + "\n\n" + strings.Repeat("п", 598)
	require.Equal(t, 1200, len([]rune(body)))

	enricher := &fakeEnricher{article: article}
	generator := &fakeGenerator{body: body}
	images := &fakeImageSource{picture: []byte{0x89, 'P', 'N', 'G'}}
	deliverer := &fakeDeliverer{}

	p := New(enricher, generator, images, deliverer, Config{
		Channels:     []string{"@a", "@b"},
		BaseContext:  "Ты маркетолог.",
		MaxPostChars: 1000,
		ImageRetry:   boundedRetry(1),
	})

	post, err := p.Run(context.Background(), "осенние праздники")
	require.NoError(t, err)

	assert.Equal(t, 1, enricher.calls)
	assert.Equal(t, 1, generator.calls)
	assert.Equal(t, 1, images.calls)
	require.Len(t, deliverer.calls, 1)
	assert.Equal(t, []string{"@a", "@b"}, deliverer.calls[0].channels)

	// Steering context is the base template plus the sourced article.
	require.Len(t, generator.steering, 1)
	assert.Equal(t, "Ты маркетолог.\n\n"+article, generator.steering[0])

	// 1200 runes exceeds the 1000 budget, so the post shrinks to the first
	// whole paragraph.
	assert.Equal(t, strings.Repeat("о", 600), post.Text)
	assert.True(t, post.Enriched)
	assert.Equal(t, entity.Picture{0x89, 'P', 'N', 'G'}, post.Picture)
	assert.Equal(t, post.Text, deliverer.calls[0].text)
}

func TestPipelineRunWithoutEnrichment(t *testing.T) {
	enricher := &fakeEnricher{article: ""}
	generator := &fakeGenerator{body: "короткий пост"}
	images := &fakeImageSource{picture: []byte{1}}
	deliverer := &fakeDeliverer{}

	p := New(enricher, generator, images, deliverer, Config{
		Channels:     []string{"@a"},
		BaseContext:  "Ты маркетолог.",
		MaxPostChars: 1000,
		ImageRetry:   boundedRetry(1),
	})

	post, err := p.Run(context.Background(), "тема")
	require.NoError(t, err)

	// No suffix: the steering context is the base template alone.
	require.Len(t, generator.steering, 1)
	assert.Equal(t, "Ты маркетолог.", generator.steering[0])
	assert.False(t, post.Enriched)
	assert.Equal(t, "короткий пост", post.Text)
}

func TestPipelineRunShortPostNotTouched(t *testing.T) {
	body := "первый абзац\n\nвторой абзац"
	generator := &fakeGenerator{body: body}
	deliverer := &fakeDeliverer{}

	p := New(&fakeEnricher{}, generator, &fakeImageSource{picture: []byte{1}}, deliverer, Config{
		Channels:     []string{"@a"},
		MaxPostChars: 1000,
		ImageRetry:   boundedRetry(1),
	})

	post, err := p.Run(context.Background(), "тема")
	require.NoError(t, err)
	assert.Equal(t, body, post.Text)
}

func TestPipelineRunFallbackImageOnExhaustedRetries(t *testing.T) {
	images := &fakeImageSource{err: errors.New("no results rendered")}
	deliverer := &fakeDeliverer{}

	p := New(&fakeEnricher{}, &fakeGenerator{body: "пост"}, images, deliverer, Config{
		Channels:     []string{"@a"},
		MaxPostChars: 1000,
		ImageRetry:   boundedRetry(3),
	})

	post, err := p.Run(context.Background(), "тема")
	require.NoError(t, err)

	assert.Equal(t, 3, images.calls)
	assert.True(t, bytes.Equal(fallbackImage, post.Picture))
	require.Len(t, deliverer.calls, 1)
	assert.True(t, bytes.Equal(fallbackImage, deliverer.calls[0].picture))
}

func TestPipelineRunCancelledImageAcquisitionFails(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	images := &fakeImageSource{err: errors.New("no results rendered")}
	p := New(&fakeEnricher{}, &fakeGenerator{body: "пост"}, images, &fakeDeliverer{}, Config{
		Channels:     []string{"@a"},
		MaxPostChars: 1000,
		ImageRetry:   retry.Unbounded(),
	})

	_, err := p.Run(ctx, "тема")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPipelineRunEmptyTopic(t *testing.T) {
	p := New(&fakeEnricher{}, &fakeGenerator{}, &fakeImageSource{}, &fakeDeliverer{}, Config{})

	_, err := p.Run(context.Background(), "")
	assert.ErrorIs(t, err, entity.ErrEmptyTopic)
}

func TestPipelineRunUnshortenableBodyFailsBeforeImage(t *testing.T) {
	// A single paragraph over the budget shortens to nothing; the run must
	// fail without acquiring an image or touching delivery.
	body := strings.Repeat("о", 1200)
	images := &fakeImageSource{picture: []byte{1}}
	deliverer := &fakeDeliverer{}

	p := New(&fakeEnricher{}, &fakeGenerator{body: body}, images, deliverer, Config{
		Channels:     []string{"@a"},
		MaxPostChars: 1000,
		ImageRetry:   boundedRetry(1),
	})

	_, err := p.Run(context.Background(), "тема")
	require.Error(t, err)
	assert.ErrorIs(t, err, entity.ErrEmptyPost)
	assert.Zero(t, images.calls)
	assert.Empty(t, deliverer.calls)
}

func TestPipelineRunGenerateErrorStopsRun(t *testing.T) {
	images := &fakeImageSource{picture: []byte{1}}
	deliverer := &fakeDeliverer{}

	p := New(&fakeEnricher{}, &fakeGenerator{err: errors.New("model offline")}, images, deliverer, Config{
		Channels:     []string{"@a"},
		MaxPostChars: 1000,
	})

	_, err := p.Run(context.Background(), "тема")
	require.Error(t, err)
	assert.Zero(t, images.calls)
	assert.Empty(t, deliverer.calls)
}
