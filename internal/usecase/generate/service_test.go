package generate

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promopost/internal/resilience/retry"
)

type fakeTokens struct {
	token string
	calls int
}

func (f *fakeTokens) Token(context.Context, string) (string, error) {
	f.calls++
	return f.token, nil
}

type fakeCompleter struct {
	responses []string // returned in order, last one repeats
	failFirst int
	calls     int

	gotToken  string
	gotSystem string
	gotUser   string
}

func (f *fakeCompleter) Complete(_ context.Context, token, system, user string) (string, error) {
	f.calls++
	f.gotToken, f.gotSystem, f.gotUser = token, system, user
	if f.calls <= f.failFirst {
		return "", errors.New("connection reset")
	}
	i := f.calls - f.failFirst - 1
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	return f.responses[i], nil
}

func fastGenRetry() Option {
	return WithRetryConfig(retry.Config{
		InitialDelay: time.Millisecond,
		MaxDelay:     time.Millisecond,
		Multiplier:   1,
	})
}

func TestGenerate_ReturnsCompletionVerbatim(t *testing.T) {
	tokens := &fakeTokens{token: "tok"}
	completer := &fakeCompleter{responses: []string{"  готовый пост *с разметкой*  "}}
	svc := NewService(tokens, completer, "seed", fastGenRetry())

	got, err := svc.Generate(context.Background(), "осень", "инструкция")

	require.NoError(t, err)
	assert.Equal(t, "  готовый пост *с разметкой*  ", got,
		"completion must be returned verbatim, not trimmed or sanitized")
	assert.Equal(t, "tok", completer.gotToken)
	assert.Equal(t, "инструкция", completer.gotSystem)
	assert.Equal(t, "осень", completer.gotUser)
	assert.Equal(t, 1, completer.calls)
}

func TestGenerate_RetriesTransientFailures(t *testing.T) {
	tokens := &fakeTokens{token: "tok"}
	completer := &fakeCompleter{responses: []string{"пост"}, failFirst: 2}
	svc := NewService(tokens, completer, "seed", fastGenRetry())

	got, err := svc.Generate(context.Background(), "осень", "инструкция")

	require.NoError(t, err)
	assert.Equal(t, "пост", got)
	assert.Equal(t, 3, completer.calls)
}

func TestGenerate_LengthBandRegenerates(t *testing.T) {
	short := "мало"
	long := strings.Repeat("а", 1200)
	good := strings.Repeat("б", 500)

	tokens := &fakeTokens{token: "tok"}
	completer := &fakeCompleter{responses: []string{short, long, good}}
	svc := NewService(tokens, completer, "seed",
		fastGenRetry(),
		WithLengthBand(LengthBand{Min: 200, Max: 1000}))

	got, err := svc.Generate(context.Background(), "осень", "инструкция")

	require.NoError(t, err)
	assert.Equal(t, good, got)
	assert.Equal(t, 3, completer.calls)
}

func TestGenerate_BandDisabledAcceptsAnything(t *testing.T) {
	tokens := &fakeTokens{token: "tok"}
	completer := &fakeCompleter{responses: []string{"x"}}
	svc := NewService(tokens, completer, "seed", fastGenRetry())

	got, err := svc.Generate(context.Background(), "осень", "инструкция")

	require.NoError(t, err)
	assert.Equal(t, "x", got)
}

func TestGenerate_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := NewService(&fakeTokens{token: "tok"},
		&fakeCompleter{responses: []string{"пост"}}, "seed", fastGenRetry())

	_, err := svc.Generate(ctx, "осень", "инструкция")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLengthBand(t *testing.T) {
	band := LengthBand{Min: 200, Max: 1000}
	assert.True(t, band.Enabled())
	assert.False(t, band.Accepts(199))
	assert.True(t, band.Accepts(200))
	assert.True(t, band.Accepts(1000))
	assert.False(t, band.Accepts(1001))

	var disabled LengthBand
	assert.False(t, disabled.Enabled())
	assert.True(t, disabled.Accepts(0))
}
