// Package telegram implements the messaging sink: publishing a finished
// (text, picture) pair to a Telegram channel as a photo with caption.
package telegram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"
)

// Telegram allows ~30 messages per second across chats; staying well under
// that keeps the bot clear of API-level throttling.
const (
	defaultSendRate  = 1.0 // requests per second
	defaultSendBurst = 3
)

// Config holds Telegram sink settings.
type Config struct {
	// Token is the bot token used for authentication. Required.
	Token string

	// RequestsPerSecond caps the sustained send rate. Zero uses the default.
	RequestsPerSecond float64

	// Burst is the token bucket burst size. Zero uses the default.
	Burst int

	// Offline skips the initial getMe call. Used by tests.
	Offline bool
}

// Sink publishes posts to Telegram channels via the Bot API.
type Sink struct {
	bot     *tele.Bot
	limiter *rate.Limiter
}

// New creates a Telegram sink. The bot token is validated against the API
// unless Offline is set.
func New(cfg Config) (*Sink, error) {
	if cfg.Token == "" {
		return nil, errors.New("telegram bot token is empty")
	}

	bot, err := tele.NewBot(tele.Settings{
		Token:   cfg.Token,
		Offline: cfg.Offline,
		Poller:  &tele.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = defaultSendRate
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = defaultSendBurst
	}

	return &Sink{
		bot:     bot,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}, nil
}

// channelRecipient addresses a channel by its @username or numeric id.
type channelRecipient string

// Recipient implements tele.Recipient.
func (r channelRecipient) Recipient() string { return string(r) }

// Publish sends the picture with the text as its caption to the channel.
// Any transport or API error is returned to the caller, whose retry policy
// decides what to do with it.
func (s *Sink) Publish(ctx context.Context, channel, text string, picture []byte) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("telegram rate limit wait: %w", err)
	}

	photo := &tele.Photo{
		File:    tele.FromReader(bytes.NewReader(picture)),
		Caption: text,
	}

	if _, err := s.bot.Send(channelRecipient(channel), photo); err != nil {
		return fmt.Errorf("send to %s: %w", channel, err)
	}

	slog.Debug("published to channel", slog.String("channel", channel))
	return nil
}
