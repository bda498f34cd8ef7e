// Command poster generates a promotional post for a topic and publishes it
// to the configured Telegram channels. With -topic it runs once and exits;
// with a configured cron schedule it keeps posting on schedule until
// interrupted.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"promopost/internal/config"
	"promopost/internal/infra/browser"
	"promopost/internal/infra/gigachat"
	"promopost/internal/infra/telegram"
	"promopost/internal/infra/topics"
	"promopost/internal/infra/wiki"
	"promopost/internal/infra/yandex"
	"promopost/internal/observability/logging"
	pkgconfig "promopost/internal/pkg/config"
	"promopost/internal/resilience/retry"
	"promopost/internal/usecase/deliver"
	"promopost/internal/usecase/enrich"
	"promopost/internal/usecase/generate"
	"promopost/internal/usecase/pipeline"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML configuration file")
	topic := flag.String("topic", "", "post once about this topic and exit")
	flag.Parse()

	logger := logging.FromEnv()

	cfgMetrics := pkgconfig.NewMetrics("poster")
	cfg, err := config.Load(*configPath, cfgMetrics)
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded",
		slog.Int("channels", len(cfg.Telegram.Channels)),
		slog.Int("max_post_chars", cfg.Pipeline.MaxPostChars),
		slog.String("cron_schedule", cfg.Schedule.Cron),
		slog.String("metrics_addr", cfg.MetricsAddr))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pipe, err := buildPipeline(cfg)
	if err != nil {
		logger.Error("failed to build pipeline", slog.Any("error", err))
		os.Exit(1)
	}

	startMetricsServer(ctx, logger, cfg.MetricsAddr)

	if *topic != "" || cfg.Schedule.Cron == "" {
		runOnce(ctx, logger, pipe, *topic)
		return
	}

	runScheduled(ctx, logger, pipe, cfg)
}

// buildPipeline wires the infrastructure clients and use cases from the
// configuration.
func buildPipeline(cfg *config.AppConfig) (*pipeline.Pipeline, error) {
	gcClient := gigachat.NewClient(gigachat.ClientConfig{
		TokenURL:           cfg.GigaChat.TokenURL,
		APIBase:            cfg.GigaChat.APIBase,
		Model:              cfg.GigaChat.Model,
		Timeout:            cfg.GigaChat.Timeout,
		InsecureSkipVerify: cfg.GigaChat.InsecureSkipVerify,
	})
	tokenCache := gigachat.NewTokenCache(gcClient,
		gigachat.WithTTL(cfg.GigaChat.TokenTTL),
		gigachat.WithCapacity(cfg.GigaChat.TokenCacheSize))

	genOpts := []generate.Option{}
	if cfg.Pipeline.MinPostChars > 0 {
		genOpts = append(genOpts, generate.WithLengthBand(generate.LengthBand{
			Min: cfg.Pipeline.MinPostChars,
			Max: cfg.Pipeline.MaxPostChars,
		}))
	}
	generator := generate.NewService(tokenCache, gcClient, cfg.GigaChat.Seed, genOpts...)

	browserCfg := browser.DefaultConfig()
	enricher := enrich.NewService(wiki.NewClient(), yandex.NewArticleSearcher(browserCfg))
	images := yandex.NewImageSearcher(browserCfg)

	sink, err := telegram.New(telegram.Config{Token: cfg.Telegram.BotToken})
	if err != nil {
		return nil, fmt.Errorf("init telegram sink: %w", err)
	}
	deliverer := deliver.NewService(sink)

	imageRetry := retry.ImageSearchConfig()
	if cfg.Pipeline.ImageMaxAttempts > 0 {
		imageRetry.MaxAttempts = cfg.Pipeline.ImageMaxAttempts
	}

	return pipeline.New(enricher, generator, images, deliverer, pipeline.Config{
		Channels:     cfg.Telegram.Channels,
		BaseContext:  cfg.Pipeline.BaseContext,
		MaxPostChars: cfg.Pipeline.MaxPostChars,
		ImageRetry:   imageRetry,
	}), nil
}

// runOnce posts about a single topic. An empty topic is prompted for on
// stdin, so the binary stays usable interactively without flags.
func runOnce(ctx context.Context, logger *slog.Logger, pipe *pipeline.Pipeline, topic string) {
	if topic == "" {
		fmt.Fprint(os.Stderr, "topic: ")
		scanner := bufio.NewScanner(os.Stdin)
		if scanner.Scan() {
			topic = strings.TrimSpace(scanner.Text())
		}
	}
	if topic == "" {
		logger.Error("no topic given: pass -topic or configure a schedule")
		os.Exit(1)
	}

	start := time.Now()
	post, err := pipe.Run(ctx, topic)
	if err != nil {
		logger.Error("posting failed", slog.String("topic", topic), slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("posting completed",
		slog.String("topic", post.Topic),
		slog.Int("text_length", len([]rune(post.Text))),
		slog.Bool("enriched", post.Enriched),
		slog.Duration("duration", time.Since(start)))
}

// runScheduled posts on the configured cron schedule until the context is
// cancelled. Overlapping runs are skipped: a run that outlives its slot
// delays the next one rather than racing it.
func runScheduled(ctx context.Context, logger *slog.Logger, pipe *pipeline.Pipeline, cfg *config.AppConfig) {
	source := topicSource(cfg)

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	_, err := c.AddFunc(cfg.Schedule.Cron, func() {
		runScheduledJob(ctx, logger, pipe, source)
	})
	if err != nil {
		logger.Error("failed to register cron job", slog.Any("error", err))
		os.Exit(1)
	}
	c.Start()
	logger.Info("scheduler started", slog.String("schedule", cfg.Schedule.Cron))

	<-ctx.Done()
	logger.Info("shutdown requested, waiting for the running job")
	<-c.Stop().Done()
	logger.Info("scheduler stopped")
}

// topicSource picks the topic source for scheduled runs: an RSS/Atom feed
// when configured, the static pool otherwise.
func topicSource(cfg *config.AppConfig) topics.Source {
	if cfg.Schedule.FeedURL != "" {
		return topics.NewFeedSource(cfg.Schedule.FeedURL)
	}
	return topics.NewStaticPool(cfg.Schedule.Topics)
}

func runScheduledJob(ctx context.Context, logger *slog.Logger, pipe *pipeline.Pipeline, source topics.Source) {
	topic, err := source.NextTopic(ctx)
	if err != nil {
		logger.Error("no topic for scheduled run", slog.Any("error", err))
		return
	}

	start := time.Now()
	post, err := pipe.Run(ctx, topic)
	if err != nil {
		logger.Error("scheduled posting failed", slog.String("topic", topic), slog.Any("error", err))
		return
	}
	logger.Info("scheduled posting completed",
		slog.String("topic", post.Topic),
		slog.Int("text_length", len([]rune(post.Text))),
		slog.Duration("duration", time.Since(start)))
}
