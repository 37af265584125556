package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobfeed/internal/adapter"
	"github.com/amishk599/jobfeed/internal/ai"
	"github.com/amishk599/jobfeed/internal/config"
	"github.com/amishk599/jobfeed/internal/letter"
	"github.com/amishk599/jobfeed/internal/mailer"
	"github.com/amishk599/jobfeed/internal/model"
	"github.com/amishk599/jobfeed/internal/notifier"
	"github.com/amishk599/jobfeed/internal/ratelimit"
	"github.com/amishk599/jobfeed/internal/store"
)

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "jobfeed",
	Short: "Job listing feed with live push",
	Long:  "jobfeed polls job listing providers, stores new listings and pushes them to connected clients.",
	// Default to `serve` so that `jobfeed` with no args runs the service.
	RunE:         runServe,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: JOBFEED_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig resolves the config path and parses it.
// Priority: --config > JOBFEED_CONFIG env var > "./config.yaml"
func loadConfig(path string) (*config.Config, error) {
	return config.Load(config.ResolvePath(path))
}

// mustLoadConfig logs and exits on a config error.
func mustLoadConfig(logger *slog.Logger) *config.Config {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	return cfg
}

func setupLogger(dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

// buildSources creates one rate-limited client per enabled source and
// registers each source's normalizer. All sources of one provider type share
// a limiter slot.
func buildSources(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) ([]model.SourceClient, *adapter.Registry, error) {
	limiter := ratelimit.NewProviderLimiter(cfg.RateLimit.MinDelay)
	registry := adapter.NewRegistry()

	var sources []model.SourceClient
	for _, sc := range cfg.EnabledSources() {
		client, err := createSource(sc, cfg.Upstream.Timeout, httpClient, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := registry.Register(sc.Name, sc.Type); err != nil {
			return nil, nil, err
		}
		sources = append(sources, ratelimit.NewRateLimitedSource(client, limiter, sc.Type))
		logger.Info("registered source", "name", sc.Name, "type", sc.Type)
	}
	if len(sources) == 0 {
		return nil, nil, fmt.Errorf("no sources to poll")
	}
	return sources, registry, nil
}

func createSource(sc config.SourceConfig, timeout time.Duration, httpClient *http.Client, logger *slog.Logger) (model.SourceClient, error) {
	switch sc.Type {
	case adapter.TypeJobTech:
		return adapter.NewJobTechClient(sc.Name, sc.BaseURL, sc.Limit, timeout, httpClient, logger), nil
	case adapter.TypeCareerJet:
		return adapter.NewCareerJetClient(sc.Name, sc.BaseURL, sc.APIKey, sc.Locale, sc.Location, sc.Limit, timeout, httpClient, logger), nil
	case adapter.TypeRSS:
		return adapter.NewRSSClient(sc.Name, sc.FeedURL, timeout, httpClient, logger), nil
	default:
		return nil, fmt.Errorf("source %q: unsupported type %q", sc.Name, sc.Type)
	}
}

// openStore opens the configured store. A nil registry is allowed for
// read-only commands.
func openStore(ctx context.Context, cfg *config.Config, registry *adapter.Registry, logger *slog.Logger) (store.Store, error) {
	if registry == nil {
		registry = adapter.NewRegistry()
	}
	return store.Open(ctx, cfg.Store.Driver, cfg.Store.Path, cfg.Store.DSN, registry, logger)
}

// setupNotifiers returns the chat or log sink and, when enabled, the Redis
// publisher. The returned cleanup closes the Redis connection.
func setupNotifiers(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) ([]model.Notifier, func(), error) {
	var sinks []model.Notifier
	switch cfg.Notification.Type {
	case "slack":
		logger.Info("using slack notifier")
		sinks = append(sinks, notifier.NewSlackNotifier(cfg.Notification.WebhookURL, httpClient, logger))
	default:
		sinks = append(sinks, notifier.NewLogNotifier(logger))
	}

	cleanup := func() {}
	if cfg.Redis.Enabled {
		client, err := notifier.NewRedisClient(cfg.Redis.URL)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("publishing new listings to redis", "channel", cfg.Redis.Channel)
		sinks = append(sinks, notifier.NewRedisNotifier(client, cfg.Redis.Channel, logger))
		cleanup = func() { client.Close() }
	}
	return sinks, cleanup, nil
}

// setupLetters builds the letter pipeline. With AI disabled the writer
// refuses every request with ai.ErrDisabled.
func setupLetters(cfg *config.Config, st model.ListingStore, logger *slog.Logger) *letter.Service {
	var writer letter.Writer = ai.NewNopLetterWriter()
	if cfg.AI.Enabled {
		provider := ai.NewOpenAIProvider(cfg.AI.BaseURL, cfg.AI.APIKey, cfg.AI.Model, &http.Client{Timeout: cfg.AI.Timeout})
		writer = ai.NewLLMLetterWriter(provider, ai.CoverLetterTemplate, logger)
		logger.Info("letter writer enabled", "model", cfg.AI.Model)
	}
	m := mailer.NewSMTPMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From, logger)
	return letter.NewService(st, writer, m, cfg.Letter.BaseLetterPath, cfg.Letter.OutputDir, logger)
}
