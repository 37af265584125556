package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPath names the environment variable consulted for the config path when
// no --config flag is given.
const EnvPath = "JOBFEED_CONFIG"

// DefaultPath is used when neither the flag nor EnvPath is set.
const DefaultPath = "config.yaml"

const (
	defaultPollingInterval = 30 * time.Minute
	defaultUpstreamTimeout = 30 * time.Second
	defaultMinDelay        = time.Second
	defaultTokenTTL        = time.Hour
	defaultAITimeout       = 30 * time.Second
	defaultReadTimeout     = 15 * time.Second
	defaultWriteTimeout    = 30 * time.Second

	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultAddr          = ":8080"
	defaultOrigin        = "http://localhost:3000"
	defaultSQLitePath    = "jobfeed.db"
	defaultRedisChannel  = "jobfeed:new_listings"
	defaultSMTPPort      = 587
	defaultOutputDir     = "letters"
	defaultBaseLetter    = "base_letter.txt"

	slackWebhookPrefix = "https://hooks.slack.com/"
)

// Config is the root configuration for the jobfeed service.
type Config struct {
	PollingInterval time.Duration
	Search          SearchConfig
	Sources         []SourceConfig
	Upstream        UpstreamConfig
	RateLimit       RateLimitConfig
	Store           StoreConfig
	Server          ServerConfig
	Auth            AuthConfig
	Notification    NotificationConfig
	Redis           RedisConfig
	AI              AIConfig
	Letter          LetterConfig
	SMTP            SMTPConfig
	Filters         FilterConfig
}

// SearchConfig holds the single free-text query every cycle runs.
type SearchConfig struct {
	Query string `yaml:"query"`
}

// SourceConfig describes one upstream provider to query.
type SourceConfig struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`     // "jobtech", "careerjet" or "rss"
	BaseURL  string `yaml:"base_url"` // empty selects the provider's public endpoint
	APIKey   string `yaml:"api_key"`  // CareerJet affiliate id
	Locale   string `yaml:"locale"`
	Location string `yaml:"location"`
	FeedURL  string `yaml:"feed_url"` // required for rss
	Limit    int    `yaml:"limit"`
	Enabled  bool   `yaml:"enabled"`
}

// UpstreamConfig bounds every outbound source call.
type UpstreamConfig struct {
	Timeout time.Duration
}

// RateLimitConfig controls provider-level rate limiting.
type RateLimitConfig struct {
	MinDelay time.Duration // minimum gap between requests to the same provider
}

// StoreConfig selects the listing store.
type StoreConfig struct {
	Driver string `yaml:"driver"` // "sqlite", "postgres" or "memory"
	Path   string `yaml:"path"`   // sqlite file
	DSN    string `yaml:"dsn"`    // postgres connection string
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

// AuthConfig enables token authentication when JWTSecret is set.
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// NotificationConfig controls which chat notifier is used and its settings.
type NotificationConfig struct {
	Type       string `yaml:"type"`        // "log" or "slack"
	WebhookURL string `yaml:"webhook_url"` // required if type is "slack"
}

// RedisConfig controls publishing new listings to a Redis channel.
type RedisConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Channel string `yaml:"channel"`
}

// AIConfig controls the optional OpenAI letter writer.
type AIConfig struct {
	Enabled bool
	BaseURL string        // defaults to https://api.openai.com/v1
	Model   string        // OpenAI model identifier, e.g. "gpt-4o-mini"
	APIKey  string        // expanded from env var by Load
	Timeout time.Duration // per-request timeout
}

// LetterConfig locates the base letter and where rendered letters go.
type LetterConfig struct {
	BaseLetterPath string `yaml:"base_letter_path"`
	OutputDir      string `yaml:"output_dir"`
}

// SMTPConfig is the outgoing mail server for letters.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// FilterConfig holds the keyword filter used by browse.
type FilterConfig struct {
	HeadlineKeywords []string `yaml:"headline_keywords"`
	Locations        []string `yaml:"locations"`
}

// rawConfig is used for YAML unmarshaling (snake_case fields and duration as string).
type rawConfig struct {
	PollingInterval string             `yaml:"polling_interval"`
	Search          SearchConfig       `yaml:"search"`
	Sources         []SourceConfig     `yaml:"sources"`
	Upstream        rawUpstreamConfig  `yaml:"upstream"`
	RateLimit       rawRateLimitConfig `yaml:"rate_limit"`
	Store           StoreConfig        `yaml:"store"`
	Server          rawServerConfig    `yaml:"server"`
	Auth            rawAuthConfig      `yaml:"auth"`
	Notification    NotificationConfig `yaml:"notification"`
	Redis           RedisConfig        `yaml:"redis"`
	AI              rawAIConfig        `yaml:"ai"`
	Letter          LetterConfig       `yaml:"letter"`
	SMTP            SMTPConfig         `yaml:"smtp"`
	Filters         FilterConfig       `yaml:"filters"`
}

type rawUpstreamConfig struct {
	Timeout string `yaml:"timeout"`
}

type rawRateLimitConfig struct {
	MinDelay string `yaml:"min_delay"`
}

type rawServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	ReadTimeout    string   `yaml:"read_timeout"`
	WriteTimeout   string   `yaml:"write_timeout"`
}

type rawAuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	TokenTTL  string `yaml:"token_ttl"`
}

type rawAIConfig struct {
	Enabled bool   `yaml:"enabled"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	APIKey  string `yaml:"api_key"`
	Timeout string `yaml:"timeout"`
}

// ResolvePath picks the config file: the flag value, then $JOBFEED_CONFIG,
// then ./config.yaml.
func ResolvePath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv(EnvPath); env != "" {
		return env
	}
	return DefaultPath
}

// Load reads and parses the YAML config file at path, validates it, and returns Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	d := durations{}
	cfg := &Config{
		PollingInterval: d.parse("polling_interval", raw.PollingInterval, defaultPollingInterval),
		Search:          SearchConfig{Query: strings.TrimSpace(raw.Search.Query)},
		Sources:         raw.Sources,
		Upstream: UpstreamConfig{
			Timeout: d.parse("upstream.timeout", raw.Upstream.Timeout, defaultUpstreamTimeout),
		},
		RateLimit: RateLimitConfig{
			MinDelay: d.parse("rate_limit.min_delay", raw.RateLimit.MinDelay, defaultMinDelay),
		},
		Store: raw.Store,
		Server: ServerConfig{
			Addr:           raw.Server.Addr,
			AllowedOrigins: raw.Server.AllowedOrigins,
			ReadTimeout:    d.parse("server.read_timeout", raw.Server.ReadTimeout, defaultReadTimeout),
			WriteTimeout:   d.parse("server.write_timeout", raw.Server.WriteTimeout, defaultWriteTimeout),
		},
		Auth: AuthConfig{
			JWTSecret: raw.Auth.JWTSecret,
			TokenTTL:  d.parse("auth.token_ttl", raw.Auth.TokenTTL, defaultTokenTTL),
		},
		Notification: raw.Notification,
		Redis:        raw.Redis,
		AI: AIConfig{
			Enabled: raw.AI.Enabled,
			BaseURL: raw.AI.BaseURL,
			Model:   raw.AI.Model,
			APIKey:  raw.AI.APIKey,
			Timeout: d.parse("ai.timeout", raw.AI.Timeout, defaultAITimeout),
		},
		Letter:  raw.Letter,
		SMTP:    raw.SMTP,
		Filters: raw.Filters,
	}
	if d.err != nil {
		return nil, d.err
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// durations parses duration fields and keeps the first error.
type durations struct {
	err error
}

func (d *durations) parse(field, value string, def time.Duration) time.Duration {
	if value == "" || d.err != nil {
		return def
	}
	v, err := time.ParseDuration(value)
	if err != nil {
		d.err = fmt.Errorf("parse %s %q: %w", field, value, err)
		return def
	}
	return v
}

func applyDefaults(cfg *Config) {
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = "sqlite"
	}
	if cfg.Store.Driver == "sqlite" && cfg.Store.Path == "" {
		cfg.Store.Path = defaultSQLitePath
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultAddr
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{defaultOrigin}
	}
	if cfg.Notification.Type == "" {
		cfg.Notification.Type = "log"
	}
	if cfg.Redis.Channel == "" {
		cfg.Redis.Channel = defaultRedisChannel
	}
	if cfg.AI.BaseURL == "" {
		cfg.AI.BaseURL = defaultOpenAIBaseURL
	}
	if cfg.Letter.BaseLetterPath == "" {
		cfg.Letter.BaseLetterPath = defaultBaseLetter
	}
	if cfg.Letter.OutputDir == "" {
		cfg.Letter.OutputDir = defaultOutputDir
	}
	if cfg.SMTP.Port == 0 {
		cfg.SMTP.Port = defaultSMTPPort
	}
}

// EnabledSources returns the sources with enabled: true, in config order.
func (c *Config) EnabledSources() []SourceConfig {
	var out []SourceConfig
	for _, s := range c.Sources {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out
}

func validate(cfg *Config) error {
	if cfg.PollingInterval <= 0 {
		return fmt.Errorf("polling_interval must be positive, got %v", cfg.PollingInterval)
	}
	if cfg.Search.Query == "" {
		return fmt.Errorf("search.query is required")
	}
	if cfg.Upstream.Timeout <= 0 {
		return fmt.Errorf("upstream.timeout must be positive, got %v", cfg.Upstream.Timeout)
	}

	if err := validateSources(cfg.Sources); err != nil {
		return err
	}

	switch cfg.Store.Driver {
	case "sqlite", "memory":
	case "postgres":
		if cfg.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required when store.driver is \"postgres\"")
		}
	default:
		return fmt.Errorf("store.driver must be sqlite, postgres or memory, got %q", cfg.Store.Driver)
	}

	switch cfg.Notification.Type {
	case "log":
	case "slack":
		if cfg.Notification.WebhookURL == "" {
			return fmt.Errorf("notification.webhook_url is required when type is \"slack\"")
		}
		if !strings.HasPrefix(cfg.Notification.WebhookURL, slackWebhookPrefix) {
			return fmt.Errorf("notification.webhook_url must start with %s", slackWebhookPrefix)
		}
	default:
		return fmt.Errorf("notification.type must be log or slack, got %q", cfg.Notification.Type)
	}

	if cfg.Redis.Enabled && cfg.Redis.URL == "" {
		return fmt.Errorf("redis.url is required when redis.enabled is true")
	}

	if cfg.AI.Enabled {
		if cfg.AI.APIKey == "" {
			return fmt.Errorf("ai.api_key is required when ai.enabled is true")
		}
		if cfg.AI.Model == "" {
			return fmt.Errorf("ai.model is required when ai.enabled is true")
		}
	}

	if cfg.Auth.JWTSecret != "" && len(cfg.Auth.JWTSecret) < 16 {
		return fmt.Errorf("auth.jwt_secret must be at least 16 characters")
	}

	return nil
}

func validateSources(sources []SourceConfig) error {
	seen := make(map[string]bool)
	enabled := 0
	for i, s := range sources {
		if s.Name == "" {
			return fmt.Errorf("sources[%d].name is required", i)
		}
		if seen[s.Name] {
			return fmt.Errorf("sources[%d]: duplicate name %q", i, s.Name)
		}
		seen[s.Name] = true
		if !s.Enabled {
			continue
		}
		enabled++
		switch s.Type {
		case "jobtech":
		case "careerjet":
			if s.APIKey == "" {
				return fmt.Errorf("source %q: api_key (affiliate id) is required for careerjet", s.Name)
			}
		case "rss":
			if s.FeedURL == "" {
				return fmt.Errorf("source %q: feed_url is required for rss", s.Name)
			}
		default:
			return fmt.Errorf("source %q: unsupported type %q", s.Name, s.Type)
		}
	}
	if enabled == 0 {
		return fmt.Errorf("at least one source must be enabled")
	}
	return nil
}
