package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultHTTPPort          = 8080
	DefaultBroadcastInterval = 30 * time.Second
	DefaultRenderCacheTTL    = 10 * time.Minute
	DefaultHistoryTTL        = time.Hour
	DefaultDatasetSource     = "csv"
	DefaultDatasetPath       = "cleaned_products_data.csv"
	DefaultDatasetTable      = "products"
	DefaultOnInvalid         = "reject"
	DefaultMaxRating         = 5.0
	DefaultHighQuantile      = 0.75
	DefaultMediumQuantile    = 0.5
	DefaultRatingFloor       = 4.8
	DefaultHistogramBins     = 50
	DefaultTopN              = 10
	DefaultTrendFrac         = 2.0 / 3.0
	DefaultTrendIterations   = 3
	DefaultLogLevel          = "info"

	// EnvPrefix is the prefix of environment variables that override
	// file settings, e.g. SHELFSIGHT_HTTP_PORT.
	EnvPrefix = "shelfsight"
)

// Config is the top-level configuration parsed from config.yaml.
type Config struct {
	// LogLevel is one of: debug | info | warn | error.
	LogLevel string `yaml:"log_level"`

	Server     ServerConfig     `yaml:"server"`
	Dataset    DatasetConfig    `yaml:"dataset"`
	Heuristics HeuristicsConfig `yaml:"heuristics"`
	Charts     ChartsConfig     `yaml:"charts"`
	Alerts     AlertsConfig     `yaml:"alerts"`
}

// ServerConfig holds the HTTP surface settings.
type ServerConfig struct {
	// HTTPPort serves the dashboard, REST API, WebSocket hub and /metrics.
	HTTPPort int `yaml:"http_port"`

	// Auth configures how /api/ requests are authenticated.
	Auth AuthConfig `yaml:"auth"`

	// BroadcastInterval is how often the WebSocket hub re-sends the current
	// report to connected clients. Reloads are pushed immediately regardless.
	BroadcastInterval time.Duration `yaml:"broadcast_interval"`

	// RenderCacheTTL bounds how long a rendered dashboard page is reused.
	RenderCacheTTL time.Duration `yaml:"render_cache_ttl"`

	// HistoryTTL is how long superseded reports stay reachable under
	// /api/v1/reports/{id}. The current report never expires.
	HistoryTTL time.Duration `yaml:"history_ttl"`
}

// AuthConfig controls client authentication for the REST API.
type AuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode"`

	// KeyEnv is the name of the environment variable that holds the expected API key.
	KeyEnv string `yaml:"key_env"`

	// Header is the HTTP header to read the key from. Defaults to "x-api-key".
	Header string `yaml:"header"`
}

// Key returns the expected API key resolved from the environment.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// EffectiveHeader returns the configured header name, or the default "x-api-key".
func (a AuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return "x-api-key"
}

// DatasetConfig describes where product rows come from.
type DatasetConfig struct {
	// Source is one of: csv | sqlite.
	Source string `yaml:"source"`

	// Path is the CSV file or SQLite database file.
	Path string `yaml:"path"`

	// Table is the SQLite table holding the product rows. Ignored for csv.
	Table string `yaml:"table"`

	// OnInvalid is one of: reject (fail the load on the first invalid row) |
	// skip (drop invalid rows and count them).
	OnInvalid string `yaml:"on_invalid"`

	// MaxRating is the upper bound of the rating scale. 0 disables the check.
	MaxRating float64 `yaml:"max_rating"`

	// Watch reloads the dataset when the file changes.
	Watch bool `yaml:"watch"`
}

// HeuristicsConfig groups the tunable business heuristics.
type HeuristicsConfig struct {
	Availability AvailabilityConfig `yaml:"availability"`
}

// AvailabilityConfig parameterises the stock proxy label.
type AvailabilityConfig struct {
	// HighQuantile is the review-count quantile a product must exceed,
	// together with RatingFloor, to be High Availability.
	HighQuantile float64 `yaml:"high_quantile"`

	// MediumQuantile is the review-count quantile a product must exceed to be Medium.
	MediumQuantile float64 `yaml:"medium_quantile"`

	// RatingFloor is the inclusive minimum rating for High Availability.
	RatingFloor float64 `yaml:"rating_floor"`
}

// ChartsConfig holds chart parameters that change the computed views.
type ChartsConfig struct {
	HistogramBins int         `yaml:"histogram_bins"`
	TopN          int         `yaml:"top_n"`
	Trend         TrendConfig `yaml:"trend"`
}

// TrendConfig parameterises the LOWESS trend line of the scatter plot.
type TrendConfig struct {
	Frac       float64 `yaml:"frac"`
	Iterations int     `yaml:"iterations"`
}

// AlertsConfig holds dataset alert rules and webhook delivery targets.
type AlertsConfig struct {
	Rules    []AlertRule     `yaml:"rules"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// AlertRule defines one threshold-based condition evaluated on every new report.
type AlertRule struct {
	// Name is the human-readable alert identifier, used as the deduplication key.
	Name string `yaml:"name"`

	// Condition is a simple expression: "rejected_rows > 0",
	// "high_availability_pct < 5", "record_count < 100".
	Condition string `yaml:"condition"`

	// Severity is one of: critical | warning | info.
	Severity string `yaml:"severity"`

	// Cooldown suppresses re-fires for this duration after an alert fires.
	// Defaults to 15 minutes if zero.
	Cooldown time.Duration `yaml:"cooldown"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: teams | slack | http.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable that holds the webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// envOverrides are the settings that may be replaced from the environment.
// Zero values mean "not set".
type envOverrides struct {
	HTTPPort      int    `envconfig:"HTTP_PORT"`
	DatasetPath   string `envconfig:"DATASET_PATH"`
	DatasetSource string `envconfig:"DATASET_SOURCE"`
	LogLevel      string `envconfig:"LOG_LEVEL"`
}

// Load reads and parses the YAML config file at path.
// Missing fields are filled with defaults, then SHELFSIGHT_* environment
// overrides are applied, then the result is validated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, fmt.Errorf("config: env overrides: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		Server: ServerConfig{
			HTTPPort:          DefaultHTTPPort,
			BroadcastInterval: DefaultBroadcastInterval,
			RenderCacheTTL:    DefaultRenderCacheTTL,
			HistoryTTL:        DefaultHistoryTTL,
		},
		Dataset: DatasetConfig{
			Source:    DefaultDatasetSource,
			Path:      DefaultDatasetPath,
			Table:     DefaultDatasetTable,
			OnInvalid: DefaultOnInvalid,
			MaxRating: DefaultMaxRating,
		},
		Heuristics: HeuristicsConfig{
			Availability: AvailabilityConfig{
				HighQuantile:   DefaultHighQuantile,
				MediumQuantile: DefaultMediumQuantile,
				RatingFloor:    DefaultRatingFloor,
			},
		},
		Charts: ChartsConfig{
			HistogramBins: DefaultHistogramBins,
			TopN:          DefaultTopN,
			Trend: TrendConfig{
				Frac:       DefaultTrendFrac,
				Iterations: DefaultTrendIterations,
			},
		},
	}
}

// applyEnv overlays SHELFSIGHT_* environment variables onto cfg.
func applyEnv(cfg *Config) error {
	var o envOverrides
	if err := envconfig.Process(EnvPrefix, &o); err != nil {
		return err
	}
	if o.HTTPPort != 0 {
		cfg.Server.HTTPPort = o.HTTPPort
	}
	if o.DatasetPath != "" {
		cfg.Dataset.Path = o.DatasetPath
	}
	if o.DatasetSource != "" {
		cfg.Dataset.Source = o.DatasetSource
	}
	if o.LogLevel != "" {
		cfg.LogLevel = o.LogLevel
	}
	return nil
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level %q unknown: want debug|info|warn|error", cfg.LogLevel)
	}

	s := cfg.Server
	if s.HTTPPort <= 0 || s.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", s.HTTPPort)
	}
	switch s.Auth.Mode {
	case "apikey", "none", "":
	default:
		return fmt.Errorf("server.auth.mode %q unknown: want apikey|none", s.Auth.Mode)
	}
	if s.BroadcastInterval <= 0 {
		return fmt.Errorf("server.broadcast_interval must be positive")
	}
	if s.RenderCacheTTL < 0 {
		return fmt.Errorf("server.render_cache_ttl must not be negative")
	}
	if s.HistoryTTL <= 0 {
		return fmt.Errorf("server.history_ttl must be positive")
	}

	d := cfg.Dataset
	switch d.Source {
	case "csv", "sqlite":
	default:
		return fmt.Errorf("dataset.source %q unknown: want csv|sqlite", d.Source)
	}
	if d.Path == "" {
		return fmt.Errorf("dataset.path is required")
	}
	if d.Source == "sqlite" && d.Table == "" {
		return fmt.Errorf("dataset.table is required for sqlite sources")
	}
	switch d.OnInvalid {
	case "reject", "skip":
	default:
		return fmt.Errorf("dataset.on_invalid %q unknown: want reject|skip", d.OnInvalid)
	}
	if d.MaxRating < 0 {
		return fmt.Errorf("dataset.max_rating must not be negative")
	}

	a := cfg.Heuristics.Availability
	if a.HighQuantile < 0 || a.HighQuantile > 1 {
		return fmt.Errorf("heuristics.availability.high_quantile %g is out of range [0, 1]", a.HighQuantile)
	}
	if a.MediumQuantile < 0 || a.MediumQuantile > 1 {
		return fmt.Errorf("heuristics.availability.medium_quantile %g is out of range [0, 1]", a.MediumQuantile)
	}
	if a.MediumQuantile > a.HighQuantile {
		return fmt.Errorf("heuristics.availability.medium_quantile must not exceed high_quantile")
	}
	if a.RatingFloor < 0 {
		return fmt.Errorf("heuristics.availability.rating_floor must not be negative")
	}

	c := cfg.Charts
	if c.HistogramBins <= 0 || c.HistogramBins > 1000 {
		return fmt.Errorf("charts.histogram_bins %d is out of range [1, 1000]", c.HistogramBins)
	}
	if c.TopN <= 0 {
		return fmt.Errorf("charts.top_n must be positive")
	}
	if c.Trend.Frac <= 0 || c.Trend.Frac > 1 {
		return fmt.Errorf("charts.trend.frac %g is out of range (0, 1]", c.Trend.Frac)
	}
	if c.Trend.Iterations < 0 {
		return fmt.Errorf("charts.trend.iterations must not be negative")
	}

	for i, r := range cfg.Alerts.Rules {
		if r.Name == "" {
			return fmt.Errorf("alerts.rules[%d]: name is required", i)
		}
		if r.Condition == "" {
			return fmt.Errorf("alerts.rules[%d] %q: condition is required", i, r.Name)
		}
		switch r.Severity {
		case "critical", "warning", "info", "":
		default:
			return fmt.Errorf("alerts.rules[%d] %q: unknown severity %q", i, r.Name, r.Severity)
		}
	}
	for i, w := range cfg.Alerts.Webhooks {
		switch w.Type {
		case "teams", "slack", "http":
		default:
			return fmt.Errorf("alerts.webhooks[%d]: unknown type %q", i, w.Type)
		}
	}
	return nil
}
