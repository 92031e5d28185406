// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. SEKOLAH_CRAWLER_THRESHOLD.
const EnvPrefix = "SEKOLAH"

// Storage backends accepted by storage.backend.
const (
	BackendNone  = "none"
	BackendLocal = "local"
	BackendGCS   = "gcs"
)

// Config captures every knob of a crawl run.
type Config struct {
	Crawler CrawlerConfig `mapstructure:"crawler"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Output  OutputConfig  `mapstructure:"output"`
	Storage StorageConfig `mapstructure:"storage"`
	DB      DBConfig      `mapstructure:"db"`
	PubSub  PubSubConfig  `mapstructure:"pubsub"`
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// CrawlerConfig governs the traversal of the reference site.
type CrawlerConfig struct {
	SiteRoot             string `mapstructure:"site_root"`
	RootName             string `mapstructure:"root_name"`
	Threshold            int    `mapstructure:"threshold"`
	MaxRetries           int    `mapstructure:"max_retries"`
	UserAgent            string `mapstructure:"user_agent"`
	IdentificationHeader string `mapstructure:"identification_header"`
	IdentificationValue  string `mapstructure:"identification_value"`
}

// HTTPConfig configures the page fetcher.
type HTTPConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// OutputConfig names the local output files.
type OutputConfig struct {
	Turtle       string `mapstructure:"turtle"`
	CSV          string `mapstructure:"csv"`
	JSON         string `mapstructure:"json"`
	UploadPrefix string `mapstructure:"upload_prefix"`
}

// StorageConfig selects where finished outputs are published.
type StorageConfig struct {
	Backend   string `mapstructure:"backend"`
	LocalDir  string `mapstructure:"local_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
}

// DBConfig controls the optional Postgres record store.
type DBConfig struct {
	DSN   string `mapstructure:"dsn"`
	Table string `mapstructure:"table"`
}

// PubSubConfig holds the optional per-school notification target.
// DryRun encodes and logs notifications without a Pub/Sub client.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
	DryRun    bool   `mapstructure:"dry_run"`
}

// ServerConfig controls the status HTTP server.
type ServerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// LoggingConfig toggles zap development features and the minimum level.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from defaults, an optional file and the environment.
func Load(path string) (Config, error) {
	return LoadViper(viper.New(), path)
}

// LoadViper is Load over a caller-provided instance, typically one with
// command-line flags already bound.
func LoadViper(v *viper.Viper, path string) (Config, error) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("crawler.site_root", "http://referensi.data.kemdikbud.go.id/index11.php")
	v.SetDefault("crawler.root_name", "INDONESIA")
	v.SetDefault("crawler.threshold", 1)
	v.SetDefault("crawler.max_retries", 10)
	v.SetDefault("crawler.user_agent", "sekolah-crawler/1.0")
	v.SetDefault("crawler.identification_header", "X-Crawler")
	v.SetDefault("crawler.identification_value", "benangmerah-sekolah")
	v.SetDefault("http.timeout_seconds", 30)
	v.SetDefault("output.turtle", "schools.ttl")
	v.SetDefault("output.csv", "schools.csv")
	v.SetDefault("output.json", "schools.json")
	v.SetDefault("output.upload_prefix", "sekolah")
	v.SetDefault("storage.backend", BackendNone)
	v.SetDefault("storage.local_dir", "")
	v.SetDefault("storage.gcs_bucket", "")
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.table", "schools")
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic_name", "")
	v.SetDefault("pubsub.dry_run", false)
	v.SetDefault("server.enabled", false)
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	root, err := url.Parse(c.Crawler.SiteRoot)
	if err != nil || !root.IsAbs() {
		return fmt.Errorf("crawler.site_root must be an absolute URL")
	}
	if c.Crawler.Threshold <= 0 {
		return fmt.Errorf("crawler.threshold must be > 0")
	}
	if c.Crawler.MaxRetries < 0 {
		return fmt.Errorf("crawler.max_retries must be >= 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.Output.Turtle == "" {
		return fmt.Errorf("output.turtle is required")
	}
	switch c.Storage.Backend {
	case BackendNone:
	case BackendLocal:
		if c.Storage.LocalDir == "" {
			return fmt.Errorf("storage.local_dir must be set for the local backend")
		}
	case BackendGCS:
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("storage.gcs_bucket must be set for the gcs backend")
		}
	default:
		return fmt.Errorf("storage.backend %q is not one of none, local, gcs", c.Storage.Backend)
	}
	if c.PubSub.TopicName != "" && c.PubSub.ProjectID == "" && !c.PubSub.DryRun {
		return fmt.Errorf("pubsub.project_id must be set when pubsub.topic_name is set, unless pubsub.dry_run")
	}
	if c.Server.Enabled && c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0 when the server is enabled")
	}
	return nil
}

// FetchTimeout returns the per-request timeout.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}
