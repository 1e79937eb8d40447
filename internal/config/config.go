// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	DB      DBConfig      `mapstructure:"db"`
	Queue   QueueConfig   `mapstructure:"queue"`
	Worker  WorkerConfig  `mapstructure:"worker"`
	Crawler CrawlerConfig `mapstructure:"crawler"`
	Export  ExportConfig  `mapstructure:"export"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// DBConfig selects and configures the job and result stores.
type DBConfig struct {
	// Driver is "postgres" or "memory".
	Driver       string `mapstructure:"driver"`
	DSN          string `mapstructure:"dsn"`
	MaxConns     int    `mapstructure:"max_conns"`
	MinConns     int    `mapstructure:"min_conns"`
	ConnLifetime int    `mapstructure:"conn_lifetime_seconds"`
}

// QueueConfig selects and configures the message broker.
type QueueConfig struct {
	// Provider is "pubsub", "memory" or "noop".
	Provider       string `mapstructure:"provider"`
	ProjectID      string `mapstructure:"project_id"`
	TopicID        string `mapstructure:"topic_id"`
	SubscriptionID string `mapstructure:"subscription_id"`
	// BufferSize sizes the in-memory broker; ignored by pubsub.
	BufferSize int `mapstructure:"buffer_size"`
}

// WorkerConfig governs the consume loop.
type WorkerConfig struct {
	Prefetch            int `mapstructure:"prefetch"`
	CrawlTimeoutSeconds int `mapstructure:"crawl_timeout_seconds"`
}

// CrawlerConfig holds the per-source crawl settings.
type CrawlerConfig struct {
	HockeyURL           string  `mapstructure:"hockey_url"`
	OscarURL            string  `mapstructure:"oscar_url"`
	UserAgent           string  `mapstructure:"user_agent"`
	HTTPTimeoutSeconds  int     `mapstructure:"http_timeout_seconds"`
	RenderTimeoutSecs   int     `mapstructure:"render_timeout_seconds"`
	RenderMaxParallel   int     `mapstructure:"render_max_parallel"`
	RenderQPS           float64 `mapstructure:"render_qps"`
}

// ExportConfig configures the result snapshot destination.
type ExportConfig struct {
	// Provider is "gcs", "local", "memory" or "noop".
	Provider  string `mapstructure:"provider"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	LocalDir  string `mapstructure:"local_dir"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("HARVESTER")
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
	v.SetDefault("server.port", 8080)
	v.SetDefault("db.driver", "memory")
	v.SetDefault("db.max_conns", 8)
	v.SetDefault("db.min_conns", 1)
	v.SetDefault("db.conn_lifetime_seconds", 1800)
	v.SetDefault("queue.provider", "memory")
	v.SetDefault("queue.topic_id", "harvester-jobs")
	v.SetDefault("queue.subscription_id", "harvester-worker")
	v.SetDefault("queue.buffer_size", 128)
	v.SetDefault("worker.prefetch", 2)
	v.SetDefault("worker.crawl_timeout_seconds", 300)
	v.SetDefault("crawler.hockey_url", "https://www.scrapethissite.com/pages/forms/")
	v.SetDefault("crawler.oscar_url", "https://www.scrapethissite.com/pages/ajax-javascript/")
	v.SetDefault("crawler.user_agent", "harvester/1.0")
	v.SetDefault("crawler.http_timeout_seconds", 30)
	v.SetDefault("crawler.render_timeout_seconds", 120)
	v.SetDefault("crawler.render_max_parallel", 2)
	v.SetDefault("crawler.render_qps", 2)
	v.SetDefault("export.provider", "noop")
	v.SetDefault("export.local_dir", "./snapshots")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	switch c.DB.Driver {
	case "postgres":
		if c.DB.DSN == "" {
			return fmt.Errorf("db.dsn must be set when db.driver is postgres")
		}
	case "memory":
	default:
		return fmt.Errorf("db.driver must be postgres or memory, got %q", c.DB.Driver)
	}
	switch c.Queue.Provider {
	case "pubsub":
		if c.Queue.ProjectID == "" {
			return fmt.Errorf("queue.project_id must be set when queue.provider is pubsub")
		}
		if c.Queue.TopicID == "" || c.Queue.SubscriptionID == "" {
			return fmt.Errorf("queue.topic_id and queue.subscription_id must be set when queue.provider is pubsub")
		}
	case "memory", "noop":
	default:
		return fmt.Errorf("queue.provider must be pubsub, memory or noop, got %q", c.Queue.Provider)
	}
	if c.Worker.Prefetch <= 0 {
		return fmt.Errorf("worker.prefetch must be > 0")
	}
	if c.Crawler.HockeyURL == "" || c.Crawler.OscarURL == "" {
		return fmt.Errorf("crawler.hockey_url and crawler.oscar_url must be set")
	}
	switch c.Export.Provider {
	case "gcs":
		if c.Export.GCSBucket == "" {
			return fmt.Errorf("export.gcs_bucket must be set when export.provider is gcs")
		}
	case "local":
		if c.Export.LocalDir == "" {
			return fmt.Errorf("export.local_dir must be set when export.provider is local")
		}
	case "memory", "noop":
	default:
		return fmt.Errorf("export.provider must be gcs, local, memory or noop, got %q", c.Export.Provider)
	}
	return nil
}

// ConnLifetime converts the connection lifetime knob into a duration.
func (c Config) ConnLifetime() time.Duration {
	return time.Duration(c.DB.ConnLifetime) * time.Second
}

// CrawlTimeout converts the worker timeout knob into a duration.
func (c Config) CrawlTimeout() time.Duration {
	return time.Duration(c.Worker.CrawlTimeoutSeconds) * time.Second
}

// HTTPTimeout converts the crawler HTTP timeout knob into a duration.
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.Crawler.HTTPTimeoutSeconds) * time.Second
}

// RenderTimeout converts the render timeout knob into a duration.
func (c Config) RenderTimeout() time.Duration {
	return time.Duration(c.Crawler.RenderTimeoutSecs) * time.Second
}
