// Package config loads and validates forager configuration via Viper.
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
	Logging LoggingConfig `mapstructure:"logging"`
	DB      DBConfig      `mapstructure:"db"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Sources SourcesConfig `mapstructure:"sources"`
	Audit   AuditConfig   `mapstructure:"audit"`
	Search  SearchConfig  `mapstructure:"search"`
	Redis   RedisConfig   `mapstructure:"redis"`
	PubSub  PubSubConfig  `mapstructure:"pubsub"`
	Archive ArchiveConfig `mapstructure:"archive"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// DBConfig controls access to the Postgres catalog store.
type DBConfig struct {
	DSN          string `mapstructure:"dsn"`
	CatalogTable string `mapstructure:"catalog_table"`
	SkillsTable  string `mapstructure:"skills_table"`
	MaxConns     int32  `mapstructure:"max_conns"`
	MinConns     int32  `mapstructure:"min_conns"`
}

// HTTPConfig configures the shared retrying HTTP client.
type HTTPConfig struct {
	MaxAttempts    int    `mapstructure:"max_attempts"`
	BaseDelayMs    int    `mapstructure:"base_delay_ms"`
	MaxDelayMs     int    `mapstructure:"max_delay_ms"`
	TimeoutMs      int    `mapstructure:"timeout_ms"`
	UserAgent      string `mapstructure:"user_agent"`
	GitHubToken    string `mapstructure:"github_token"`
	ModelHubToken  string `mapstructure:"modelhub_token"`
	VectorDirToken string `mapstructure:"vectordir_token"`
}

// SourceConfig holds the per-source adapter knobs.
type SourceConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	BaseURL    string `mapstructure:"base_url"`
	MaxResults int    `mapstructure:"max_results"`
	PageSize   int    `mapstructure:"page_size"`
	DelayMs    int    `mapstructure:"delay_ms"`
}

// SourcesConfig groups every ingestion source.
type SourcesConfig struct {
	GitHub    SourceConfig `mapstructure:"github"`
	Registry  SourceConfig `mapstructure:"registry"`
	ModelHub  SourceConfig `mapstructure:"modelhub"`
	Awesome   SourceConfig `mapstructure:"awesome"`
	Trending  SourceConfig `mapstructure:"trending"`
	VectorDir SourceConfig `mapstructure:"vectordir"`
	Skills    SourceConfig `mapstructure:"skills"`
}

// AuditConfig governs the dead-link sweep.
type AuditConfig struct {
	ProbesPerSecond float64 `mapstructure:"probes_per_second"`
	TimeoutMs       int     `mapstructure:"timeout_ms"`
	Schedule        string  `mapstructure:"schedule"`
}

// SearchConfig configures the optional retrieval collaborators.
type SearchConfig struct {
	VectorEnabled bool   `mapstructure:"vector_enabled"`
	EmbedURL      string `mapstructure:"embed_url"`
	EmbedModel    string `mapstructure:"embed_model"`
	EmbedAPIKey   string `mapstructure:"embed_api_key"`
	IntentURL     string `mapstructure:"intent_url"`
	IntentModel   string `mapstructure:"intent_model"`
	IntentAPIKey  string `mapstructure:"intent_api_key"`
	DefaultLimit  int    `mapstructure:"default_limit"`
	MaxLimit      int    `mapstructure:"max_limit"`
}

// RedisConfig controls the optional click-tracking counter backend.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// PubSubConfig holds metadata for catalog-event notifications.
type PubSubConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// ArchiveConfig sets where raw provider payloads are archived.
type ArchiveConfig struct {
	Backend   string `mapstructure:"backend"` // "none", "memory", "local", "gcs"
	LocalPath string `mapstructure:"local_path"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// ClientTimeout returns the per-request timeout as a duration.
func (c HTTPConfig) ClientTimeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FORAGER")
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
	v.SetDefault("logging.development", true)
	v.SetDefault("db.catalog_table", "catalog_entries")
	v.SetDefault("db.skills_table", "skill_entries")
	v.SetDefault("db.max_conns", 8)
	v.SetDefault("http.max_attempts", 3)
	v.SetDefault("http.base_delay_ms", 1000)
	v.SetDefault("http.max_delay_ms", 30000)
	v.SetDefault("http.timeout_ms", 10000)
	v.SetDefault("http.user_agent", "forager-bot/0.1")
	v.SetDefault("sources.github.enabled", true)
	v.SetDefault("sources.github.base_url", "https://api.github.com")
	v.SetDefault("sources.github.max_results", 300)
	v.SetDefault("sources.github.page_size", 100)
	v.SetDefault("sources.github.delay_ms", 500)
	v.SetDefault("sources.registry.enabled", true)
	v.SetDefault("sources.registry.base_url", "https://registry.npmjs.org")
	v.SetDefault("sources.registry.max_results", 250)
	v.SetDefault("sources.registry.page_size", 50)
	v.SetDefault("sources.registry.delay_ms", 200)
	v.SetDefault("sources.modelhub.enabled", true)
	v.SetDefault("sources.modelhub.base_url", "https://huggingface.co")
	v.SetDefault("sources.modelhub.max_results", 200)
	v.SetDefault("sources.modelhub.page_size", 50)
	v.SetDefault("sources.modelhub.delay_ms", 300)
	v.SetDefault("sources.awesome.enabled", true)
	v.SetDefault("sources.awesome.max_results", 500)
	v.SetDefault("sources.awesome.delay_ms", 150)
	v.SetDefault("sources.trending.enabled", true)
	v.SetDefault("sources.trending.base_url", "https://github.com/trending")
	v.SetDefault("sources.trending.max_results", 75)
	v.SetDefault("sources.trending.delay_ms", 400)
	v.SetDefault("sources.vectordir.enabled", false)
	v.SetDefault("sources.vectordir.max_results", 200)
	v.SetDefault("sources.vectordir.page_size", 25)
	v.SetDefault("sources.vectordir.delay_ms", 250)
	v.SetDefault("sources.skills.enabled", true)
	v.SetDefault("sources.skills.max_results", 400)
	v.SetDefault("sources.skills.page_size", 100)
	v.SetDefault("sources.skills.delay_ms", 150)
	v.SetDefault("audit.probes_per_second", 2)
	v.SetDefault("audit.timeout_ms", 8000)
	v.SetDefault("audit.schedule", "0 3 * * *")
	v.SetDefault("search.default_limit", 20)
	v.SetDefault("search.max_limit", 100)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("archive.backend", "none")
	v.SetDefault("archive.prefix", "raw")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.HTTP.MaxAttempts <= 0 {
		return fmt.Errorf("http.max_attempts must be > 0")
	}
	if c.HTTP.TimeoutMs <= 0 {
		return fmt.Errorf("http.timeout_ms must be > 0")
	}
	if c.HTTP.BaseDelayMs <= 0 || c.HTTP.MaxDelayMs < c.HTTP.BaseDelayMs {
		return fmt.Errorf("http backoff delays are inconsistent")
	}
	if c.Audit.ProbesPerSecond <= 0 {
		return fmt.Errorf("audit.probes_per_second must be > 0")
	}
	if c.Search.VectorEnabled && c.Search.EmbedURL == "" {
		return fmt.Errorf("search.embed_url must be set when vector search is enabled")
	}
	if c.PubSub.Enabled && (c.PubSub.ProjectID == "" || c.PubSub.TopicName == "") {
		return fmt.Errorf("pubsub.project_id and pubsub.topic_name must be set when pubsub is enabled")
	}
	switch c.Archive.Backend {
	case "", "none", "memory":
	case "local":
		if c.Archive.LocalPath == "" {
			return fmt.Errorf("archive.local_path must be set for the local backend")
		}
	case "gcs":
		if c.Archive.GCSBucket == "" {
			return fmt.Errorf("archive.gcs_bucket must be set for the gcs backend")
		}
	default:
		return fmt.Errorf("unknown archive backend %q", c.Archive.Backend)
	}
	return nil
}
