// Package config loads Helm's settings. Defaults are overlaid by an optional
// YAML file and then by HELM_* environment variables; a .env file only fills
// variables the environment leaves unset.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Bank      BankConfig      `mapstructure:"bank"`
	AI        AIConfig        `mapstructure:"ai"`
	Jobs      JobsConfig      `mapstructure:"jobs"`
	GCP       GCPConfig       `mapstructure:"gcp"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Insights  InsightsConfig  `mapstructure:"insights"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CronSecret      string        `mapstructure:"cron_secret"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DatabaseConfig holds Postgres settings. An empty URL selects the in-memory store.
type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// BankConfig holds banking API settings. An empty SecretKey serves mock data.
type BankConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	SecretKey   string        `mapstructure:"secret_key"`
	PageTimeout time.Duration `mapstructure:"page_timeout"`
}

// AIConfig holds classifier provider settings.
type AIConfig struct {
	Provider    string        `mapstructure:"provider"`
	GeminiModel string        `mapstructure:"gemini_model"`
	OllamaHost  string        `mapstructure:"ollama_host"`
	OllamaModel string        `mapstructure:"ollama_model"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// JobsConfig sizes the background categorization queue.
type JobsConfig struct {
	Workers    int           `mapstructure:"workers"`
	BufferSize int           `mapstructure:"buffer_size"`
	Retention  time.Duration `mapstructure:"retention"` // finished jobs older than this are pruned
}

// GCPConfig enables the optional warehouse export and raw page archive.
type GCPConfig struct {
	ProjectID       string `mapstructure:"project_id"`
	CredentialsFile string `mapstructure:"credentials_file"`
	Dataset         string `mapstructure:"dataset"`
	ArchiveBucket   string `mapstructure:"archive_bucket"`
}

// SchedulerConfig holds cron schedules in robfig/cron syntax.
type SchedulerConfig struct {
	Enabled          bool   `mapstructure:"enabled"`
	TimeZone         string `mapstructure:"time_zone"`
	SyncSchedule     string `mapstructure:"sync_schedule"`
	SweepSchedule    string `mapstructure:"sweep_schedule"`
	ArchiveSchedule  string `mapstructure:"archive_schedule"`
	SnapshotSchedule string `mapstructure:"snapshot_schedule"`
	JobPruneSchedule string `mapstructure:"job_prune_schedule"`
	SweepBatchSize   int    `mapstructure:"sweep_batch_size"`
}

// InsightsConfig holds insight retention settings.
type InsightsConfig struct {
	RetentionDays int `mapstructure:"retention_days"`
}

// Load reads configuration from .env, an optional YAML file and the environment.
// Env var overrides use prefix HELM_, e.g. HELM_BANK_PAGE_TIMEOUT=20s.
// path may be empty; HELM_CONFIG is consulted next, then ./config.yaml.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	if path == "" {
		path = os.Getenv("HELM_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("HELM")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Conventional unprefixed names used by the hosting environment.
	bindings := map[string]string{
		"database.url":       "DATABASE_URL",
		"bank.secret_key":    "MONO_SECRET_API_KEY",
		"server.cron_secret": "CRON_SECRET",
		"ai.provider":        "AI_PROVIDER",
		"ai.ollama_host":     "OLLAMA_HOST",
		"ai.ollama_model":    "OLLAMA_MODEL",
		"gcp.project_id":     "GOOGLE_CLOUD_PROJECT",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, "HELM_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// An explicit path that does not exist is an error; a missing default file is not.
		if !errors.As(err, &notFound) && !(path == "" && os.IsNotExist(err)) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.cron_secret", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_conns", 10)

	v.SetDefault("bank.base_url", "https://api.withmono.com/v2")
	v.SetDefault("bank.secret_key", "")
	v.SetDefault("bank.page_timeout", 30*time.Second)

	v.SetDefault("ai.provider", "ollama")
	v.SetDefault("ai.gemini_model", "gemini-2.5-flash")
	v.SetDefault("ai.ollama_host", "http://localhost:11434")
	v.SetDefault("ai.ollama_model", "llama3.2:3b")
	v.SetDefault("ai.timeout", 2*time.Minute)

	v.SetDefault("jobs.workers", 5)
	v.SetDefault("jobs.buffer_size", 100)
	v.SetDefault("jobs.retention", 24*time.Hour)

	v.SetDefault("gcp.project_id", "")
	v.SetDefault("gcp.credentials_file", "")
	v.SetDefault("gcp.dataset", "helm")
	v.SetDefault("gcp.archive_bucket", "")

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.time_zone", "Africa/Lagos")
	v.SetDefault("scheduler.sync_schedule", "0 */6 * * *")
	v.SetDefault("scheduler.sweep_schedule", "*/15 * * * *")
	v.SetDefault("scheduler.archive_schedule", "0 3 * * *")
	v.SetDefault("scheduler.snapshot_schedule", "55 23 * * *")
	v.SetDefault("scheduler.job_prune_schedule", "@hourly")
	v.SetDefault("scheduler.sweep_batch_size", 200)

	v.SetDefault("insights.retention_days", 30)
}

// Validate checks values that would otherwise fail late at runtime.
func (c Config) Validate() error {
	if c.Jobs.Workers < 1 {
		return fmt.Errorf("config: jobs.workers must be at least 1, got %d", c.Jobs.Workers)
	}
	if c.Jobs.BufferSize < 1 {
		return fmt.Errorf("config: jobs.buffer_size must be at least 1, got %d", c.Jobs.BufferSize)
	}
	if c.Bank.PageTimeout <= 0 {
		return fmt.Errorf("config: bank.page_timeout must be positive")
	}
	if c.Insights.RetentionDays < 1 {
		return fmt.Errorf("config: insights.retention_days must be at least 1")
	}
	switch strings.ToLower(c.AI.Provider) {
	case "ollama", "gemini":
	default:
		return fmt.Errorf("config: unknown ai.provider %q", c.AI.Provider)
	}
	return nil
}

// Location resolves the scheduler time zone, falling back to UTC.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Scheduler.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}
