package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "https://api.withmono.com/v2", cfg.Bank.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Bank.PageTimeout)
	assert.Equal(t, "ollama", cfg.AI.Provider)
	assert.Equal(t, "llama3.2:3b", cfg.AI.OllamaModel)
	assert.Equal(t, 5, cfg.Jobs.Workers)
	assert.Equal(t, 30, cfg.Insights.RetentionDays)
	assert.Equal(t, 24*time.Hour, cfg.Jobs.Retention)
	assert.Equal(t, "@hourly", cfg.Scheduler.JobPruneSchedule)
	assert.Empty(t, cfg.Database.URL)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "helm.yaml")
	content := []byte(`
bank:
  page_timeout: 10s
jobs:
  workers: 2
ai:
  provider: gemini
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	t.Setenv("HELM_JOBS_BUFFER_SIZE", "7")
	t.Setenv("MONO_SECRET_API_KEY", "live_sk_test")
	t.Setenv("DATABASE_URL", "postgres://helm@localhost/helm")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, cfg.Bank.PageTimeout)
	assert.Equal(t, 2, cfg.Jobs.Workers)
	assert.Equal(t, 7, cfg.Jobs.BufferSize)
	assert.Equal(t, "gemini", cfg.AI.Provider)
	assert.Equal(t, "live_sk_test", cfg.Bank.SecretKey)
	assert.Equal(t, "postgres://helm@localhost/helm", cfg.Database.URL)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Chdir(t.TempDir())
	base, err := Load("")
	require.NoError(t, err)

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"zero workers", func(c *Config) { c.Jobs.Workers = 0 }, true},
		{"zero buffer", func(c *Config) { c.Jobs.BufferSize = 0 }, true},
		{"no page timeout", func(c *Config) { c.Bank.PageTimeout = 0 }, true},
		{"unknown provider", func(c *Config) { c.AI.Provider = "openai" }, true},
		{"provider case", func(c *Config) { c.AI.Provider = "Gemini" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLocation(t *testing.T) {
	c := Config{Scheduler: SchedulerConfig{TimeZone: "Africa/Lagos"}}
	assert.Equal(t, "Africa/Lagos", c.Location().String())

	c.Scheduler.TimeZone = "Mars/Olympus"
	assert.Equal(t, time.UTC, c.Location())
}

func TestLocation_WithoutHostZoneinfo(t *testing.T) {
	// An empty ZONEINFO dir forces the lookup past it; the embedded
	// database still resolves the default zone.
	t.Setenv("ZONEINFO", t.TempDir())

	loc := Config{Scheduler: SchedulerConfig{TimeZone: "Africa/Lagos"}}.Location()
	require.Equal(t, "Africa/Lagos", loc.String())

	noon := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC).In(loc)
	assert.Equal(t, 13, noon.Hour())
}
