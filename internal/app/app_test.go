package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nweremizu/helm/internal/bank"
	"github.com/Nweremizu/helm/internal/config"
	"github.com/Nweremizu/helm/internal/domain"
	"github.com/Nweremizu/helm/internal/logger"
	"github.com/Nweremizu/helm/internal/scheduler"
	"github.com/Nweremizu/helm/internal/store/memory"
)

func localConfig() config.Config {
	return config.Config{
		Server: config.ServerConfig{Addr: ":0", ShutdownTimeout: time.Second},
		Bank:   config.BankConfig{PageTimeout: 5 * time.Second},
		AI:     config.AIConfig{Provider: "ollama", OllamaHost: "http://127.0.0.1:1", OllamaModel: "test", Timeout: time.Second},
		Jobs:   config.JobsConfig{Workers: 1, BufferSize: 10},
		GCP:    config.GCPConfig{Dataset: "helm"},
		Scheduler: config.SchedulerConfig{
			Enabled:          true,
			TimeZone:         "Africa/Lagos",
			SyncSchedule:     "0 */6 * * *",
			SweepSchedule:    "*/15 * * * *",
			ArchiveSchedule:  "0 3 * * *",
			SnapshotSchedule: "55 23 * * *",
			JobPruneSchedule: "@hourly",
			SweepBatchSize:   200,
		},
		Insights: config.InsightsConfig{RetentionDays: 30},
	}
}

func TestNew_LocalDefaults(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, localConfig(), logger.Nop())
	require.NoError(t, err)
	defer a.Close()

	assert.IsType(t, &memory.Store{}, a.Store)
	assert.IsType(t, &bank.MockClient{}, a.Bank)
	assert.Nil(t, a.Warehouse)
	assert.Nil(t, a.Audit)
	assert.Nil(t, a.Archiver)
	assert.Equal(t, "ollama:test", a.Classifier.Name())

	seeded, err := a.SeedRules(ctx)
	require.NoError(t, err)
	assert.Greater(t, seeded, 0)

	again, err := a.SeedRules(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, again)
}

func TestNew_UnknownProvider(t *testing.T) {
	cfg := localConfig()
	cfg.AI.Provider = "gpt"
	_, err := New(context.Background(), cfg, logger.Nop())
	assert.Error(t, err)
}

func TestScheduler_SyncAllThroughMockBank(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, localConfig(), logger.Nop())
	require.NoError(t, err)
	defer a.Close()

	_, err = a.Store.CreateAccount(ctx, domain.LinkedAccount{ID: "acc-1", UserID: "user-1", ExternalAccountID: "ext-1"})
	require.NoError(t, err)

	s, err := a.Scheduler()
	require.NoError(t, err)
	assert.Equal(t, []string{
		scheduler.TaskArchiveInsights,
		scheduler.TaskCategorizeSweep,
		scheduler.TaskDailySnapshot,
		scheduler.TaskPruneJobs,
		scheduler.TaskSyncAll,
	}, s.Tasks())

	require.NoError(t, s.RunNow(ctx, scheduler.TaskSyncAll))
	assert.Equal(t, 7, a.Store.(*memory.Store).Count())

	acc, err := a.Store.GetAccount(ctx, "acc-1")
	require.NoError(t, err)
	assert.NotNil(t, acc.LastSyncedAt)
}

func TestRouter_Health(t *testing.T) {
	a, err := New(context.Background(), localConfig(), logger.Nop())
	require.NoError(t, err)
	defer a.Close()

	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	a.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/insights", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
