package scheduler

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Nweremizu/helm/internal/banksync"
	"github.com/Nweremizu/helm/internal/config"
	"github.com/Nweremizu/helm/internal/domain"
	"github.com/Nweremizu/helm/internal/logger"
)

type mockSyncer struct {
	SyncAllFunc func(ctx context.Context, accounts banksync.AccountLister) (int, error)
}

func (m *mockSyncer) SyncAll(ctx context.Context, accounts banksync.AccountLister) (int, error) {
	return m.SyncAllFunc(ctx, accounts)
}

type mockSweeper struct {
	limit int
}

func (m *mockSweeper) ProcessPending(ctx context.Context, limit int) (int, error) {
	m.limit = limit
	return 3, nil
}

type mockArchiver struct {
	days int
	err  error
}

func (m *mockArchiver) ArchiveOlderThan(ctx context.Context, days int) (int64, error) {
	m.days = days
	return 2, m.err
}

type mockSnapshots struct {
	mock.Mock
}

func (m *mockSnapshots) CaptureAll(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type mockPruner struct {
	cutoff time.Time
}

func (m *mockPruner) PruneFinished(ctx context.Context, cutoff time.Time) (int, error) {
	m.cutoff = cutoff
	return 4, nil
}

type noAccounts struct{}

func (noAccounts) ListAccounts(ctx context.Context) ([]domain.LinkedAccount, error) {
	return nil, nil
}

func testConfig() config.SchedulerConfig {
	return config.SchedulerConfig{
		Enabled:          true,
		TimeZone:         "Africa/Lagos",
		SyncSchedule:     "0 */6 * * *",
		SweepSchedule:    "*/15 * * * *",
		ArchiveSchedule:  "0 3 * * *",
		SnapshotSchedule: "55 23 * * *",
		JobPruneSchedule: "@hourly",
		SweepBatchSize:   50,
	}
}

func TestRegister_AllTasks(t *testing.T) {
	s := New(time.UTC, logger.Nop())
	syncCalls := 0
	sweeper := &mockSweeper{}
	archiver := &mockArchiver{}
	snaps := &mockSnapshots{}
	snaps.On("CaptureAll", mock.Anything).Return(1, nil).Once()

	err := Register(s, testConfig(), Deps{
		Syncer: &mockSyncer{SyncAllFunc: func(ctx context.Context, accounts banksync.AccountLister) (int, error) {
			syncCalls++
			_, hasDeadline := ctx.Deadline()
			assert.True(t, hasDeadline)
			return 7, nil
		}},
		Accounts:      noAccounts{},
		Sweeper:       sweeper,
		Archiver:      archiver,
		Snapshots:     snaps,
		RetentionDays: 45,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{TaskArchiveInsights, TaskCategorizeSweep, TaskDailySnapshot, TaskSyncAll}, s.Tasks())

	ctx := context.Background()
	require.NoError(t, s.RunNow(ctx, TaskSyncAll))
	require.NoError(t, s.RunNow(ctx, TaskCategorizeSweep))
	require.NoError(t, s.RunNow(ctx, TaskArchiveInsights))
	require.NoError(t, s.RunNow(ctx, TaskDailySnapshot))

	assert.Equal(t, 1, syncCalls)
	assert.Equal(t, 50, sweeper.limit)
	assert.Equal(t, 45, archiver.days)
	snaps.AssertExpectations(t)
}

func TestRegister_SkipsMissingDeps(t *testing.T) {
	s := New(nil, logger.Nop())
	require.NoError(t, Register(s, testConfig(), Deps{Snapshots: &mockSnapshots{}}))
	assert.Equal(t, []string{TaskDailySnapshot}, s.Tasks())
}

func TestRegister_DefaultsAndErrors(t *testing.T) {
	s := New(time.UTC, logger.Nop())
	sweeper := &mockSweeper{}
	archiver := &mockArchiver{err: errors.New("db down")}
	cfg := testConfig()
	cfg.SweepBatchSize = 0

	require.NoError(t, Register(s, cfg, Deps{Sweeper: sweeper, Archiver: archiver}))

	require.NoError(t, s.RunNow(context.Background(), TaskCategorizeSweep))
	assert.Equal(t, 200, sweeper.limit)

	err := s.RunNow(context.Background(), TaskArchiveInsights)
	assert.ErrorContains(t, err, "db down")
	assert.Equal(t, 30, archiver.days)
}

func TestScheduler_AddAndNext(t *testing.T) {
	lagos, err := time.LoadLocation("Africa/Lagos")
	require.NoError(t, err)
	s := New(lagos, logger.Nop())

	require.NoError(t, s.Add("nightly", "0 3 * * *", 0, func(ctx context.Context) error { return nil }))
	require.NoError(t, s.Add("manual", "", 0, func(ctx context.Context) error { return nil }))
	assert.Error(t, s.Add("nightly", "0 4 * * *", 0, func(ctx context.Context) error { return nil }))
	assert.Error(t, s.Add("broken", "not a schedule", 0, func(ctx context.Context) error { return nil }))

	assert.True(t, s.Next("manual").IsZero())

	s.Start()
	next := s.Next("nightly")
	require.False(t, next.IsZero())
	assert.Equal(t, 3, next.In(lagos).Hour())
	require.NoError(t, s.Stop(context.Background()))
}

func TestScheduler_RunNowUnknown(t *testing.T) {
	s := New(time.UTC, logger.Nop())
	err := s.RunNow(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrUnknownTask)
}

func TestRegister_PruneJobs(t *testing.T) {
	s := New(time.UTC, logger.Nop())
	pruner := &mockPruner{}
	require.NoError(t, Register(s, testConfig(), Deps{Jobs: pruner, JobRetention: 2 * time.Hour}))

	before := time.Now()
	require.NoError(t, s.RunNow(context.Background(), TaskPruneJobs))
	assert.WithinDuration(t, before.Add(-2*time.Hour), pruner.cutoff, time.Minute)
}

func TestRegister_TaskLogsCarryTaskName(t *testing.T) {
	var buf bytes.Buffer
	s := New(time.UTC, logger.NewWithWriter(&buf))

	err := Register(s, testConfig(), Deps{
		Syncer: &mockSyncer{SyncAllFunc: func(ctx context.Context, accounts banksync.AccountLister) (int, error) {
			return 7, nil
		}},
		Accounts: noAccounts{},
	})
	require.NoError(t, err)
	require.NoError(t, s.RunNow(context.Background(), TaskSyncAll))

	out := buf.String()
	assert.Contains(t, out, `"message":"Accounts synced"`)
	assert.Contains(t, out, `"synced":7`)
	assert.Contains(t, out, `"task":"sync-all"`)
}
