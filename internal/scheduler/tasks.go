package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/Nweremizu/helm/internal/banksync"
	"github.com/Nweremizu/helm/internal/config"
	"github.com/Nweremizu/helm/internal/logger"
)

// Task names.
const (
	TaskSyncAll         = "sync-all"
	TaskCategorizeSweep = "categorize-sweep"
	TaskArchiveInsights = "archive-insights"
	TaskDailySnapshot   = "daily-snapshot"
	TaskPruneJobs       = "prune-jobs"
)

// Syncer crawls every linked account.
type Syncer interface {
	SyncAll(ctx context.Context, accounts banksync.AccountLister) (int, error)
}

// Sweeper categorizes transactions the dispatch path missed.
type Sweeper interface {
	ProcessPending(ctx context.Context, limit int) (int, error)
}

// InsightArchiver archives insights past retention.
type InsightArchiver interface {
	ArchiveOlderThan(ctx context.Context, days int) (int64, error)
}

// SnapshotCapturer records daily snapshots for all users.
type SnapshotCapturer interface {
	CaptureAll(ctx context.Context) (int, error)
}

// JobPruner drops finished background jobs.
type JobPruner interface {
	PruneFinished(ctx context.Context, cutoff time.Time) (int, error)
}

// Deps are the components the standard tasks drive. Nil components skip
// their task.
type Deps struct {
	Syncer        Syncer
	Accounts      banksync.AccountLister
	Sweeper       Sweeper
	Archiver      InsightArchiver
	Snapshots     SnapshotCapturer
	Jobs          JobPruner
	RetentionDays int
	JobRetention  time.Duration
}

// Per-run time limits.
const (
	syncTimeout     = 30 * time.Minute
	sweepTimeout    = 15 * time.Minute
	archiveTimeout  = 5 * time.Minute
	snapshotTimeout = 15 * time.Minute
	pruneTimeout    = time.Minute
)

// Register adds the standard pipeline tasks using cfg's schedules.
func Register(s *Scheduler, cfg config.SchedulerConfig, d Deps) error {
	batch := cfg.SweepBatchSize
	if batch <= 0 {
		batch = 200
	}
	retention := d.RetentionDays
	if retention <= 0 {
		retention = 30
	}

	if d.Syncer != nil && d.Accounts != nil {
		err := s.Add(TaskSyncAll, cfg.SyncSchedule, syncTimeout, func(ctx context.Context) error {
			n, err := d.Syncer.SyncAll(ctx, d.Accounts)
			if err != nil {
				return fmt.Errorf("sync all: %w", err)
			}
			log := logger.FromContext(ctx)
			log.Info().Int("synced", n).Msg("Accounts synced")
			return nil
		})
		if err != nil {
			return err
		}
	}

	if d.Sweeper != nil {
		err := s.Add(TaskCategorizeSweep, cfg.SweepSchedule, sweepTimeout, func(ctx context.Context) error {
			n, err := d.Sweeper.ProcessPending(ctx, batch)
			if err != nil {
				return fmt.Errorf("categorize sweep: %w", err)
			}
			log := logger.FromContext(ctx)
			log.Info().Int("processed", n).Msg("Pending transactions categorized")
			return nil
		})
		if err != nil {
			return err
		}
	}

	if d.Archiver != nil {
		err := s.Add(TaskArchiveInsights, cfg.ArchiveSchedule, archiveTimeout, func(ctx context.Context) error {
			n, err := d.Archiver.ArchiveOlderThan(ctx, retention)
			if err != nil {
				return fmt.Errorf("archive insights: %w", err)
			}
			log := logger.FromContext(ctx)
			log.Info().Int64("archived", n).Int("days", retention).Msg("Archived old insights")
			return nil
		})
		if err != nil {
			return err
		}
	}

	if d.Snapshots != nil {
		err := s.Add(TaskDailySnapshot, cfg.SnapshotSchedule, snapshotTimeout, func(ctx context.Context) error {
			n, err := d.Snapshots.CaptureAll(ctx)
			if err != nil {
				return fmt.Errorf("daily snapshot: %w", err)
			}
			log := logger.FromContext(ctx)
			log.Info().Int("captured", n).Msg("Daily snapshots captured")
			return nil
		})
		if err != nil {
			return err
		}
	}

	if d.Jobs != nil {
		keep := d.JobRetention
		if keep <= 0 {
			keep = 24 * time.Hour
		}
		err := s.Add(TaskPruneJobs, cfg.JobPruneSchedule, pruneTimeout, func(ctx context.Context) error {
			n, err := d.Jobs.PruneFinished(ctx, time.Now().Add(-keep))
			if err != nil {
				return fmt.Errorf("prune jobs: %w", err)
			}
			log := logger.FromContext(ctx)
			log.Debug().Int("pruned", n).Msg("Pruned finished jobs")
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}
