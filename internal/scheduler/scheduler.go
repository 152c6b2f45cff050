// Package scheduler runs the periodic pipeline jobs on cron schedules.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/Nweremizu/helm/internal/logger"
)

// ErrUnknownTask is returned by RunNow for an unregistered task name.
var ErrUnknownTask = errors.New("scheduler: unknown task")

// TaskFunc is one run of a scheduled task.
type TaskFunc func(ctx context.Context) error

type task struct {
	name     string
	schedule string
	timeout  time.Duration
	fn       TaskFunc
	entry    cron.EntryID
}

// Scheduler wraps a cron runner. Overlapping runs of the same task are skipped.
type Scheduler struct {
	cron *cron.Cron
	loc  *time.Location
	log  zerolog.Logger

	mu    sync.Mutex
	tasks map[string]*task
}

// New creates a Scheduler evaluating schedules in loc (UTC when nil).
func New(loc *time.Location, log zerolog.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	log = log.With().Str("component", "scheduler").Logger()
	cl := cronLogger{log: log}
	return &Scheduler{
		cron:  cron.New(cron.WithLocation(loc), cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		loc:   loc,
		log:   log,
		tasks: make(map[string]*task),
	}
}

// Add registers fn under name. An empty schedule registers the task for
// RunNow only. timeout bounds each run when positive.
func (s *Scheduler) Add(name, schedule string, timeout time.Duration, fn TaskFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[name]; ok {
		return fmt.Errorf("scheduler: task %q already registered", name)
	}
	t := &task{name: name, schedule: schedule, timeout: timeout, fn: fn}

	if schedule != "" {
		id, err := s.cron.AddFunc(schedule, func() {
			if err := s.run(context.Background(), t); err != nil {
				s.log.Error().Err(err).Str("task", name).Msg("Scheduled task failed")
			}
		})
		if err != nil {
			return fmt.Errorf("scheduler: unable to schedule %s: %w", name, err)
		}
		t.entry = id
		s.log.Info().Str("task", name).Str("schedule", schedule).Str("time_zone", s.loc.String()).Msg("Task scheduled")
	} else {
		s.log.Info().Str("task", name).Msg("Task has no schedule, manual runs only")
	}

	s.tasks[name] = t
	return nil
}

func (s *Scheduler) run(ctx context.Context, t *task) error {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}
	log := s.log.With().Str("task", t.name).Logger()
	ctx = logger.WithContext(ctx, log)

	start := time.Now()
	log.Info().Time("started_at", start.In(s.loc)).Msg("Starting task")
	if err := t.fn(ctx); err != nil {
		return err
	}
	log.Info().Dur("duration", time.Since(start)).Msg("Task completed")
	return nil
}

// RunNow runs the named task synchronously.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	t, ok := s.tasks[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTask, name)
	}
	return s.run(ctx, t)
}

// Tasks returns the registered task names, sorted.
func (s *Scheduler) Tasks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.tasks))
	for name := range s.tasks {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Next returns the next scheduled run of name, or the zero time when the
// task is manual or the scheduler has not started.
func (s *Scheduler) Next(name string) time.Time {
	s.mu.Lock()
	t, ok := s.tasks[name]
	s.mu.Unlock()
	if !ok || t.entry == 0 {
		return time.Time{}
	}
	return s.cron.Entry(t.entry).Next
}

// Start begins running scheduled tasks in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Int("tasks", len(s.cron.Entries())).Msg("Scheduler started")
}

// Stop stops scheduling and waits for running tasks or ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.log.Info().Msg("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
