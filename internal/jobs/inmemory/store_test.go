package inmemory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nweremizu/helm/internal/jobs"
)

func TestStore_SaveAndGet(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	job := &jobs.CategorizeJob{JobID: "j1", UserID: "u1", TransactionIDs: []string{"t1"}, Status: jobs.JobStatusPending}
	require.NoError(t, s.SaveJob(ctx, job))

	job.TransactionIDs[0] = "mutated"

	got, err := s.GetJob(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, []string{"t1"}, got.TransactionIDs)

	_, err = s.GetJob(ctx, "missing")
	assert.ErrorIs(t, err, jobs.ErrJobNotFound)

	assert.Error(t, s.SaveJob(ctx, &jobs.CategorizeJob{}))
}

func TestStore_ListJobs(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, st := range []jobs.JobStatus{jobs.JobStatusCompleted, jobs.JobStatusFailed, jobs.JobStatusCompleted} {
		require.NoError(t, s.SaveJob(ctx, &jobs.CategorizeJob{
			JobID:     string(rune('a' + i)),
			UserID:    "u1",
			AccountID: "acc-1",
			Status:    st,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}
	require.NoError(t, s.SaveJob(ctx, &jobs.CategorizeJob{JobID: "z", UserID: "u2", CreatedAt: base}))

	tests := []struct {
		name   string
		filter jobs.JobFilter
		want   []string
	}{
		{"by user newest first", jobs.JobFilter{UserID: "u1"}, []string{"c", "b", "a"}},
		{"by status", jobs.JobFilter{UserID: "u1", Status: jobs.JobStatusCompleted}, []string{"c", "a"}},
		{"by account", jobs.JobFilter{AccountID: "acc-1", Limit: 1}, []string{"c"}},
		{"offset", jobs.JobFilter{UserID: "u1", Offset: 1, Limit: 1}, []string{"b"}},
		{"offset past end", jobs.JobFilter{UserID: "u1", Offset: 5}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListJobs(ctx, tt.filter)
			require.NoError(t, err)
			ids := make([]string, 0, len(got))
			for _, j := range got {
				ids = append(ids, j.JobID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestStore_UpdateJobStatus(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	require.NoError(t, s.SaveJob(ctx, &jobs.CategorizeJob{JobID: "j1"}))

	require.NoError(t, s.UpdateJobStatus(ctx, "j1", jobs.JobStatusFailed, "bad"))
	got, err := s.GetJob(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, jobs.JobStatusFailed, got.Status)
	assert.Equal(t, "bad", got.Error)

	assert.ErrorIs(t, s.UpdateJobStatus(ctx, "nope", jobs.JobStatusFailed, ""), jobs.ErrJobNotFound)
}

func TestStore_PruneFinished(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	old := now.Add(-48 * time.Hour)
	recent := now.Add(-time.Hour)

	for _, job := range []*jobs.CategorizeJob{
		{JobID: "done-old", Status: jobs.JobStatusCompleted, CompletedAt: &old},
		{JobID: "failed-old", Status: jobs.JobStatusFailed, CompletedAt: &old},
		{JobID: "done-recent", Status: jobs.JobStatusCompleted, CompletedAt: &recent},
		{JobID: "pending", Status: jobs.JobStatusPending},
		{JobID: "running-no-end", Status: jobs.JobStatusRunning},
	} {
		require.NoError(t, s.SaveJob(ctx, job))
	}

	n, err := s.PruneFinished(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	left, err := s.ListJobs(ctx, jobs.JobFilter{})
	require.NoError(t, err)
	var ids []string
	for _, j := range left {
		ids = append(ids, j.JobID)
	}
	assert.ElementsMatch(t, []string{"done-recent", "pending", "running-no-end"}, ids)
}
