package insights

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nweremizu/helm/internal/domain"
	"github.com/Nweremizu/helm/internal/logger"
	"github.com/Nweremizu/helm/internal/store/memory"
)

func TestService_UnreadInsights(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 5, 20, 12, 0, 0, 0, time.UTC)
	clock := now
	st := memory.New(memory.WithClock(func() time.Time { return clock }))

	for i := 0; i < 12; i++ {
		clock = now.Add(time.Duration(i) * time.Minute)
		_, err := st.CreateInsight(ctx, domain.NewInsight{UserID: "user-1", Type: domain.InsightTypeAlert, Title: fmt.Sprintf("alert %d", i), Severity: domain.SeverityInfo})
		require.NoError(t, err)
	}
	_, err := st.CreateInsight(ctx, domain.NewInsight{UserID: "user-2", Type: domain.InsightTypeAlert, Title: "other"})
	require.NoError(t, err)

	categorized(st, domain.CategoryShopping, 200000, time.Date(2025, 4, 5, 0, 0, 0, 0, time.UTC))
	categorized(st, domain.CategoryShopping, 400000, time.Date(2025, 5, 5, 0, 0, 0, 0, time.UTC))

	clock = now.Add(time.Hour)
	trends := NewTrendGenerator(st, time.UTC, func() time.Time { return clock }, logger.Nop())
	svc := NewService(st, trends, func() time.Time { return clock }, logger.Nop())

	list, err := svc.UnreadInsights(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, list, UnreadLimit)
	assert.Equal(t, "Spending up: Shopping", list[0].Title, "trend generated on read is the newest")
	assert.Equal(t, "alert 11", list[1].Title)
	for _, in := range list {
		assert.Equal(t, "user-1", in.UserID)
	}
}

func TestService_MarkRead(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	in, err := st.CreateInsight(ctx, domain.NewInsight{UserID: "user-1", Type: domain.InsightTypeAlert, Title: "x"})
	require.NoError(t, err)

	svc := NewService(st, nil, nil, logger.Nop())

	assert.ErrorIs(t, svc.MarkRead(ctx, "user-2", in.ID), ErrInsightNotFound)
	assert.ErrorIs(t, svc.MarkRead(ctx, "user-1", "missing"), ErrInsightNotFound)

	require.NoError(t, svc.MarkRead(ctx, "user-1", in.ID))
	got, err := st.GetInsight(ctx, in.ID)
	require.NoError(t, err)
	assert.True(t, got.IsRead)

	list, err := svc.UnreadInsights(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestService_ArchiveOlderThan(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 5, 20, 12, 0, 0, 0, time.UTC)
	clock := now.AddDate(0, 0, -40)
	st := memory.New(memory.WithClock(func() time.Time { return clock }))

	_, err := st.CreateInsight(ctx, domain.NewInsight{UserID: "user-1", Title: "old"})
	require.NoError(t, err)
	clock = now.AddDate(0, 0, -5)
	_, err = st.CreateInsight(ctx, domain.NewInsight{UserID: "user-1", Title: "recent"})
	require.NoError(t, err)

	svc := NewService(st, nil, func() time.Time { return now }, logger.Nop())
	n, err := svc.ArchiveOlderThan(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = svc.ArchiveOlderThan(ctx, 30)
	require.NoError(t, err)
	assert.Zero(t, n)

	list, err := svc.UnreadInsights(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "recent", list[0].Title)
}
