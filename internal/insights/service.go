package insights

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Nweremizu/helm/internal/domain"
	"github.com/Nweremizu/helm/internal/store"
)

// UnreadLimit caps the unread insight listing.
const UnreadLimit = 10

// ErrInsightNotFound is returned when an insight does not exist or belongs to another user.
var ErrInsightNotFound = errors.New("insight not found")

// ServiceStore is the persistence the insight service needs.
type ServiceStore interface {
	TrendStore
	GetInsight(ctx context.Context, insightID string) (*domain.Insight, error)
	ListUnread(ctx context.Context, userID string, limit int) ([]domain.Insight, error)
	MarkRead(ctx context.Context, insightID string) error
	ArchiveCreatedBefore(ctx context.Context, cutoff, archivedAt time.Time) (int64, error)
}

// Service serves insights to the API and runs retention.
type Service struct {
	store  ServiceStore
	trends *TrendGenerator
	now    func() time.Time
	log    zerolog.Logger
}

// NewService creates a Service. trends may be nil to skip trend generation on read.
func NewService(st ServiceStore, trends *TrendGenerator, now func() time.Time, log zerolog.Logger) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: st, trends: trends, now: now, log: log.With().Str("component", "insights").Logger()}
}

// UnreadInsights refreshes trend insights, then returns the newest unread ones.
// A trend failure is logged and does not fail the listing.
func (s *Service) UnreadInsights(ctx context.Context, userID string) ([]domain.Insight, error) {
	if s.trends != nil {
		if _, err := s.trends.EnsureOverspendingTrendInsights(ctx, userID); err != nil {
			s.log.Error().Err(err).Str("user_id", userID).Msg("Trend generation failed")
		}
	}

	list, err := s.store.ListUnread(ctx, userID, UnreadLimit)
	if err != nil {
		return nil, fmt.Errorf("UnreadInsights: %w", err)
	}
	return list, nil
}

// MarkRead marks the user's insight as read.
func (s *Service) MarkRead(ctx context.Context, userID, insightID string) error {
	in, err := s.store.GetInsight(ctx, insightID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrInsightNotFound
	}
	if err != nil {
		return fmt.Errorf("MarkRead: get insight: %w", err)
	}
	if in.UserID != userID {
		return ErrInsightNotFound
	}
	if err := s.store.MarkRead(ctx, insightID); err != nil {
		return fmt.Errorf("MarkRead: %w", err)
	}
	return nil
}

// ArchiveOlderThan archives insights created more than days ago and returns how many.
func (s *Service) ArchiveOlderThan(ctx context.Context, days int) (int64, error) {
	now := s.now()
	cutoff := now.AddDate(0, 0, -days)

	n, err := s.store.ArchiveCreatedBefore(ctx, cutoff, now)
	if err != nil {
		return 0, fmt.Errorf("ArchiveOlderThan: %w", err)
	}
	s.log.Info().Int64("archived", n).Int("days", days).Msg("Archived old insights")
	return n, nil
}
