package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/Nweremizu/helm/internal/domain"
	"github.com/Nweremizu/helm/internal/store"
)

func (s *Store) newInsight(in domain.NewInsight) *domain.Insight {
	ins := &domain.Insight{
		ID:        uuid.New().String(),
		UserID:    in.UserID,
		Type:      in.Type,
		Title:     in.Title,
		Message:   in.Message,
		Severity:  in.Severity,
		CreatedAt: s.now(),
	}
	if in.RelatedTransactionID != nil {
		ins.RelatedTransactionID = domain.StringPtr(*in.RelatedTransactionID)
	}
	s.insights[ins.ID] = ins
	return ins
}

func (s *Store) CreateInsight(ctx context.Context, in domain.NewInsight) (*domain.Insight, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := *s.newInsight(in)
	return &out, nil
}

func (s *Store) CreateInsightIfAbsent(ctx context.Context, in domain.NewInsight) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ins := range s.insights {
		if ins.Title == in.Title && sameName(ins.RelatedTransactionID, in.RelatedTransactionID) {
			return false, nil
		}
	}
	s.newInsight(in)
	return true, nil
}

func (s *Store) GetInsight(ctx context.Context, insightID string) (*domain.Insight, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ins, ok := s.insights[insightID]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := *ins
	return &out, nil
}

func (s *Store) ListActiveTitles(ctx context.Context, userID string, t domain.InsightType, since time.Time) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []string
	for _, ins := range s.insights {
		if ins.UserID == userID && ins.Type == t && ins.ArchivedAt == nil && !ins.CreatedAt.Before(since) {
			out = append(out, ins.Title)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) ListUnread(ctx context.Context, userID string, limit int) ([]domain.Insight, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Insight
	for _, ins := range s.insights {
		if ins.UserID == userID && !ins.IsRead && ins.ArchivedAt == nil {
			out = append(out, *ins)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Insights returns every insight of a user, newest first.
func (s *Store) Insights(userID string) []domain.Insight {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Insight
	for _, ins := range s.insights {
		if ins.UserID == userID {
			out = append(out, *ins)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *Store) MarkRead(ctx context.Context, insightID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ins, ok := s.insights[insightID]
	if !ok {
		return store.ErrNotFound
	}
	ins.IsRead = true
	return nil
}

func (s *Store) ArchiveCreatedBefore(ctx context.Context, cutoff, archivedAt time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, ins := range s.insights {
		if ins.ArchivedAt == nil && ins.CreatedAt.Before(cutoff) {
			at := archivedAt
			ins.ArchivedAt = &at
			n++
		}
	}
	return n, nil
}
