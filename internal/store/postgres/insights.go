package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Nweremizu/helm/internal/domain"
	"github.com/Nweremizu/helm/internal/store"
)

const insightColumns = `id, user_id, type, title, message, severity, related_transaction_id, is_read, archived_at, created_at`

func scanInsight(row pgx.Row) (domain.Insight, error) {
	var (
		in     domain.Insight
		t, sev string
	)
	err := row.Scan(&in.ID, &in.UserID, &t, &in.Title, &in.Message, &sev, &in.RelatedTransactionID, &in.IsRead, &in.ArchivedAt, &in.CreatedAt)
	if err != nil {
		return domain.Insight{}, err
	}
	in.Type = domain.InsightType(t)
	in.Severity = domain.Severity(sev)
	return in, nil
}

func (s *Store) CreateInsight(ctx context.Context, in domain.NewInsight) (*domain.Insight, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO insights (id, user_id, type, title, message, severity, related_transaction_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+insightColumns,
		uuid.New().String(), in.UserID, string(in.Type), in.Title, in.Message, string(in.Severity), in.RelatedTransactionID)

	out, err := scanInsight(row)
	if err != nil {
		return nil, fmt.Errorf("CreateInsight: %w", err)
	}
	return &out, nil
}

// CreateInsightIfAbsent relies on the partial unique index insights_related_title_key.
func (s *Store) CreateInsightIfAbsent(ctx context.Context, in domain.NewInsight) (bool, error) {
	if in.RelatedTransactionID == nil {
		return false, fmt.Errorf("CreateInsightIfAbsent: related transaction id is required")
	}
	var id string
	err := s.db.QueryRow(ctx, `
		INSERT INTO insights (id, user_id, type, title, message, severity, related_transaction_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (related_transaction_id, title) WHERE related_transaction_id IS NOT NULL DO NOTHING
		RETURNING id`,
		uuid.New().String(), in.UserID, string(in.Type), in.Title, in.Message, string(in.Severity), in.RelatedTransactionID,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) || isUniqueViolation(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("CreateInsightIfAbsent: %w", err)
	}
	return true, nil
}

func (s *Store) GetInsight(ctx context.Context, insightID string) (*domain.Insight, error) {
	out, err := scanInsight(s.db.QueryRow(ctx, `SELECT `+insightColumns+` FROM insights WHERE id = $1`, insightID))
	if err != nil {
		return nil, notFound(err)
	}
	return &out, nil
}

func (s *Store) ListActiveTitles(ctx context.Context, userID string, t domain.InsightType, since time.Time) ([]string, error) {
	rows, err := s.db.Query(ctx, `
		SELECT title FROM insights
		WHERE user_id = $1 AND type = $2 AND created_at >= $3 AND archived_at IS NULL`,
		userID, string(t), since)
	if err != nil {
		return nil, fmt.Errorf("ListActiveTitles: querying: %w", err)
	}
	titles, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("ListActiveTitles: scanning: %w", err)
	}
	return titles, nil
}

func (s *Store) ListUnread(ctx context.Context, userID string, limit int) ([]domain.Insight, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+insightColumns+` FROM insights
		WHERE user_id = $1 AND is_read = FALSE AND archived_at IS NULL
		ORDER BY created_at DESC
		LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("ListUnread: querying: %w", err)
	}
	defer rows.Close()

	var out []domain.Insight
	for rows.Next() {
		in, err := scanInsight(rows)
		if err != nil {
			return nil, fmt.Errorf("ListUnread: scanning: %w", err)
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

func (s *Store) MarkRead(ctx context.Context, insightID string) error {
	tag, err := s.db.Exec(ctx, `UPDATE insights SET is_read = TRUE WHERE id = $1`, insightID)
	if err != nil {
		return fmt.Errorf("MarkRead: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ArchiveCreatedBefore(ctx context.Context, cutoff, archivedAt time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE insights SET archived_at = $2
		WHERE created_at < $1 AND archived_at IS NULL`,
		cutoff, archivedAt)
	if err != nil {
		return 0, fmt.Errorf("ArchiveCreatedBefore: %w", err)
	}
	return tag.RowsAffected(), nil
}
