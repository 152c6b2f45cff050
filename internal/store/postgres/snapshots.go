package postgres

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"

	"github.com/Nweremizu/helm/internal/domain"
)

func (s *Store) UpsertSnapshot(ctx context.Context, snap domain.DailySnapshot) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO daily_snapshots (user_id, date, total_balance, total_income, total_expense)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, date) DO UPDATE SET
			total_balance = EXCLUDED.total_balance,
			total_income = EXCLUDED.total_income,
			total_expense = EXCLUDED.total_expense`,
		snap.UserID, snap.Date.In(time.UTC), snap.TotalBalance, snap.TotalIncome, snap.TotalExpense)
	if err != nil {
		return fmt.Errorf("UpsertSnapshot: %w", err)
	}
	return nil
}

func (s *Store) ListSnapshots(ctx context.Context, userID string, since time.Time) ([]domain.DailySnapshot, error) {
	rows, err := s.db.Query(ctx, `
		SELECT user_id, date, total_balance, total_income, total_expense
		FROM daily_snapshots
		WHERE user_id = $1 AND date >= $2
		ORDER BY date`,
		userID, civil.DateOf(since).In(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("ListSnapshots: querying: %w", err)
	}
	defer rows.Close()

	var out []domain.DailySnapshot
	for rows.Next() {
		var (
			snap domain.DailySnapshot
			day  time.Time
		)
		if err := rows.Scan(&snap.UserID, &day, &snap.TotalBalance, &snap.TotalIncome, &snap.TotalExpense); err != nil {
			return nil, fmt.Errorf("ListSnapshots: scanning: %w", err)
		}
		snap.Date = civil.DateOf(day)
		out = append(out, snap)
	}
	return out, rows.Err()
}
