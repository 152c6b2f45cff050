package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Nweremizu/helm/internal/domain"
	"github.com/Nweremizu/helm/internal/store"
)

const accountColumns = `id, user_id, external_account_id, name, balance, last_synced_at, created_at`

func scanAccount(row pgx.Row) (*domain.LinkedAccount, error) {
	var a domain.LinkedAccount
	if err := row.Scan(&a.ID, &a.UserID, &a.ExternalAccountID, &a.Name, &a.Balance, &a.LastSyncedAt, &a.CreatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) CreateAccount(ctx context.Context, account domain.LinkedAccount) (*domain.LinkedAccount, error) {
	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO linked_accounts (id, user_id, external_account_id, name, balance)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+accountColumns,
		account.ID, account.UserID, account.ExternalAccountID, account.Name, account.Balance)

	a, err := scanAccount(row)
	if err != nil {
		return nil, fmt.Errorf("CreateAccount: inserting: %w", err)
	}
	return a, nil
}

func (s *Store) GetAccount(ctx context.Context, accountID string) (*domain.LinkedAccount, error) {
	row := s.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM linked_accounts WHERE id = $1`, accountID)
	a, err := scanAccount(row)
	if err != nil {
		return nil, notFound(err)
	}
	return a, nil
}

func (s *Store) GetAccountForUser(ctx context.Context, accountID, userID string) (*domain.LinkedAccount, error) {
	row := s.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM linked_accounts WHERE id = $1 AND user_id = $2`, accountID, userID)
	a, err := scanAccount(row)
	if err != nil {
		return nil, notFound(err)
	}
	return a, nil
}

func (s *Store) listAccounts(ctx context.Context, where string, args ...any) ([]domain.LinkedAccount, error) {
	rows, err := s.db.Query(ctx, `SELECT `+accountColumns+` FROM linked_accounts `+where+` ORDER BY created_at`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.LinkedAccount
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (s *Store) ListAccounts(ctx context.Context) ([]domain.LinkedAccount, error) {
	out, err := s.listAccounts(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("ListAccounts: %w", err)
	}
	return out, nil
}

func (s *Store) ListAccountsByUser(ctx context.Context, userID string) ([]domain.LinkedAccount, error) {
	out, err := s.listAccounts(ctx, "WHERE user_id = $1", userID)
	if err != nil {
		return nil, fmt.Errorf("ListAccountsByUser: %w", err)
	}
	return out, nil
}

func (s *Store) ListUserIDsWithAccounts(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT DISTINCT user_id FROM linked_accounts ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("ListUserIDsWithAccounts: querying: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("ListUserIDsWithAccounts: scanning: %w", err)
	}
	return ids, nil
}

func (s *Store) SetLastSyncedAt(ctx context.Context, accountID string, at time.Time) error {
	tag, err := s.db.Exec(ctx, `UPDATE linked_accounts SET last_synced_at = $2 WHERE id = $1`, accountID, at)
	if err != nil {
		return fmt.Errorf("SetLastSyncedAt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) UpdateBalance(ctx context.Context, accountID string, balance int64) error {
	tag, err := s.db.Exec(ctx, `UPDATE linked_accounts SET balance = $2 WHERE id = $1`, accountID, balance)
	if err != nil {
		return fmt.Errorf("UpdateBalance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
