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

const transactionColumns = `id, user_id, account_id, external_id, amount, type, date, balance,
	original_narration, currency, raw_bank_data, clean_name, clean_category, icon,
	is_processed, is_recurring, created_at`

func scanTransaction(row pgx.Row) (domain.Transaction, error) {
	var (
		t       domain.Transaction
		txType  string
		rawData []byte
	)
	err := row.Scan(&t.ID, &t.UserID, &t.AccountID, &t.ExternalID, &t.Amount, &txType, &t.Date, &t.Balance,
		&t.OriginalNarration, &t.Currency, &rawData, &t.CleanName, &t.CleanCategory, &t.Icon,
		&t.IsProcessed, &t.IsRecurring, &t.CreatedAt)
	if err != nil {
		return domain.Transaction{}, err
	}
	t.Type = domain.TransactionType(txType)
	t.RawBankData = rawData
	return t, nil
}

func (s *Store) queryTransactions(ctx context.Context, sql string, args ...any) ([]domain.Transaction, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// CreateIfAbsent relies on the external_id unique constraint, so concurrent
// syncs of the same history never produce duplicate rows.
func (s *Store) CreateIfAbsent(ctx context.Context, in domain.NewTransaction) (string, bool, error) {
	currency := in.Currency
	if currency == "" {
		currency = "NGN"
	}
	var raw any
	if len(in.RawBankData) > 0 {
		raw = []byte(in.RawBankData)
	}

	var id string
	err := s.db.QueryRow(ctx, `
		INSERT INTO transactions (id, user_id, account_id, external_id, amount, type, date, balance,
			original_narration, currency, raw_bank_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (external_id) DO NOTHING
		RETURNING id`,
		uuid.New().String(), in.UserID, in.AccountID, in.ExternalID, in.Amount, string(in.Type), in.Date,
		in.Balance, in.OriginalNarration, currency, raw,
	).Scan(&id)

	switch {
	case err == nil:
		return id, true, nil
	case errors.Is(err, pgx.ErrNoRows), isUniqueViolation(err):
		// Row already present; look up its id.
	default:
		return "", false, fmt.Errorf("CreateIfAbsent: inserting %s: %w", in.ExternalID, err)
	}

	if err := s.db.QueryRow(ctx, `SELECT id FROM transactions WHERE external_id = $1`, in.ExternalID).Scan(&id); err != nil {
		return "", false, fmt.Errorf("CreateIfAbsent: reading existing %s: %w", in.ExternalID, err)
	}
	return id, false, nil
}

func (s *Store) GetTransactions(ctx context.Context, ids []string) ([]domain.Transaction, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	out, err := s.queryTransactions(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("GetTransactions: %w", err)
	}
	return out, nil
}

func (s *Store) ListUnprocessed(ctx context.Context, ids []string) ([]domain.Transaction, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	out, err := s.queryTransactions(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE id = ANY($1) AND is_processed = FALSE
		ORDER BY created_at, id`, ids)
	if err != nil {
		return nil, fmt.Errorf("ListUnprocessed: %w", err)
	}
	return out, nil
}

func (s *Store) ListUnprocessedIDs(ctx context.Context, limit int) ([]string, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id FROM transactions
		WHERE is_processed = FALSE
		ORDER BY created_at, id
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("ListUnprocessedIDs: querying: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("ListUnprocessedIDs: scanning: %w", err)
	}
	return ids, nil
}

func (s *Store) ApplyRuleMatch(ctx context.Context, transactionID string, rule domain.MerchantRule) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ApplyRuleMatch: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE transactions
		SET clean_name = $2, clean_category = $3, icon = $4, is_processed = TRUE
		WHERE id = $1`,
		transactionID, rule.CleanName, rule.Category, rule.Icon)
	if err != nil {
		return fmt.Errorf("ApplyRuleMatch: updating transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}

	if _, err := tx.Exec(ctx, `UPDATE merchant_rules SET match_count = match_count + 1 WHERE id = $1`, rule.ID); err != nil {
		return fmt.Errorf("ApplyRuleMatch: incrementing rule: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("ApplyRuleMatch: commit: %w", err)
	}
	return nil
}

func (s *Store) ApplyEnrichment(ctx context.Context, transactionID string, e domain.Enrichment) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE transactions
		SET clean_name = COALESCE($2, clean_name), clean_category = $3, icon = $4, is_processed = TRUE
		WHERE id = $1`,
		transactionID, e.CleanName, e.CleanCategory, e.Icon)
	if err != nil {
		return fmt.Errorf("ApplyEnrichment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) MarkProcessedWithCategory(ctx context.Context, ids []string, category, icon string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.db.Exec(ctx, `
		UPDATE transactions
		SET clean_category = $2, icon = $3, is_processed = TRUE
		WHERE id = ANY($1)`,
		ids, category, icon)
	if err != nil {
		return fmt.Errorf("MarkProcessedWithCategory: %w", err)
	}
	return nil
}

func (s *Store) ListPriorByCleanName(ctx context.Context, userID, cleanName string, before time.Time, limit int) ([]domain.Transaction, error) {
	out, err := s.queryTransactions(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE user_id = $1 AND clean_name = $2 AND date < $3
		ORDER BY date DESC, created_at DESC
		LIMIT $4`,
		userID, cleanName, before, limit)
	if err != nil {
		return nil, fmt.Errorf("ListPriorByCleanName: %w", err)
	}
	return out, nil
}

func (s *Store) ListSimilarInWindow(ctx context.Context, userID, excludeID string, amount int64, cleanName *string, from, to time.Time) ([]domain.Transaction, error) {
	out, err := s.queryTransactions(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE user_id = $1 AND id <> $2 AND amount = $3
		  AND clean_name IS NOT DISTINCT FROM $4
		  AND date >= $5 AND date <= $6
		ORDER BY date DESC`,
		userID, excludeID, amount, cleanName, from, to)
	if err != nil {
		return nil, fmt.Errorf("ListSimilarInWindow: %w", err)
	}
	return out, nil
}

func (s *Store) SumDebitsByCategory(ctx context.Context, userID string, from, to time.Time) ([]store.CategorySum, error) {
	rows, err := s.db.Query(ctx, `
		SELECT clean_category, COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE user_id = $1 AND type = 'DEBIT' AND date >= $2 AND date < $3
		GROUP BY clean_category
		ORDER BY clean_category NULLS LAST`,
		userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("SumDebitsByCategory: querying: %w", err)
	}
	defer rows.Close()

	var out []store.CategorySum
	for rows.Next() {
		var cs store.CategorySum
		if err := rows.Scan(&cs.Category, &cs.Total); err != nil {
			return nil, fmt.Errorf("SumDebitsByCategory: scanning: %w", err)
		}
		out = append(out, cs)
	}
	return out, rows.Err()
}

func (s *Store) SumByType(ctx context.Context, userID string, from, to time.Time) (map[domain.TransactionType]int64, error) {
	rows, err := s.db.Query(ctx, `
		SELECT type, COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE user_id = $1 AND date >= $2 AND date < $3
		GROUP BY type`,
		userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("SumByType: querying: %w", err)
	}
	defer rows.Close()

	out := make(map[domain.TransactionType]int64)
	for rows.Next() {
		var (
			t     string
			total int64
		)
		if err := rows.Scan(&t, &total); err != nil {
			return nil, fmt.Errorf("SumByType: scanning: %w", err)
		}
		out[domain.TransactionType(t)] = total
	}
	return out, rows.Err()
}

func (s *Store) ListDebitsSince(ctx context.Context, userID string, since time.Time, withCleanName bool) ([]domain.Transaction, error) {
	out, err := s.queryTransactions(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE user_id = $1 AND type = 'DEBIT' AND date >= $2
		  AND ($3 = FALSE OR clean_name IS NOT NULL)
		ORDER BY date DESC`,
		userID, since, withCleanName)
	if err != nil {
		return nil, fmt.Errorf("ListDebitsSince: %w", err)
	}
	return out, nil
}
