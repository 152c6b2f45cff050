package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Nweremizu/helm/internal/domain"
)

func (s *Store) ListRules(ctx context.Context) ([]domain.MerchantRule, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, keyword, clean_name, category, icon, match_count, created_at
		FROM merchant_rules
		ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("ListRules: querying: %w", err)
	}
	defer rows.Close()

	var out []domain.MerchantRule
	for rows.Next() {
		var r domain.MerchantRule
		if err := rows.Scan(&r.ID, &r.Keyword, &r.CleanName, &r.Category, &r.Icon, &r.MatchCount, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("ListRules: scanning: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpsertLearnedRule reports created=true when the insert path ran (xmax = 0).
func (s *Store) UpsertLearnedRule(ctx context.Context, rule domain.MerchantRule) (bool, error) {
	var created bool
	err := s.db.QueryRow(ctx, `
		INSERT INTO merchant_rules (id, keyword, clean_name, category, icon, match_count)
		VALUES ($1, $2, $3, $4, $5, 1)
		ON CONFLICT (keyword) DO UPDATE SET match_count = merchant_rules.match_count + 1
		RETURNING (xmax = 0)`,
		uuid.New().String(), domain.NormalizeKeyword(rule.Keyword), rule.CleanName, rule.Category, rule.Icon,
	).Scan(&created)
	if err != nil {
		return false, fmt.Errorf("UpsertLearnedRule: %s: %w", rule.Keyword, err)
	}
	return created, nil
}

func (s *Store) CreateRuleIfAbsent(ctx context.Context, rule domain.MerchantRule) (bool, error) {
	var id string
	err := s.db.QueryRow(ctx, `
		INSERT INTO merchant_rules (id, keyword, clean_name, category, icon, match_count)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (keyword) DO NOTHING
		RETURNING id`,
		uuid.New().String(), domain.NormalizeKeyword(rule.Keyword), rule.CleanName, rule.Category, rule.Icon, rule.MatchCount,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("CreateRuleIfAbsent: %s: %w", rule.Keyword, err)
	}
	return true, nil
}
