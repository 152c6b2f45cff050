// Package store defines the persistence operations the pipeline depends on.
// Implementations live in the postgres and memory subpackages.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/Nweremizu/helm/internal/domain"
)

var (
	// ErrNotFound is returned when a looked-up row does not exist.
	ErrNotFound = errors.New("store: not found")
)

// CategorySum is one row of a spend-by-category aggregate. Category is nil for
// transactions that have not been categorized.
type CategorySum struct {
	Category *string
	Total    int64
}

// AccountRepository persists linked bank accounts.
type AccountRepository interface {
	CreateAccount(ctx context.Context, account domain.LinkedAccount) (*domain.LinkedAccount, error)
	GetAccount(ctx context.Context, accountID string) (*domain.LinkedAccount, error)
	// GetAccountForUser returns ErrNotFound when the account belongs to someone else.
	GetAccountForUser(ctx context.Context, accountID, userID string) (*domain.LinkedAccount, error)
	ListAccounts(ctx context.Context) ([]domain.LinkedAccount, error)
	ListAccountsByUser(ctx context.Context, userID string) ([]domain.LinkedAccount, error)
	ListUserIDsWithAccounts(ctx context.Context) ([]string, error)
	SetLastSyncedAt(ctx context.Context, accountID string, at time.Time) error
	UpdateBalance(ctx context.Context, accountID string, balance int64) error
}

// TransactionRepository persists bank transactions and their enrichment.
type TransactionRepository interface {
	// CreateIfAbsent inserts tx unless a row with the same ExternalID exists.
	// created is false when the row already existed, including when a concurrent
	// insert won the unique constraint.
	CreateIfAbsent(ctx context.Context, tx domain.NewTransaction) (id string, created bool, err error)
	GetTransactions(ctx context.Context, ids []string) ([]domain.Transaction, error)
	// ListUnprocessed returns the subset of ids whose IsProcessed flag is false.
	ListUnprocessed(ctx context.Context, ids []string) ([]domain.Transaction, error)
	// ListUnprocessedIDs returns up to limit unprocessed ids, oldest first.
	ListUnprocessedIDs(ctx context.Context, limit int) ([]string, error)

	// ApplyRuleMatch writes the rule's labels to the transaction, marks it
	// processed and increments the rule's match count in one unit.
	ApplyRuleMatch(ctx context.Context, transactionID string, rule domain.MerchantRule) error
	// ApplyEnrichment writes labels and marks the transaction processed.
	ApplyEnrichment(ctx context.Context, transactionID string, e domain.Enrichment) error
	// MarkProcessedWithCategory marks every id processed with the given category and icon,
	// leaving clean names untouched.
	MarkProcessedWithCategory(ctx context.Context, ids []string, category, icon string) error

	// ListPriorByCleanName returns the user's transactions with cleanName dated strictly
	// before `before`, newest first.
	ListPriorByCleanName(ctx context.Context, userID, cleanName string, before time.Time, limit int) ([]domain.Transaction, error)
	// ListSimilarInWindow returns the user's transactions other than excludeID with the
	// same amount and clean name (nil matches nil) whose date lies in [from, to].
	ListSimilarInWindow(ctx context.Context, userID, excludeID string, amount int64, cleanName *string, from, to time.Time) ([]domain.Transaction, error)
	// SumDebitsByCategory aggregates DEBIT amounts dated in [from, to).
	SumDebitsByCategory(ctx context.Context, userID string, from, to time.Time) ([]CategorySum, error)
	// SumByType aggregates amounts dated in [from, to) per transaction type.
	SumByType(ctx context.Context, userID string, from, to time.Time) (map[domain.TransactionType]int64, error)
	// ListDebitsSince returns DEBIT transactions dated on or after since, newest first.
	ListDebitsSince(ctx context.Context, userID string, since time.Time, withCleanName bool) ([]domain.Transaction, error)
}

// RuleRepository persists merchant rules.
type RuleRepository interface {
	// ListRules returns all rules ordered by creation time, then id.
	ListRules(ctx context.Context) ([]domain.MerchantRule, error)
	// UpsertLearnedRule creates the rule with MatchCount 1, or increments the
	// match count of the existing rule with the same keyword.
	UpsertLearnedRule(ctx context.Context, rule domain.MerchantRule) (created bool, err error)
	// CreateRuleIfAbsent inserts a seed rule, leaving an existing keyword untouched.
	CreateRuleIfAbsent(ctx context.Context, rule domain.MerchantRule) (created bool, err error)
}

// InsightRepository persists insights.
type InsightRepository interface {
	CreateInsight(ctx context.Context, in domain.NewInsight) (*domain.Insight, error)
	// CreateInsightIfAbsent inserts unless an insight with the same related
	// transaction and title exists. in.RelatedTransactionID must be set.
	CreateInsightIfAbsent(ctx context.Context, in domain.NewInsight) (created bool, err error)
	GetInsight(ctx context.Context, insightID string) (*domain.Insight, error)
	// ListActiveTitles returns titles of unarchived insights of type t created at or after since.
	ListActiveTitles(ctx context.Context, userID string, t domain.InsightType, since time.Time) ([]string, error)
	// ListUnread returns unread, unarchived insights newest first.
	ListUnread(ctx context.Context, userID string, limit int) ([]domain.Insight, error)
	MarkRead(ctx context.Context, insightID string) error
	// ArchiveCreatedBefore archives every unarchived insight created before cutoff.
	ArchiveCreatedBefore(ctx context.Context, cutoff, archivedAt time.Time) (int64, error)
}

// SnapshotRepository persists daily snapshots.
type SnapshotRepository interface {
	UpsertSnapshot(ctx context.Context, s domain.DailySnapshot) error
	ListSnapshots(ctx context.Context, userID string, since time.Time) ([]domain.DailySnapshot, error)
}

// Store groups every repository. Components depend on the narrow interfaces.
type Store interface {
	AccountRepository
	TransactionRepository
	RuleRepository
	InsightRepository
	SnapshotRepository
	Close()
}
