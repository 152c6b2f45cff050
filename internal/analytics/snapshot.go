package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"github.com/Nweremizu/helm/internal/bank"
	"github.com/Nweremizu/helm/internal/domain"
	"github.com/Nweremizu/helm/internal/money"
)

// SnapshotStore is the persistence the snapshot recorder needs.
type SnapshotStore interface {
	ListAccountsByUser(ctx context.Context, userID string) ([]domain.LinkedAccount, error)
	ListUserIDsWithAccounts(ctx context.Context) ([]string, error)
	UpdateBalance(ctx context.Context, accountID string, balance int64) error
	SumByType(ctx context.Context, userID string, from, to time.Time) (map[domain.TransactionType]int64, error)
	UpsertSnapshot(ctx context.Context, s domain.DailySnapshot) error
	ListSnapshots(ctx context.Context, userID string, since time.Time) ([]domain.DailySnapshot, error)
}

// BalanceFetcher reads a live account balance from the bank.
type BalanceFetcher interface {
	FetchBalance(ctx context.Context, externalAccountID string) (int64, error)
}

// NetWorthPoint is one day of the net worth trend.
type NetWorthPoint struct {
	Date         string  `json:"date"`
	BalanceKobo  int64   `json:"balanceKobo"`
	BalanceNaira float64 `json:"balanceNaira"`
}

// SnapshotRecorder captures one balance/income/expense row per user per day.
type SnapshotRecorder struct {
	store SnapshotStore
	bank  BalanceFetcher
	loc   *time.Location
	now   func() time.Time
	log   zerolog.Logger
}

// NewSnapshotRecorder creates a SnapshotRecorder. Days are cut in loc.
func NewSnapshotRecorder(st SnapshotStore, bf BalanceFetcher, loc *time.Location, now func() time.Time, log zerolog.Logger) *SnapshotRecorder {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &SnapshotRecorder{store: st, bank: bf, loc: loc, now: now, log: log.With().Str("component", "snapshot").Logger()}
}

// CaptureDailySnapshot refreshes each account balance from the bank, falling
// back to the stored balance, and upserts today's snapshot.
func (r *SnapshotRecorder) CaptureDailySnapshot(ctx context.Context, userID string) (domain.DailySnapshot, error) {
	local := r.now().In(r.loc)
	today := civil.DateOf(local)
	start := today.In(r.loc)
	tomorrow := today.AddDays(1).In(r.loc)

	accounts, err := r.store.ListAccountsByUser(ctx, userID)
	if err != nil {
		return domain.DailySnapshot{}, fmt.Errorf("CaptureDailySnapshot: list accounts: %w", err)
	}

	var totalBalance int64
	for _, acc := range accounts {
		balance, err := r.freshBalance(ctx, acc)
		if err != nil {
			totalBalance += acc.Balance
			continue
		}
		if err := r.store.UpdateBalance(ctx, acc.ID, balance); err != nil {
			return domain.DailySnapshot{}, fmt.Errorf("CaptureDailySnapshot: update balance: %w", err)
		}
		totalBalance += balance
	}

	sums, err := r.store.SumByType(ctx, userID, start, tomorrow)
	if err != nil {
		return domain.DailySnapshot{}, fmt.Errorf("CaptureDailySnapshot: sum by type: %w", err)
	}

	snap := domain.DailySnapshot{
		UserID:       userID,
		Date:         today,
		TotalBalance: totalBalance,
		TotalIncome:  sums[domain.TransactionTypeCredit],
		TotalExpense: sums[domain.TransactionTypeDebit],
	}
	if err := r.store.UpsertSnapshot(ctx, snap); err != nil {
		return domain.DailySnapshot{}, fmt.Errorf("CaptureDailySnapshot: upsert: %w", err)
	}

	r.log.Info().
		Str("user_id", userID).
		Int64("balance", snap.TotalBalance).
		Int64("income", snap.TotalIncome).
		Int64("expense", snap.TotalExpense).
		Msg("Snapshot captured")
	return snap, nil
}

func (r *SnapshotRecorder) freshBalance(ctx context.Context, acc domain.LinkedAccount) (int64, error) {
	if r.bank == nil {
		return 0, bank.ErrNoBalance
	}
	balance, err := r.bank.FetchBalance(ctx, acc.ExternalAccountID)
	if err != nil {
		if !errors.Is(err, bank.ErrNoBalance) {
			r.log.Warn().Err(err).Str("account_id", acc.ID).Msg("Failed to fetch balance, using stored value")
		}
		return 0, err
	}
	// A zero balance from the bank is treated as missing.
	if balance == 0 {
		return 0, bank.ErrNoBalance
	}
	return balance, nil
}

// CaptureAll snapshots every user with a linked account and returns how many succeeded.
func (r *SnapshotRecorder) CaptureAll(ctx context.Context) (int, error) {
	users, err := r.store.ListUserIDsWithAccounts(ctx)
	if err != nil {
		return 0, fmt.Errorf("CaptureAll: list users: %w", err)
	}

	r.log.Info().Int("users", len(users)).Msg("Capturing snapshots")

	ok := 0
	for _, userID := range users {
		if _, err := r.CaptureDailySnapshot(ctx, userID); err != nil {
			r.log.Error().Err(err).Str("user_id", userID).Msg("Snapshot failed")
			continue
		}
		ok++
	}
	return ok, nil
}

// NetWorthTrend returns daily balances for the last days days, oldest first.
func (r *SnapshotRecorder) NetWorthTrend(ctx context.Context, userID string, days int) ([]NetWorthPoint, error) {
	if days <= 0 {
		days = 30
	}
	snaps, err := r.store.ListSnapshots(ctx, userID, r.now().AddDate(0, 0, -days))
	if err != nil {
		return nil, fmt.Errorf("NetWorthTrend: %w", err)
	}

	out := make([]NetWorthPoint, len(snaps))
	for i, s := range snaps {
		out[i] = NetWorthPoint{
			Date:         s.Date.String(),
			BalanceKobo:  s.TotalBalance,
			BalanceNaira: money.KoboToNaira(s.TotalBalance).InexactFloat64(),
		}
	}
	return out, nil
}
