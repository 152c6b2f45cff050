// Package insights produces user-facing alerts and trends from transaction history.
package insights

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Nweremizu/helm/internal/domain"
	"github.com/Nweremizu/helm/internal/money"
	"github.com/Nweremizu/helm/internal/store"
)

// Scanner thresholds.
const (
	PriceHikeWarningPct  = 10.0
	PriceHikeCriticalPct = 20.0
	priceHistoryLimit    = 5

	DoubleChargeWindow = 30 * time.Minute

	DoubleChargeTitle = "Potential Double Charge"
)

// ScannerStore is the persistence the scanner needs.
type ScannerStore interface {
	GetTransactions(ctx context.Context, ids []string) ([]domain.Transaction, error)
	ListPriorByCleanName(ctx context.Context, userID, cleanName string, before time.Time, limit int) ([]domain.Transaction, error)
	ListSimilarInWindow(ctx context.Context, userID, excludeID string, amount int64, cleanName *string, from, to time.Time) ([]domain.Transaction, error)
	CreateInsightIfAbsent(ctx context.Context, in domain.NewInsight) (bool, error)
}

var _ ScannerStore = (store.Store)(nil)

// Scanner looks for price hikes and double charges among newly synced transactions.
type Scanner struct {
	store ScannerStore
	log   zerolog.Logger
}

// NewScanner creates a Scanner.
func NewScanner(st ScannerStore, log zerolog.Logger) *Scanner {
	return &Scanner{store: st, log: log.With().Str("component", "scanner").Logger()}
}

// Scan runs both detectors. Failures are logged and never returned, so a
// sync is never failed by its scan. It returns the number of insights created.
func (s *Scanner) Scan(ctx context.Context, userID string, newTransactionIDs []string) int {
	if len(newTransactionIDs) == 0 {
		s.log.Debug().Msg("No new transactions to scan")
		return 0
	}
	log := s.log.With().Str("user_id", userID).Int("count", len(newTransactionIDs)).Logger()

	txs, err := s.store.GetTransactions(ctx, newTransactionIDs)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load transactions for scan")
		return 0
	}

	created := 0
	n, err := s.detectPriceHikes(ctx, userID, txs)
	created += n
	if err != nil {
		log.Error().Err(err).Msg("Price hike detection failed")
	}

	n, err = s.detectDoubleCharges(ctx, userID, txs)
	created += n
	if err != nil {
		log.Error().Err(err).Msg("Double charge detection failed")
	}

	log.Info().Int("insights", created).Msg("Scan complete")
	return created
}

func (s *Scanner) detectPriceHikes(ctx context.Context, userID string, txs []domain.Transaction) (int, error) {
	created := 0
	for _, tx := range txs {
		if tx.CleanName == nil {
			continue
		}
		name := *tx.CleanName

		prior, err := s.store.ListPriorByCleanName(ctx, userID, name, tx.Date, priceHistoryLimit)
		if err != nil {
			return created, fmt.Errorf("detectPriceHikes: list prior for %s: %w", tx.ID, err)
		}
		if len(prior) == 0 || prior[0].Amount <= 0 {
			continue
		}

		prev := prior[0].Amount
		pct := money.PercentChange(prev, tx.Amount)
		if pct <= PriceHikeWarningPct {
			continue
		}

		severity := domain.SeverityWarning
		if pct > PriceHikeCriticalPct {
			severity = domain.SeverityCritical
		}

		ok, err := s.store.CreateInsightIfAbsent(ctx, domain.NewInsight{
			UserID:               userID,
			Type:                 domain.InsightTypeAlert,
			Title:                PriceHikeTitle(name),
			Message:              PriceHikeMessage(name, prev, tx.Amount, pct),
			Severity:             severity,
			RelatedTransactionID: domain.StringPtr(tx.ID),
		})
		if err != nil {
			return created, fmt.Errorf("detectPriceHikes: create insight for %s: %w", tx.ID, err)
		}
		if ok {
			created++
			s.log.Info().Str("name", name).Float64("pct", pct).Msg("Price hike detected")
		}
	}
	return created, nil
}

func (s *Scanner) detectDoubleCharges(ctx context.Context, userID string, txs []domain.Transaction) (int, error) {
	created := 0
	for _, tx := range txs {
		dups, err := s.store.ListSimilarInWindow(ctx, userID, tx.ID, tx.Amount, tx.CleanName,
			tx.Date.Add(-DoubleChargeWindow), tx.Date.Add(DoubleChargeWindow))
		if err != nil {
			return created, fmt.Errorf("detectDoubleCharges: list similar for %s: %w", tx.ID, err)
		}
		if len(dups) == 0 {
			continue
		}

		// Uncategorized rows are named by their raw narration.
		name := tx.OriginalNarration
		if tx.CleanName != nil {
			name = *tx.CleanName
		}

		ok, err := s.store.CreateInsightIfAbsent(ctx, domain.NewInsight{
			UserID:               userID,
			Type:                 domain.InsightTypeAlert,
			Title:                DoubleChargeTitle,
			Message:              DoubleChargeMessage(name, tx.Amount),
			Severity:             domain.SeverityCritical,
			RelatedTransactionID: domain.StringPtr(tx.ID),
		})
		if err != nil {
			return created, fmt.Errorf("detectDoubleCharges: create insight for %s: %w", tx.ID, err)
		}
		if ok {
			created++
			s.log.Info().Str("name", name).Str("amount", money.NairaString(tx.Amount)).Msg("Double charge detected")
		}
	}
	return created, nil
}

// PriceHikeTitle is the title of a price hike alert.
func PriceHikeTitle(name string) string {
	return "Price Hike: " + name
}

// PriceHikeMessage renders the price hike alert body.
func PriceHikeMessage(name string, prev, curr int64, pct float64) string {
	return fmt.Sprintf("Your %s subscription increased from ₦%s to ₦%s (+₦%s, %.1f%% increase).",
		name, money.NairaString(prev), money.NairaString(curr), money.NairaString(curr-prev), pct)
}

// DoubleChargeMessage renders the double charge alert body.
func DoubleChargeMessage(name string, amount int64) string {
	return fmt.Sprintf("Two transactions for ₦%s (%s) detected within 30 minutes. "+
		"This might be a duplicate charge. Review and report if unauthorized.", money.NairaString(amount), name)
}
