// Package analytics derives recurring bills, anchor expenses and daily
// snapshots from stored transactions. Nothing here writes transactions.
package analytics

import (
	"context"
	_ "embed"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Nweremizu/helm/internal/domain"
)

// HistoryMonths is how far back the detectors look.
const HistoryMonths = 3

// Frequency of a recurring bill.
type Frequency string

const (
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

// RecurringKeyword maps a narration keyword to a bill name and category.
type RecurringKeyword struct {
	Keyword  string `yaml:"keyword"`
	Name     string `yaml:"name"`
	Category string `yaml:"category"`
}

// RecurringTransaction is a detected recurring bill.
type RecurringTransaction struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	AmountKobo  int64     `json:"amountKobo"`
	Category    string    `json:"category"`
	Frequency   Frequency `json:"frequency"`
	NextDueDate time.Time `json:"nextDueDate"`
	Confidence  float64   `json:"confidence"`
}

//go:embed recurring_keywords.yaml
var recurringKeywordsYAML []byte

// ParseRecurringKeywords decodes a YAML keyword table. Keywords are uppercased.
func ParseRecurringKeywords(data []byte) ([]RecurringKeyword, error) {
	var kws []RecurringKeyword
	if err := yaml.Unmarshal(data, &kws); err != nil {
		return nil, fmt.Errorf("ParseRecurringKeywords: decode yaml: %w", err)
	}
	for i := range kws {
		kws[i].Keyword = domain.NormalizeKeyword(kws[i].Keyword)
		if kws[i].Keyword == "" {
			return nil, fmt.Errorf("ParseRecurringKeywords: entry %d has no keyword", i)
		}
	}
	return kws, nil
}

// DefaultRecurringKeywords returns the built-in keyword table.
func DefaultRecurringKeywords() []RecurringKeyword {
	kws, err := ParseRecurringKeywords(recurringKeywordsYAML)
	if err != nil {
		panic(err)
	}
	return kws
}

// DebitLister lists a user's debits in a window.
type DebitLister interface {
	ListDebitsSince(ctx context.Context, userID string, since time.Time, withCleanName bool) ([]domain.Transaction, error)
}

// Detector runs the recurring and anchor detectors.
type Detector struct {
	store    DebitLister
	keywords []RecurringKeyword
	now      func() time.Time
}

// NewDetector creates a Detector. A nil keyword table uses the built-in one.
func NewDetector(st DebitLister, keywords []RecurringKeyword, now func() time.Time) *Detector {
	if keywords == nil {
		keywords = DefaultRecurringKeywords()
	}
	if now == nil {
		now = time.Now
	}
	return &Detector{store: st, keywords: keywords, now: now}
}

// DetectRecurring finds keyword-matched bills seen at least twice in the last
// three months, sorted by next due date.
func (d *Detector) DetectRecurring(ctx context.Context, userID string) ([]RecurringTransaction, error) {
	now := d.now()
	txs, err := d.store.ListDebitsSince(ctx, userID, now.AddDate(0, -HistoryMonths, 0), false)
	if err != nil {
		return nil, fmt.Errorf("DetectRecurring: list debits: %w", err)
	}

	upper := make([]string, len(txs))
	for i, tx := range txs {
		upper[i] = strings.ToUpper(tx.OriginalNarration)
	}

	var out []RecurringTransaction
	done := make(map[string]bool)

	for i, tx := range txs {
		for _, kw := range d.keywords {
			if done[kw.Keyword] || !strings.Contains(upper[i], kw.Keyword) {
				continue
			}

			var matches []domain.Transaction
			for j, other := range txs {
				if strings.Contains(upper[j], kw.Keyword) {
					matches = append(matches, other)
				}
			}
			if len(matches) < 2 {
				continue
			}

			var total int64
			dates := make([]time.Time, len(matches))
			for k, m := range matches {
				total += m.Amount
				dates[k] = m.Date
			}
			freq := detectFrequency(dates)

			name := kw.Name
			if tx.CleanName != nil && *tx.CleanName != "" {
				name = *tx.CleanName
			}

			out = append(out, RecurringTransaction{
				ID:          tx.ID,
				Name:        name,
				AmountKobo:  int64(math.Round(float64(total) / float64(len(matches)))),
				Category:    kw.Category,
				Frequency:   freq,
				NextDueDate: predictNextDueDate(matches[0].Date, freq, now),
				Confidence:  math.Min(0.9, 0.5+float64(len(matches))*0.1),
			})
			done[kw.Keyword] = true
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].NextDueDate.Before(out[j].NextDueDate) })
	return out, nil
}

// UpcomingBillsTotal sums the recurring bills due within daysAhead days.
func (d *Detector) UpcomingBillsTotal(ctx context.Context, userID string, daysAhead int) (int64, error) {
	bills, err := d.DetectRecurring(ctx, userID)
	if err != nil {
		return 0, err
	}
	cutoff := d.now().AddDate(0, 0, daysAhead)

	var total int64
	for _, b := range bills {
		if !b.NextDueDate.After(cutoff) {
			total += b.AmountKobo
		}
	}
	return total, nil
}

// detectFrequency classifies the average gap, in whole days, between consecutive dates.
func detectFrequency(dates []time.Time) Frequency {
	if len(dates) < 2 {
		return FrequencyMonthly
	}
	sorted := append([]time.Time(nil), dates...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].After(sorted[j]) })

	var sum float64
	for i := 0; i < len(sorted)-1; i++ {
		sum += math.Round(sorted[i].Sub(sorted[i+1]).Hours() / 24)
	}
	avg := sum / float64(len(sorted)-1)

	switch {
	case avg <= 10:
		return FrequencyWeekly
	case avg <= 45:
		return FrequencyMonthly
	default:
		return FrequencyYearly
	}
}

func advance(t time.Time, f Frequency) time.Time {
	switch f {
	case FrequencyWeekly:
		return t.AddDate(0, 0, 7)
	case FrequencyYearly:
		return t.AddDate(1, 0, 0)
	default:
		return t.AddDate(0, 1, 0)
	}
}

// predictNextDueDate steps forward from last by one period at least once and
// until the result is no longer before now.
func predictNextDueDate(last time.Time, f Frequency, now time.Time) time.Time {
	next := advance(last, f)
	for next.Before(now) {
		next = advance(next, f)
	}
	return next
}
