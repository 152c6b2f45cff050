package insights

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Nweremizu/helm/internal/domain"
	"github.com/Nweremizu/helm/internal/money"
	"github.com/Nweremizu/helm/internal/store"
)

// Trend thresholds, amounts in kobo.
const (
	MinBaselineKobo    = 100_000 // ₦1,000
	MinIncreaseKobo    = 50_000  // ₦500
	TrendWarningRatio  = 0.2
	TrendCriticalRatio = 0.5
)

// TrendStore is the persistence the trend generator needs.
type TrendStore interface {
	SumDebitsByCategory(ctx context.Context, userID string, from, to time.Time) ([]store.CategorySum, error)
	ListActiveTitles(ctx context.Context, userID string, t domain.InsightType, since time.Time) ([]string, error)
	CreateInsight(ctx context.Context, in domain.NewInsight) (*domain.Insight, error)
}

// TrendGenerator compares month-to-date category spend with the same span last month.
type TrendGenerator struct {
	store TrendStore
	loc   *time.Location
	now   func() time.Time
	log   zerolog.Logger
}

// NewTrendGenerator creates a TrendGenerator computing month windows in loc.
func NewTrendGenerator(st TrendStore, loc *time.Location, now func() time.Time, log zerolog.Logger) *TrendGenerator {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &TrendGenerator{store: st, loc: loc, now: now, log: log.With().Str("component", "trend").Logger()}
}

// Window is a half-open time range [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// TrendWindows returns the current month-to-date window (through the end of
// today) and the matching window of the previous month, which never extends
// into the current month.
func TrendWindows(now time.Time) (current, previous Window) {
	y, m, d := now.Date()
	loc := now.Location()

	current = Window{
		Start: time.Date(y, m, 1, 0, 0, 0, 0, loc),
		End:   time.Date(y, m, d+1, 0, 0, 0, 0, loc),
	}

	// time.Date normalizes day overflow, so March 31 maps to the day after March 3 here.
	sameDayLastMonth := time.Date(y, m-1, d, 0, 0, 0, 0, loc)
	prevEnd := sameDayLastMonth.AddDate(0, 0, 1)
	if prevEnd.After(current.Start) {
		prevEnd = current.Start
	}
	previous = Window{
		Start: time.Date(y, m-1, 1, 0, 0, 0, 0, loc),
		End:   prevEnd,
	}
	return current, previous
}

// EnsureOverspendingTrendInsights creates at most one TREND insight per category
// per month for categories whose spend grew significantly.
func (g *TrendGenerator) EnsureOverspendingTrendInsights(ctx context.Context, userID string) (int, error) {
	current, previous := TrendWindows(g.now().In(g.loc))

	titles, err := g.store.ListActiveTitles(ctx, userID, domain.InsightTypeTrend, current.Start)
	if err != nil {
		return 0, fmt.Errorf("EnsureOverspendingTrendInsights: list titles: %w", err)
	}
	existing := make(map[string]bool, len(titles))
	for _, t := range titles {
		existing[t] = true
	}

	cur, err := g.store.SumDebitsByCategory(ctx, userID, current.Start, current.End)
	if err != nil {
		return 0, fmt.Errorf("EnsureOverspendingTrendInsights: current sums: %w", err)
	}
	prev, err := g.store.SumDebitsByCategory(ctx, userID, previous.Start, previous.End)
	if err != nil {
		return 0, fmt.Errorf("EnsureOverspendingTrendInsights: previous sums: %w", err)
	}

	prevByCat := make(map[string]int64, len(prev))
	for _, row := range prev {
		prevByCat[categoryKey(row.Category)] += row.Total
	}

	created := 0
	for _, row := range cur {
		category := categoryKey(row.Category)
		if ignoredTrendCategory(category) {
			continue
		}

		currentKobo := row.Total
		prevKobo := prevByCat[category]
		if prevKobo < MinBaselineKobo || currentKobo <= prevKobo {
			continue
		}
		increase := currentKobo - prevKobo
		if increase < MinIncreaseKobo {
			continue
		}
		ratio := float64(increase) / float64(prevKobo)
		if ratio < TrendWarningRatio {
			continue
		}

		title := TrendTitle(category)
		if existing[title] {
			continue
		}

		severity := domain.SeverityWarning
		if ratio >= TrendCriticalRatio {
			severity = domain.SeverityCritical
		}

		if _, err := g.store.CreateInsight(ctx, domain.NewInsight{
			UserID:   userID,
			Type:     domain.InsightTypeTrend,
			Title:    title,
			Message:  TrendMessage(category, int64(math.Round(ratio*100)), currentKobo, prevKobo),
			Severity: severity,
		}); err != nil {
			return created, fmt.Errorf("EnsureOverspendingTrendInsights: create %q: %w", title, err)
		}
		existing[title] = true
		created++
	}

	if created > 0 {
		g.log.Info().Str("user_id", userID).Int("insights", created).Msg("Trend insights created")
	}
	return created, nil
}

func categoryKey(c *string) string {
	if c == nil {
		return domain.CategoryUncategorized
	}
	return strings.TrimSpace(*c)
}

func ignoredTrendCategory(category string) bool {
	switch strings.ToLower(category) {
	case "income", "transfer", "uncategorized":
		return true
	}
	return false
}

// TrendTitle is the title of an overspending trend insight.
func TrendTitle(category string) string {
	return "Spending up: " + category
}

// TrendMessage renders the trend insight body.
func TrendMessage(category string, pct, currentKobo, prevKobo int64) string {
	return fmt.Sprintf("You spent %d%% more on %s this month (%s vs %s last month-to-date).",
		pct, category, money.FormatNaira(currentKobo), money.FormatNaira(prevKobo))
}
