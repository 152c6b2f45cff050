package analytics

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"
)

// Anchor detection limits.
const (
	maxAnchorVariancePct = 10.0
	minAnchorConfidence  = 60
	maxAnchors           = 10
)

// SuggestedAnchor is a merchant the user pays a near-constant amount.
type SuggestedAnchor struct {
	MerchantName  string    `json:"merchantName"`
	Category      *string   `json:"category"`
	AvgAmountKobo int64     `json:"avgAmountKobo"`
	Occurrences   int       `json:"occurrences"`
	Confidence    int       `json:"confidence"`
	LastSeen      time.Time `json:"lastSeen"`
}

type merchantGroup struct {
	name     string
	category *string
	lastSeen time.Time
	amounts  []int64
}

// DetectAnchors groups the last three months of named debits by merchant and
// suggests those whose amounts vary by at most 10% around the mean.
func (d *Detector) DetectAnchors(ctx context.Context, userID string) ([]SuggestedAnchor, error) {
	txs, err := d.store.ListDebitsSince(ctx, userID, d.now().AddDate(0, -HistoryMonths, 0), true)
	if err != nil {
		return nil, fmt.Errorf("DetectAnchors: list debits: %w", err)
	}

	// Transactions arrive newest first, so the first row of a group is its latest.
	var groups []*merchantGroup
	byName := make(map[string]*merchantGroup)
	for _, tx := range txs {
		if tx.CleanName == nil {
			continue
		}
		g, ok := byName[*tx.CleanName]
		if !ok {
			g = &merchantGroup{name: *tx.CleanName, category: tx.CleanCategory, lastSeen: tx.Date}
			byName[g.name] = g
			groups = append(groups, g)
		}
		g.amounts = append(g.amounts, tx.Amount)
	}

	var out []SuggestedAnchor
	for _, g := range groups {
		n := len(g.amounts)
		if n < 2 {
			continue
		}

		var sum float64
		for _, a := range g.amounts {
			sum += float64(a)
		}
		avg := sum / float64(n)
		if avg <= 0 {
			continue
		}

		var dev float64
		for _, a := range g.amounts {
			dev += math.Abs(float64(a) - avg)
		}
		variancePct := dev / float64(n) / avg * 100
		if variancePct > maxAnchorVariancePct {
			continue
		}

		confidence := int(math.Round(math.Min(100, 50+float64(n)*10+(10-variancePct)*2)))
		if confidence < minAnchorConfidence {
			continue
		}

		out = append(out, SuggestedAnchor{
			MerchantName:  g.name,
			Category:      g.category,
			AvgAmountKobo: int64(math.Round(avg)),
			Occurrences:   n,
			Confidence:    confidence,
			LastSeen:      g.lastSeen,
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	if len(out) > maxAnchors {
		out = out[:maxAnchors]
	}
	return out, nil
}
