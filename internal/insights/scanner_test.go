package insights

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nweremizu/helm/internal/domain"
	"github.com/Nweremizu/helm/internal/logger"
	"github.com/Nweremizu/helm/internal/store/memory"
)

var t0 = time.Date(2025, 4, 15, 10, 0, 0, 0, time.UTC)

func debit(st *memory.Store, name *string, amount int64, at time.Time) domain.Transaction {
	return st.Insert(domain.Transaction{
		UserID:            "user-1",
		AccountID:         "acc-1",
		Amount:            amount,
		Type:              domain.TransactionTypeDebit,
		Date:              at,
		OriginalNarration: "POS WEB PURCHASE " + domain.Deref(name),
		CleanName:         name,
		IsProcessed:       name != nil,
	})
}

func TestScanner_PriceHike(t *testing.T) {
	tests := []struct {
		name     string
		prev     int64
		curr     int64
		want     int
		severity domain.Severity
		message  string
	}{
		{"below threshold", 450000, 470000, 0, "", ""},
		{"exactly ten percent", 450000, 495000, 0, "", ""},
		{"fifteen percent warns", 400000, 460000, 1, domain.SeverityWarning,
			"Your Netflix subscription increased from ₦4000.00 to ₦4600.00 (+₦600.00, 15.0% increase)."},
		{"thirty percent is critical", 400000, 520000, 1, domain.SeverityCritical,
			"Your Netflix subscription increased from ₦4000.00 to ₦5200.00 (+₦1200.00, 30.0% increase)."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := memory.New()
			netflix := domain.StringPtr("Netflix")
			debit(st, netflix, 100000, t0.AddDate(0, -2, 0))
			debit(st, netflix, tt.prev, t0.AddDate(0, -1, 0))
			tx := debit(st, netflix, tt.curr, t0)

			s := NewScanner(st, logger.Nop())
			assert.Equal(t, tt.want, s.Scan(context.Background(), "user-1", []string{tx.ID}))

			got := st.Insights("user-1")
			require.Len(t, got, tt.want)
			if tt.want == 0 {
				return
			}
			assert.Equal(t, "Price Hike: Netflix", got[0].Title)
			assert.Equal(t, domain.InsightTypeAlert, got[0].Type)
			assert.Equal(t, tt.severity, got[0].Severity)
			assert.Equal(t, tt.message, got[0].Message)
			assert.Equal(t, tx.ID, domain.Deref(got[0].RelatedTransactionID))
		})
	}
}

func TestScanner_PriceHikeIgnoresSameInstantAndOtherUsers(t *testing.T) {
	st := memory.New()
	dstv := domain.StringPtr("DStv")
	debit(st, dstv, 100000, t0)
	st.Insert(domain.Transaction{UserID: "user-2", Amount: 100000, Type: domain.TransactionTypeDebit, Date: t0.Add(-time.Hour), CleanName: dstv})
	tx := debit(st, dstv, 900000, t0)

	n := NewScanner(st, logger.Nop()).Scan(context.Background(), "user-1", []string{tx.ID})
	// The same-instant row is a double charge candidate only if amounts match, which they do not.
	assert.Zero(t, n)
}

func TestScanner_DoubleChargeWindow(t *testing.T) {
	tests := []struct {
		name string
		gap  time.Duration
		want int
	}{
		{"29 minutes apart", 29 * time.Minute, 1},
		{"exactly 30 minutes", 30 * time.Minute, 1},
		{"31 minutes apart", 31 * time.Minute, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := memory.New()
			name := domain.StringPtr("Chicken Republic")
			debit(st, name, 550000, t0.Add(-tt.gap))
			tx := debit(st, name, 550000, t0)

			n := NewScanner(st, logger.Nop()).Scan(context.Background(), "user-1", []string{tx.ID})
			assert.Equal(t, tt.want, n)

			got := st.Insights("user-1")
			require.Len(t, got, tt.want)
			if tt.want == 1 {
				assert.Equal(t, DoubleChargeTitle, got[0].Title)
				assert.Equal(t, domain.SeverityCritical, got[0].Severity)
				assert.Equal(t, "Two transactions for ₦5500.00 (Chicken Republic) detected within 30 minutes. "+
					"This might be a duplicate charge. Review and report if unauthorized.", got[0].Message)
			}
		})
	}
}

func TestScanner_DoubleChargeUncategorized(t *testing.T) {
	st := memory.New()
	st.Insert(domain.Transaction{UserID: "user-1", Amount: 20000, Type: domain.TransactionTypeDebit, Date: t0.Add(-5 * time.Minute), OriginalNarration: "NIP TRF 1"})
	named := debit(st, domain.StringPtr("Transfer"), 20000, t0.Add(-2*time.Minute))
	tx := st.Insert(domain.Transaction{UserID: "user-1", Amount: 20000, Type: domain.TransactionTypeDebit, Date: t0, OriginalNarration: "NIP TRF 2"})

	s := NewScanner(st, logger.Nop())
	assert.Equal(t, 1, s.Scan(context.Background(), "user-1", []string{tx.ID}))

	got := st.Insights("user-1")
	require.Len(t, got, 1)
	assert.Contains(t, got[0].Message, "(NIP TRF 2)")
	assert.NotEqual(t, named.ID, domain.Deref(got[0].RelatedTransactionID))
}

func TestScanner_RescanCreatesNoDuplicates(t *testing.T) {
	st := memory.New()
	name := domain.StringPtr("Spotify")
	debit(st, name, 100000, t0.AddDate(0, -1, 0))
	a := debit(st, name, 150000, t0.Add(-10*time.Minute))
	b := debit(st, name, 150000, t0)

	s := NewScanner(st, logger.Nop())
	first := s.Scan(context.Background(), "user-1", []string{a.ID, b.ID})
	assert.Equal(t, 3, first, "one price hike for a, one double charge each")

	assert.Zero(t, s.Scan(context.Background(), "user-1", []string{a.ID, b.ID}))
	assert.Len(t, st.Insights("user-1"), 3)
}

func TestScanner_EmptyInput(t *testing.T) {
	assert.Zero(t, NewScanner(memory.New(), logger.Nop()).Scan(context.Background(), "user-1", nil))
}
