package analytics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nweremizu/helm/internal/domain"
	"github.com/Nweremizu/helm/internal/store/memory"
)

func named(st *memory.Store, name, category string, amount int64, daysAgo int) {
	st.Insert(domain.Transaction{
		UserID:        "user-1",
		Amount:        amount,
		Type:          domain.TransactionTypeDebit,
		Date:          now.AddDate(0, 0, -daysAgo),
		CleanName:     domain.StringPtr(name),
		CleanCategory: domain.StringPtr(category),
	})
}

func TestDetectAnchors(t *testing.T) {
	st := memory.New()
	named(st, "Rent Landlord", domain.CategoryRent, 300000, 60)
	named(st, "Rent Landlord", domain.CategoryRent, 300000, 30)
	named(st, "Rent Landlord", domain.CategoryRent, 330000, 1)

	named(st, "Market", domain.CategoryGroceries, 100000, 20)
	named(st, "Market", domain.CategoryGroceries, 500000, 10)

	named(st, "Once", domain.CategoryShopping, 100000, 5)

	// Older than three months.
	named(st, "Old Gym", domain.CategoryHealth, 100000, 120)
	named(st, "Old Gym", domain.CategoryHealth, 100000, 100)

	got, err := NewDetector(st, nil, clock).DetectAnchors(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, got, 1)

	a := got[0]
	assert.Equal(t, "Rent Landlord", a.MerchantName)
	assert.Equal(t, domain.CategoryRent, domain.Deref(a.Category))
	assert.Equal(t, int64(310000), a.AvgAmountKobo)
	assert.Equal(t, 3, a.Occurrences)
	assert.Equal(t, 91, a.Confidence)
	assert.Equal(t, now.AddDate(0, 0, -1), a.LastSeen)
}

func TestDetectAnchors_SortedAndCapped(t *testing.T) {
	st := memory.New()
	for i := 0; i < 12; i++ {
		name := string(rune('A' + i))
		occurrences := 2
		if i%2 == 0 {
			occurrences = 4
		}
		for j := 0; j < occurrences; j++ {
			named(st, name, domain.CategoryUtilities, 100000, j*7+1)
		}
	}

	got, err := NewDetector(st, nil, clock).DetectAnchors(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, got, 10)
	for _, a := range got[:6] {
		assert.Equal(t, 100, a.Confidence)
	}
	for _, a := range got[6:] {
		assert.Equal(t, 90, a.Confidence)
	}
	assert.True(t, sortedDesc(got))
}

func sortedDesc(a []SuggestedAnchor) bool {
	for i := 1; i < len(a); i++ {
		if a[i].Confidence > a[i-1].Confidence {
			return false
		}
	}
	return true
}
