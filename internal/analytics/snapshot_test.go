package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nweremizu/helm/internal/bank"
	"github.com/Nweremizu/helm/internal/domain"
	"github.com/Nweremizu/helm/internal/logger"
	"github.com/Nweremizu/helm/internal/store/memory"
)

type stubBalances map[string]any

func (s stubBalances) FetchBalance(ctx context.Context, externalAccountID string) (int64, error) {
	switch v := s[externalAccountID].(type) {
	case int64:
		return v, nil
	case error:
		return 0, v
	}
	return 0, bank.ErrNoBalance
}

func TestCaptureDailySnapshot(t *testing.T) {
	ctx := context.Background()
	st := memory.New()

	_, err := st.CreateAccount(ctx, domain.LinkedAccount{ID: "acc-1", UserID: "user-1", ExternalAccountID: "mono-1", Balance: 100})
	require.NoError(t, err)
	_, err = st.CreateAccount(ctx, domain.LinkedAccount{ID: "acc-2", UserID: "user-1", ExternalAccountID: "mono-2", Balance: 5000})
	require.NoError(t, err)
	_, err = st.CreateAccount(ctx, domain.LinkedAccount{ID: "acc-3", UserID: "user-1", ExternalAccountID: "mono-3", Balance: 700})
	require.NoError(t, err)

	today := now
	st.Insert(domain.Transaction{UserID: "user-1", Amount: 20000, Type: domain.TransactionTypeCredit, Date: today.Add(-time.Hour)})
	st.Insert(domain.Transaction{UserID: "user-1", Amount: 3000, Type: domain.TransactionTypeDebit, Date: today.Add(-2 * time.Hour)})
	st.Insert(domain.Transaction{UserID: "user-1", Amount: 9999, Type: domain.TransactionTypeDebit, Date: today.AddDate(0, 0, -1)})

	balances := stubBalances{"mono-1": int64(250000), "mono-2": errors.New("timeout")}
	r := NewSnapshotRecorder(st, balances, time.UTC, clock, logger.Nop())

	snap, err := r.CaptureDailySnapshot(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, civil.Date{Year: 2025, Month: 6, Day: 20}, snap.Date)
	assert.Equal(t, int64(250000+5000+700), snap.TotalBalance)
	assert.Equal(t, int64(20000), snap.TotalIncome)
	assert.Equal(t, int64(3000), snap.TotalExpense)

	acc, err := st.GetAccount(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, int64(250000), acc.Balance)

	// Re-capturing the same day replaces the row.
	st.Insert(domain.Transaction{UserID: "user-1", Amount: 1000, Type: domain.TransactionTypeCredit, Date: today})
	_, err = r.CaptureDailySnapshot(ctx, "user-1")
	require.NoError(t, err)

	trend, err := r.NetWorthTrend(ctx, "user-1", 30)
	require.NoError(t, err)
	require.Len(t, trend, 1)
	assert.Equal(t, NetWorthPoint{Date: "2025-06-20", BalanceKobo: 255700, BalanceNaira: 2557}, trend[0])
}

func TestCaptureAll(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	for _, u := range []string{"user-1", "user-2"} {
		_, err := st.CreateAccount(ctx, domain.LinkedAccount{UserID: u, ExternalAccountID: "ext-" + u, Balance: 10})
		require.NoError(t, err)
	}

	n, err := NewSnapshotRecorder(st, nil, nil, clock, logger.Nop()).CaptureAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	snaps, err := st.ListSnapshots(ctx, "user-2", now.AddDate(0, 0, -1))
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, int64(10), snaps[0].TotalBalance)
}
