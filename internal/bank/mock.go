package bank

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// MockClient serves a fixed two-page history relative to the current time.
// It is used when no API secret key is configured.
type MockClient struct {
	Now func() time.Time
}

var _ Client = (*MockClient)(nil)

// NewMockClient creates a MockClient using the wall clock.
func NewMockClient() *MockClient {
	return &MockClient{Now: time.Now}
}

func (m *MockClient) FetchTransactions(ctx context.Context, externalAccountID string, page int) (*TransactionsPage, error) {
	now := m.Now()
	day := 24 * time.Hour
	stamp := now.UnixMilli()
	id := func(n int) string { return fmt.Sprintf("mono_%d_%d", stamp, n) }

	var data []Transaction
	var next *string
	switch page {
	case 1:
		data = []Transaction{
			{ID: id(1), Narration: "POS WDL UBER EATS LAGOS NG", Amount: 550000, Type: "debit", Date: now.Add(-day), Balance: 24500000, Currency: "NGN"},
			{ID: id(2), Narration: "NIP TRF FROM JOHN DOE/SAVINGS", Amount: 15000000, Type: "credit", Date: now.Add(-2 * day), Balance: 25050000, Currency: "NGN"},
			{ID: id(3), Narration: "NETFLIX.COM SUBSCRIPTION", Amount: 499900, Type: "debit", Date: now.Add(-3 * day), Balance: 10050000, Currency: "NGN"},
			{ID: id(4), Narration: "ATM WDL GTB VI BRANCH", Amount: 2000000, Type: "debit", Date: now.Add(-4 * day), Balance: 10549900, Currency: "NGN"},
			{ID: id(5), Narration: "POS SHOPRITE IKEJA MALL", Amount: 1250075, Type: "debit", Date: now.Add(-5 * day), Balance: 12549900, Currency: "NGN"},
		}
		n := "/transactions?page=2"
		next = &n
	case 2:
		data = []Transaction{
			{ID: id(6), Narration: "BOLT TECHNOLOGY OU RIDE", Amount: 185000, Type: "debit", Date: now.Add(-6 * day), Balance: 13799975, Currency: "NGN"},
			{ID: id(7), Narration: "SALARY PAYMENT ACME CORP", Amount: 85000000, Type: "credit", Date: now.Add(-7 * day), Balance: 13984975, Currency: "NGN"},
		}
	}

	out := &TransactionsPage{
		Status: "successful",
		Data:   data,
		Meta:   Meta{Total: 7, Page: page, Next: next},
	}
	raw, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("MockClient: encoding page: %w", err)
	}
	out.Raw = raw
	return out, nil
}

// FetchBalance always reports no live balance so callers keep the stored value.
func (m *MockClient) FetchBalance(ctx context.Context, externalAccountID string) (int64, error) {
	return 0, ErrNoBalance
}
