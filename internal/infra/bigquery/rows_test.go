package bigquery

import (
	"encoding/json"
	"math/big"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nweremizu/helm/internal/classifier"
	"github.com/Nweremizu/helm/internal/domain"
)

func TestNewTransactionRow(t *testing.T) {
	lagos, err := time.LoadLocation("Africa/Lagos")
	require.NoError(t, err)

	// 23:30 UTC is already the next day in Lagos.
	at := time.Date(2025, 6, 30, 23, 30, 0, 0, time.UTC)
	tx := domain.Transaction{
		ID:                "tx-1",
		UserID:            "user-1",
		AccountID:         "acc-1",
		ExternalID:        "mono_1",
		Amount:            1250075,
		Type:              domain.TransactionTypeDebit,
		Date:              at,
		Balance:           12549900,
		OriginalNarration: "POS SHOPRITE IKEJA MALL",
		Currency:          "NGN",
		CleanName:         domain.StringPtr("Shoprite"),
		IsProcessed:       true,
		CreatedAt:         at,
	}

	row := NewTransactionRow(tx, lagos)
	assert.Equal(t, civil.Date{Year: 2025, Month: time.July, Day: 1}, row.TransactionDate)
	assert.Equal(t, at, row.BookedAt)
	assert.Equal(t, int64(1250075), row.AmountKobo)
	assert.Zero(t, row.Amount.Cmp(big.NewRat(1250075, 100)))
	require.NotNil(t, row.BalanceAfter)
	assert.Zero(t, row.BalanceAfter.Cmp(big.NewRat(125499, 1)))
	assert.Equal(t, "DEBIT", row.Direction)
	assert.True(t, row.CleanName.Valid)
	assert.Equal(t, "Shoprite", row.CleanName.StringVal)
	assert.False(t, row.CategoryName.Valid)
	assert.True(t, row.IsProcessed)
}

func TestNewTransactionRow_ZeroBalanceIsNull(t *testing.T) {
	row := NewTransactionRow(domain.Transaction{ID: "tx", Amount: 100, Date: time.Unix(0, 0)}, nil)
	assert.Nil(t, row.BalanceAfter)
	assert.Equal(t, civil.Date{Year: 1970, Month: time.January, Day: 1}, row.TransactionDate)
}

func TestNewModelOutputRow(t *testing.T) {
	started := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	a := classifier.Audit{
		RunID:     "run-1",
		Provider:  "ollama:llama3.2:3b",
		Inputs:    []classifier.Input{{ID: "tx-1", Narration: "KILIMANJARO LEKKI", AmountNaira: "4500.00", Type: "DEBIT"}},
		Results:   []classifier.Result{{ID: "tx-1", CleanName: "Kilimanjaro", Category: "Food & Dining", Icon: "utensils", Confidence: 0.9}},
		StartedAt: started,
		Duration:  1500 * time.Millisecond,
	}

	row, err := NewModelOutputRow(a)
	require.NoError(t, err)
	assert.NotEmpty(t, row.OutputID)
	assert.Equal(t, "run-1", row.RunID)
	assert.Equal(t, int64(1), row.InputCount)
	assert.Equal(t, int64(1), row.ResultCount)
	assert.Equal(t, int64(1500), row.DurationMS)
	assert.Equal(t, started, row.CreatedTS)
	assert.False(t, row.Error.Valid)

	var payload map[string][]map[string]any
	require.NoError(t, json.Unmarshal([]byte(row.RawJSON.JSONVal), &payload))
	assert.Equal(t, "KILIMANJARO LEKKI", payload["inputs"][0]["narration"])
	assert.Equal(t, "Kilimanjaro", payload["results"][0]["cleanName"])
}

func TestNewModelOutputRow_Failure(t *testing.T) {
	row, err := NewModelOutputRow(classifier.Audit{Provider: "gemini:gemini-2.5-flash", Err: "malformed response"})
	require.NoError(t, err)
	assert.NotEmpty(t, row.RunID)
	assert.True(t, row.Error.Valid)
	assert.Equal(t, "malformed response", row.Error.StringVal)
	assert.Zero(t, row.ResultCount)
}

func TestQualifiedTable(t *testing.T) {
	assert.Equal(t, "`proj.helm.transactions`", qualifiedTable("proj", "helm", transactionsTable))
}
