package bigquery

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/iterator"

	"github.com/Nweremizu/helm/internal/domain"
	"github.com/Nweremizu/helm/internal/money"
)

type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED
	UserID        string `bigquery:"user_id"`        // REQUIRED
	AccountID     string `bigquery:"account_id"`     // REQUIRED
	ExternalID    string `bigquery:"external_id"`    // REQUIRED

	TransactionDate civil.Date `bigquery:"transaction_date"` // REQUIRED
	BookedAt        time.Time  `bigquery:"booked_at"`        // REQUIRED

	AmountKobo   int64    `bigquery:"amount_kobo"`   // REQUIRED
	Amount       *big.Rat `bigquery:"amount"`        // REQUIRED NUMERIC, naira
	Currency     string   `bigquery:"currency"`      // REQUIRED
	BalanceAfter *big.Rat `bigquery:"balance_after"` // NULLABLE NUMERIC, naira

	Direction      string `bigquery:"direction"`       // DEBIT or CREDIT
	RawDescription string `bigquery:"raw_description"` // REQUIRED

	CleanName    bigquery.NullString `bigquery:"clean_name"`    // NULLABLE
	CategoryName bigquery.NullString `bigquery:"category_name"` // NULLABLE
	IsProcessed  bool                `bigquery:"is_processed"`

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED
}

func nullString(s *string) bigquery.NullString {
	if s == nil {
		return bigquery.NullString{}
	}
	return bigquery.NullString{StringVal: *s, Valid: true}
}

// NewTransactionRow maps a stored transaction to its warehouse row. The
// calendar date is taken in loc.
func NewTransactionRow(tx domain.Transaction, loc *time.Location) *TransactionRow {
	if loc == nil {
		loc = time.UTC
	}
	row := &TransactionRow{
		TransactionID:   tx.ID,
		UserID:          tx.UserID,
		AccountID:       tx.AccountID,
		ExternalID:      tx.ExternalID,
		TransactionDate: civil.DateOf(tx.Date.In(loc)),
		BookedAt:        tx.Date.UTC(),
		AmountKobo:      tx.Amount,
		Amount:          money.KoboToNaira(tx.Amount).Rat(),
		Currency:        tx.Currency,
		Direction:       string(tx.Type),
		RawDescription:  tx.OriginalNarration,
		CleanName:       nullString(tx.CleanName),
		CategoryName:    nullString(tx.CleanCategory),
		IsProcessed:     tx.IsProcessed,
		CreatedTS:       tx.CreatedAt.UTC(),
	}
	if tx.Balance != 0 {
		row.BalanceAfter = money.KoboToNaira(tx.Balance).Rat()
	}
	return row
}

// TransactionExporter streams new transactions into the transactions table.
type TransactionExporter struct {
	w   *Warehouse
	loc *time.Location
}

// NewTransactionExporter creates an exporter; dates are bucketed in loc.
func NewTransactionExporter(w *Warehouse, loc *time.Location) *TransactionExporter {
	return &TransactionExporter{w: w, loc: loc}
}

// ExportTransactions inserts txs in one streaming call.
func (e *TransactionExporter) ExportTransactions(ctx context.Context, txs []domain.Transaction) error {
	if len(txs) == 0 {
		return nil
	}

	rows := make([]*TransactionRow, len(txs))
	for i, tx := range txs {
		rows[i] = NewTransactionRow(tx, e.loc)
	}

	inserter := e.w.client.DatasetInProject(e.w.projectID, e.w.datasetID).Table(transactionsTable).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("ExportTransactions: inserting rows: %w", err)
	}
	return nil
}

// QueryTransactionsByDateRange reads back a user's exported transactions
// dated in [startDate, endDate].
func (e *TransactionExporter) QueryTransactionsByDateRange(ctx context.Context, userID string, startDate, endDate time.Time) ([]*TransactionRow, error) {
	q := e.w.client.Query(`
		SELECT
			transaction_id, user_id, account_id, external_id,
			transaction_date, booked_at,
			amount_kobo, amount, currency, balance_after,
			direction, raw_description,
			clean_name, category_name, is_processed,
			created_ts
		FROM ` + e.w.tableRef(transactionsTable) + `
		WHERE user_id = @user_id
		  AND transaction_date >= @start_date
		  AND transaction_date <= @end_date
		ORDER BY booked_at DESC
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "start_date", Value: startDate.Format(dateFormat)},
		{Name: "end_date", Value: endDate.Format(dateFormat)},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("QueryTransactionsByDateRange: query read: %w", err)
	}

	var rows []*TransactionRow
	for {
		var r TransactionRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("QueryTransactionsByDateRange: iter next: %w", err)
		}
		rows = append(rows, &r)
	}
	return rows, nil
}
