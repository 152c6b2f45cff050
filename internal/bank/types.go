// Package bank talks to the Mono v2 account API.
package bank

import (
	"context"
	"time"
)

// PageSize is the fixed number of transactions requested per page.
const PageSize = 50

// Transaction is one transaction as returned by the API. Amounts are in kobo.
type Transaction struct {
	ID        string    `json:"id"`
	Narration string    `json:"narration"`
	Amount    int64     `json:"amount"`
	Type      string    `json:"type"` // "debit" or "credit"
	Date      time.Time `json:"date"`
	Balance   int64     `json:"balance"`
	Currency  string    `json:"currency"`
}

// Meta carries pagination details.
type Meta struct {
	Total int     `json:"total"`
	Page  int     `json:"page"`
	Next  *string `json:"next"`
}

// TransactionsPage is one page of history, newest first.
type TransactionsPage struct {
	Status string        `json:"status"`
	Data   []Transaction `json:"data"`
	Meta   Meta          `json:"meta"`

	// Raw is the undecoded response body, kept for archiving.
	Raw []byte `json:"-"`
}

// HasNext reports whether the API advertises another page.
func (p *TransactionsPage) HasNext() bool {
	return p.Meta.Next != nil && *p.Meta.Next != ""
}

// TotalPages derives the page count from Meta.Total.
func (p *TransactionsPage) TotalPages() int {
	if p.Meta.Total <= 0 {
		return 0
	}
	return (p.Meta.Total + PageSize - 1) / PageSize
}

// Client fetches account data from the banking provider.
type Client interface {
	FetchTransactions(ctx context.Context, externalAccountID string, page int) (*TransactionsPage, error)
	// FetchBalance returns the live account balance in kobo.
	FetchBalance(ctx context.Context, externalAccountID string) (int64, error)
}
