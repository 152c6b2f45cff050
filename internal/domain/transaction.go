package domain

import (
	"encoding/json"
	"time"
)

// TransactionType is the direction of money movement as reported by the bank.
type TransactionType string

const (
	TransactionTypeDebit  TransactionType = "DEBIT"
	TransactionTypeCredit TransactionType = "CREDIT"
)

// ParseTransactionType maps the bank API's lowercase "debit"/"credit" to a TransactionType.
// Anything that is not a debit is treated as a credit.
func ParseTransactionType(s string) TransactionType {
	if s == "debit" || s == "DEBIT" {
		return TransactionTypeDebit
	}
	return TransactionTypeCredit
}

// Transaction is one bank transaction plus the enrichment written by the categorizer.
// Amount and Balance are in kobo.
type Transaction struct {
	ID                string
	UserID            string
	AccountID         string
	ExternalID        string // idempotency key, unique across all accounts
	Amount            int64
	Type              TransactionType
	Date              time.Time
	Balance           int64
	OriginalNarration string
	Currency          string
	RawBankData       json.RawMessage

	// Enrichment
	CleanName     *string
	CleanCategory *string
	Icon          *string
	IsProcessed   bool
	IsRecurring   bool

	CreatedAt time.Time
}

// NewTransaction is the create-if-absent payload produced by the sync orchestrator.
type NewTransaction struct {
	UserID            string
	AccountID         string
	ExternalID        string
	Amount            int64
	Type              TransactionType
	Date              time.Time
	Balance           int64
	OriginalNarration string
	Currency          string
	RawBankData       json.RawMessage
}

// Enrichment is the categorizer output written back to a transaction.
type Enrichment struct {
	CleanName     *string
	CleanCategory string
	Icon          string
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}

// Deref returns the value behind p or "" when p is nil.
func Deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
