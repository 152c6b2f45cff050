package domain

import "time"

// LinkedAccount is a user's bank account linked through the banking provider.
type LinkedAccount struct {
	ID                string
	UserID            string
	ExternalAccountID string
	Name              string
	Balance           int64 // kobo
	LastSyncedAt      *time.Time
	CreatedAt         time.Time
}
