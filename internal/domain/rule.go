package domain

import "time"

// MerchantRule maps an uppercase narration keyword to a clean merchant label.
type MerchantRule struct {
	ID         string
	Keyword    string
	CleanName  string
	Category   string
	Icon       string
	MatchCount int
	CreatedAt  time.Time
}
