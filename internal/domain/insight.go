package domain

import "time"

// InsightType distinguishes one-off alerts from period trends.
type InsightType string

const (
	InsightTypeAlert InsightType = "ALERT"
	InsightTypeTrend InsightType = "TREND"
)

// Severity of an insight as shown to the user.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Insight is a user-facing finding produced by the scanner or the trend generator.
type Insight struct {
	ID                   string      `json:"id"`
	UserID               string      `json:"userId"`
	Type                 InsightType `json:"type"`
	Title                string      `json:"title"`
	Message              string      `json:"message"`
	Severity             Severity    `json:"severity"`
	RelatedTransactionID *string     `json:"relatedTransactionId,omitempty"`
	IsRead               bool        `json:"isRead"`
	ArchivedAt           *time.Time  `json:"archivedAt,omitempty"`
	CreatedAt            time.Time   `json:"createdAt"`
}

// NewInsight is the payload for creating an insight.
type NewInsight struct {
	UserID               string
	Type                 InsightType
	Title                string
	Message              string
	Severity             Severity
	RelatedTransactionID *string
}
