package domain

import "cloud.google.com/go/civil"

// DailySnapshot records a user's aggregate position for one calendar day.
type DailySnapshot struct {
	UserID       string
	Date         civil.Date
	TotalBalance int64
	TotalIncome  int64
	TotalExpense int64
}
