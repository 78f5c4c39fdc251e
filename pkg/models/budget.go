package models

import "time"

// BudgetStatus is the result of one budget check.
type BudgetStatus struct {
	Period           string    `json:"period"`
	SpendToDate      float64   `json:"spend_to_date"`
	BudgetLimit      float64   `json:"budget_limit"`
	ThresholdPercent float64   `json:"threshold_percent"`
	Exceeded         bool      `json:"exceeded"`
	CheckedAt        time.Time `json:"checked_at"`
}

// PercentUsed is spend as a percentage of the budget limit.
func (b *BudgetStatus) PercentUsed() float64 {
	if b.BudgetLimit <= 0 {
		return 0
	}
	return b.SpendToDate / b.BudgetLimit * 100
}
