package domain

import "time"

// DefaultDailyRate applies when no pricing config has ever been stored.
const DefaultDailyRate = 1.0

// PricingConfig is the process-wide daily rate. A new row is written on each
// update and previous rows are deactivated; the newest active row wins.
type PricingConfig struct {
	ID        string  `json:"id"`
	DailyRate float64 `json:"daily_rate"`
	IsActive  bool    `json:"is_active"`

	CreatedBy *int64 `json:"created_by"`
	UpdatedBy *int64 `json:"updated_by"`

	CreatedAt *time.Time `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}
