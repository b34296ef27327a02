package domain

import (
	"math"
	"time"
)

// PercentageTolerance is the allowed floating drift when checking that
// distribution percentages cover the whole amount.
const PercentageTolerance = 0.01

// DistributionEntry is one participant's share of an agreement total.
// Amount is always derived from Percentage, never authored directly.
type DistributionEntry struct {
	UserID     int64   `json:"user_id"`
	Percentage float64 `json:"percentage"`
	Amount     float64 `json:"amount"`
}

// Distribution is the stored split of an agreement's total amount.
// One record per agreement, replaced wholesale on every setup.
type Distribution struct {
	AgreementID  string              `json:"agreement_id"`
	TotalAmount  float64             `json:"total_amount"`
	DurationDays int                 `json:"duration_days"`
	Entries      []DistributionEntry `json:"distributions"`

	CreatedAt *time.Time `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

func (d *Distribution) EntryFor(userID int64) *DistributionEntry {
	for i := range d.Entries {
		if d.Entries[i].UserID == userID {
			return &d.Entries[i]
		}
	}
	return nil
}

func (d *Distribution) PercentageSum() float64 {
	var sum float64
	for _, e := range d.Entries {
		sum += e.Percentage
	}
	return sum
}

// Covered reports whether the percentages still form a complete partition.
func (d *Distribution) Covered() bool {
	return math.Abs(d.PercentageSum()-100.0) <= PercentageTolerance
}

// Stale reports whether the stored split no longer matches the agreement's
// current participant set. Stale distributions are kept as-is (no automatic
// rebalance) and must be re-set explicitly.
func (d *Distribution) Stale(a *Agreement) bool {
	if !d.Covered() {
		return true
	}
	for _, e := range d.Entries {
		if !a.HasParticipant(e.UserID) {
			return true
		}
	}
	return false
}
