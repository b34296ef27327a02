package service

import (
	"math"
	"time"

	"agreepay/internal/domain"
)

// DurationDays returns the agreement duration in whole days; partial days
// round down. Missing either date means the duration is unknown and treated
// as zero, which callers surface as "payment not applicable".
func DurationDays(start, end *time.Time) int {
	if start == nil || end == nil {
		return 0
	}
	days := int(end.Sub(*start).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// CalculateTotal is the whole pricing model: duration times daily rate.
func CalculateTotal(durationDays int, dailyRate float64) float64 {
	if durationDays <= 0 {
		return 0
	}
	return round2(float64(durationDays) * dailyRate)
}

// DefaultDistribution builds an equal split across the given participants.
// The rounding remainder lands on the last participant so the percentages
// sum to exactly 100. Pure; persisting it is the caller's explicit choice.
func DefaultDistribution(participants []int64, totalAmount float64) []domain.DistributionEntry {
	n := len(participants)
	if n == 0 {
		return nil
	}

	base := math.Floor(10000.0/float64(n)) / 100
	entries := make([]domain.DistributionEntry, n)
	for i, userID := range participants {
		pct := base
		if i == n-1 {
			pct = round2(100 - base*float64(n-1))
		}
		entries[i] = domain.DistributionEntry{
			UserID:     userID,
			Percentage: pct,
			Amount:     ShareAmount(totalAmount, pct),
		}
	}
	return entries
}

// ShareAmount derives a participant's owed amount from their percentage.
func ShareAmount(totalAmount, percentage float64) float64 {
	return round2(totalAmount * percentage / 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
