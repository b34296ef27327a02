package domain

import "time"

// PaymentStatus is the aggregate payment state of an agreement.
type PaymentStatus string

const (
	PaymentNotSetup    PaymentStatus = "not_setup"
	PaymentPending     PaymentStatus = "pending"
	PaymentDistributed PaymentStatus = "distributed"
	PaymentCompleted   PaymentStatus = "completed"
)

// Agreement is owned by the document collaborator. This service only reads
// membership/dates and writes back payment_status and the cached total.
type Agreement struct {
	ID            string
	Code          string
	Name          string
	PrimaryUserID int64

	// Participants in insertion order; the first one is the primary.
	Participants []int64

	StartDate *time.Time
	EndDate   *time.Time

	Status        string
	PaymentStatus PaymentStatus
	TotalAmount   float64

	CreatedAt *time.Time
	UpdatedAt *time.Time
}

func (a *Agreement) HasParticipant(userID int64) bool {
	for _, id := range a.Participants {
		if id == userID {
			return true
		}
	}
	return false
}
