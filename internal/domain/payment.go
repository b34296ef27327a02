package domain

import "time"

// PaymentRecordStatus is the state of one payment attempt.
type PaymentRecordStatus string

const (
	PaymentRecordPending   PaymentRecordStatus = "pending"
	PaymentRecordCompleted PaymentRecordStatus = "completed"
	PaymentRecordFailed    PaymentRecordStatus = "failed"
	PaymentRecordRefunded  PaymentRecordStatus = "refunded"
)

// Payment is one participant's payment against their assigned share.
// Completed records are immutable; a refund flips the status and credits
// the wallet back, it never rewrites amounts.
type Payment struct {
	ID            string              `json:"id"`
	AgreementID   string              `json:"agreement_id"`
	UserID        int64               `json:"user_id"`
	Amount        float64             `json:"amount"`
	Percentage    float64             `json:"percentage"`
	Status        PaymentRecordStatus `json:"status"`
	PaymentMethod string              `json:"payment_method"`
	TransactionID string              `json:"transaction_id"`

	CreatedAt *time.Time `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}
