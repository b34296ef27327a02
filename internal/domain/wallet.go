package domain

import "time"

type Wallet struct {
	UserID  int64   `json:"user_id"`
	Balance float64 `json:"balance"`

	CreatedAt *time.Time `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

// WalletTransactionType classifies wallet ledger entries.
type WalletTransactionType string

const (
	WalletCredit  WalletTransactionType = "credit"
	WalletPayment WalletTransactionType = "payment"
	WalletRefund  WalletTransactionType = "refund"
)

// WalletTransaction is one immutable ledger entry. Entries tied to a payment
// carry the payment record id, which doubles as the debit idempotency key.
type WalletTransaction struct {
	ID          string                `json:"id"`
	UserID      int64                 `json:"user_id"`
	Type        WalletTransactionType `json:"type"`
	Amount      float64               `json:"amount"`
	Description string                `json:"description"`
	PaymentID   *string               `json:"payment_id"`

	CreatedAt *time.Time `json:"created_at"`
}
