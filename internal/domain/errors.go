package domain

import "errors"

// ErrAgreementNotFound is returned when neither id nor public code matches.
var ErrAgreementNotFound = errors.New("agreement not found")

// ErrNotParticipant is returned when the caller is not involved in the agreement.
var ErrNotParticipant = errors.New("user is not a participant of the agreement")

// ErrNotPrimary is returned when a primary-only operation is attempted by
// another participant.
var ErrNotPrimary = errors.New("only the primary participant may do this")

// ErrDistributionNotSetup is returned when a payment is attempted before any
// distribution exists, or the payer has no entry in it.
var ErrDistributionNotSetup = errors.New("payment distribution not set up")

// ErrInsufficientFunds is returned when the wallet balance is below the
// assigned share. Nothing is mutated.
var ErrInsufficientFunds = errors.New("insufficient wallet balance")

// ErrAlreadyPaid is returned on a duplicate payment attempt for a share that
// is already fully covered. Benign for the user, distinguishable for audit.
var ErrAlreadyPaid = errors.New("payment already completed for this share")

// ErrPaymentNotFound is returned when a payment record id does not exist.
var ErrPaymentNotFound = errors.New("payment not found")

// ErrNotRefundable is returned when a refund targets a record that is not in
// the completed state.
var ErrNotRefundable = errors.New("payment is not refundable")
