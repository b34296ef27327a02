package rest

import (
	"errors"
	"log"
	"net/http"

	"agreepay/internal/domain"
	"agreepay/internal/service"
)

// serviceError maps domain and validation errors to the response envelope.
// Unknown errors become a 500 without leaking internals.
func serviceError(w http.ResponseWriter, err error) {
	var ve *service.ValidationError
	if errors.As(err, &ve) {
		ErrorBadRequest(w, ve.Message)
		return
	}

	switch {
	case errors.Is(err, domain.ErrAgreementNotFound):
		ErrorNotFound(w, "agreement not found")
	case errors.Is(err, domain.ErrPaymentNotFound):
		ErrorNotFound(w, "payment not found")
	case errors.Is(err, domain.ErrNotParticipant):
		ErrorForbidden(w, "you are not a participant of this agreement")
	case errors.Is(err, domain.ErrNotPrimary):
		ErrorForbidden(w, "only the primary participant may do this")
	case errors.Is(err, domain.ErrDistributionNotSetup):
		ErrorBadRequest(w, "payment distribution is not set up")
	case errors.Is(err, domain.ErrInsufficientFunds):
		ErrorBadRequest(w, "insufficient wallet balance")
	case errors.Is(err, domain.ErrAlreadyPaid):
		ErrorConflict(w, "payment already completed for this share")
	case errors.Is(err, domain.ErrNotRefundable):
		ErrorBadRequest(w, "payment is not refundable")
	default:
		log.Printf("[HTTP] internal error: %v", err)
		ErrorInternal(w, "internal server error")
	}
}
