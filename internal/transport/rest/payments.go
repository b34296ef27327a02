package rest

import (
	"net/http"

	"agreepay/internal/transport/auth"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) calculatePayment(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.GetUserID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	key := chi.URLParam(r, "agreement")
	calc, err := h.payments.Calculate(r.Context(), key, userID)
	if err != nil {
		serviceError(w, err)
		return
	}

	Success(w, "Payment calculation", calc)
}

func (h *Handler) paymentStatus(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.GetUserID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	key := chi.URLParam(r, "agreement")
	report, err := h.payments.Status(r.Context(), key, userID)
	if err != nil {
		serviceError(w, err)
		return
	}

	Success(w, "Payment status", report)
}

func (h *Handler) pay(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.GetUserID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	key := chi.URLParam(r, "agreement")
	payment, err := h.payments.Pay(r.Context(), key, userID)
	if err != nil {
		serviceError(w, err)
		return
	}

	Success(w, "Payment completed", payment)
}

func (h *Handler) paymentHistory(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.GetUserID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	key := chi.URLParam(r, "agreement")
	records, err := h.payments.History(r.Context(), key, userID)
	if err != nil {
		serviceError(w, err)
		return
	}

	Success(w, "Payment history", records)
}

func (h *Handler) refundPayment(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.GetUserID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	paymentID := chi.URLParam(r, "payment_id")
	payment, err := h.payments.Refund(r.Context(), paymentID, userID)
	if err != nil {
		serviceError(w, err)
		return
	}

	Success(w, "Payment refunded", payment)
}
