package rest

import (
	"encoding/json"
	"io"
	"net/http"

	"agreepay/internal/transport/auth"
)

type AddFundsRequest struct {
	Amount float64 `json:"amount"`
}

type rawAddFundsRequest struct {
	Amount interface{} `json:"amount"`
}

func ValidateAddFundsRequest(r *http.Request) (*AddFundsRequest, error) {
	var raw rawAddFundsRequest

	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil && err != io.EOF {
		return nil, err
	}

	if raw.Amount == nil {
		return nil, &ValidationError{Field: "amount", Message: "amount is required"}
	}
	amount, err := toFloat64(raw.Amount)
	if err != nil {
		return nil, &ValidationError{Field: "amount", Message: "amount must be a number"}
	}

	return &AddFundsRequest{Amount: amount}, nil
}

func (h *Handler) walletBalance(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.GetUserID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	wallet, err := h.wallets.Balance(r.Context(), userID)
	if err != nil {
		serviceError(w, err)
		return
	}

	Success(w, "Wallet balance", wallet)
}

func (h *Handler) addFunds(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.GetUserID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	req, err := ValidateAddFundsRequest(r)
	if err != nil {
		if _, ok := err.(*ValidationError); ok {
			ErrorBadRequest(w, err.Error())
			return
		}
		ErrorBadRequest(w, "invalid JSON")
		return
	}

	wallet, err := h.wallets.AddFunds(r.Context(), userID, req.Amount)
	if err != nil {
		serviceError(w, err)
		return
	}

	Success(w, "Funds added", wallet)
}

func (h *Handler) walletTransactions(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.GetUserID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	transactions, err := h.wallets.Transactions(r.Context(), userID)
	if err != nil {
		serviceError(w, err)
		return
	}

	Success(w, "Wallet transactions", transactions)
}
