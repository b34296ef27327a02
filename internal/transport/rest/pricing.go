package rest

import (
	"encoding/json"
	"io"
	"net/http"

	"agreepay/internal/transport/auth"
)

type PricingUpdateRequest struct {
	DailyRate float64 `json:"daily_rate"`
}

type rawPricingUpdateRequest struct {
	DailyRate interface{} `json:"daily_rate"`
}

func ValidatePricingUpdateRequest(r *http.Request) (*PricingUpdateRequest, error) {
	var raw rawPricingUpdateRequest

	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil && err != io.EOF {
		return nil, err
	}

	if raw.DailyRate == nil {
		return nil, &ValidationError{Field: "daily_rate", Message: "daily_rate is required"}
	}
	rate, err := toFloat64(raw.DailyRate)
	if err != nil {
		return nil, &ValidationError{Field: "daily_rate", Message: "daily_rate must be a number"}
	}

	return &PricingUpdateRequest{DailyRate: rate}, nil
}

func (h *Handler) getPricing(w http.ResponseWriter, r *http.Request) {
	if _, err := auth.GetUserID(r.Context()); err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	cfg, err := h.pricing.Get(r.Context())
	if err != nil {
		serviceError(w, err)
		return
	}

	Success(w, "Pricing config", cfg)
}

func (h *Handler) updatePricing(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.GetUserID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	req, err := ValidatePricingUpdateRequest(r)
	if err != nil {
		if _, ok := err.(*ValidationError); ok {
			ErrorBadRequest(w, err.Error())
			return
		}
		ErrorBadRequest(w, "invalid JSON")
		return
	}

	cfg, err := h.pricing.Update(r.Context(), req.DailyRate, userID)
	if err != nil {
		serviceError(w, err)
		return
	}

	Success(w, "Pricing updated", cfg)
}
