package rest

import (
	"encoding/json"
	"io"
	"net/http"

	"agreepay/internal/service"
	"agreepay/internal/transport/auth"

	"github.com/go-chi/chi/v5"
)

type SetupDistributionRequest struct {
	Distributions []service.ShareInput `json:"distributions"`
}

type rawSetupDistributionRequest struct {
	Distributions []struct {
		UserID     interface{} `json:"user_id"`
		Percentage interface{} `json:"percentage"`
	} `json:"distributions"`
}

// ValidateSetupDistributionRequest parses the distribution setup body. Amounts
// are never accepted from the client, only user_id and percentage.
func ValidateSetupDistributionRequest(r *http.Request) (*SetupDistributionRequest, error) {
	var raw rawSetupDistributionRequest

	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil && err != io.EOF {
		return nil, err
	}

	if len(raw.Distributions) == 0 {
		return nil, &ValidationError{Field: "distributions", Message: "distributions is required and must be a non-empty array"}
	}

	shares := make([]service.ShareInput, 0, len(raw.Distributions))
	for _, d := range raw.Distributions {
		userID, err := toInt64(d.UserID)
		if err != nil {
			return nil, &ValidationError{Field: "user_id", Message: "user_id must be an integer"}
		}
		percentage, err := toFloat64(d.Percentage)
		if err != nil {
			return nil, &ValidationError{Field: "percentage", Message: "percentage must be a number"}
		}
		shares = append(shares, service.ShareInput{UserID: userID, Percentage: percentage})
	}

	return &SetupDistributionRequest{Distributions: shares}, nil
}

func (h *Handler) setupDistribution(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.GetUserID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	req, err := ValidateSetupDistributionRequest(r)
	if err != nil {
		if _, ok := err.(*ValidationError); ok {
			ErrorBadRequest(w, err.Error())
			return
		}
		ErrorBadRequest(w, "invalid JSON")
		return
	}

	key := chi.URLParam(r, "agreement")
	dist, err := h.distributions.Setup(r.Context(), key, userID, req.Distributions)
	if err != nil {
		serviceError(w, err)
		return
	}

	Success(w, "Distribution saved", dist)
}

type UpdateShareRequest struct {
	Percentage float64 `json:"percentage"`
}

type rawUpdateShareRequest struct {
	Percentage interface{} `json:"percentage"`
}

func ValidateUpdateShareRequest(r *http.Request) (*UpdateShareRequest, error) {
	var raw rawUpdateShareRequest

	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil && err != io.EOF {
		return nil, err
	}

	if raw.Percentage == nil {
		return nil, &ValidationError{Field: "percentage", Message: "percentage is required"}
	}
	percentage, err := toFloat64(raw.Percentage)
	if err != nil {
		return nil, &ValidationError{Field: "percentage", Message: "percentage must be a number"}
	}

	return &UpdateShareRequest{Percentage: percentage}, nil
}

func (h *Handler) updateShare(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.GetUserID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	req, err := ValidateUpdateShareRequest(r)
	if err != nil {
		if _, ok := err.(*ValidationError); ok {
			ErrorBadRequest(w, err.Error())
			return
		}
		ErrorBadRequest(w, "invalid JSON")
		return
	}

	targetUserID, err := toInt64(chi.URLParam(r, "user_id"))
	if err != nil {
		ErrorBadRequest(w, "user_id must be an integer")
		return
	}

	key := chi.URLParam(r, "agreement")
	dist, err := h.distributions.UpdateShare(r.Context(), key, userID, targetUserID, req.Percentage)
	if err != nil {
		serviceError(w, err)
		return
	}

	Success(w, "Distribution updated", dist)
}
