package rest

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"agreepay/internal/transport/auth"

	"github.com/go-chi/chi/v5"
)

type StatementRequest struct {
	Fields []string `json:"fields"`
}

func ValidateStatementRequest(r *http.Request) (*StatementRequest, error) {
	var req StatementRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		return nil, err
	}

	// empty fields means the default column set
	return &req, nil
}

func (h *Handler) exportStatement(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.GetUserID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	req, err := ValidateStatementRequest(r)
	if err != nil {
		ErrorBadRequest(w, "invalid JSON")
		return
	}

	key := chi.URLParam(r, "agreement")
	exportID, err := h.statements.StartStatementExport(r.Context(), key, req.Fields, userID)
	if err != nil {
		serviceError(w, err)
		return
	}

	SuccessAccepted(w, "Statement export queued", map[string]interface{}{"export_id": exportID})
}

func (h *Handler) listStatements(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.GetUserID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	exports, err := h.statements.GetExports(r.Context(), userID)
	if err != nil {
		log.Printf("[HTTP] listStatements error: %v", err)
		ErrorInternal(w, "failed to list exports")
		return
	}

	Success(w, "Statement exports", exports)
}

func (h *Handler) getStatement(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.GetUserID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	exportID := chi.URLParam(r, "export_id")
	export, err := h.statements.GetExport(r.Context(), exportID, userID)
	if err != nil {
		ErrorNotFound(w, "export not found")
		return
	}

	Success(w, "Statement export", export)
}
