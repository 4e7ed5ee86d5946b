package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"medfast/internal/session"
)

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write json response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, errorResponse{Error: code, Details: details})
}

// handleActionError maps session guard violations onto HTTP statuses: bad
// input is 400, a missing case is 404, and transition or re-entrancy
// conflicts are 409.
func handleActionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrUnknownCertificateType):
		writeError(w, http.StatusBadRequest, "unknown_certificate_type", err.Error())
	case errors.Is(err, session.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, "empty_message", err.Error())
	case errors.Is(err, session.ErrNoActiveTriage),
		errors.Is(err, session.ErrEmptyTranscript):
		writeError(w, http.StatusBadRequest, "no_active_triage", err.Error())
	case errors.Is(err, session.ErrNoActiveCase):
		writeError(w, http.StatusNotFound, "case_not_found", err.Error())
	case errors.Is(err, session.ErrBusy):
		writeError(w, http.StatusConflict, "reply_pending", "a reply is already being generated, please wait")
	case errors.Is(err, session.ErrPaymentInProgress):
		writeError(w, http.StatusConflict, "payment_in_progress", "payment is already being processed")
	case errors.Is(err, session.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
