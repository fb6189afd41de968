package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/studyloop/studyloop/internal/session"
	"github.com/studyloop/studyloop/internal/store"
)

type errorBody struct {
	Error string `json:"error"`
}

// writeError maps domain errors onto HTTP statuses. Conflicts with the
// session's current state are 409; storage outages are 503 so clients
// can retry.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	var ice *session.InvalidConfigError
	var unavailable *store.UnavailableError
	switch {
	case errors.As(err, &ice), errors.Is(err, session.ErrEmptyAnswer):
		status = http.StatusBadRequest
	case errors.Is(err, session.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, session.ErrPracticeOnly):
		status = http.StatusForbidden
	case errors.Is(err, session.ErrSessionNotActive),
		errors.Is(err, session.ErrAttemptsExhausted),
		errors.Is(err, session.ErrQuestionContextMismatch),
		errors.Is(err, session.ErrQuestionOpen):
		status = http.StatusConflict
	case errors.As(err, &unavailable):
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		log.Printf("internal error: %v", err)
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response: %v", err)
	}
}
