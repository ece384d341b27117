package utils

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"agent_gateway/internal/models"
)

// maxBodyBytes caps request bodies read by DecodeJSON.
const maxBodyBytes = 1 << 20

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Message string `json:"message"`
}

// RespondWithError sends an error response
func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, ErrorResponse{Message: message})
}

// RespondWithJSON sends a JSON response
func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, "Failed to encode response: "+err.Error(), http.StatusInternalServerError)
		return err
	}
	return nil
}

// StatusFor maps a domain error to its HTTP status.
func StatusFor(err error) int {
	var verr *models.ValidationError
	var cerr *models.ConfigurationError
	var perr *models.TransientProviderError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrBotDisabled):
		return http.StatusConflict
	case errors.As(err, &cerr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &perr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// RespondWithDomainError sends err with the status from StatusFor.
// Internal errors are not echoed to the client.
func RespondWithDomainError(w http.ResponseWriter, err error) {
	code := StatusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		msg = "Internal server error"
	}
	RespondWithError(w, code, msg)
}

// DecodeJSON reads a JSON body into dst, rejecting unknown trailing data.
func DecodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return models.NewValidationError("", "invalid request payload: %v", err)
	}
	if dec.More() {
		return models.NewValidationError("", "invalid request payload: %s", "unexpected data after JSON object")
	}
	return nil
}

// PathError is a ValidationError for a malformed path parameter.
func PathError(name, value string) error {
	return models.NewValidationError(name, "invalid %s %q", name, value)
}
