package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ternarybob/respondeo/internal/interfaces"
	"github.com/ternarybob/respondeo/pkg/api"
)

// RequireMethod validates that the HTTP request uses the specified method.
// Returns true if the method matches, false otherwise (and writes error response).
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return false
	}
	return true
}

// WriteJSON writes a JSON response with the specified status code and data.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteError writes a standard error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, api.ErrorResponse{
		Error:  message,
		Status: statusCode,
	})
}

// WriteServiceError maps a service error to an HTTP status by its sentinel
// kind: invalid input is the caller's fault, an unavailable embedding tier
// or a not-ready engine is a 503, anything else is a 500.
func WriteServiceError(w http.ResponseWriter, err error) error {
	switch {
	case errors.Is(err, interfaces.ErrInvalidConfiguration):
		return WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, interfaces.ErrEmbeddingUnavailable),
		errors.Is(err, interfaces.ErrEngineNotReady):
		return WriteError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, interfaces.ErrDimensionMismatch),
		errors.Is(err, interfaces.ErrRetrievalFailed):
		return WriteError(w, http.StatusInternalServerError, err.Error())
	default:
		return WriteError(w, http.StatusInternalServerError, err.Error())
	}
}

// DecodeJSON parses a request body into dst. A malformed body is reported
// to the client as a 400 and false is returned.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON body: "+err.Error())
		return false
	}
	return true
}
