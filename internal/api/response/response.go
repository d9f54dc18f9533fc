// Package response writes JSON responses for the API handlers.
package response

import (
	"encoding/json"
	"net/http"

	"github.com/scenify/scenify/internal/api/middleware"
)

// ErrorBody is the error shape every endpoint returns.
type ErrorBody struct {
	Error string `json:"error"`
}

// JSON writes data as a JSON response with the given status code and echoes
// the request ID for correlation.
func JSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	if requestID := middleware.GetRequestID(r.Context()); requestID != "" {
		w.Header().Set(middleware.RequestIDHeader, requestID)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// Error writes {"error": msg} with the given status code.
func Error(w http.ResponseWriter, r *http.Request, status int, msg string) {
	JSON(w, r, status, ErrorBody{Error: msg})
}

// BadRequest writes a 400 error.
func BadRequest(w http.ResponseWriter, r *http.Request, msg string) {
	Error(w, r, http.StatusBadRequest, msg)
}

// InternalError writes a 500 error.
func InternalError(w http.ResponseWriter, r *http.Request, msg string) {
	Error(w, r, http.StatusInternalServerError, msg)
}
