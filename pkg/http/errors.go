package http

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// ErrorResponse represents a standard API error response
type ErrorResponse struct {
	Error   string `json:"error"`             // Machine-readable error code
	Message string `json:"message"`           // Human-readable message
	Details string `json:"details,omitempty"` // Optional additional context

	AttemptsRemaining *int `json:"attempts_remaining,omitempty"`
	RemainingSeconds  *int `json:"remaining_seconds,omitempty"`
}

// WriteJSON writes v as a JSON body with the given status code
func WriteJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes a JSON error response with the given status code
func WriteError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	WriteErrorResponse(w, statusCode, ErrorResponse{Error: errorCode, Message: message})
}

// WriteErrorWithDetails writes a JSON error response with additional details
func WriteErrorWithDetails(w http.ResponseWriter, statusCode int, errorCode, message, details string) {
	WriteErrorResponse(w, statusCode, ErrorResponse{Error: errorCode, Message: message, Details: details})
}

// WriteErrorResponse writes a fully populated error body
func WriteErrorResponse(w http.ResponseWriter, statusCode int, resp ErrorResponse) {
	WriteJSON(w, statusCode, resp)
}

// WriteLocked reports an active lockout with the seconds left until it lifts
func WriteLocked(w http.ResponseWriter, remainingSeconds int) {
	w.Header().Set("Retry-After", strconv.Itoa(remainingSeconds))
	WriteErrorResponse(w, http.StatusLocked, ErrorResponse{
		Error:            "locked",
		Message:          "Too many failed attempts. Try again in " + formatWait(remainingSeconds) + ".",
		RemainingSeconds: &remainingSeconds,
	})
}

// WriteRejected reports a bad credential with the attempts left before lockout
func WriteRejected(w http.ResponseWriter, attemptsRemaining int) {
	WriteErrorResponse(w, http.StatusUnauthorized, ErrorResponse{
		Error:             "invalid_credentials",
		Message:           "Invalid email or password. " + strconv.Itoa(attemptsRemaining) + " attempt(s) remaining.",
		AttemptsRemaining: &attemptsRemaining,
	})
}

// Common error writers for consistency
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, "bad_request", message)
}

func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, "unauthorized", message)
}

func WriteForbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, "forbidden", message)
}

func WriteTooManyRequests(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusTooManyRequests, "rate_limit_exceeded", message)
}

func WriteServiceUnavailable(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusServiceUnavailable, "service_unavailable", message)
}

func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, "internal_error", message)
}

// formatWait renders seconds as "m:ss" for lockout messages
func formatWait(seconds int) string {
	if seconds < 60 {
		return strconv.Itoa(seconds) + " seconds"
	}
	s := seconds % 60
	pad := ""
	if s < 10 {
		pad = "0"
	}
	return strconv.Itoa(seconds/60) + ":" + pad + strconv.Itoa(s) + " minutes"
}
