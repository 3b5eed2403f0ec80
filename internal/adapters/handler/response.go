// Package handler implements HTTP request handlers
// Following Hexagonal Architecture: Adapters translate HTTP to domain logic
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// ErrorResponse is the error payload shape shared by all endpoints.
// Details carries the upstream provider's body verbatim when present.
type ErrorResponse struct {
	Error   string          `json:"error"`
	Details json.RawMessage `json:"details,omitempty"`
}

// setCORSHeaders applies the permissive CORS policy expected by the
// browser clients of the admin UI
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type")
}

// handlePreflight answers an OPTIONS request with the CORS headers.
// Returns true when the request was a preflight.
func handlePreflight(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodOptions {
		return false
	}
	setCORSHeaders(w)
	w.WriteHeader(http.StatusOK)
	return true
}

// writeJSON writes a JSON response with CORS headers
func writeJSON(w http.ResponseWriter, status int, v any) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeError writes an error payload with CORS headers
func writeError(w http.ResponseWriter, status int, msg string, details json.RawMessage) {
	writeJSON(w, status, ErrorResponse{
		Error:   msg,
		Details: details,
	})
}
