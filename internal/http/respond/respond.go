// Package respond writes the flat JSON shapes of the wire contract:
// plain payloads on success and {"error": message} on failure.
package respond

import (
	"encoding/json"
	"net/http"
)

// JSON writes a payload with the given status.
func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Encoding of handler-built payloads does not fail; a broken connection
	// surfaces to the caller anyway.
	_ = json.NewEncoder(w).Encode(payload)
}

// Error writes {"error": message} with the given status.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}
