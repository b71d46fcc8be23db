package middleware

import (
	"encoding/json"
	"net/http"
)

const msgBodyTooLarge = "Request body too large"

type errorEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// writeJSONError writes the same failure envelope the handlers use.
func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorEnvelope{Success: false, Message: message})
}
