// Package dto provides Data Transfer Objects for API requests and responses.
// Every response body carries a success flag.
package dto

// MessageResponse is a bare success or failure envelope.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ErrorResponse represents an API error.
// Error carries the underlying cause for unexpected failures only.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}
