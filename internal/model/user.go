// Package model defines domain entities for the application.
package model

import "time"

// User represents an account that owns a ledger of transactions.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never serialize
	CreatedAt    time.Time `json:"created_at"`
}

// AuthContext holds the authenticated identity for a request.
// This is injected into the request context by auth middleware.
type AuthContext struct {
	UserID string
	Email  string
	Name   string
}
