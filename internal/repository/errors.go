package repository

import "errors"

// Store errors shared by every backend.
var (
	ErrUserNotFound        = errors.New("user not found")
	ErrEmailExists         = errors.New("email already exists")
	ErrTransactionNotFound = errors.New("transaction not found")
)
