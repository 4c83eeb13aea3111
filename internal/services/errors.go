package services

import "errors"

// Dashboard service errors
var (
	// Table errors
	ErrNoTableLoaded = errors.New("no loan table loaded")

	// Loan errors
	ErrLoanNotFound      = errors.New("loan not found")
	ErrLoanNotComputable = errors.New("loan has unusable required fields")

	// General errors
	ErrInvalidInput = errors.New("invalid input")
)
