// Package common holds sentinel errors shared by the store, the image
// pipeline and the HTTP layer. Callers match them with errors.Is.
package common

import "errors"

var (
	// Store-level errors.
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// Request-level errors.
	ErrUnauthorized = errors.New("invalid credentials")
	ErrInvalidInput = errors.New("invalid input")

	// Blob storage failures.
	ErrStorage = errors.New("storage error")
)
