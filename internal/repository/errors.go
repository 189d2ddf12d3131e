package repository

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrDuplicate indicates a unique constraint rejected the write.
	ErrDuplicate = errors.New("repository: duplicate record")
	// ErrAttemptsExhausted indicates a challenge has no verification attempts left.
	ErrAttemptsExhausted = errors.New("repository: attempts exhausted")
)
