package domain

import "errors"

// Authentication and authorization.
var (
	ErrUnauthenticated    = errors.New("authentication required")
	ErrInvalidToken       = errors.New("invalid token")
	ErrExpiredToken       = errors.New("token expired")
	ErrForbidden          = errors.New("access forbidden")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// Entities.
var (
	ErrUserNotFound  = errors.New("user not found")
	ErrUserExists    = errors.New("user with this email already exists")
	ErrOrderNotFound = errors.New("order not found")
)

// Validation and state.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrConcurrentUpdate is returned by repositories when a compare-and-set
	// lost against another writer. Services translate it; it never reaches clients.
	ErrConcurrentUpdate = errors.New("concurrent update")
)

// Gateway to service communication.
var (
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrUpstream           = errors.New("upstream error")
)
