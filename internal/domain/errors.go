// Package domain defines the core business entities and errors.
package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrEmptyOwner is returned when an entity has no owner identity.
	ErrEmptyOwner = errors.New("owner ID cannot be empty")

	// ErrEmptyTitle is returned when a task has no title.
	ErrEmptyTitle = errors.New("task title cannot be empty")

	// ErrInvalidPriority is returned when a priority is not LOW, MEDIUM or HIGH.
	ErrInvalidPriority = errors.New("invalid priority")

	// ErrEmptyEndpoint is returned when a subscription has no endpoint URL.
	ErrEmptyEndpoint = errors.New("subscription endpoint cannot be empty")

	// ErrInvalidChannel is returned when a notification channel is unknown.
	ErrInvalidChannel = errors.New("invalid notification channel")

	// ErrInvalidOutcome is returned when a notification outcome is unknown.
	ErrInvalidOutcome = errors.New("invalid notification outcome")
)
