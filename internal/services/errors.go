// Package services defines the business logic for message intake,
// conversations and the knowledge base. This file centralizes common
// service-level error values so that they can be consistently returned by
// service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and translation
// into user-facing messages or HTTP status codes should be performed at the
// handler/controller layer.
package services

import "errors"

// Intake validation errors.
var (
	// ErrEmptyText is returned when an inbound message has no text.
	ErrEmptyText = errors.New("message text is empty")

	// ErrTooLong is returned when an inbound message exceeds the configured
	// maximum rune length.
	ErrTooLong = errors.New("message text too long")

	// ErrInvalidSender is returned when the sender type is not owner or renter.
	ErrInvalidSender = errors.New("sender type must be owner or renter")

	// ErrInvalidChannel is returned for an unknown conversation channel.
	ErrInvalidChannel = errors.New("unknown channel")
)

// Lookup errors.
var (
	// ErrBuildingNotFound indicates that the building does not exist.
	ErrBuildingNotFound = errors.New("building not found")

	// ErrResidentNotFound indicates that the resident does not exist in the
	// building or is no longer active.
	ErrResidentNotFound = errors.New("resident not found")

	// ErrConversationNotFound indicates that the conversation does not exist
	// or belongs to another building or resident.
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrLookup wraps knowledge-base failures. The intake pipeline treats it
	// as non-fatal.
	ErrLookup = errors.New("knowledge lookup failed")
)
