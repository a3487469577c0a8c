package chat

import "errors"

var (
	// ErrMalformedInput indicates an inbound frame without a string "message" field.
	ErrMalformedInput = errors.New("malformed message")
	// ErrUpstream indicates the reply could not be produced.
	ErrUpstream = errors.New("upstream failure")
	// ErrInvalidTransition indicates a session state change that is not allowed.
	ErrInvalidTransition = errors.New("invalid session state transition")
)
