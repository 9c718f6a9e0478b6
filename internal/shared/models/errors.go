package models

import "errors"

// Sentinel errors returned by the store layer. Handlers map these to HTTP
// status codes; everything else surfaces as a 500.
var (
	ErrNotFound          = errors.New("not found")
	ErrUnknownModel      = errors.New("unknown model")
	ErrDuplicateEmail    = errors.New("email already registered")
	ErrDuplicateFeedback = errors.New("feedback already submitted for this call")
)
