package app

import "errors"

// ErrNotFound and related errors describe validation and runtime failures.
var (
	ErrNotFound     = errors.New("not found")
	ErrUnknownEvent = errors.New("unknown gesture event")
	ErrDragActive   = errors.New("drag in progress")
	ErrEmptyGesture = errors.New("gesture has no events")
)
