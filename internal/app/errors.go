package service

import "errors"

// Sentinel errors.
var (
	ErrCaptureInProgress = errors.New("another capture is in progress")
	ErrNoRecognizer      = errors.New("no recognizer configured")
	ErrInvalidInput      = errors.New("invalid input")
)
