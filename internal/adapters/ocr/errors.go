package ocr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a recognition failure at the /api/ocr boundary.
type Code string

// Recognition error codes.
const (
	CodeNoImage        Code = "NO_IMAGE"
	CodeAPIKeyMissing  Code = "API_KEY_MISSING"
	CodeAPIKeyInvalid  Code = "API_KEY_INVALID"
	CodeQuotaExceeded  Code = "QUOTA_EXCEEDED"
	CodeSafetyBlocked  Code = "SAFETY_BLOCKED"
	CodeImageTooLarge  Code = "IMAGE_TOO_LARGE"
	CodeInvalidRequest Code = "INVALID_REQUEST"
	CodeNoText         Code = "NO_TEXT"
	CodeNoNumbers      Code = "NO_NUMBERS"
	CodeServerError    Code = "SERVER_ERROR"
)

// Class groups codes by how the caller reacts to them.
type Class int

const (
	// ClassTransport failures are surfaced verbatim and nothing is logged.
	ClassTransport Class = iota
	// ClassContent failures are advisories; an unrecognized reading is still logged.
	ClassContent
)

// HTTPStatus is the status the boundary endpoint answers with for the code.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNoImage, CodeInvalidRequest:
		return http.StatusBadRequest
	case CodeAPIKeyInvalid:
		return http.StatusForbidden
	case CodeQuotaExceeded:
		return http.StatusTooManyRequests
	case CodeImageTooLarge:
		return http.StatusRequestEntityTooLarge
	case CodeSafetyBlocked, CodeNoText, CodeNoNumbers:
		return http.StatusOK
	default:
		return http.StatusInternalServerError
	}
}

// Class reports the taxonomy class of the code.
func (c Code) Class() Class {
	switch c {
	case CodeSafetyBlocked, CodeNoText, CodeNoNumbers:
		return ClassContent
	default:
		return ClassTransport
	}
}

// Soft reports whether the code is a content advisory rather than a failure.
func (c Code) Soft() bool { return c.Class() == ClassContent }

// Known reports whether c is one of the boundary codes.
func (c Code) Known() bool {
	switch c {
	case CodeNoImage, CodeAPIKeyMissing, CodeAPIKeyInvalid, CodeQuotaExceeded,
		CodeSafetyBlocked, CodeImageTooLarge, CodeInvalidRequest, CodeNoText,
		CodeNoNumbers, CodeServerError:
		return true
	}
	return false
}

// Error is a typed recognition failure.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Errorf builds an *Error with a formatted message.
func Errorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// AsError extracts an *Error from err.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Sentinel errors.
var (
	ErrBackendUnavailable = errors.New("recognizer backend unavailable")
	ErrUnknownBackend     = errors.New("unknown recognizer backend")
)
