package repository

import "errors"

// Sentinel kinds for log errors.
var (
	ErrNotFound     = errors.New("reading not found")
	ErrInvalidValue = errors.New("value must be a non-negative whole number")
	ErrUnknownField = errors.New("field is not a numeric field of the schema")
)
