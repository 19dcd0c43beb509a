package normalize

import "errors"

// Sentinel kinds for normalizer errors.
var (
	ErrUnparsable = errors.New("unparsable reply")
	ErrNoNumber   = errors.New("no number found")
)
