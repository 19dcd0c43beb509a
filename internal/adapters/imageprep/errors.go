package imageprep

import "errors"

// Sentinel errors.
var (
	ErrNoImage     = errors.New("no image supplied")
	ErrTooLarge    = errors.New("image exceeds size limit")
	ErrBadEncoding = errors.New("image is not valid base64")
	ErrUndecodable = errors.New("image could not be decoded")
)
