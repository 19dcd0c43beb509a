//go:build !tesseract

package ocr

import (
	"context"
	"fmt"
)

// Tesseract is unavailable in builds without the tesseract tag.
type Tesseract struct{}

// NewTesseract reports that the binary was built without libtesseract.
func NewTesseract(string) (*Tesseract, error) {
	return nil, fmt.Errorf("%w: rebuild with -tags tesseract", ErrBackendUnavailable)
}

// Name implements Recognizer.
func (*Tesseract) Name() string { return "tesseract" }

// Recognize implements Recognizer.
func (*Tesseract) Recognize(context.Context, Request) (Reply, error) {
	return Reply{}, &Error{Code: CodeServerError, Message: "tesseract backend not built", Err: ErrBackendUnavailable}
}
