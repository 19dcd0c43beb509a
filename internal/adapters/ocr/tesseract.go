//go:build tesseract

package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"

	"github.com/okian/linewatch/internal/adapters/imageprep"
)

const digitWhitelist = "0123456789,. "

// Tesseract recognizes digits locally with libtesseract.
type Tesseract struct {
	language string
	// gosseract clients are not safe for concurrent use.
	mu sync.Mutex
}

// NewTesseract returns a local recognizer for the given language.
func NewTesseract(language string) (*Tesseract, error) {
	if language == "" {
		language = "eng"
	}
	return &Tesseract{language: language}, nil
}

// Name implements Recognizer.
func (t *Tesseract) Name() string { return "tesseract" }

// Recognize implements Recognizer.
func (t *Tesseract) Recognize(_ context.Context, req Request) (Reply, error) {
	if len(req.Image) == 0 {
		return Reply{}, Errorf(CodeNoImage, "no image supplied")
	}
	img, err := imaging.Decode(bytes.NewReader(req.Image))
	if err != nil {
		return Reply{}, &Error{Code: CodeInvalidRequest, Message: "decode image", Err: err}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, imageprep.ForOCR(img)); err != nil {
		return Reply{}, &Error{Code: CodeServerError, Message: "encode image", Err: err}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	client := gosseract.NewClient()
	defer func() { _ = client.Close() }()

	if err := client.SetLanguage(t.language); err != nil {
		return Reply{}, &Error{Code: CodeServerError, Message: "set language", Err: err}
	}
	if err := client.SetWhitelist(digitWhitelist); err != nil {
		return Reply{}, &Error{Code: CodeServerError, Message: "set whitelist", Err: err}
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return Reply{}, &Error{Code: CodeServerError, Message: "set image", Err: err}
	}
	text, err := client.Text()
	if err != nil {
		return Reply{}, &Error{Code: CodeServerError, Message: fmt.Sprintf("tesseract (%s)", t.language), Err: err}
	}
	if strings.TrimSpace(text) == "" {
		return Reply{}, Errorf(CodeNoText, "no text was recognized in the photo")
	}
	return Reply{Raw: text, Format: FormatText}, nil
}
