// Package ocr talks to the services that read numbers off photographed boards.
package ocr

import (
	"context"
	"time"

	"github.com/okian/linewatch/internal/domain/model"
)

// Extraction modes.
const (
	ModeStructured = "structured"
	ModeNumber     = "number"
)

// Format tells the normalizer how to read a reply.
type Format int

const (
	// FormatJSON replies hold a structured record or {"number": n}.
	FormatJSON Format = iota
	// FormatText replies are free text from a plain OCR engine.
	FormatText
)

// Hint is the previous relevant reading, passed to the prompt to steer the model.
type Hint struct {
	Value int64
	At    time.Time
}

// Request is one photo to recognize.
type Request struct {
	Image    []byte
	MIMEType string
	Schema   model.Schema
	Mode     string
	Previous *Hint
}

// Reply is the unparsed answer of a backend.
type Reply struct {
	Raw    string
	Format Format
}

// Recognizer turns a photo into a raw reply.
type Recognizer interface {
	Name() string
	Recognize(ctx context.Context, req Request) (Reply, error)
}
