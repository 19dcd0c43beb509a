// Package imageprep decodes uploaded photos and readies them for recognition.
package imageprep

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

const (
	defaultMaxDimension = 1600
	defaultQuality      = 85
	defaultMaxBytes     = 10 << 20
	defaultMaxPixels    = 40_000_000
	thumbnailEdge       = 320
	thumbnailQuality    = 75
)

// Option configures a Preparer.
type Option func(*Preparer)

// WithMaxDimension bounds the longest edge of the prepared image.
func WithMaxDimension(px int) Option {
	return func(p *Preparer) {
		if px > 0 {
			p.maxDimension = px
		}
	}
}

// WithQuality sets the JPEG quality of the prepared image.
func WithQuality(q int) Option {
	return func(p *Preparer) {
		if q > 0 && q <= 100 {
			p.quality = q
		}
	}
}

// WithMaxBytes caps the decoded upload size.
func WithMaxBytes(n int) Option {
	return func(p *Preparer) {
		if n > 0 {
			p.maxBytes = n
		}
	}
}

// WithMaxPixels caps the declared width times height of an upload.
func WithMaxPixels(n int) Option {
	return func(p *Preparer) {
		if n > 0 {
			p.maxPixels = n
		}
	}
}

// Preparer turns uploads into JPEGs sized for the recognizer.
type Preparer struct {
	maxDimension int
	quality      int
	maxBytes     int
	maxPixels    int
}

// New returns a Preparer.
func New(opts ...Option) *Preparer {
	p := &Preparer{
		maxDimension: defaultMaxDimension,
		quality:      defaultQuality,
		maxBytes:     defaultMaxBytes,
		maxPixels:    defaultMaxPixels,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// MaxBytes returns the upload limit.
func (p *Preparer) MaxBytes() int { return p.maxBytes }

// Prepared is an upload ready for recognition.
type Prepared struct {
	JPEG      []byte
	Thumbnail []byte
	Width     int
	Height    int
	// Image is the oriented, downscaled image.
	Image image.Image
}

// PrepareUpload decodes a data URL or base64 upload and prepares it.
func (p *Preparer) PrepareUpload(upload string) (Prepared, error) {
	data, _, err := DecodeUpload(upload, p.maxBytes)
	if err != nil {
		return Prepared{}, err
	}
	return p.Prepare(data)
}

// Prepare decodes raw image bytes, applies EXIF orientation, downscales to
// the configured bound and re-encodes as JPEG along with a thumbnail.
func (p *Preparer) Prepare(data []byte) (Prepared, error) {
	if len(data) == 0 {
		return Prepared{}, ErrNoImage
	}
	if len(data) > p.maxBytes {
		return Prepared{}, fmt.Errorf("%w: %d bytes allowed", ErrTooLarge, p.maxBytes)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Prepared{}, fmt.Errorf("%w: %w", ErrUndecodable, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > p.maxPixels/cfg.Height {
		return Prepared{}, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrTooLarge, cfg.Width, cfg.Height, p.maxPixels)
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return Prepared{}, fmt.Errorf("%w: %w", ErrUndecodable, err)
	}

	b := img.Bounds()
	if b.Dx() > p.maxDimension || b.Dy() > p.maxDimension {
		img = imaging.Fit(img, p.maxDimension, p.maxDimension, imaging.Lanczos)
	}

	var out bytes.Buffer
	if err := imaging.Encode(&out, img, imaging.JPEG, imaging.JPEGQuality(p.quality)); err != nil {
		return Prepared{}, fmt.Errorf("encode jpeg: %w", err)
	}
	thumb, err := Thumbnail(img)
	if err != nil {
		return Prepared{}, err
	}
	return Prepared{
		JPEG:      out.Bytes(),
		Thumbnail: thumb,
		Width:     img.Bounds().Dx(),
		Height:    img.Bounds().Dy(),
		Image:     img,
	}, nil
}

// Thumbnail encodes a small JPEG preview of img.
func Thumbnail(img image.Image) ([]byte, error) {
	small := imaging.Fit(img, thumbnailEdge, thumbnailEdge, imaging.Box)
	var out bytes.Buffer
	if err := imaging.Encode(&out, small, imaging.JPEG, imaging.JPEGQuality(thumbnailQuality)); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return out.Bytes(), nil
}
