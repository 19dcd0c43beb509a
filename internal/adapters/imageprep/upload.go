package imageprep

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// DecodeUpload accepts a data URL ("data:image/png;base64,...") or bare
// base64 and returns the raw bytes and the declared MIME type, if any.
func DecodeUpload(s string, maxBytes int) ([]byte, string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, "", ErrNoImage
	}
	var mime string
	if rest, ok := strings.CutPrefix(s, "data:"); ok {
		header, payload, found := strings.Cut(rest, ",")
		if !found {
			return nil, "", ErrBadEncoding
		}
		if !strings.HasSuffix(header, ";base64") {
			return nil, "", fmt.Errorf("%w: data url is not base64", ErrBadEncoding)
		}
		mime = strings.TrimSuffix(header, ";base64")
		s = payload
	}
	s = strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', ' ', '\t':
			return -1
		}
		return r
	}, s)
	if s == "" {
		return nil, "", ErrNoImage
	}

	enc := base64.StdEncoding
	switch {
	case strings.ContainsAny(s, "-_"):
		enc = base64.URLEncoding
		if !strings.HasSuffix(s, "=") {
			enc = base64.RawURLEncoding
		}
	case len(s)%4 != 0:
		enc = base64.RawStdEncoding
	}
	if maxBytes > 0 && enc.DecodedLen(len(s)) > maxBytes+2 {
		return nil, mime, fmt.Errorf("%w: %d bytes allowed", ErrTooLarge, maxBytes)
	}
	data, err := enc.DecodeString(s)
	if err != nil {
		return nil, mime, fmt.Errorf("%w: %w", ErrBadEncoding, err)
	}
	if maxBytes > 0 && len(data) > maxBytes {
		return nil, mime, fmt.Errorf("%w: %d bytes allowed", ErrTooLarge, maxBytes)
	}
	if len(data) == 0 {
		return nil, mime, ErrNoImage
	}
	return data, mime, nil
}
