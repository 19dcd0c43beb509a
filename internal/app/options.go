package service

import (
	"time"

	"github.com/okian/linewatch/internal/adapters/imageprep"
	"github.com/okian/linewatch/internal/adapters/ocr"
	"github.com/okian/linewatch/internal/adapters/repository"
	"github.com/okian/linewatch/internal/domain/model"
	"github.com/okian/linewatch/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithSchema sets the field schema extracted from photos.
func WithSchema(schema model.Schema) Option {
	return func(s *Service) {
		if schema.Name != "" {
			s.schema = schema
		}
	}
}

// WithMode selects structured or single-number extraction.
func WithMode(mode string) Option {
	return func(s *Service) {
		if mode == ocr.ModeStructured || mode == ocr.ModeNumber {
			s.mode = mode
		}
	}
}

// WithLog sets the reading log.
func WithLog(log repository.Log) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithRecognizer sets the OCR backend.
func WithRecognizer(r ocr.Recognizer) Option {
	return func(s *Service) {
		if r != nil {
			s.recognizer = r
		}
	}
}

// WithPreparer sets the image preparer.
func WithPreparer(p *imageprep.Preparer) Option {
	return func(s *Service) {
		if p != nil {
			s.prep = p
		}
	}
}

// WithThumbnailCache sets the cache behind imageRef.
func WithThumbnailCache(c *imageprep.ThumbnailCache) Option {
	return func(s *Service) {
		if c != nil {
			s.thumbs = c
		}
	}
}

// WithClock sets the time source for captures without a timestamp.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
