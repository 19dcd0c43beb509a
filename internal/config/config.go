// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - Validation errors wrap ErrInvalidConfig; load errors wrap ErrLoadConfig.
package config

import (
	"fmt"
	"time"
)

// Recognizer backends.
const (
	RecognizerGemini    = "gemini"
	RecognizerProxy     = "proxy"
	RecognizerTesseract = "tesseract"
)

// Extraction modes.
const (
	ModeStructured = "structured"
	ModeNumber     = "number"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log lines.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// Schema names the field schema extracted from photos: counter or production.
	Schema string `koanf:"schema"`

	// Mode selects structured extraction or single-number extraction.
	Mode string `koanf:"mode"`

	// Thresholds maps schema names to the normal/slow boundary in units per minute.
	Thresholds map[string]int64 `koanf:"thresholds"`

	// RateWindowMinutes is the widest gap between two readings that still yields a rate.
	RateWindowMinutes int `koanf:"rate_window_minutes"`

	// TimezoneOffsetMinutes is the fixed offset used to display and parse local times.
	TimezoneOffsetMinutes int `koanf:"timezone_offset_minutes"`

	// Recognizer selects the OCR backend.
	Recognizer string `koanf:"recognizer"`

	GeminiAPIKey   string `koanf:"gemini_api_key"`
	GeminiModel    string `koanf:"gemini_model"`
	GeminiEndpoint string `koanf:"gemini_endpoint"`

	// ProxyURL is the base URL of another instance exposing POST /api/ocr.
	ProxyURL string `koanf:"proxy_url"`

	TesseractLanguage string `koanf:"tesseract_language"`

	// RecognizerTimeoutSeconds bounds a single recognition call; 0 disables it.
	RecognizerTimeoutSeconds int `koanf:"recognizer_timeout_seconds"`

	// MaxImageBytes caps the decoded upload size.
	MaxImageBytes int `koanf:"max_image_bytes"`

	// MaxImageDimension is the longest edge of the image sent for recognition.
	MaxImageDimension int `koanf:"max_image_dimension"`

	JPEGQuality int `koanf:"jpeg_quality"`

	// ImageCacheSize bounds the number of thumbnails kept for the log view.
	ImageCacheSize int `koanf:"image_cache_size"`

	MetricsEnabled   bool   `koanf:"metrics_enabled"`
	MetricsNamespace string `koanf:"metrics_namespace"`
	// MetricsSubsystem usually names the watched line, e.g. "line2".
	MetricsSubsystem      string `koanf:"metrics_subsystem"`
	MetricsRefreshSeconds int    `koanf:"metrics_refresh_seconds"`
	// MetricsLabels are constant labels added to every metric, e.g. site=north.
	MetricsLabels map[string]string `koanf:"metrics_labels"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "text",
		Addr:      ":9080",
		Schema:    "counter",
		Mode:      ModeStructured,
		Thresholds: map[string]int64{
			"counter":    50,
			"production": 600,
		},
		RateWindowMinutes:        60,
		TimezoneOffsetMinutes:    540,
		Recognizer:               RecognizerGemini,
		GeminiModel:              "gemini-2.0-flash",
		GeminiEndpoint:           "https://generativelanguage.googleapis.com",
		TesseractLanguage:        "eng",
		RecognizerTimeoutSeconds: 30,
		MaxImageBytes:            10 << 20,
		MaxImageDimension:        1600,
		JPEGQuality:              85,
		ImageCacheSize:           256,
		MetricsEnabled:           true,
		MetricsNamespace:         "linewatch",
		MetricsSubsystem:         "line",
		MetricsRefreshSeconds:    10,
	}
}

// Threshold returns the configured threshold for the schema, if any.
func (c *Config) Threshold(schema string) (int64, bool) {
	v, ok := c.Thresholds[schema]
	return v, ok
}

// RateWindow returns the rate window as a duration.
func (c *Config) RateWindow() time.Duration {
	return time.Duration(c.RateWindowMinutes) * time.Minute
}

// MetricsRefresh returns the runtime collector interval as a duration.
func (c *Config) MetricsRefresh() time.Duration {
	return time.Duration(c.MetricsRefreshSeconds) * time.Second
}

// RecognizerTimeout returns the recognition timeout as a duration. Zero means
// the recognizer call is not bounded.
func (c *Config) RecognizerTimeout() time.Duration {
	return time.Duration(c.RecognizerTimeoutSeconds) * time.Second
}

const (
	maxOffsetMinutes = 14 * 60
	maxJPEGQuality   = 100
)

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.Schema != "counter" && c.Schema != "production":
		return fmt.Errorf("%w: unknown schema %q", ErrInvalidConfig, c.Schema)
	case c.Mode != ModeStructured && c.Mode != ModeNumber:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, c.Mode)
	case c.RateWindowMinutes <= 0:
		return fmt.Errorf("%w: rate_window_minutes must be positive", ErrInvalidConfig)
	case c.TimezoneOffsetMinutes < -maxOffsetMinutes || c.TimezoneOffsetMinutes > maxOffsetMinutes:
		return fmt.Errorf("%w: timezone_offset_minutes out of range", ErrInvalidConfig)
	case c.MaxImageBytes <= 0:
		return fmt.Errorf("%w: max_image_bytes must be positive", ErrInvalidConfig)
	case c.MaxImageDimension <= 0:
		return fmt.Errorf("%w: max_image_dimension must be positive", ErrInvalidConfig)
	case c.JPEGQuality < 1 || c.JPEGQuality > maxJPEGQuality:
		return fmt.Errorf("%w: jpeg_quality must be within 1..100", ErrInvalidConfig)
	case c.ImageCacheSize < 0:
		return fmt.Errorf("%w: image_cache_size must not be negative", ErrInvalidConfig)
	case c.MetricsRefreshSeconds <= 0:
		return fmt.Errorf("%w: metrics_refresh_seconds must be positive", ErrInvalidConfig)
	case c.RecognizerTimeoutSeconds < 0:
		return fmt.Errorf("%w: recognizer_timeout_seconds must not be negative", ErrInvalidConfig)
	}
	if t, ok := c.Thresholds[c.Schema]; ok && t < 0 {
		return fmt.Errorf("%w: threshold for %s must not be negative", ErrInvalidConfig, c.Schema)
	}
	switch c.Recognizer {
	case RecognizerGemini, RecognizerTesseract:
	case RecognizerProxy:
		if c.ProxyURL == "" {
			return fmt.Errorf("%w: proxy_url is required for the proxy recognizer", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown recognizer %q", ErrInvalidConfig, c.Recognizer)
	}
	return nil
}
