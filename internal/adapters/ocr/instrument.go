package ocr

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/okian/linewatch/pkg/logger"
	"github.com/okian/linewatch/pkg/metrics"
)

const codeOK = "OK"

// Instrumented records metrics and logs around another Recognizer.
type Instrumented struct {
	next Recognizer
	log  logger.Logger
}

// Instrument wraps r.
func Instrument(r Recognizer, l logger.Logger) *Instrumented {
	if l == nil {
		l = logger.Get().Named("ocr")
	}
	return &Instrumented{next: r, log: l}
}

// Name implements Recognizer.
func (i *Instrumented) Name() string { return i.next.Name() }

// Recognize implements Recognizer.
func (i *Instrumented) Recognize(ctx context.Context, req Request) (Reply, error) {
	start := time.Now()
	reply, err := i.next.Recognize(ctx, req)
	ms := float64(time.Since(start).Microseconds()) / 1000.0
	backend := i.next.Name()

	metrics.RecordOCRLatency(backend, ms)
	if err != nil {
		code := string(CodeServerError)
		if e, ok := AsError(err); ok {
			code = string(e.Code)
		}
		metrics.RecordOCRRequest(backend, code)
		metrics.RecordErrorByComponent("ocr", code)
		i.log.Debug(ctx, "recognition failed",
			logger.String("backend", backend),
			logger.String("code", code),
			logger.Float64("latency_ms", ms),
			logger.Error(err))
		return reply, err
	}
	metrics.RecordOCRRequest(backend, codeOK)
	i.log.Debug(ctx, "recognition done",
		logger.String("backend", backend),
		logger.Int("image_bytes", len(req.Image)),
		logger.Float64("latency_ms", ms))
	return reply, nil
}

// Backends.
const (
	BackendGemini    = "gemini"
	BackendProxy     = "proxy"
	BackendTesseract = "tesseract"
)

// Settings selects and configures a backend.
type Settings struct {
	Backend  string
	APIKey   string
	Model    string
	Endpoint string
	ProxyURL string
	Language string
	// Timeout bounds the HTTP round trip of remote backends. Zero leaves it
	// to the transport.
	Timeout time.Duration
}

// Open builds the configured backend wrapped with instrumentation.
func Open(s Settings, l logger.Logger) (Recognizer, error) {
	client := &http.Client{Timeout: s.Timeout}
	var r Recognizer
	switch s.Backend {
	case BackendGemini:
		r = NewGemini(
			WithAPIKey(s.APIKey),
			WithModel(s.Model),
			WithEndpoint(s.Endpoint),
			WithHTTPClient(client),
			WithGeminiLogger(l),
		)
	case BackendProxy:
		r = NewProxy(s.ProxyURL, WithProxyHTTPClient(client), WithProxyLogger(l))
	case BackendTesseract:
		t, err := NewTesseract(s.Language)
		if err != nil {
			return nil, err
		}
		r = t
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, s.Backend)
	}
	return Instrument(r, l), nil
}
