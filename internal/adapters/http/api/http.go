// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	service "github.com/okian/linewatch/internal/app"
	"github.com/okian/linewatch/internal/domain/model"
	"github.com/okian/linewatch/internal/domain/timefmt"
	"github.com/okian/linewatch/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	Capturer
	Recognizer
	ReadingStore
	ImageSource
	SchemaProvider
	StatsProvider
}

// Capturer runs a photo through recognition and logs the result.
type Capturer interface {
	Capture(ctx context.Context, in service.CaptureInput) (service.CaptureResult, error)
}

// Recognizer answers the boundary endpoint without touching the log.
type Recognizer interface {
	Recognize(ctx context.Context, in service.RecognizeInput) (map[string]any, error)
}

// ReadingStore exposes the reading log.
type ReadingStore interface {
	Schema() model.Schema
	AddManual(ctx context.Context, in service.ManualInput) (model.Reading, error)
	Correct(ctx context.Context, id, field string, value float64) (model.Reading, error)
	Readings(ctx context.Context, relevantOnly bool) []model.Reading
	Reading(ctx context.Context, id string) (model.Reading, error)
}

// ImageSource returns stored thumbnails.
type ImageSource interface {
	Image(ctx context.Context, ref string) ([]byte, bool)
}

// Server wires HTTP routes for the business API.
type Server struct {
	offset   int
	maxBody  int64
	logger   logger.Logger
	health   *HealthHandler
	stats    *StatsHandler
	capture  *CaptureHandler
	ocr      *OCRHandler
	readings *ReadingsHandler
	images   *ImagesHandler
	schema   *SchemaHandler
	board    *dashboardHandler
}

// Option configures a Server.
type Option func(*Server)

// WithTimezoneOffset sets the fixed offset, in minutes east of UTC, used to
// render displayTime and to read local timestamps.
func WithTimezoneOffset(minutes int) Option {
	return func(s *Server) { s.offset = minutes }
}

// WithMaxBodyBytes caps request bodies. Base64 inflates images by a third, so
// this should be set above the image limit.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBody = n
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

const defaultMaxBody = 16 << 20

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{maxBody: defaultMaxBody}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("api")
	}
	base := handlerBase{offset: s.offset, maxBody: s.maxBody, logger: s.logger}
	s.health = NewHealthHandler()
	s.stats = NewStatsHandler(deps)
	s.capture = NewCaptureHandler(deps, base)
	s.ocr = NewOCRHandler(deps, base)
	s.readings = NewReadingsHandler(deps, base)
	s.images = NewImagesHandler(deps)
	s.schema = NewSchemaHandler(deps)
	s.board = newdashboardHandler()
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.health.HandleHealth, "healthz"))
	mux.HandleFunc("/dashboard", s.board.HandleDashboard)
	mux.HandleFunc("/stats", MetricsMiddleware(s.stats.HandleStats, "stats"))
	mux.HandleFunc("/api/schema", MetricsMiddleware(s.schema.HandleSchema, "schema"))
	mux.HandleFunc("/api/capture", MetricsMiddleware(s.capture.HandleCapture, "capture"))
	mux.HandleFunc("/api/ocr", MetricsMiddleware(s.ocr.HandleOCR, "ocr"))
	mux.HandleFunc("/api/readings", MetricsMiddleware(s.readings.HandleCollection, "readings"))
	mux.HandleFunc("/api/readings/", MetricsMiddleware(s.readings.HandleItem, "reading"))
	mux.HandleFunc("/api/images/", MetricsMiddleware(s.images.HandleImage, "images"))
}

// handlerBase carries settings shared by the JSON handlers.
type handlerBase struct {
	offset  int
	maxBody int64
	logger  logger.Logger
}

// decode reads a JSON body into v, rejecting unknown fields.
func (b handlerBase) decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, b.maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return &bodyTooLarge{limit: tooBig.Limit}
		}
		if errors.Is(err, io.EOF) {
			return NewKind("decode body", ErrBadRequest)
		}
		return WrapKind("decode body", ErrBadRequest, err)
	}
	return nil
}

// fail logs server-side failures and writes the error body.
func (b handlerBase) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, _, _ := classify(err)
	if status >= statusInternalError {
		b.logger.Error(r.Context(), "request failed",
			logger.String("path", r.URL.Path),
			logger.Error(err))
	}
	writeError(w, err)
}

// parseTime parses an optional client timestamp.
func (b handlerBase) parseTime(s string) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return time.Time{}, nil
	}
	return timefmt.Parse(s, b.offset)
}

// view renders readings with their display time.
func (b handlerBase) view(r model.Reading) readingView {
	return readingView{Reading: r, DisplayTime: timefmt.Format(r.Timestamp, b.offset)}
}

// readingView is a reading plus its timestamp rendered in the display zone.
type readingView struct {
	model.Reading
	DisplayTime string `json:"displayTime"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type bodyTooLarge struct{ limit int64 }

func (e *bodyTooLarge) Error() string {
	return fmt.Sprintf("request body exceeds %d bytes", e.limit)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	var tooBig *bodyTooLarge
	if errors.As(err, &tooBig) {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "IMAGE_TOO_LARGE", Message: err.Error()})
		return
	}
	status, code, msg := classify(err)
	if msg == "" {
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorResponse{Error: code, Message: msg})
}

func methodNotAllowed(w http.ResponseWriter, allow ...string) {
	w.Header().Set("Allow", strings.Join(allow, ", "))
	writeError(w, NewKind("route", ErrMethodNotAllowed))
}
