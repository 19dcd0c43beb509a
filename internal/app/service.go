// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/okian/linewatch/internal/adapters/imageprep"
	"github.com/okian/linewatch/internal/adapters/ocr"
	"github.com/okian/linewatch/internal/adapters/repository"
	"github.com/okian/linewatch/internal/domain/model"
	"github.com/okian/linewatch/internal/domain/normalize"
	"github.com/okian/linewatch/pkg/logger"
	"github.com/okian/linewatch/pkg/metrics"
)

// Service runs captures through the recognizer and keeps the reading log.
type Service struct {
	schema     model.Schema
	mode       string
	log        repository.Log
	recognizer ocr.Recognizer
	prep       *imageprep.Preparer
	thumbs     *imageprep.ThumbnailCache
	now        func() time.Time
	logger     logger.Logger

	// gate holds one token while a recognition call is outstanding.
	gate chan struct{}
}

// New constructs a Service. Without WithLog an in-memory log for the
// configured schema is created.
func New(opts ...Option) *Service {
	s := &Service{
		schema: model.CounterSchema(),
		mode:   ocr.ModeStructured,
		now:    time.Now,
		gate:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.log == nil {
		s.log = repository.NewMemoryLog(s.schema)
	}
	if s.prep == nil {
		s.prep = imageprep.New()
	}
	if s.thumbs == nil {
		s.thumbs = imageprep.NewThumbnailCache(-1)
	}
	return s
}

// Schema returns the field schema in use.
func (s *Service) Schema() model.Schema { return s.schema }

// Mode returns the extraction mode.
func (s *Service) Mode() string { return s.mode }

// Advisory is a soft recognition failure reported next to the reading it produced.
type Advisory struct {
	Code    ocr.Code `json:"code"`
	Message string   `json:"message"`
}

// CaptureInput is one photo taken by the operator.
type CaptureInput struct {
	// Image is a data URL or bare base64.
	Image string
	// CapturedAt defaults to now.
	CapturedAt time.Time
}

// CaptureResult is the appended reading and any advisory.
type CaptureResult struct {
	Reading  model.Reading `json:"reading"`
	Advisory *Advisory     `json:"advisory,omitempty"`
}

func (s *Service) acquire() error {
	select {
	case s.gate <- struct{}{}:
		metrics.UpdateCaptureInFlight(true)
		return nil
	default:
		metrics.RecordCaptureRejected()
		return ErrCaptureInProgress
	}
}

func (s *Service) release() {
	<-s.gate
	metrics.UpdateCaptureInFlight(false)
}

// InFlight reports whether a recognition call is outstanding.
func (s *Service) InFlight() bool { return len(s.gate) > 0 }

// Capture recognizes a photo and appends the resulting reading. Transport
// failures are returned and nothing is appended. Content advisories still
// append an unrecognized reading.
func (s *Service) Capture(ctx context.Context, in CaptureInput) (CaptureResult, error) {
	if s.recognizer == nil {
		return CaptureResult{}, ErrNoRecognizer
	}
	if err := s.acquire(); err != nil {
		return CaptureResult{}, err
	}
	defer s.release()

	prepared, err := s.prep.PrepareUpload(in.Image)
	if err != nil {
		return CaptureResult{}, uploadError(err)
	}
	metrics.RecordImageBytes(len(prepared.JPEG))
	ref := s.thumbs.RefFor(prepared.Thumbnail)

	at := in.CapturedAt
	if at.IsZero() {
		at = s.now()
	}

	reply, err := s.recognizer.Recognize(context.WithoutCancel(ctx), ocr.Request{
		Image:    prepared.JPEG,
		MIMEType: "image/jpeg",
		Schema:   s.schema,
		Mode:     s.mode,
		Previous: s.hint(ctx),
	})
	var rec normalize.Record
	var advisory *Advisory
	if err != nil {
		e, ok := ocr.AsError(err)
		if !ok || !e.Code.Soft() {
			s.logger.Warn(ctx, "capture failed", logger.Error(err))
			return CaptureResult{}, err
		}
		advisory = &Advisory{Code: e.Code, Message: e.Message}
		rec = normalize.Degraded(s.schema, e.Message)
	} else {
		rec, advisory = s.interpret(reply)
	}

	reading, err := s.log.Append(ctx, model.Reading{
		Timestamp:  at,
		IsRelevant: rec.IsRelevant,
		Fields:     rec.Fields,
		Summary:    rec.Summary,
		ImageRef:   ref,
		Source:     model.SourceCapture,
	})
	if err != nil {
		return CaptureResult{}, err
	}
	s.thumbs.Put(prepared.Thumbnail)

	fields := []logger.Field{
		logger.String("id", reading.ID),
		logger.Bool("relevant", reading.IsRelevant),
		logger.String("status", string(reading.Status)),
	}
	if reading.DerivedRate != nil {
		fields = append(fields, logger.Int64("rate", *reading.DerivedRate))
	}
	if advisory != nil {
		fields = append(fields, logger.String("advisory", string(advisory.Code)))
	}
	s.logger.Info(ctx, "capture logged", fields...)

	return CaptureResult{Reading: reading, Advisory: advisory}, nil
}

// interpret normalizes a successful reply for the configured mode.
func (s *Service) interpret(reply ocr.Reply) (normalize.Record, *Advisory) {
	if s.mode == ocr.ModeStructured && reply.Format == ocr.FormatJSON {
		out := normalize.Structured(s.schema, reply.Raw)
		if !out.OK() {
			metrics.RecordNormalizeDegraded(s.mode)
			s.logger.Debug(context.Background(), "reply degraded", logger.Error(out.Err))
		}
		return out.Record, nil
	}

	n, err := s.number(reply)
	if err != nil {
		metrics.RecordNormalizeDegraded(ocr.ModeNumber)
		msg := "no number could be read from the photo"
		return normalize.Degraded(s.schema, msg), &Advisory{Code: ocr.CodeNoNumbers, Message: msg}
	}
	fields := s.schema.EmptyFields()
	fields[s.schema.RateField] = model.Number(n)
	summary := ""
	if reply.Format == ocr.FormatText {
		summary = strings.Join(strings.Fields(reply.Raw), " ")
	}
	return normalize.Record{IsRelevant: true, Fields: fields, Summary: summary}, nil
}

func (s *Service) number(reply ocr.Reply) (int64, error) {
	if reply.Format == ocr.FormatText {
		return normalize.Extract(reply.Raw)
	}
	return normalize.Number(reply.Raw)
}

// hint returns the previous relevant value of the rate field.
func (s *Service) hint(ctx context.Context) *ocr.Hint {
	last, ok := s.log.LastRelevant(ctx)
	if !ok {
		return nil
	}
	v, ok := last.Fields.Int(s.schema.RateField)
	if !ok {
		return nil
	}
	return &ocr.Hint{Value: v, At: last.Timestamp}
}

// uploadError maps image preparation failures onto boundary codes.
func uploadError(err error) error {
	switch {
	case errors.Is(err, imageprep.ErrNoImage):
		return &ocr.Error{Code: ocr.CodeNoImage, Message: "no image supplied", Err: err}
	case errors.Is(err, imageprep.ErrTooLarge):
		return &ocr.Error{Code: ocr.CodeImageTooLarge, Message: "image is too large", Err: err}
	default:
		return &ocr.Error{Code: ocr.CodeInvalidRequest, Message: "image could not be read", Err: err}
	}
}

// RecognizeInput is the body of the boundary endpoint.
type RecognizeInput struct {
	Image             string
	PreviousValue     *int64
	PreviousTimestamp *time.Time
}

// Recognize runs one photo through the recognizer without touching the log.
// The result is a flat structured record or {"number": n}.
func (s *Service) Recognize(ctx context.Context, in RecognizeInput) (map[string]any, error) {
	if s.recognizer == nil {
		return nil, ErrNoRecognizer
	}
	if err := s.acquire(); err != nil {
		return nil, err
	}
	defer s.release()

	prepared, err := s.prep.PrepareUpload(in.Image)
	if err != nil {
		return nil, uploadError(err)
	}
	var hint *ocr.Hint
	if in.PreviousValue != nil {
		hint = &ocr.Hint{Value: *in.PreviousValue}
		if in.PreviousTimestamp != nil {
			hint.At = *in.PreviousTimestamp
		}
	}
	reply, err := s.recognizer.Recognize(context.WithoutCancel(ctx), ocr.Request{
		Image:    prepared.JPEG,
		MIMEType: "image/jpeg",
		Schema:   s.schema,
		Mode:     s.mode,
		Previous: hint,
	})
	if err != nil {
		return nil, err
	}

	rec, advisory := s.interpret(reply)
	if advisory != nil {
		return nil, ocr.Errorf(advisory.Code, "%s", advisory.Message)
	}
	if s.mode == ocr.ModeNumber {
		n, _ := rec.Fields.Int(s.schema.RateField)
		return map[string]any{"number": n}, nil
	}
	out := map[string]any{
		"isRelevant": rec.IsRelevant,
		"summary":    rec.Summary,
	}
	for name, v := range rec.Fields {
		out[name] = v
	}
	return out, nil
}

// ManualInput is a reading typed in by the operator.
type ManualInput struct {
	Timestamp  time.Time
	IsRelevant *bool
	Fields     model.Fields
	Summary    string
}

// AddManual validates and appends a manually entered reading.
func (s *Service) AddManual(ctx context.Context, in ManualInput) (model.Reading, error) {
	for name, v := range in.Fields {
		spec, ok := s.schema.Field(name)
		if !ok {
			return model.Reading{}, fmt.Errorf("%w: unknown field %q", ErrInvalidInput, name)
		}
		if v.IsNull() {
			continue
		}
		switch spec.Kind {
		case model.KindNumber:
			n, ok := v.Int()
			if !ok || n < 0 {
				return model.Reading{}, fmt.Errorf("%w: %s must be a non-negative whole number", ErrInvalidInput, name)
			}
		case model.KindText:
			if _, ok := v.Str(); !ok {
				return model.Reading{}, fmt.Errorf("%w: %s must be text", ErrInvalidInput, name)
			}
		}
	}
	relevant := true
	if in.IsRelevant != nil {
		relevant = *in.IsRelevant
	}
	return s.log.Append(ctx, model.Reading{
		Timestamp:  in.Timestamp,
		IsRelevant: relevant,
		Fields:     in.Fields,
		Summary:    in.Summary,
		Source:     model.SourceManual,
	})
}

// Correct overwrites one numeric field of a logged reading.
func (s *Service) Correct(ctx context.Context, id, field string, value float64) (model.Reading, error) {
	return s.log.CorrectField(ctx, id, field, value)
}

// Readings returns the log in entry order, or only relevant entries.
func (s *Service) Readings(ctx context.Context, relevantOnly bool) []model.Reading {
	if relevantOnly {
		return slices.Collect(s.log.Relevant(ctx))
	}
	return s.log.List(ctx)
}

// Reading returns one entry.
func (s *Service) Reading(ctx context.Context, id string) (model.Reading, error) {
	return s.log.Get(ctx, id)
}

// Image returns the thumbnail stored under ref.
func (s *Service) Image(_ context.Context, ref string) ([]byte, bool) {
	return s.thumbs.Get(ref)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	ctx := context.Background()
	relevant := 0
	for range s.log.Relevant(ctx) {
		relevant++
	}
	stats := map[string]interface{}{
		"schema":          s.schema.Name,
		"mode":            s.mode,
		"entries":         s.log.Count(ctx),
		"relevantEntries": relevant,
		"captureInFlight": s.InFlight(),
		"cachedImages":    s.thumbs.Len(),
	}
	if s.recognizer != nil {
		stats["recognizer"] = s.recognizer.Name()
	}
	if last, ok := s.log.LastRelevant(ctx); ok {
		stats["lastStatus"] = string(last.Status)
		if last.DerivedRate != nil {
			stats["lastRate"] = *last.DerivedRate
		}
	}
	return stats
}
