package api

import (
	"errors"
	"fmt"
	"net/http"

	service "github.com/okian/linewatch/internal/app"
	"github.com/okian/linewatch/internal/adapters/ocr"
	"github.com/okian/linewatch/internal/adapters/repository"
	"github.com/okian/linewatch/internal/domain/timefmt"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest       = errors.New("bad request")
	ErrMethodNotAllowed = errors.New("method not allowed")
	ErrNotFound         = errors.New("not found")
)

// Error codes returned next to the recognition codes.
const (
	codeInvalidRequest    = "INVALID_REQUEST"
	codeInvalidValue      = "INVALID_VALUE"
	codeUnknownField      = "UNKNOWN_FIELD"
	codeNotFound          = "NOT_FOUND"
	codeCaptureInProgress = "CAPTURE_IN_PROGRESS"
	codeUnavailable       = "SERVICE_UNAVAILABLE"
	codeServerError       = "SERVER_ERROR"
)

// Wrap annotates err with the operation that failed.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// WrapKind annotates err with an operation and a sentinel kind so callers can
// match either with errors.Is.
func WrapKind(op string, kind, err error) error {
	if err == nil {
		return NewKind(op, kind)
	}
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}

// NewKind returns an error of the given kind for op.
func NewKind(op string, kind error) error {
	return fmt.Errorf("%s: %w", op, kind)
}

// classify maps an error to its HTTP status, code and client message.
func classify(err error) (int, string, string) {
	if e, ok := ocr.AsError(err); ok {
		return e.Code.HTTPStatus(), string(e.Code), e.Message
	}
	switch {
	case errors.Is(err, service.ErrCaptureInProgress):
		return http.StatusConflict, codeCaptureInProgress, "another capture is still being processed"
	case errors.Is(err, service.ErrNoRecognizer):
		return http.StatusServiceUnavailable, codeUnavailable, "no recognizer is configured"
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, ErrNotFound):
		return http.StatusNotFound, codeNotFound, err.Error()
	case errors.Is(err, repository.ErrInvalidValue):
		return http.StatusBadRequest, codeInvalidValue, err.Error()
	case errors.Is(err, repository.ErrUnknownField):
		return http.StatusBadRequest, codeUnknownField, err.Error()
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, ErrBadRequest), errors.Is(err, timefmt.ErrInvalidTime):
		return http.StatusBadRequest, codeInvalidRequest, err.Error()
	case errors.Is(err, ErrMethodNotAllowed):
		return http.StatusMethodNotAllowed, codeInvalidRequest, err.Error()
	default:
		return http.StatusInternalServerError, codeServerError, err.Error()
	}
}
