package api

import (
	"net/http"
	"time"

	service "github.com/okian/linewatch/internal/app"
	"github.com/okian/linewatch/internal/adapters/ocr"
)

// OCRHandler serves the recognition boundary used by remote instances.
type OCRHandler struct {
	handlerBase
	recognizer Recognizer
}

// NewOCRHandler creates a new boundary handler.
func NewOCRHandler(rec Recognizer, base handlerBase) *OCRHandler {
	return &OCRHandler{handlerBase: base, recognizer: rec}
}

// HandleOCR handles POST /api/ocr. Content advisories come back as
// {error, message} with status 200.
func (h *OCRHandler) HandleOCR(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	var req ocr.BoundaryRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	in := service.RecognizeInput{Image: req.Image, PreviousValue: req.PreviousValue}
	if req.PreviousTimestamp != nil && *req.PreviousTimestamp > 0 {
		at := time.UnixMilli(*req.PreviousTimestamp)
		in.PreviousTimestamp = &at
	}
	out, err := h.recognizer.Recognize(r.Context(), in)
	if err != nil {
		h.fail(w, r, Wrap("recognize", err))
		return
	}
	writeJSON(w, http.StatusOK, out)
}
