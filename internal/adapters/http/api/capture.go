package api

import (
	"net/http"

	service "github.com/okian/linewatch/internal/app"
)

// CaptureHandler handles photo captures from the operator.
type CaptureHandler struct {
	handlerBase
	capturer Capturer
}

// NewCaptureHandler creates a new capture handler.
func NewCaptureHandler(c Capturer, base handlerBase) *CaptureHandler {
	return &CaptureHandler{handlerBase: base, capturer: c}
}

type captureRequest struct {
	Image      string `json:"image"`
	CapturedAt string `json:"capturedAt,omitempty"`
}

type captureResponse struct {
	Reading  readingView       `json:"reading"`
	Advisory *service.Advisory `json:"advisory,omitempty"`
}

// HandleCapture handles POST /api/capture. A second capture while one is
// being recognized is rejected with 409.
func (h *CaptureHandler) HandleCapture(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	var req captureRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	at, err := h.parseTime(req.CapturedAt)
	if err != nil {
		h.fail(w, r, WrapKind("capturedAt", ErrBadRequest, err))
		return
	}
	res, err := h.capturer.Capture(r.Context(), service.CaptureInput{Image: req.Image, CapturedAt: at})
	if err != nil {
		h.fail(w, r, Wrap("capture", err))
		return
	}
	writeJSON(w, http.StatusCreated, captureResponse{Reading: h.view(res.Reading), Advisory: res.Advisory})
}
