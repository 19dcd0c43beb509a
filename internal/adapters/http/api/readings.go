package api

import (
	"net/http"
	"strconv"
	"strings"

	service "github.com/okian/linewatch/internal/app"
	"github.com/okian/linewatch/internal/domain/model"
)

// ReadingsHandler serves the reading log.
type ReadingsHandler struct {
	handlerBase
	store ReadingStore
}

// NewReadingsHandler creates a new readings handler.
func NewReadingsHandler(store ReadingStore, base handlerBase) *ReadingsHandler {
	return &ReadingsHandler{handlerBase: base, store: store}
}

type manualRequest struct {
	Timestamp  string       `json:"timestamp,omitempty"`
	IsRelevant *bool        `json:"isRelevant,omitempty"`
	Fields     model.Fields `json:"fields"`
	Summary    string       `json:"summary,omitempty"`
}

type correctionRequest struct {
	Field string   `json:"field,omitempty"`
	Value *float64 `json:"value"`
}

type readingsResponse struct {
	Schema   string        `json:"schema"`
	Readings []readingView `json:"readings"`
}

// HandleCollection handles GET and POST /api/readings.
func (h *ReadingsHandler) HandleCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.add(w, r)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (h *ReadingsHandler) list(w http.ResponseWriter, r *http.Request) {
	relevantOnly := false
	if q := r.URL.Query().Get("relevant"); q != "" {
		v, err := strconv.ParseBool(q)
		if err != nil {
			h.fail(w, r, WrapKind("relevant", ErrBadRequest, err))
			return
		}
		relevantOnly = v
	}
	readings := h.store.Readings(r.Context(), relevantOnly)
	out := readingsResponse{Schema: h.store.Schema().Name, Readings: make([]readingView, 0, len(readings))}
	for _, rd := range readings {
		out.Readings = append(out.Readings, h.view(rd))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *ReadingsHandler) add(w http.ResponseWriter, r *http.Request) {
	var req manualRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	at, err := h.parseTime(req.Timestamp)
	if err != nil {
		h.fail(w, r, WrapKind("timestamp", ErrBadRequest, err))
		return
	}
	reading, err := h.store.AddManual(r.Context(), service.ManualInput{
		Timestamp:  at,
		IsRelevant: req.IsRelevant,
		Fields:     req.Fields,
		Summary:    req.Summary,
	})
	if err != nil {
		h.fail(w, r, Wrap("add reading", err))
		return
	}
	writeJSON(w, http.StatusCreated, h.view(reading))
}

// HandleItem handles GET and PATCH /api/readings/{id}.
func (h *ReadingsHandler) HandleItem(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/readings/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodGet:
		reading, err := h.store.Reading(r.Context(), id)
		if err != nil {
			h.fail(w, r, Wrap("get reading", err))
			return
		}
		writeJSON(w, http.StatusOK, h.view(reading))
	case http.MethodPatch:
		h.correct(w, r, id)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPatch)
	}
}

func (h *ReadingsHandler) correct(w http.ResponseWriter, r *http.Request, id string) {
	var req correctionRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.Value == nil {
		h.fail(w, r, NewKind("missing value", ErrBadRequest))
		return
	}
	reading, err := h.store.Correct(r.Context(), id, req.Field, *req.Value)
	if err != nil {
		h.fail(w, r, Wrap("correct reading", err))
		return
	}
	writeJSON(w, http.StatusOK, h.view(reading))
}
