package api

import (
	"net/http"
	"strconv"
	"strings"
)

// ImagesHandler serves capture thumbnails.
type ImagesHandler struct {
	images ImageSource
}

// NewImagesHandler creates a new images handler.
func NewImagesHandler(images ImageSource) *ImagesHandler {
	return &ImagesHandler{images: images}
}

// HandleImage handles GET /api/images/{ref}.
func (h *ImagesHandler) HandleImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.NotFound(w, r)
		return
	}
	ref := strings.TrimPrefix(r.URL.Path, "/api/images/")
	var data []byte
	ok := false
	if ref != "" {
		data, ok = h.images.Image(r.Context(), ref)
	}
	if !ok {
		writeError(w, NewKind("image "+ref, ErrNotFound))
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	// refs are content hashes
	w.Header().Set("Cache-Control", "private, max-age=86400, immutable")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodGet {
		_, _ = w.Write(data)
	}
}
