package api

import (
	"net/http"

	"github.com/okian/linewatch/internal/domain/model"
)

// SchemaProvider exposes the configured field schema.
type SchemaProvider interface {
	Schema() model.Schema
	Mode() string
}

// SchemaHandler serves the field schema so clients can build forms.
type SchemaHandler struct {
	provider SchemaProvider
}

// NewSchemaHandler creates a new schema handler.
func NewSchemaHandler(p SchemaProvider) *SchemaHandler {
	return &SchemaHandler{provider: p}
}

type schemaResponse struct {
	model.Schema
	Mode string `json:"mode"`
}

// HandleSchema handles GET /api/schema.
func (h *SchemaHandler) HandleSchema(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, schemaResponse{Schema: h.provider.Schema(), Mode: h.provider.Mode()})
}
