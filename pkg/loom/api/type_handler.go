package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/loomcms/loom/pkg/loom"
)

// TypeHandler handles HTTP requests for the schema registry.
type TypeHandler struct {
	service loom.Service
}

// NewTypeHandler creates a new content type handler
func NewTypeHandler(service loom.Service) *TypeHandler {
	return &TypeHandler{service: service}
}

// Routes returns the routes for content types
func (h *TypeHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListContentTypes)
	r.Post("/", h.DefineContentType)
	r.Get("/{apiID}", h.GetContentType)
	r.Put("/{apiID}", h.ReplaceContentType)
	r.Delete("/{apiID}", h.DeleteContentType)

	return r
}

// ContentTypeRequest is the request body for defining or replacing a
// content type.
type ContentTypeRequest struct {
	APIID       string       `json:"api_id"`
	DisplayName string       `json:"display_name"`
	Description string       `json:"description,omitempty"`
	Fields      []loom.Field `json:"fields"`
}

// DefineContentType creates a new content type
func (h *TypeHandler) DefineContentType(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireActor(w, r); !ok {
		return
	}

	var req ContentTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderBadRequest(w, r, "invalid request body")
		return
	}

	ct, err := h.service.DefineContentType(r.Context(), loom.DefineContentTypeRequest{
		APIID:       req.APIID,
		DisplayName: req.DisplayName,
		Description: req.Description,
		Fields:      req.Fields,
	})
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, ct)
}

// GetContentType returns one content type definition
func (h *TypeHandler) GetContentType(w http.ResponseWriter, r *http.Request) {
	ct, err := h.service.GetContentType(r.Context(), chi.URLParam(r, "apiID"))
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, ct)
}

// ListContentTypes returns all content type definitions
func (h *TypeHandler) ListContentTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.service.ListContentTypes(r.Context())
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{"content_types": types})
}

// ReplaceContentType replaces a content type definition whole
func (h *TypeHandler) ReplaceContentType(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireActor(w, r); !ok {
		return
	}

	var req ContentTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderBadRequest(w, r, "invalid request body")
		return
	}
	if req.APIID == "" {
		req.APIID = chi.URLParam(r, "apiID")
	}

	ct, err := h.service.ReplaceContentType(r.Context(), chi.URLParam(r, "apiID"), loom.DefineContentTypeRequest{
		APIID:       req.APIID,
		DisplayName: req.DisplayName,
		Description: req.Description,
		Fields:      req.Fields,
	})
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, ct)
}

// DeleteContentType removes a content type, its compiled model and, as an
// explicit destructive cascade, every entry of that type.
func (h *TypeHandler) DeleteContentType(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireActor(w, r); !ok {
		return
	}

	if err := h.service.DeleteContentType(r.Context(), chi.URLParam(r, "apiID")); err != nil {
		renderError(w, r, err)
		return
	}
	render.NoContent(w, r)
}
