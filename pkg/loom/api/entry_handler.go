package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/loomcms/loom/pkg/loom"
)

// EntryHandler handles HTTP requests for the generic CRUD engine.
type EntryHandler struct {
	service loom.Service
}

// NewEntryHandler creates a new entry handler
func NewEntryHandler(service loom.Service) *EntryHandler {
	return &EntryHandler{service: service}
}

// Routes returns the routes for entries, mounted under /content
func (h *EntryHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/{apiID}", func(r chi.Router) {
		r.Get("/", h.ListEntries)
		r.Post("/", h.CreateEntry)
		r.Get("/{id}", h.GetEntry)
		r.Put("/{id}", h.UpdateEntry)
		r.Delete("/{id}", h.DeleteEntry)
		r.Put("/{id}/state", h.ChangeEntryState)
	})

	return r
}

// CreateEntry creates a new entry of the given content type
func (h *EntryHandler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var data map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		renderBadRequest(w, r, "invalid request body")
		return
	}

	entry, err := h.service.CreateEntry(r.Context(), loom.CreateEntryRequest{
		TypeID: chi.URLParam(r, "apiID"),
		Data:   data,
		Actor:  actor,
	})
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, entryResponse(entry))
}

// GetEntry returns one entry
func (h *EntryHandler) GetEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := h.service.GetEntry(r.Context(), chi.URLParam(r, "apiID"), chi.URLParam(r, "id"))
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, entryResponse(entry))
}

// ListEntries returns a page of entries with the total match count
func (h *EntryHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	list, err := h.service.ListEntries(r.Context(), loom.ListEntriesRequest{
		TypeID: chi.URLParam(r, "apiID"),
		Page:   page,
		Limit:  limit,
		Search: q.Get("search"),
		Sort:   q.Get("sort"),
	})
	if err != nil {
		renderError(w, r, err)
		return
	}

	entries := make([]map[string]interface{}, 0, len(list.Entries))
	for _, entry := range list.Entries {
		entries = append(entries, entryResponse(entry))
	}
	render.JSON(w, r, map[string]interface{}{
		"entries":     entries,
		"total_count": list.TotalCount,
	})
}

// UpdateEntry merges a payload over an existing entry
func (h *EntryHandler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var data map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		renderBadRequest(w, r, "invalid request body")
		return
	}

	entry, err := h.service.UpdateEntry(r.Context(), loom.UpdateEntryRequest{
		TypeID:  chi.URLParam(r, "apiID"),
		EntryID: chi.URLParam(r, "id"),
		Data:    data,
		Actor:   actor,
	})
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, entryResponse(entry))
}

// DeleteEntry removes one entry
func (h *EntryHandler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	err := h.service.DeleteEntry(r.Context(), loom.DeleteEntryRequest{
		TypeID:  chi.URLParam(r, "apiID"),
		EntryID: chi.URLParam(r, "id"),
		Actor:   actor,
	})
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

// ChangeStateRequest is the request body for an explicit workflow
// transition.
type ChangeStateRequest struct {
	State string `json:"state"`
}

// ChangeEntryState requests a workflow transition for one entry. The stored
// state may differ from the requested one when the approval gate downgrades
// a standard actor's publish request.
func (h *EntryHandler) ChangeEntryState(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req ChangeStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderBadRequest(w, r, "invalid request body")
		return
	}

	entry, err := h.service.ChangeEntryState(r.Context(), loom.ChangeEntryStateRequest{
		TypeID:  chi.URLParam(r, "apiID"),
		EntryID: chi.URLParam(r, "id"),
		State:   loom.EntryState(req.State),
		Actor:   actor,
	})
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, entryResponse(entry))
}

// entryResponse flattens an entry into its wire shape: one key per declared
// field alongside the system attributes.
func entryResponse(entry *loom.Entry) map[string]interface{} {
	out := make(map[string]interface{}, len(entry.Data)+5)
	for k, v := range entry.Data {
		out[k] = v
	}
	out["id"] = entry.ID
	out["state"] = entry.State
	out["created_by"] = entry.CreatedBy
	out["created_at"] = entry.CreatedAt
	out["updated_at"] = entry.UpdatedAt
	return out
}
