package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"github.com/loomcms/loom/pkg/loom"
)

// ErrResponse is the JSON error body returned by every handler.
type ErrResponse struct {
	Error string `json:"error"`
}

// renderError maps a service error onto the HTTP error taxonomy: invalid
// definitions and failed validations are 400, not-found 404, conflicts 409,
// permission failures 403, anything else 500.
func renderError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, loom.ErrContentTypeNotFound), errors.Is(err, loom.ErrEntryNotFound):
		status = http.StatusNotFound
	case errors.Is(err, loom.ErrContentTypeExists):
		status = http.StatusConflict
	case errors.Is(err, loom.ErrInvalidDefinition), errors.Is(err, loom.ErrValidationFailed), errors.Is(err, loom.ErrInvalidEntryState):
		status = http.StatusBadRequest
	case errors.Is(err, loom.ErrPermissionDenied):
		status = http.StatusForbidden
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		// Do not leak storage internals to clients.
		msg = "internal error"
	}

	render.Status(r, status)
	render.JSON(w, r, ErrResponse{Error: msg})
}

func renderBadRequest(w http.ResponseWriter, r *http.Request, msg string) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, ErrResponse{Error: msg})
}
