package loom

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Error types
var (
	// ErrContentTypeNotFound indicates no content type owns the apiID
	ErrContentTypeNotFound = errors.New("content type not found")

	// ErrContentTypeExists indicates the apiID is already taken
	ErrContentTypeExists = errors.New("content type already exists")

	// ErrEntryNotFound indicates an entry was not found. Syntactically
	// invalid entry identifiers report the same error so callers cannot
	// probe the identifier format.
	ErrEntryNotFound = errors.New("entry not found")

	// ErrInvalidDefinition indicates a malformed content type definition
	ErrInvalidDefinition = errors.New("invalid content type definition")

	// ErrValidationFailed indicates an entry payload failed validation
	ErrValidationFailed = errors.New("validation failed")

	// ErrPermissionDenied indicates the actor lacks ownership or privilege
	ErrPermissionDenied = errors.New("permission denied")

	// ErrInvalidEntryState indicates an unrecognized or disallowed workflow state
	ErrInvalidEntryState = errors.New("invalid entry state")
)

// DefinitionError reports why a content type definition was rejected.
// FieldName is empty when the problem is with the definition as a whole.
type DefinitionError struct {
	APIID     string
	FieldName string
	Reason    string
}

func (e *DefinitionError) Error() string {
	if e.FieldName != "" {
		return fmt.Sprintf("invalid definition %q: field %q: %s", e.APIID, e.FieldName, e.Reason)
	}
	return fmt.Sprintf("invalid definition %q: %s", e.APIID, e.Reason)
}

func (e *DefinitionError) Unwrap() error {
	return ErrInvalidDefinition
}

// ValidationError reports an entry payload value that failed its field's
// coercion rule, or a required field that was absent after normalization.
type ValidationError struct {
	FieldName string
	Reason    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("field %q: %s", e.FieldName, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// EntryError wraps a failed entry operation with its coordinates.
type EntryError struct {
	TypeID  string
	EntryID uuid.UUID
	Op      string
	Err     error
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("entry operation %s failed for %s/%s: %v", e.Op, e.TypeID, e.EntryID, e.Err)
}

func (e *EntryError) Unwrap() error {
	return e.Err
}
