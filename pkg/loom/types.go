package loom

import (
	"time"

	"github.com/google/uuid"
)

// FieldType is the closed vocabulary of field kinds a content type may use.
type FieldType string

// Field type constants (typed).
const (
	FieldTypeText     FieldType = "text"
	FieldTypeRichText FieldType = "richtext"
	FieldTypeNumber   FieldType = "number"
	FieldTypeBoolean  FieldType = "boolean"
	FieldTypeDate     FieldType = "date"
	FieldTypeDateTime FieldType = "datetime"
	FieldTypeEmail    FieldType = "email"
	FieldTypePassword FieldType = "password"
	FieldTypeEnum     FieldType = "enum"
	FieldTypeJSON     FieldType = "json"
	FieldTypeMedia    FieldType = "media"
	FieldTypeRelation FieldType = "relation"
)

// IsValid reports whether t is a member of the field type vocabulary.
func (t FieldType) IsValid() bool {
	switch t {
	case FieldTypeText, FieldTypeRichText, FieldTypeNumber, FieldTypeBoolean,
		FieldTypeDate, FieldTypeDateTime, FieldTypeEmail, FieldTypePassword,
		FieldTypeEnum, FieldTypeJSON, FieldTypeMedia, FieldTypeRelation:
		return true
	}
	return false
}

// StorageKind is the storage primitive a field type maps to.
type StorageKind string

// Storage kind constants (typed).
const (
	StorageKindString    StorageKind = "string"
	StorageKindNumber    StorageKind = "number"
	StorageKindBool      StorageKind = "bool"
	StorageKindTime      StorageKind = "time"
	StorageKindJSON      StorageKind = "json"
	StorageKindReference StorageKind = "reference"
)

// Field is one typed, named attribute of a content type.
type Field struct {
	Name        string      `json:"name"`
	DisplayName string      `json:"display_name,omitempty"`
	Type        FieldType   `json:"type"`
	Required    bool        `json:"required,omitempty"`
	Unique      bool        `json:"unique,omitempty"`
	Default     interface{} `json:"default,omitempty"`

	// Enum fields only: the non-empty set of allowed values.
	Options []string `json:"options,omitempty"`

	// Relation fields only: target apiID and cardinality.
	RelationTo   string `json:"relation_to,omitempty"`
	RelationMany bool   `json:"relation_many,omitempty"`

	// Media fields only: cardinality.
	Multiple bool `json:"multiple,omitempty"`
}

// ContentType is a user-defined record schema with a globally unique apiID.
type ContentType struct {
	APIID       string    `json:"api_id"`
	DisplayName string    `json:"display_name"`
	Description string    `json:"description,omitempty"`
	Fields      []Field   `json:"fields"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// FieldByName returns the field declaration named name, if any.
func (ct *ContentType) FieldByName(name string) (Field, bool) {
	for _, f := range ct.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// EntryState is the workflow status of an entry.
type EntryState string

// Entry state constants (typed).
const (
	EntryStateDraft           EntryState = "draft"
	EntryStatePendingApproval EntryState = "pending_approval"
	EntryStatePublished       EntryState = "published"
)

// IsValid reports whether s is a recognized workflow state.
func (s EntryState) IsValid() bool {
	switch s {
	case EntryStateDraft, EntryStatePendingApproval, EntryStatePublished:
		return true
	}
	return false
}

// Entry is one record instance of a content type. Data holds one canonical
// value per declared field; absent keys mean the field was never set.
type Entry struct {
	ID        uuid.UUID              `json:"id"`
	TypeID    string                 `json:"type_id"`
	Data      map[string]interface{} `json:"data"`
	State     EntryState             `json:"state"`
	CreatedBy uuid.UUID              `json:"created_by"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// Clone returns a deep-enough copy of the entry for handing across the
// repository boundary. Data values are shared; callers treat them as
// immutable once stored.
func (e *Entry) Clone() *Entry {
	cp := *e
	cp.Data = make(map[string]interface{}, len(e.Data))
	for k, v := range e.Data {
		cp.Data[k] = v
	}
	return &cp
}

// Actor identifies the caller of a mutating operation. Privileged actors may
// publish directly and approve pending entries.
type Actor struct {
	ID         uuid.UUID `json:"id"`
	Privileged bool      `json:"privileged"`
}

// Reserved entry attribute names. Field declarations may not shadow them.
var reservedFieldNames = map[string]struct{}{
	"id":         {},
	"state":      {},
	"created_by": {},
	"created_at": {},
	"updated_at": {},
}
