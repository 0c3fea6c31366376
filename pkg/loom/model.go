package loom

import (
	"sync"
	"time"
)

// CompiledField is the storage-model view of one field declaration.
type CompiledField struct {
	Name         string
	Type         FieldType
	Kind         StorageKind
	Required     bool
	Unique       bool
	Default      interface{}
	Options      map[string]struct{} // enum membership set, nil otherwise
	RelationTo   string
	Many         bool // list-valued reference (relation_many / multiple)
}

// IsReference reports whether the field holds media or relation references.
func (f *CompiledField) IsReference() bool {
	return f.Kind == StorageKindReference
}

// CompiledModel is the synthesized runtime storage model of a content type.
// It is pure metadata: an accessor over the dynamic collection keyed by the
// type's apiID, never a holder of data rows. Models are immutable once
// registered; recompilation produces a fresh value.
type CompiledModel struct {
	APIID      string
	Fields     map[string]*CompiledField
	Order      []string // declaration order of field names
	CompiledAt time.Time
}

// StringFields returns, in declaration order, the names of fields whose
// storage kind is string. These back the free-text search.
func (m *CompiledModel) StringFields() []string {
	var names []string
	for _, name := range m.Order {
		if m.Fields[name].Kind == StorageKindString {
			names = append(names, name)
		}
	}
	return names
}

// Field returns the compiled field named name, if any.
func (m *CompiledModel) Field(name string) (*CompiledField, bool) {
	f, ok := m.Fields[name]
	return f, ok
}

// Compile deterministically synthesizes the storage model for a content
// type. It assumes the definition has already passed validateDefinition.
func Compile(ct *ContentType) *CompiledModel {
	m := &CompiledModel{
		APIID:      ct.APIID,
		Fields:     make(map[string]*CompiledField, len(ct.Fields)),
		Order:      make([]string, 0, len(ct.Fields)),
		CompiledAt: time.Now().UTC(),
	}
	for _, f := range ct.Fields {
		cf := &CompiledField{
			Name:       f.Name,
			Type:       f.Type,
			Kind:       storageKindOf(f.Type),
			Required:   f.Required,
			Unique:     f.Unique,
			Default:    f.Default,
			RelationTo: f.RelationTo,
		}
		switch f.Type {
		case FieldTypeEnum:
			cf.Options = make(map[string]struct{}, len(f.Options))
			for _, opt := range f.Options {
				cf.Options[opt] = struct{}{}
			}
		case FieldTypeRelation:
			cf.Many = f.RelationMany
		case FieldTypeMedia:
			cf.Many = f.Multiple
		}
		m.Fields[f.Name] = cf
		m.Order = append(m.Order, f.Name)
	}
	return m
}

// ModelRegistry is the process-wide map of compiled models, keyed by apiID.
// It is the one piece of state shared across concurrent operations: reads
// take the shared lock, recompilation atomically replaces the entry under
// the exclusive lock, so a reader observes either the fully-old or the
// fully-new model, never a mix.
type ModelRegistry struct {
	mu     sync.RWMutex
	models map[string]*CompiledModel
}

// NewModelRegistry creates an empty model registry.
func NewModelRegistry() *ModelRegistry {
	return &ModelRegistry{models: make(map[string]*CompiledModel)}
}

// Get returns the compiled model for apiID, or ErrContentTypeNotFound.
func (r *ModelRegistry) Get(apiID string) (*CompiledModel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.models[apiID]
	if !ok {
		return nil, ErrContentTypeNotFound
	}
	return m, nil
}

// Register installs (or atomically replaces) the model for its apiID.
func (r *ModelRegistry) Register(m *CompiledModel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.models[m.APIID] = m
}

// Remove drops the compiled model for apiID. Subsequent Gets fail fast with
// ErrContentTypeNotFound.
func (r *ModelRegistry) Remove(apiID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.models, apiID)
}

// Has reports whether apiID currently has a compiled model.
func (r *ModelRegistry) Has(apiID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.models[apiID]
	return ok
}

// APIIDs returns the registered apiIDs in unspecified order.
func (r *ModelRegistry) APIIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.models))
	for id := range r.models {
		ids = append(ids, id)
	}
	return ids
}

// storageKindOf maps a field type to its storage primitive per the field
// type vocabulary.
func storageKindOf(t FieldType) StorageKind {
	switch t {
	case FieldTypeText, FieldTypeRichText, FieldTypeEmail, FieldTypePassword, FieldTypeEnum:
		return StorageKindString
	case FieldTypeNumber:
		return StorageKindNumber
	case FieldTypeBoolean:
		return StorageKindBool
	case FieldTypeDate, FieldTypeDateTime:
		return StorageKindTime
	case FieldTypeJSON:
		return StorageKindJSON
	case FieldTypeMedia, FieldTypeRelation:
		return StorageKindReference
	default:
		return StorageKindJSON
	}
}
