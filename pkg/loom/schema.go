package loom

import (
	"fmt"
	"regexp"
)

var (
	apiIDPattern     = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
	fieldNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)
)

// validateDefinition checks a content type definition against the naming and
// structural invariants. typeExists answers whether an apiID is currently
// defined; it backs the eager relation-target check and may be consulted with
// the definition's own apiID (self-relations are legal).
func validateDefinition(req DefineContentTypeRequest, typeExists func(apiID string) bool) error {
	if !apiIDPattern.MatchString(req.APIID) {
		return &DefinitionError{APIID: req.APIID, Reason: "api id must be lowercase, start with a letter and contain only letters, digits and underscores"}
	}
	if req.DisplayName == "" {
		return &DefinitionError{APIID: req.APIID, Reason: "display name is required"}
	}
	if len(req.Fields) == 0 {
		return &DefinitionError{APIID: req.APIID, Reason: "at least one field is required"}
	}

	seen := make(map[string]struct{}, len(req.Fields))
	for _, f := range req.Fields {
		if err := validateField(req.APIID, f, typeExists); err != nil {
			return err
		}
		if _, dup := seen[f.Name]; dup {
			return &DefinitionError{APIID: req.APIID, FieldName: f.Name, Reason: "duplicate field name"}
		}
		seen[f.Name] = struct{}{}
	}
	return nil
}

func validateField(apiID string, f Field, typeExists func(string) bool) error {
	if !fieldNamePattern.MatchString(f.Name) {
		return &DefinitionError{APIID: apiID, FieldName: f.Name, Reason: "field name must start with a letter and contain only letters, digits and underscores"}
	}
	if _, reserved := reservedFieldNames[f.Name]; reserved {
		return &DefinitionError{APIID: apiID, FieldName: f.Name, Reason: "field name is reserved"}
	}
	if !f.Type.IsValid() {
		return &DefinitionError{APIID: apiID, FieldName: f.Name, Reason: fmt.Sprintf("unknown field type %q", f.Type)}
	}

	switch f.Type {
	case FieldTypeEnum:
		if len(f.Options) == 0 {
			return &DefinitionError{APIID: apiID, FieldName: f.Name, Reason: "enum field must declare at least one option"}
		}
	case FieldTypeRelation:
		if f.RelationTo == "" {
			return &DefinitionError{APIID: apiID, FieldName: f.Name, Reason: "relation field must declare a target api id"}
		}
		if f.RelationTo != apiID && !typeExists(f.RelationTo) {
			return &DefinitionError{APIID: apiID, FieldName: f.Name, Reason: fmt.Sprintf("relation target %q does not exist", f.RelationTo)}
		}
	}
	return nil
}
