package loom

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Wire formats accepted for date and datetime values, tried in order.
var timeLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"}

// CoerceValue converts a decoded JSON value into the canonical Go value for
// the field's storage kind, or reports a ValidationError naming the field.
// Reference values are checked for shape only; resolution against live
// entries and media happens in the service.
func CoerceValue(f *CompiledField, raw interface{}) (interface{}, error) {
	switch f.Kind {
	case StorageKindString:
		return coerceString(f, raw)
	case StorageKindNumber:
		return coerceNumber(f, raw)
	case StorageKindBool:
		b, ok := raw.(bool)
		if !ok {
			return nil, &ValidationError{FieldName: f.Name, Reason: "must be a boolean"}
		}
		return b, nil
	case StorageKindTime:
		return coerceTime(f, raw)
	case StorageKindJSON:
		if raw == nil {
			return nil, &ValidationError{FieldName: f.Name, Reason: "must be a structured value"}
		}
		return raw, nil
	case StorageKindReference:
		return coerceReference(f, raw)
	default:
		return nil, &ValidationError{FieldName: f.Name, Reason: fmt.Sprintf("unsupported storage kind %q", f.Kind)}
	}
}

func coerceString(f *CompiledField, raw interface{}) (interface{}, error) {
	s, ok := raw.(string)
	if !ok {
		return nil, &ValidationError{FieldName: f.Name, Reason: "must be a string"}
	}
	if f.Type == FieldTypeEnum {
		if _, allowed := f.Options[s]; !allowed {
			return nil, &ValidationError{FieldName: f.Name, Reason: fmt.Sprintf("%q is not an allowed option", s)}
		}
	}
	return s, nil
}

func coerceNumber(f *CompiledField, raw interface{}) (interface{}, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, &ValidationError{FieldName: f.Name, Reason: fmt.Sprintf("%q does not parse as a number", v)}
		}
		return n, nil
	default:
		return nil, &ValidationError{FieldName: f.Name, Reason: "must be a number"}
	}
}

func coerceTime(f *CompiledField, raw interface{}) (interface{}, error) {
	switch v := raw.(type) {
	case time.Time:
		return v.UTC(), nil
	case string:
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t.UTC(), nil
			}
		}
		return nil, &ValidationError{FieldName: f.Name, Reason: fmt.Sprintf("%q does not parse as a date", v)}
	default:
		return nil, &ValidationError{FieldName: f.Name, Reason: "must be a date string"}
	}
}

// coerceReference canonicalizes relation/media values: a single UUID string
// for scalar fields, a []string of UUIDs for list-valued fields.
func coerceReference(f *CompiledField, raw interface{}) (interface{}, error) {
	if f.Many {
		items, ok := raw.([]interface{})
		if !ok {
			if strs, ok := raw.([]string); ok {
				items = make([]interface{}, len(strs))
				for i, s := range strs {
					items[i] = s
				}
			} else {
				return nil, &ValidationError{FieldName: f.Name, Reason: "must be a list of identifiers"}
			}
		}
		refs := make([]string, 0, len(items))
		for _, item := range items {
			s, ok := item.(string)
			if !ok {
				return nil, &ValidationError{FieldName: f.Name, Reason: "must be a list of identifiers"}
			}
			if _, err := uuid.Parse(s); err != nil {
				return nil, &ValidationError{FieldName: f.Name, Reason: fmt.Sprintf("%q is not a valid identifier", s)}
			}
			refs = append(refs, s)
		}
		return refs, nil
	}

	s, ok := raw.(string)
	if !ok {
		return nil, &ValidationError{FieldName: f.Name, Reason: "must be an identifier"}
	}
	if _, err := uuid.Parse(s); err != nil {
		return nil, &ValidationError{FieldName: f.Name, Reason: fmt.Sprintf("%q is not a valid identifier", s)}
	}
	return s, nil
}
