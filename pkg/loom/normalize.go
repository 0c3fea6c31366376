package loom

import "github.com/google/uuid"

// Reference normalization policy.
//
// Admin forms routinely submit empty or placeholder values for relation and
// media pickers the user never touched. Rather than rejecting the whole
// payload, normalization silently drops malformed or empty references before
// validation runs; required-field validation still catches the resulting
// absence when the field was mandatory. This drop-rather-than-error behavior
// is deliberate and covered by its own tests.

// placeholder strings treated the same as an absent value.
var emptyPlaceholders = map[string]struct{}{
	"":          {},
	"null":      {},
	"undefined": {},
}

// normalizeData returns a copy of data with relation and media fields
// sanitized per the normalization policy. Keys without a matching model
// field pass through untouched; the engine rejects them later. Never errors.
func normalizeData(model *CompiledModel, data map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(data))
	for key, value := range data {
		f, ok := model.Field(key)
		if !ok || !f.IsReference() {
			out[key] = value
			continue
		}
		if cleaned, keep := normalizeReference(f, value); keep {
			out[key] = cleaned
		}
	}
	return out
}

// normalizeReference sanitizes one relation/media value. The second return
// is false when the field should be dropped entirely.
func normalizeReference(f *CompiledField, value interface{}) (interface{}, bool) {
	if value == nil {
		return nil, false
	}

	if list, ok := asList(value); ok {
		if !f.Many {
			return nil, false
		}
		kept := make([]interface{}, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				continue
			}
			if _, placeholder := emptyPlaceholders[s]; placeholder {
				continue
			}
			if _, err := uuid.Parse(s); err != nil {
				continue
			}
			kept = append(kept, s)
		}
		if len(kept) == 0 {
			return nil, false
		}
		return kept, true
	}

	s, ok := value.(string)
	if !ok {
		return nil, false
	}
	if _, placeholder := emptyPlaceholders[s]; placeholder {
		return nil, false
	}
	if _, err := uuid.Parse(s); err != nil {
		return nil, false
	}
	if f.Many {
		return []interface{}{s}, true
	}
	return s, true
}

func asList(value interface{}) ([]interface{}, bool) {
	switch v := value.(type) {
	case []interface{}:
		return v, true
	case []string:
		out := make([]interface{}, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out, true
	default:
		return nil, false
	}
}
