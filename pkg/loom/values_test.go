package loom

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoerceValueStrings(t *testing.T) {
	f := &CompiledField{Name: "title", Type: FieldTypeText, Kind: StorageKindString}

	v, err := CoerceValue(f, "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", v)

	_, err = CoerceValue(f, 42.0)
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestCoerceValueEnum(t *testing.T) {
	f := &CompiledField{
		Name:    "color",
		Type:    FieldTypeEnum,
		Kind:    StorageKindString,
		Options: map[string]struct{}{"red": {}, "green": {}},
	}

	v, err := CoerceValue(f, "red")
	require.NoError(t, err)
	assert.Equal(t, "red", v)

	_, err = CoerceValue(f, "blue")
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestCoerceValueNumber(t *testing.T) {
	f := &CompiledField{Name: "price", Type: FieldTypeNumber, Kind: StorageKindNumber}

	tests := []struct {
		raw  interface{}
		want float64
	}{
		{42.5, 42.5},
		{7, 7},
		{"3.14", 3.14},
	}
	for _, tt := range tests {
		v, err := CoerceValue(f, tt.raw)
		require.NoError(t, err)
		assert.Equal(t, tt.want, v)
	}

	_, err := CoerceValue(f, "not a number")
	assert.ErrorIs(t, err, ErrValidationFailed)
	_, err = CoerceValue(f, true)
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestCoerceValueBool(t *testing.T) {
	f := &CompiledField{Name: "active", Type: FieldTypeBoolean, Kind: StorageKindBool}

	v, err := CoerceValue(f, true)
	require.NoError(t, err)
	assert.Equal(t, true, v)

	_, err = CoerceValue(f, "true")
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestCoerceValueTime(t *testing.T) {
	f := &CompiledField{Name: "published_on", Type: FieldTypeDate, Kind: StorageKindTime}

	v, err := CoerceValue(f, "2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), v)

	v, err = CoerceValue(f, "2024-03-01T10:30:00Z")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC), v)

	_, err = CoerceValue(f, "yesterday")
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestCoerceValueJSON(t *testing.T) {
	f := &CompiledField{Name: "meta", Type: FieldTypeJSON, Kind: StorageKindJSON}

	v, err := CoerceValue(f, map[string]interface{}{"a": 1.0})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"a": 1.0}, v)

	_, err = CoerceValue(f, nil)
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestCoerceValueReferences(t *testing.T) {
	scalar := &CompiledField{Name: "cover", Type: FieldTypeMedia, Kind: StorageKindReference}
	many := &CompiledField{Name: "gallery", Type: FieldTypeMedia, Kind: StorageKindReference, Many: true}
	id1, id2 := uuid.New().String(), uuid.New().String()

	v, err := CoerceValue(scalar, id1)
	require.NoError(t, err)
	assert.Equal(t, id1, v)

	_, err = CoerceValue(scalar, "nope")
	assert.ErrorIs(t, err, ErrValidationFailed)

	v, err = CoerceValue(many, []interface{}{id1, id2})
	require.NoError(t, err)
	assert.Equal(t, []string{id1, id2}, v)

	_, err = CoerceValue(many, id1)
	assert.ErrorIs(t, err, ErrValidationFailed)

	_, err = CoerceValue(many, []interface{}{id1, "nope"})
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestValidationErrorNamesField(t *testing.T) {
	f := &CompiledField{Name: "price", Type: FieldTypeNumber, Kind: StorageKindNumber}
	_, err := CoerceValue(f, "abc")

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "price", vErr.FieldName)
}
