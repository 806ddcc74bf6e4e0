package types

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultValue(t *testing.T) {
	tests := []struct {
		fieldType string
		wantVal   any
		wantErr   error
	}{
		{FieldTypeText, "", nil},
		{FieldTypeInteger, int64(0), nil},
		{FieldTypeNumber, float64(0), nil},
		{FieldTypeBoolean, false, nil},
		{FieldTypeTimestamp, nil, nil},
		{FieldTypeList, []string{}, nil},
		{"unknown", nil, ErrInvalidFieldType},
	}
	for _, tt := range tests {
		t.Run(tt.fieldType, func(t *testing.T) {
			val, err := DefaultValue(tt.fieldType)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantVal, val)
		})
	}
}

func TestIsValidFieldType(t *testing.T) {
	for _, ft := range []string{FieldTypeText, FieldTypeInteger, FieldTypeNumber, FieldTypeBoolean, FieldTypeTimestamp, FieldTypeList} {
		assert.True(t, IsValidFieldType(ft), ft)
	}
	for _, ft := range []string{"", "float", "date", "categorical"} {
		assert.False(t, IsValidFieldType(ft), ft)
	}
}

func TestFieldCoerce(t *testing.T) {
	born := time.Date(1815, 12, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		field   Field
		in      any
		want    any
		wantErr error
	}{
		{"nil stays nil", Field{Name: "f", Type: FieldTypeInteger}, nil, nil, nil},
		{"text from string", Field{Name: "f", Type: FieldTypeText}, "Ada", "Ada", nil},
		{"text from yaml int", Field{Name: "f", Type: FieldTypeText}, 42, "42", nil},
		{"text rejects map", Field{Name: "f", Type: FieldTypeText}, map[string]any{}, nil, ErrTypeMismatch},
		{"integer from json float", Field{Name: "f", Type: FieldTypeInteger}, float64(7), int64(7), nil},
		{"integer from yaml int", Field{Name: "f", Type: FieldTypeInteger}, 7, int64(7), nil},
		{"integer from json.Number", Field{Name: "f", Type: FieldTypeInteger}, json.Number("9"), int64(9), nil},
		{"integer from string", Field{Name: "f", Type: FieldTypeInteger}, " 12 ", int64(12), nil},
		{"integer rejects fraction", Field{Name: "f", Type: FieldTypeInteger}, 1.5, nil, ErrTypeMismatch},
		{"integer rejects float beyond int64", Field{Name: "f", Type: FieldTypeInteger}, float64(1 << 63), nil, ErrTypeMismatch},
		{"integer from large json.Number", Field{Name: "f", Type: FieldTypeInteger}, json.Number("9223372036854775807"), int64(math.MaxInt64), nil},
		{"text from json.Number", Field{Name: "f", Type: FieldTypeText}, json.Number("9007199254740993"), "9007199254740993", nil},
		{"list from json.Number items", Field{Name: "f", Type: FieldTypeList}, []any{json.Number("1")}, []string{"1"}, nil},
		{"integer rejects word", Field{Name: "f", Type: FieldTypeInteger}, "twelve", nil, ErrTypeMismatch},
		{"number from int", Field{Name: "f", Type: FieldTypeNumber}, 3, float64(3), nil},
		{"number from string", Field{Name: "f", Type: FieldTypeNumber}, "2.5", 2.5, nil},
		{"boolean from bool", Field{Name: "f", Type: FieldTypeBoolean}, true, true, nil},
		{"boolean from string", Field{Name: "f", Type: FieldTypeBoolean}, "false", false, nil},
		{"boolean rejects int", Field{Name: "f", Type: FieldTypeBoolean}, 1, nil, ErrTypeMismatch},
		{"timestamp from time", Field{Name: "f", Type: FieldTypeTimestamp}, born.In(time.FixedZone("x", 3600)), born, nil},
		{"timestamp from rfc3339", Field{Name: "f", Type: FieldTypeTimestamp}, "1815-12-10T00:00:00Z", born, nil},
		{"timestamp from date", Field{Name: "f", Type: FieldTypeTimestamp}, "1815-12-10", born, nil},
		{"timestamp rejects garbage", Field{Name: "f", Type: FieldTypeTimestamp}, "yesterday", nil, ErrTypeMismatch},
		{"list from any slice", Field{Name: "f", Type: FieldTypeList}, []any{"a", 1}, []string{"a", "1"}, nil},
		{"list from string slice", Field{Name: "f", Type: FieldTypeList}, []string{"x"}, []string{"x"}, nil},
		{"list rejects string", Field{Name: "f", Type: FieldTypeList}, "x", nil, ErrTypeMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.field.Coerce(tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFieldExport(t *testing.T) {
	f := Field{Name: "at", Type: FieldTypeTimestamp}
	at := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	assert.Equal(t, "2024-03-01T12:30:00Z", f.Export(at))

	list := []string{"a"}
	exported := Field{Type: FieldTypeList}.Export(list).([]string)
	exported[0] = "b"
	assert.Equal(t, "a", list[0], "Export must copy lists")
}

func TestFieldVerboseName(t *testing.T) {
	assert.Equal(t, "first name", Field{Name: "first_name"}.VerboseName())
	assert.Equal(t, "Given", Field{Name: "first_name", Label: "Given"}.VerboseName())
}
