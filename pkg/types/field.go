package types

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Field value types determine what values a field accepts and which Go type
// a stored value has after coercion.
const (
	FieldTypeText      = "text"      // string
	FieldTypeInteger   = "integer"   // int64
	FieldTypeNumber    = "number"    // float64
	FieldTypeBoolean   = "boolean"   // bool
	FieldTypeTimestamp = "timestamp" // time.Time, UTC
	FieldTypeList      = "list"      // []string
)

// validFieldTypes is the set of recognized field value types.
var validFieldTypes = map[string]bool{
	FieldTypeText:      true,
	FieldTypeInteger:   true,
	FieldTypeNumber:    true,
	FieldTypeBoolean:   true,
	FieldTypeTimestamp: true,
	FieldTypeList:      true,
}

// timestampLayouts are tried in order when a timestamp arrives as a string.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Field describes one named attribute of a Model.
type Field struct {
	Name     string `json:"name" yaml:"name" mapstructure:"name"`
	Type     string `json:"type" yaml:"type" mapstructure:"type"`
	Required bool   `json:"required,omitempty" yaml:"required,omitempty" mapstructure:"required"`
	Label    string `json:"label,omitempty" yaml:"label,omitempty" mapstructure:"label"`
	Default  any    `json:"default,omitempty" yaml:"default,omitempty" mapstructure:"default"`
}

// IsValidFieldType reports whether the given string is a recognized field type.
func IsValidFieldType(ft string) bool {
	return validFieldTypes[ft]
}

// DefaultValue returns the type-based zero value for a field type: "" for
// text, 0 for integer and number, false for boolean, nil for timestamp and an
// empty slice for list. Returns ErrInvalidFieldType for unknown types.
func DefaultValue(fieldType string) (any, error) {
	switch fieldType {
	case FieldTypeText:
		return "", nil
	case FieldTypeInteger:
		return int64(0), nil
	case FieldTypeNumber:
		return float64(0), nil
	case FieldTypeBoolean:
		return false, nil
	case FieldTypeTimestamp:
		return nil, nil
	case FieldTypeList:
		return []string{}, nil
	default:
		return nil, ErrInvalidFieldType
	}
}

// VerboseName returns the label shown next to the field in forms.
func (f Field) VerboseName() string {
	if f.Label != "" {
		return f.Label
	}
	return strings.ReplaceAll(f.Name, "_", " ")
}

// Coerce converts a decoded value into the Go type stored for this field.
// It accepts the shapes produced by encoding/json, yaml.v3 and database
// round trips. A nil value stays nil.
func (f Field) Coerce(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	var (
		out any
		err error
	)
	switch f.Type {
	case FieldTypeText:
		out, err = coerceText(v)
	case FieldTypeInteger:
		out, err = coerceInteger(v)
	case FieldTypeNumber:
		out, err = coerceNumber(v)
	case FieldTypeBoolean:
		out, err = coerceBoolean(v)
	case FieldTypeTimestamp:
		out, err = coerceTimestamp(v)
	case FieldTypeList:
		out, err = coerceList(v)
	default:
		return nil, ErrInvalidFieldType
	}
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", f.Name, err)
	}
	return out, nil
}

// Export converts a stored value into a plain JSON and YAML friendly value.
// Timestamps become RFC 3339 strings; everything else is returned as is.
func (f Field) Export(v any) any {
	switch val := v.(type) {
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	case []string:
		out := make([]string, len(val))
		copy(out, val)
		return out
	default:
		return v
	}
}

// ParseTimestamp parses s using the accepted timestamp layouts.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, ErrTypeMismatch
}

func coerceText(v any) (any, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case json.Number:
		return val.String(), nil
	case int, int64, float64, bool:
		return fmt.Sprint(val), nil
	default:
		return nil, ErrTypeMismatch
	}
}

func coerceInteger(v any) (any, error) {
	switch val := v.(type) {
	case int:
		return int64(val), nil
	case int32:
		return int64(val), nil
	case int64:
		return val, nil
	case uint64:
		if val > math.MaxInt64 {
			return nil, ErrTypeMismatch
		}
		return int64(val), nil
	case float64:
		if val != math.Trunc(val) || math.Abs(val) >= 1<<63 {
			return nil, ErrTypeMismatch
		}
		return int64(val), nil
	case json.Number:
		n, err := val.Int64()
		if err != nil {
			return nil, ErrTypeMismatch
		}
		return n, nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
		if err != nil {
			return nil, ErrTypeMismatch
		}
		return n, nil
	default:
		return nil, ErrTypeMismatch
	}
}

func coerceNumber(v any) (any, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case float32:
		return float64(val), nil
	case int:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case json.Number:
		n, err := val.Float64()
		if err != nil {
			return nil, ErrTypeMismatch
		}
		return n, nil
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return nil, ErrTypeMismatch
		}
		return n, nil
	default:
		return nil, ErrTypeMismatch
	}
}

func coerceBoolean(v any) (any, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(val))
		if err != nil {
			return nil, ErrTypeMismatch
		}
		return b, nil
	default:
		return nil, ErrTypeMismatch
	}
}

func coerceTimestamp(v any) (any, error) {
	switch val := v.(type) {
	case time.Time:
		return val.UTC(), nil
	case string:
		return ParseTimestamp(val)
	default:
		return nil, ErrTypeMismatch
	}
}

func coerceList(v any) (any, error) {
	switch val := v.(type) {
	case []string:
		out := make([]string, len(val))
		copy(out, val)
		return out, nil
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			s, err := coerceText(item)
			if err != nil {
				return nil, err
			}
			out = append(out, s.(string))
		}
		return out, nil
	default:
		return nil, ErrTypeMismatch
	}
}
