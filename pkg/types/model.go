package types

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// DefaultPrimaryKey names the primary key of a Model that does not set one.
const DefaultPrimaryKey = "id"

// Model is an immutable document schema: a name, an ordered list of fields
// and the name of the primary key. When the primary key is declared in Fields
// its value is supplied by the user; otherwise stores generate a UUID v7.
type Model struct {
	Name       string  `json:"name" yaml:"name" mapstructure:"name"`
	PrimaryKey string  `json:"primary_key,omitempty" yaml:"primary_key,omitempty" mapstructure:"primary_key"`
	Fields     []Field `json:"fields" yaml:"fields" mapstructure:"fields"`
}

// Validate checks the model definition. Returns ErrInvalidName for an empty
// or non-identifier name, ErrNoFields, ErrDuplicateField or
// ErrInvalidFieldType (wrapped with the offending field name).
func (m *Model) Validate() error {
	if !isIdentifier(m.Name) {
		return fmt.Errorf("model %q: %w", m.Name, ErrInvalidName)
	}
	if len(m.Fields) == 0 {
		return fmt.Errorf("model %s: %w", m.Name, ErrNoFields)
	}
	seen := make(map[string]bool, len(m.Fields))
	for _, f := range m.Fields {
		if !isIdentifier(f.Name) {
			return fmt.Errorf("model %s field %q: %w", m.Name, f.Name, ErrInvalidName)
		}
		if seen[f.Name] {
			return fmt.Errorf("model %s field %s: %w", m.Name, f.Name, ErrDuplicateField)
		}
		seen[f.Name] = true
		if !IsValidFieldType(f.Type) {
			return fmt.Errorf("model %s field %s type %q: %w", m.Name, f.Name, f.Type, ErrInvalidFieldType)
		}
	}
	if pk, ok := m.Field(m.PK()); ok && pk.Type != FieldTypeText && pk.Type != FieldTypeInteger {
		return fmt.Errorf("model %s primary key %s: %w", m.Name, pk.Name, ErrInvalidFieldType)
	}
	return nil
}

// PK returns the primary key field name.
func (m *Model) PK() string {
	if m.PrimaryKey == "" {
		return DefaultPrimaryKey
	}
	return m.PrimaryKey
}

// Slug is the lower-cased model name used in routes and file names.
func (m *Model) Slug() string {
	return strings.ToLower(m.Name)
}

// VerboseName is the display name of a single record.
func (m *Model) VerboseName() string {
	return m.Name
}

// VerboseNamePlural is the display name of the record collection.
func (m *Model) VerboseNamePlural() string {
	return m.Name + "s"
}

// Field returns the field with the given name.
func (m *Model) Field(name string) (Field, bool) {
	for _, f := range m.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// FieldNames returns the field names in declaration order.
func (m *Model) FieldNames() []string {
	names := make([]string, len(m.Fields))
	for i, f := range m.Fields {
		names[i] = f.Name
	}
	return names
}

// DeclaresPK reports whether the primary key is one of the declared fields.
func (m *Model) DeclaresPK() bool {
	_, ok := m.Field(m.PK())
	return ok
}

// Check reports required fields without a value. It returns nil when the
// record is complete.
func (m *Model) Check(r *Record) ValidationErrors {
	var errs ValidationErrors
	for _, f := range m.Fields {
		if !f.Required {
			continue
		}
		if isBlank(r.Fields[f.Name]) {
			errs = errs.Add(f.Name, MsgRequired)
		}
	}
	return errs
}

// Dump renders a record as a plain mapping keyed by field name, including the
// primary key under PK().
func (m *Model) Dump(r *Record) map[string]any {
	out := make(map[string]any, len(m.Fields)+1)
	for _, f := range m.Fields {
		out[f.Name] = f.Export(r.Fields[f.Name])
	}
	if pk, ok := m.Field(m.PK()); ok {
		if v, err := pk.Coerce(r.PK); err == nil && r.PK != "" {
			out[m.PK()] = v
		}
	} else {
		out[m.PK()] = r.PK
	}
	return out
}

// FromData builds a record from a decoded mapping. Values are coerced to the
// field types; unknown keys are ignored and absent fields are left nil.
func (m *Model) FromData(data map[string]any) (*Record, error) {
	if data == nil {
		return nil, ErrInvalidData
	}
	r := NewRecord("")
	for _, f := range m.Fields {
		v, err := f.Coerce(data[f.Name])
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidData, err)
		}
		r.Fields[f.Name] = v
	}
	if m.DeclaresPK() {
		m.SyncPK(r)
		return r, nil
	}
	switch raw := data[m.PK()].(type) {
	case nil:
	case float64:
		// JSON decodes every number as float64.
		if raw == math.Trunc(raw) && math.Abs(raw) < 1<<53 {
			r.PK = strconv.FormatInt(int64(raw), 10)
		} else {
			r.PK = strconv.FormatFloat(raw, 'f', -1, 64)
		}
	default:
		r.PK = fmt.Sprint(raw)
	}
	return r, nil
}

// SyncPK copies a declared primary key field into r.PK, or r.PK into the
// field when the field is empty.
func (m *Model) SyncPK(r *Record) {
	pk, ok := m.Field(m.PK())
	if !ok {
		return
	}
	if v := r.Fields[pk.Name]; !isBlank(v) {
		r.PK = fmt.Sprint(v)
		return
	}
	if r.PK != "" {
		if v, err := pk.Coerce(r.PK); err == nil {
			r.Fields[pk.Name] = v
		}
	}
}

// NewPK generates a primary key: a UUID v7, or a v4 if v7 generation fails.
func NewPK() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// Prepare returns a normalized copy of r ready to be stored: field values
// are coerced, unknown fields dropped, the declared primary key synced and
// required fields checked. An empty primary key on a model that does not
// declare it is filled by newPK. Failures are returned as ValidationErrors.
func (m *Model) Prepare(r *Record, newPK func() string) (*Record, error) {
	if r == nil {
		return nil, ErrInvalidData
	}
	c := NewRecord(r.PK)
	c.CreatedAt, c.UpdatedAt = r.CreatedAt, r.UpdatedAt

	var errs ValidationErrors
	for _, f := range m.Fields {
		v, err := f.Coerce(r.Get(f.Name))
		if err != nil {
			errs = errs.Add(f.Name, TypeMessage(f.Type))
			continue
		}
		c.Fields[f.Name] = v
	}
	if errs != nil {
		return nil, errs
	}

	m.SyncPK(c)
	errs = m.Check(c)
	if c.PK == "" && m.DeclaresPK() {
		errs = errs.Add(m.PK(), MsgRequired)
	}
	if errs != nil {
		return nil, errs
	}
	if c.PK == "" {
		c.PK = newPK()
	}
	return c, nil
}

// Match reports whether r equals every filter entry. Filter keys name fields
// or the primary key; values are coerced to the field type before comparing.
// Unknown keys or uncoercible values return ErrInvalidFilter.
func (m *Model) Match(r *Record, filter map[string]any) (bool, error) {
	for key, want := range filter {
		if key == m.PK() && !m.DeclaresPK() {
			if r.PK != fmt.Sprint(want) {
				return false, nil
			}
			continue
		}
		f, ok := m.Field(key)
		if !ok {
			return false, fmt.Errorf("%w: unknown field %q", ErrInvalidFilter, key)
		}
		v, err := f.Coerce(want)
		if err != nil {
			return false, fmt.Errorf("%w: %w", ErrInvalidFilter, err)
		}
		if !reflect.DeepEqual(f.Export(v), f.Export(r.Fields[key])) {
			return false, nil
		}
	}
	return true, nil
}

func isBlank(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case []string:
		return len(val) == 0
	default:
		return false
	}
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return false
	}
	return true
}
