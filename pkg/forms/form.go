// Package forms synthesizes HTML forms from model descriptors. A Form parses
// submitted values into a typed Record and renders bound fields with their
// errors. Forms are built per request and hold no state between requests.
package forms

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/mesh-intelligence/cruds/pkg/types"
)

// Validator turns submitted values into a record and renders form fields.
// A caller may register a custom Validator per model; Form is the default.
type Validator interface {
	Validate(values url.Values) (*types.Record, types.ValidationErrors)
	Bind(values url.Values, errs types.ValidationErrors) []BoundField
	Initial(r *types.Record) []BoundField
}

// Factory builds the Validator used for one request.
type Factory func(m *types.Model) Validator

// HTML input types for each field type.
const (
	InputText     = "text"
	InputNumber   = "number"
	InputCheckbox = "checkbox"
	InputDateTime = "datetime-local"
	InputTextarea = "textarea"
)

// dateTimeLocal is the value layout of datetime-local inputs.
const dateTimeLocal = "2006-01-02T15:04:05"

// BoundField is one field ready for rendering.
type BoundField struct {
	Name      string
	Label     string
	InputType string
	Step      string
	Value     string
	Checked   bool
	Required  bool
	Error     string
}

// Option configures Build.
type Option func(*Form)

// WithFields restricts the form to the named fields. Declaration order is kept.
func WithFields(names ...string) Option {
	return func(f *Form) {
		f.only = make(map[string]bool, len(names))
		for _, n := range names {
			f.only[n] = true
		}
	}
}

// WithExclude drops the named fields from the form.
func WithExclude(names ...string) Option {
	return func(f *Form) {
		for _, n := range names {
			f.exclude[n] = true
		}
	}
}

// WithLabels overrides field labels by field name.
func WithLabels(labels map[string]string) Option {
	return func(f *Form) {
		for k, v := range labels {
			f.labels[k] = v
		}
	}
}

// Form is the generated form for a model.
type Form struct {
	model   *types.Model
	fields  []types.Field
	only    map[string]bool
	exclude map[string]bool
	labels  map[string]string
}

// Build creates a form covering the model's fields.
func Build(m *types.Model, opts ...Option) *Form {
	f := &Form{
		model:   m,
		exclude: make(map[string]bool),
		labels:  make(map[string]string),
	}
	for _, opt := range opts {
		opt(f)
	}
	for _, field := range m.Fields {
		if f.only != nil && !f.only[field.Name] {
			continue
		}
		if f.exclude[field.Name] {
			continue
		}
		f.fields = append(f.fields, field)
	}
	return f
}

// Model returns the model the form was built from.
func (f *Form) Model() *types.Model {
	return f.model
}

// Fields returns the fields rendered by the form.
func (f *Form) Fields() []types.Field {
	return f.fields
}

// Validate parses values into a record holding the form's fields. Missing
// required fields and unparsable values are reported per field.
func (f *Form) Validate(values url.Values) (*types.Record, types.ValidationErrors) {
	r := types.NewRecord("")
	var errs types.ValidationErrors
	for _, field := range f.fields {
		v, msg := parseValue(field, values[field.Name])
		if msg != "" {
			errs = errs.Add(field.Name, msg)
			continue
		}
		r.Fields[field.Name] = v
	}
	if errs != nil {
		return nil, errs
	}
	f.model.SyncPK(r)
	return r, nil
}

// Bind renders the fields with the submitted values and their errors.
func (f *Form) Bind(values url.Values, errs types.ValidationErrors) []BoundField {
	out := make([]BoundField, 0, len(f.fields))
	for _, field := range f.fields {
		bf := f.bound(field)
		raw := values[field.Name]
		if field.Type == types.FieldTypeBoolean {
			bf.Checked = checked(raw)
		} else {
			bf.Value = strings.Join(raw, "\n")
		}
		bf.Error = errs[field.Name]
		out = append(out, bf)
	}
	return out
}

// Initial renders the fields populated from r. A nil record renders the
// declared field defaults.
func (f *Form) Initial(r *types.Record) []BoundField {
	out := make([]BoundField, 0, len(f.fields))
	for _, field := range f.fields {
		var v any
		if r != nil {
			v = r.Get(field.Name)
		} else if field.Default != nil {
			v, _ = field.Coerce(field.Default)
		}
		bf := f.bound(field)
		if b, ok := v.(bool); ok {
			bf.Checked = b
		} else {
			bf.Value = formatValue(v)
		}
		out = append(out, bf)
	}
	return out
}

func (f *Form) bound(field types.Field) BoundField {
	label := f.labels[field.Name]
	if label == "" {
		label = capitalize(field.VerboseName())
	}
	bf := BoundField{
		Name:     field.Name,
		Label:    label,
		Required: field.Required,
	}
	switch field.Type {
	case types.FieldTypeInteger:
		bf.InputType, bf.Step = InputNumber, "1"
	case types.FieldTypeNumber:
		bf.InputType, bf.Step = InputNumber, "any"
	case types.FieldTypeBoolean:
		bf.InputType = InputCheckbox
	case types.FieldTypeTimestamp:
		bf.InputType, bf.Step = InputDateTime, "1"
	case types.FieldTypeList:
		bf.InputType = InputTextarea
	default:
		bf.InputType = InputText
	}
	return bf
}

// parseValue converts the submitted strings for one field. It returns the
// typed value or a message describing why the input was rejected.
func parseValue(field types.Field, raw []string) (any, string) {
	if field.Type == types.FieldTypeBoolean {
		return checked(raw), ""
	}
	if field.Type == types.FieldTypeList {
		items := splitList(raw)
		if len(items) == 0 && field.Required {
			return nil, types.MsgRequired
		}
		return items, ""
	}

	s := ""
	if len(raw) > 0 {
		s = strings.TrimSpace(raw[len(raw)-1])
	}
	if s == "" {
		if field.Required {
			return nil, types.MsgRequired
		}
		if field.Type == types.FieldTypeText {
			return "", ""
		}
		return nil, ""
	}
	v, err := field.Coerce(s)
	if err != nil {
		return nil, types.TypeMessage(field.Type)
	}
	return v, ""
}

// checked applies checkbox semantics: absent means false, and the last
// submitted value wins so a hidden "false" may precede the checkbox.
func checked(raw []string) bool {
	if len(raw) == 0 {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(raw[len(raw)-1])) {
	case "", "0", "false", "off", "no":
		return false
	default:
		return true
	}
}

// splitList accepts one value per input, or commas and newlines within one.
func splitList(raw []string) []string {
	items := []string{}
	for _, chunk := range raw {
		for _, item := range strings.FieldsFunc(chunk, func(r rune) bool {
			return r == ',' || r == '\n' || r == '\r'
		}) {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
	}
	return items
}

// Unchanged reports whether submitted renders in an input exactly as stored
// does. Timestamps shown without their sub-second part compare equal.
func Unchanged(stored, submitted any) bool {
	if stored == nil || submitted == nil {
		return stored == submitted
	}
	return formatValue(stored) == formatValue(submitted)
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case time.Time:
		return val.UTC().Format(dateTimeLocal)
	case []string:
		return strings.Join(val, "\n")
	default:
		return fmt.Sprint(val)
	}
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
