package types

import (
	"sort"
	"strings"
)

// NonFieldErrors is the ValidationErrors key for messages that do not belong
// to a single field.
const NonFieldErrors = "__all__"

// Standard validation messages.
const (
	MsgRequired  = "This field is required."
	MsgInteger   = "Enter a whole number."
	MsgNumber    = "Enter a number."
	MsgBoolean   = "Enter a valid boolean."
	MsgTimestamp = "Enter a valid date/time."
	MsgList      = "Enter a list of values."
	MsgInvalid   = "Enter a valid value."
)

// ValidationErrors maps field names to a message. The zero value holds no
// errors. It implements error so stores can return it from Save.
type ValidationErrors map[string]string

// Add records a message for field and returns the (possibly new) map. The
// first message for a field wins.
func (v ValidationErrors) Add(field, msg string) ValidationErrors {
	if v == nil {
		v = make(ValidationErrors)
	}
	if _, exists := v[field]; !exists {
		v[field] = msg
	}
	return v
}

// Fields returns the field names with errors, sorted.
func (v ValidationErrors) Fields() []string {
	names := make([]string, 0, len(v))
	for name := range v {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, name := range v.Fields() {
		parts = append(parts, name+": "+v[name])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// TypeMessage returns the parse failure message for a field type.
func TypeMessage(fieldType string) string {
	switch fieldType {
	case FieldTypeInteger:
		return MsgInteger
	case FieldTypeNumber:
		return MsgNumber
	case FieldTypeBoolean:
		return MsgBoolean
	case FieldTypeTimestamp:
		return MsgTimestamp
	case FieldTypeList:
		return MsgList
	default:
		return MsgInvalid
	}
}
