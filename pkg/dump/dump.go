// Package dump encodes and decodes bulk record exports. A dump is a list of
// mappings, one per record, as produced by Adapter.Dump, serialized as YAML or
// JSON.
package dump

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Supported formats.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// DefaultFormat is used when no format is configured.
const DefaultFormat = FormatYAML

// ErrFormatNotImplemented is returned for any format other than yaml or json.
var ErrFormatNotImplemented = errors.New("dump format not implemented")

// ErrMalformed wraps decoder errors for uploaded content.
var ErrMalformed = errors.New("malformed dump")

var contentTypes = map[string]string{
	FormatYAML: "application/yaml",
	FormatJSON: "application/json",
}

// Supported reports whether format can be encoded and decoded.
func Supported(format string) bool {
	_, ok := contentTypes[format]
	return ok
}

// Formats lists the supported formats.
func Formats() []string {
	return []string{FormatYAML, FormatJSON}
}

// ContentType returns the HTTP content type for format.
func ContentType(format string) (string, error) {
	ct, ok := contentTypes[format]
	if !ok {
		return "", fmt.Errorf("%q: %w", format, ErrFormatNotImplemented)
	}
	return ct, nil
}

// Marshal serializes records in the given format. JSON output keeps
// non-ASCII characters unescaped.
func Marshal(format string, records []map[string]any) ([]byte, error) {
	if records == nil {
		records = []map[string]any{}
	}
	switch format {
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(records); err != nil {
			return nil, fmt.Errorf("encoding yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("closing yaml encoder: %w", err)
		}
		return buf.Bytes(), nil
	case FormatJSON:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		if err := enc.Encode(records); err != nil {
			return nil, fmt.Errorf("encoding json: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("%q: %w", format, ErrFormatNotImplemented)
	}
}

// Unmarshal parses a dump. Empty or whitespace-only input yields no records.
// Content that does not decode into a list of mappings returns ErrMalformed.
func Unmarshal(format string, data []byte) ([]map[string]any, error) {
	if !Supported(format) {
		return nil, fmt.Errorf("%q: %w", format, ErrFormatNotImplemented)
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, nil
	}

	var records []map[string]any
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&records); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
	}
	for i, rec := range records {
		if rec == nil {
			return nil, fmt.Errorf("%w: entry %d is not a mapping", ErrMalformed, i)
		}
	}
	return records, nil
}
