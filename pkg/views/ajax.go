package views

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/microcosm-cc/bluemonday"

	"github.com/mesh-intelligence/cruds/pkg/types"
)

// stripPolicy removes all markup from error messages.
var stripPolicy = bluemonday.StrictPolicy()

type successPayload struct {
	Success  bool           `json:"success"`
	Object   map[string]any `json:"object"`
	ObjectPK string         `json:"object_pk"`
}

type errorsPayload struct {
	Errors map[string]string `json:"errors"`
}

func errorPayload(errs types.ValidationErrors) errorsPayload {
	out := make(map[string]string, len(errs))
	for field, msg := range errs {
		out[field] = stripPolicy.Sanitize(msg)
	}
	return errorsPayload{Errors: out}
}

// writeJSON answers 200 with v encoded as JSON, non-ASCII left unescaped.
func writeJSON(w http.ResponseWriter, v any) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
