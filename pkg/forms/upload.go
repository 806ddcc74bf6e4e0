package forms

import (
	"errors"
	"io"
	"net/http"

	"github.com/mesh-intelligence/cruds/pkg/types"
)

// Load form field names.
const (
	UploadFile          = "file"
	UploadEraseExistent = "erase_existent"
)

// MaxUploadMemory bounds the multipart form kept in memory while parsing.
const MaxUploadMemory = 32 << 20

// Upload is a validated load form submission.
type Upload struct {
	Filename      string
	Data          []byte
	EraseExistent bool
}

// ParseUpload validates the load form. The file is required; erase_existent
// defaults to true when the field is absent. A non-nil error reports a
// transport failure rather than invalid input.
func ParseUpload(r *http.Request) (*Upload, types.ValidationErrors, error) {
	if err := r.ParseMultipartForm(MaxUploadMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return nil, nil, err
	}

	up := &Upload{EraseExistent: true}
	if raw, ok := r.Form[UploadEraseExistent]; ok {
		up.EraseExistent = checked(raw)
	}

	file, header, err := r.FormFile(UploadFile)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, types.ValidationErrors{UploadFile: types.MsgRequired}, nil
		}
		return nil, nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, nil, err
	}
	up.Filename = header.Filename
	up.Data = data
	return up, nil, nil
}
