package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/Dosada05/inmatch/services"
)

// Файлы больше этого размера multipart сохраняет во временные файлы на диске.
const multipartMemoryLimit = 32 << 20

// formFile adapts an uploaded multipart file to services.Payload. The bytes
// stay in memory or in a temp file owned by the request's multipart form.
type formFile struct {
	header *multipart.FileHeader
}

var _ services.Payload = formFile{}

func (f formFile) Open() (io.ReadCloser, error) { return f.header.Open() }
func (f formFile) Filename() string             { return f.header.Filename }
func (f formFile) Size() int64                  { return f.header.Size }

func (f formFile) ContentType() string {
	return f.header.Header.Get("Content-Type")
}

// Discard is a no-op; parseUploadForm's cleanup removes the temp files.
func (f formFile) Discard() error { return nil }

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(strings.ToLower(r.Header.Get("Content-Type")), "multipart/form-data")
}

// parseUploadForm parses a multipart body limited to maxBytes. The returned
// cleanup must be called once the request is done.
func parseUploadForm(w http.ResponseWriter, r *http.Request, maxBytes int64) (func(), error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		var maxBytesError *http.MaxBytesError
		if errors.As(err, &maxBytesError) {
			return func() {}, fmt.Errorf("%w: upload must not be larger than %d bytes", services.ErrValidationFailed, maxBytes)
		}
		return func() {}, fmt.Errorf("%w: malformed multipart body: %v", services.ErrValidationFailed, err)
	}
	return func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}, nil
}

// formFileByField returns the first file sent under field, if any.
func formFileByField(r *http.Request, field string) (services.Payload, bool) {
	if r.MultipartForm == nil {
		return nil, false
	}
	files := r.MultipartForm.File[field]
	if len(files) == 0 {
		return nil, false
	}
	return formFile{header: files[0]}, true
}
