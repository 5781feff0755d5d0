package handlers

import (
	"io"
	"mime"
	"net/http"
	"strings"

	apperrors "github.com/tropicaldog17/networth/internal/errors"
)

// uploadedFile returns the CSV payload of r: the "file" part of a multipart
// form, or the raw body otherwise.
func uploadedFile(w http.ResponseWriter, r *http.Request) (io.Reader, func(), error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if !strings.HasPrefix(mediaType, "multipart/") {
		return r.Body, func() {}, nil
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, nil, &apperrors.ErrValidation{Field: "file", Message: err.Error()}
	}
	f, _, err := r.FormFile("file")
	if err != nil {
		return nil, nil, &apperrors.ErrValidation{Field: "file", Message: "multipart field \"file\" is required"}
	}
	return f, func() { f.Close() }, nil
}
