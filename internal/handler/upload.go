package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sakif/game-library/internal/apperror"
	"github.com/sakif/game-library/internal/model"
)

// multipartMemory is how much of a multipart body is held in memory
// before the rest spills to temp files.
const multipartMemory = 8 << 20

// readUpload reads the "file" part of a multipart request, together with
// the optional "type" field (image|video). Without "type" the resource
// type is taken from the file's content type.
func readUpload(w http.ResponseWriter, r *http.Request, maxBytes int64) (model.MediaUpload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return model.MediaUpload{}, uploadError(err, maxBytes)
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		return model.MediaUpload{}, apperror.ValidationFailed("file", "a file field is required")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return model.MediaUpload{}, uploadError(err, maxBytes)
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}

	mediaType := model.MediaType(strings.ToLower(r.FormValue("type")))
	if mediaType == "" {
		mediaType = model.MediaImage
		if strings.HasPrefix(contentType, "video/") {
			mediaType = model.MediaVideo
		}
	}

	return model.MediaUpload{Data: data, ContentType: contentType, Type: mediaType}, nil
}

func uploadError(err error, maxBytes int64) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperror.ValidationFailed("file", fmt.Sprintf("upload exceeds %d bytes", maxBytes))
	}
	return apperror.ValidationFailed("file", "expected a multipart form with a file field")
}
