package handler

import (
	"errors"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/kiranshivaraju/studioshots/internal/api/response"
	"github.com/kiranshivaraju/studioshots/internal/storage"
)

// ImageResolver maps a requested image onto a file inside a job's workspace.
type ImageResolver interface {
	ResolveImage(jobID, area, filename string) (string, error)
}

// NewImageHandler returns an http.HandlerFunc for
// GET /api/image/{jobID}/{imageType}/{filename}.
func NewImageHandler(images ImageResolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path, err := images.ResolveImage(
			chi.URLParam(r, "jobID"),
			chi.URLParam(r, "imageType"),
			chi.URLParam(r, "filename"),
		)
		if err != nil {
			if errors.Is(err, storage.ErrInvalidPath) {
				response.Error(w, response.CodeInvalidImagePath, err.Error())
				return
			}
			response.Error(w, response.CodeInternal, "An unexpected error occurred")
			return
		}

		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			response.Error(w, response.CodeImageNotFound, "Image not found")
			return
		}
		http.ServeFile(w, r, path)
	}
}
