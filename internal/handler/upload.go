package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/pavelanni/docquiz/internal/model"
)

// handleUploadPassages indexes a passage file sent as the multipart field
// "passages_file". Re-uploading an unchanged file is a no-op.
func (h *Handler) handleUploadPassages(w http.ResponseWriter, r *http.Request) {
	if h.loader == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "uploads are disabled", ErrorCode: model.CodeInvalidRequest})
		return
	}
	if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
		writeError(w, r, errors.Join(model.ErrInvalidRequest, err))
		return
	}

	file, header, err := r.FormFile("passages_file")
	if err != nil {
		writeError(w, r, errors.Join(model.ErrInvalidRequest, err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.loader.Load(r.Context(), header.Filename, data)
	if err != nil {
		slog.Error("passage upload failed", "filename", header.Filename, "error", err)
		writeError(w, r, err)
		return
	}

	status := http.StatusCreated
	if res.Unchanged {
		status = http.StatusOK
	}
	writeJSON(w, status, res)
}
