package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"thepup/internal/transport/httpServer/handlers/dto"
	"thepup/internal/utils/logger/sl"
)

// запас на служебные части multipart-формы
const multipartOverhead = 1 << 20

type UploadHandler struct {
	uploader Uploader
	log      *slog.Logger
}

// NewUploadHandler. uploader может быть nil, если хранилище не настроено.
func NewUploadHandler(log *slog.Logger, uploader Uploader) *UploadHandler {
	return &UploadHandler{
		uploader: uploader,
		log:      log,
	}
}

// Upload обрабатывает POST /api/v1/admin/uploads (multipart: file, folder)
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	op := "httpServer.handlers.UploadHandler.Upload()"
	log := h.log.With(slog.String("op", op))

	if h.uploader == nil {
		respondError(log, errors.New("storage is not configured"), w, http.StatusServiceUnavailable)
		return
	}

	maxSize := h.uploader.MaxSize()
	if r.ContentLength > maxSize+multipartOverhead {
		respondError(log, fmt.Errorf("request body is too large"), w, http.StatusRequestEntityTooLarge)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(log, fmt.Errorf("request body is too large"), w, http.StatusRequestEntityTooLarge)
			return
		}
		respondError(log, fmt.Errorf("%w: invalid multipart form: %v", dto.ErrValidation, err), w, http.StatusBadRequest)
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			log.Warn("failed to remove multipart files", sl.Err(err))
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(log, fmt.Errorf("%w: file is required", dto.ErrValidation), w, http.StatusBadRequest)
		return
	}
	defer file.Close()

	obj, err := h.uploader.Upload(r.Context(), r.FormValue("folder"), file)
	if err != nil {
		respondError(log, fmt.Errorf("failed to upload %q: %w", header.Filename, err), w, statusFor(err))
		return
	}

	respondJSON(log, w, http.StatusCreated, obj)
}
