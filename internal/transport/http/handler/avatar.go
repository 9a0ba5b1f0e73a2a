package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/campus-chat-api/internal/application/avatar"
	"github.com/campus-chat-api/internal/domain"
	"github.com/campus-chat-api/internal/transport/http/middleware"
	"go.uber.org/zap"
)

// multipartOverhead leaves room for boundaries and part headers around the file.
const multipartOverhead = 64 << 10

// AvatarHandler accepts profile picture uploads.
type AvatarHandler struct {
	svc      avatar.Service
	maxBytes int64
	log      *zap.Logger
}

func NewAvatarHandler(svc avatar.Service, maxBytes int64, log *zap.Logger) *AvatarHandler {
	return &AvatarHandler{svc: svc, maxBytes: maxBytes, log: log}
}

func (h *AvatarHandler) Upload(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok || id.UserID == "" {
		writeError(w, http.StatusBadRequest, "Token has no UID or is invalid")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+multipartOverhead)
	file, hdr, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, "File is too large")
			return
		}
		writeError(w, http.StatusBadRequest, "A file field is required")
		return
	}
	defer file.Close()

	// trust the bytes, not the client's Content-Type
	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Unable to read file")
		return
	}
	contentType := http.DetectContentType(head[:n])
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		writeError(w, http.StatusBadRequest, "Unable to read file")
		return
	}

	url, err := h.svc.Upload(r.Context(), id.UserID, file, hdr.Size, contentType)
	if err != nil {
		status, msg := statusFor(err, "Unable to upload profile picture")
		if errors.Is(err, domain.ErrNotVerified) {
			msg = "Email must be verified before uploading a profile picture"
		}
		if status == http.StatusInternalServerError {
			h.log.Error("upload profile picture", zap.String("user_id", id.UserID), zap.Error(err))
		}
		writeError(w, status, msg)
		return
	}
	writeSuccess(w, url)
}
