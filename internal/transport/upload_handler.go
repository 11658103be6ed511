package transport

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"storefront/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// UploadField is the multipart form field carrying the image
	UploadField = "image"
	// UploadURLPrefix is where stored images are served from
	UploadURLPrefix = "/uploads/"
)

var allowedImageTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

// UploadHandler stores product images on local disk
type UploadHandler struct {
	dir      string
	maxBytes int64
	logger   *zap.Logger
}

// NewUploadHandler creates a new UploadHandler writing into dir
func NewUploadHandler(dir string, maxBytes int64, logger *zap.Logger) *UploadHandler {
	return &UploadHandler{
		dir:      dir,
		maxBytes: maxBytes,
		logger:   logger,
	}
}

// RegisterRoutes registers the upload endpoint and serves stored files
func (h *UploadHandler) RegisterRoutes(r chi.Router, authMiddleware, adminMiddleware func(http.Handler) http.Handler) {
	r.With(authMiddleware, adminMiddleware).Post("/api/upload", h.Upload)

	fileServer := http.StripPrefix(UploadURLPrefix, http.FileServer(http.Dir(h.dir)))
	r.Get(UploadURLPrefix+"*", fileServer.ServeHTTP)
}

// Upload accepts a single jpg or png image. Both the extension and the
// sniffed content type must match.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)

	file, header, err := r.FormFile(UploadField)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			middleware.RespondWithError(w, http.StatusRequestEntityTooLarge, "Image too large")
			return
		}
		h.logger.Debug("Upload without image", zap.Error(err))
		middleware.RespondWithError(w, http.StatusBadRequest, "No image uploaded")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	wantType, ok := allowedImageTypes[ext]
	if !ok {
		middleware.RespondWithError(w, http.StatusBadRequest, "Images only!")
		return
	}

	sniff := make([]byte, 512)
	n, err := io.ReadFull(file, sniff)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		middleware.RespondWithError(w, http.StatusBadRequest, "Images only!")
		return
	}
	if http.DetectContentType(sniff[:n]) != wantType {
		middleware.RespondWithError(w, http.StatusBadRequest, "Images only!")
		return
	}

	name := fmt.Sprintf("%s-%s%s", UploadField, uuid.NewString(), ext)
	if err := h.store(name, io.MultiReader(bytes.NewReader(sniff[:n]), file)); err != nil {
		h.logger.Error("Failed to store upload", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to store image")
		return
	}

	h.logger.Info("Image uploaded", zap.String("file", name), zap.Int64("size", header.Size))
	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"image": UploadURLPrefix + name})
}

func (h *UploadHandler) store(name string, src io.Reader) error {
	if err := os.MkdirAll(h.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create upload dir: %w", err)
	}

	path := filepath.Join(h.dir, name)
	dst, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create upload file: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return fmt.Errorf("failed to write upload file: %w", err)
	}
	return dst.Close()
}
