package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"net/http"
	"strings"

	"shiplog/internal/config"
	"shiplog/internal/models"
	"shiplog/internal/observability"
	"shiplog/internal/storage"

	_ "golang.org/x/image/bmp"  // Register BMP decoder
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultImageMaxUploadSizeMB = 5
	imageCacheControl           = "3600"
)

var formatExtensions = map[string]string{
	"jpeg": ".jpg",
	"png":  ".png",
	"gif":  ".gif",
	"webp": ".webp",
	"bmp":  ".bmp",
}

type UploadImageInput struct {
	UserID      string
	Filename    string
	ContentType string
	Content     []byte
}

// ImageService validates uploaded images and stores them as-is.
type ImageService struct {
	store              storage.Store
	maxUploadSizeBytes int64
}

func NewImageService(store storage.Store, cfg *config.Config) *ImageService {
	maxUploadSizeMB := DefaultImageMaxUploadSizeMB
	if cfg != nil && cfg.ImageMaxUploadSizeMB > 0 {
		maxUploadSizeMB = cfg.ImageMaxUploadSizeMB
	}
	return &ImageService{
		store:              store,
		maxUploadSizeBytes: int64(maxUploadSizeMB) << 20,
	}
}

// Upload stores the image under a fresh path owned by the user and returns its public URL.
func (s *ImageService) Upload(ctx context.Context, in UploadImageInput) (string, error) {
	if in.UserID == "" {
		return "", models.NewValidationError("Invalid user")
	}
	if len(in.Content) == 0 {
		return "", models.NewValidationError("No file uploaded")
	}
	if int64(len(in.Content)) > s.maxUploadSizeBytes {
		return "", models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxUploadSizeBytes>>20))
	}

	detectedType := http.DetectContentType(in.Content)
	if !strings.HasPrefix(detectedType, "image/") {
		observability.ImageUploads.WithLabelValues("rejected").Inc()
		return "", models.NewValidationError("Please upload an image file")
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(in.Content))
	if err != nil {
		observability.ImageUploads.WithLabelValues("rejected").Inc()
		return "", models.NewValidationError("Invalid image file")
	}
	ext, ok := formatExtensions[format]
	if !ok {
		observability.ImageUploads.WithLabelValues("rejected").Inc()
		return "", models.NewValidationError("Unsupported image format")
	}

	path := storage.ObjectPath(in.UserID, ext)
	err = s.store.Upload(ctx, path, bytes.NewReader(in.Content), storage.UploadOptions{
		CacheControl: imageCacheControl,
		Upsert:       false,
		ContentType:  detectedType,
	})
	if err != nil {
		observability.ImageUploads.WithLabelValues("error").Inc()
		return "", models.NewInternalError(fmt.Errorf("upload image: %w", err))
	}

	publicURL := s.store.PublicURL(path)
	if publicURL == "" {
		observability.ImageUploads.WithLabelValues("error").Inc()
		return "", models.NewInternalError(errors.New("failed to get public URL"))
	}

	observability.ImageUploads.WithLabelValues("ok").Inc()
	return publicURL, nil
}

// OwnsURL reports whether publicURL points at an upload in userID's namespace.
func (s *ImageService) OwnsURL(userID, publicURL string) bool {
	if userID == "" {
		return false
	}
	path, ok := s.store.PathOf(publicURL)
	return ok && strings.HasPrefix(path, userID+"/")
}
