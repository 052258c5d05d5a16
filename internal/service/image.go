package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/msomdec/shelfly/internal/domain"
)

const (
	maxImageSize = 10 * 1024 * 1024 // 10MB

	storedImagePrefix = "blob:"
)

// ImageService keeps captured product images in the database and hands out
// opaque URIs for them.
type ImageService struct {
	files domain.FileStore
}

// NewImageService creates a new ImageService.
func NewImageService(files domain.FileStore) *ImageService {
	return &ImageService{files: files}
}

// IsStoredImage reports whether uri points at an image held by ImageService.
// Any other URI is an external reference the store leaves alone.
func IsStoredImage(uri string) bool {
	return strings.HasPrefix(uri, storedImagePrefix)
}

// Save validates and stores image bytes and returns the URI to put on a product.
func (s *ImageService) Save(ctx context.Context, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: image is empty", domain.ErrInvalidInput)
	}
	if len(data) > maxImageSize {
		return "", fmt.Errorf("%w: image exceeds 10MB limit", domain.ErrInvalidInput)
	}

	contentType := http.DetectContentType(data)
	if contentType != "image/jpeg" && contentType != "image/png" {
		return "", fmt.Errorf("%w: only JPEG and PNG images are accepted", domain.ErrInvalidInput)
	}

	key := "images/" + uuid.NewString()
	if err := s.files.Save(ctx, key, data); err != nil {
		return "", fmt.Errorf("save file: %w", err)
	}

	return storedImagePrefix + key, nil
}

// Load returns the bytes and content type of a stored image.
func (s *ImageService) Load(ctx context.Context, uri string) ([]byte, string, error) {
	if !IsStoredImage(uri) {
		return nil, "", fmt.Errorf("%w: %q is not a stored image", domain.ErrInvalidInput, uri)
	}

	data, err := s.files.Get(ctx, strings.TrimPrefix(uri, storedImagePrefix))
	if err != nil {
		return nil, "", fmt.Errorf("get file: %w", err)
	}
	return data, http.DetectContentType(data), nil
}

// Delete removes a stored image. External URIs are ignored.
func (s *ImageService) Delete(ctx context.Context, uri string) error {
	if !IsStoredImage(uri) {
		return nil
	}
	if err := s.files.Delete(ctx, strings.TrimPrefix(uri, storedImagePrefix)); err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}
