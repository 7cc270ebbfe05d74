package upload

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"buyershow-server/modules/common/database"
	"buyershow-server/modules/common/model"
	"buyershow-server/modules/common/storage"
)

// DefaultMaxSize - upload cap when none is configured
const DefaultMaxSize = 10 * 1024 * 1024

var allowedMimeTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// Input - one base64 upload
type Input struct {
	Filename string `json:"filename"`
	Data     string `json:"data"` // base64, optionally a data URL
	MimeType string `json:"mimeType"`
}

// Service - validates, stores bytes, records metadata
type Service struct {
	store   database.Store
	files   storage.Files
	maxSize int64
}

// NewService - upload service over the given store and files
func NewService(store database.Store, files storage.Files, maxSize int64) *Service {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Service{store: store, files: files, maxSize: maxSize}
}

// Upload - validate and persist one scene or product image
func (s *Service) Upload(ctx context.Context, userID, kind string, input *Input) (*model.SceneUpload, error) {
	ext, ok := allowedMimeTypes[input.MimeType]
	if !ok {
		return nil, model.NewAppError(model.ErrCodeInvalidFileType,
			"Only JPEG, PNG, WebP and GIF images are allowed")
	}

	raw := input.Data
	if idx := strings.Index(raw, ";base64,"); idx >= 0 {
		raw = raw[idx+len(";base64,"):]
	}
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, model.NewAppError(model.ErrCodeValidation, "Invalid base64 image data")
	}
	if len(data) == 0 {
		return nil, model.NewAppError(model.ErrCodeValidation, "Empty image data")
	}
	if int64(len(data)) > s.maxSize {
		return nil, model.NewAppError(model.ErrCodeFileTooLarge,
			fmt.Sprintf("File exceeds the %dMB limit", s.maxSize/(1024*1024)))
	}

	filename := fmt.Sprintf("upload-%d-%06d%s", time.Now().UnixMilli(), rand.Intn(999999), ext)
	path := "uploads/" + filename

	url, err := s.files.Store(ctx, path, data, input.MimeType)
	if err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}

	record := &model.SceneUpload{
		UserID:       userID,
		Kind:         kind,
		Filename:     filename,
		OriginalName: input.Filename,
		Size:         int64(len(data)),
		MimeType:     input.MimeType,
		Path:         path,
		URL:          url,
	}
	if err := s.store.CreateUpload(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to record upload: %w", err)
	}

	log.Printf("📷 [Upload] %s upload stored: %s (%d bytes, user: %s)", kind, filename, len(data), userID)
	return record, nil
}

// Delete - remove an owned upload record and its file
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	record, err := s.store.GetUpload(ctx, id, userID)
	if errors.Is(err, database.ErrNotFound) {
		return model.NewAppError(model.ErrCodeNotFound, "Upload not found or access denied")
	}
	if err != nil {
		return fmt.Errorf("failed to load upload: %w", err)
	}

	if err := s.files.Delete(ctx, record.Path); err != nil {
		log.Printf("⚠️ [Upload] File removal failed, dropping record anyway: %v", err)
	}
	if err := s.store.DeleteUpload(ctx, id, userID); err != nil {
		return fmt.Errorf("failed to delete upload record: %w", err)
	}
	return nil
}

// List - latest uploads for a user
func (s *Service) List(ctx context.Context, userID string, limit int) ([]model.SceneUpload, error) {
	uploads, err := s.store.ListUploads(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list uploads: %w", err)
	}
	return uploads, nil
}
