package generation

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"buyershow-server/modules/common/database"
	"buyershow-server/modules/common/model"
	"buyershow-server/modules/common/storage"
	"buyershow-server/modules/nanobanana"
	"buyershow-server/modules/prompt"
)

// MinUserDescriptionLength - shortest accepted user description
const MinUserDescriptionLength = 5

// ImageGenerator - the provider client as the orchestrator sees it
type ImageGenerator interface {
	GenerateImage(ctx context.Context, req *nanobanana.GenerateRequest) *nanobanana.GenerateResponse
	TestConnection(ctx context.Context) bool
}

// Options - orchestrator dependencies and defaults
type Options struct {
	Store              database.Store
	Files              storage.Files
	Generator          ImageGenerator
	Model              string
	DefaultTemperature float64
	MaxOutputTokens    int
}

// Service - drives one generation request from PENDING to a terminal status
type Service struct {
	store              database.Store
	files              storage.Files
	generator          ImageGenerator
	aiModel            string
	defaultTemperature float64
	maxOutputTokens    int
}

// NewService - orchestrator over the given collaborators
func NewService(opts Options) *Service {
	temperature := opts.DefaultTemperature
	if temperature == 0 {
		temperature = 0.7
	}
	return &Service{
		store:              opts.Store,
		files:              opts.Files,
		generator:          opts.Generator,
		aiModel:            opts.Model,
		defaultTemperature: temperature,
		maxOutputTokens:    opts.MaxOutputTokens,
	}
}

// Generate - validate, persist, call the provider, finalize
func (s *Service) Generate(ctx context.Context, userID string, input *GenerateInput) (*Result, error) {
	if utf8.RuneCountInString(strings.TrimSpace(input.UserDescription)) < MinUserDescriptionLength {
		return nil, model.NewAppError(model.ErrCodeValidation,
			fmt.Sprintf("User description must be at least %d characters", MinUserDescriptionLength))
	}

	temperature := s.defaultTemperature
	if input.Temperature != nil {
		temperature = *input.Temperature
	}
	if temperature < 0 || temperature > 1 {
		return nil, model.NewAppError(model.ErrCodeValidation, "Temperature must be between 0 and 1")
	}

	// Ownership checks happen before anything is persisted.
	var scene *model.SceneUpload
	if input.SceneImageID != "" {
		found, err := s.store.GetUpload(ctx, input.SceneImageID, userID)
		if errors.Is(err, database.ErrNotFound) {
			return nil, model.NewAppError(model.ErrCodeNotFound, "Scene image not found or access denied")
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load scene image record: %w", err)
		}
		scene = found
	}

	var product *model.Product
	if input.ProductID != "" {
		found, err := s.store.GetProduct(ctx, input.ProductID, userID)
		if errors.Is(err, database.ErrNotFound) {
			return nil, model.NewAppError(model.ErrCodeNotFound, "Product not found or access denied")
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load product record: %w", err)
		}
		product = found
	}

	productDescription := input.ProductDescription
	if productDescription == "" && product != nil && product.Description != nil {
		productDescription = *product.Description
	}

	enhancedPrompt, _, ok := prompt.BuildForGeneration(prompt.Request{
		UserDescription:      input.UserDescription,
		ProductDescription:   productDescription,
		PlacementDescription: input.PlacementDescription,
		StyleDescription:     input.StyleDescription,
		HasSceneImage:        scene != nil,
	})
	if !ok {
		return nil, model.NewAppError(model.ErrCodeValidation, "Generated prompt failed validation checks")
	}

	record := &model.GenerationRequest{
		UserID:               userID,
		UserDescription:      input.UserDescription,
		ProductDescription:   optional(input.ProductDescription),
		PlacementDescription: optional(input.PlacementDescription),
		StyleDescription:     optional(input.StyleDescription),
		EnhancedPrompt:       enhancedPrompt,
		Status:               model.StatusPending,
		SceneImageID:         optional(input.SceneImageID),
		ProductID:            optional(input.ProductID),
		AIModel:              s.aiModel,
		Temperature:          temperature,
	}
	if err := s.store.CreateGenerationRequest(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to create generation request: %w", err)
	}

	return s.run(ctx, record, scene, product)
}

// GetStatus - lifecycle view of an owned request
func (s *Service) GetStatus(ctx context.Context, userID, generationID string) (*Result, error) {
	record, err := s.store.GetGenerationRequest(ctx, generationID, userID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, model.NewAppError(model.ErrCodeNotFound, "Generation request not found or access denied")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load generation request: %w", err)
	}

	result := resultFromRecord(record)
	if record.Status == model.StatusCompleted {
		if img, err := s.store.GetGeneratedImage(ctx, record.ID); err == nil {
			result.GeneratedImage = imageResult(img)
		}
	}
	return result, nil
}

// Regenerate - new request reusing the stored prompt of a previous one
func (s *Service) Regenerate(ctx context.Context, userID, generationID string, input *RegenerateInput) (*Result, error) {
	original, err := s.store.GetGenerationRequest(ctx, generationID, userID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, model.NewAppError(model.ErrCodeNotFound, "Generation request not found or access denied")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load generation request: %w", err)
	}

	temperature := original.Temperature
	if input != nil && input.Temperature != nil {
		temperature = *input.Temperature
	}
	if temperature < 0 || temperature > 1 {
		return nil, model.NewAppError(model.ErrCodeValidation, "Temperature must be between 0 and 1")
	}

	var scene *model.SceneUpload
	if original.SceneImageID != nil {
		found, err := s.store.GetUpload(ctx, *original.SceneImageID, userID)
		if errors.Is(err, database.ErrNotFound) {
			return nil, model.NewAppError(model.ErrCodeNotFound, "Scene image not found or access denied")
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load scene image record: %w", err)
		}
		scene = found
	}

	var product *model.Product
	if original.ProductID != nil {
		if found, err := s.store.GetProduct(ctx, *original.ProductID, userID); err == nil {
			product = found
		}
	}

	// The stored prompt was already optimized once; reuse it verbatim.
	record := &model.GenerationRequest{
		UserID:               userID,
		UserDescription:      original.UserDescription,
		ProductDescription:   original.ProductDescription,
		PlacementDescription: original.PlacementDescription,
		StyleDescription:     original.StyleDescription,
		EnhancedPrompt:       original.EnhancedPrompt,
		Status:               model.StatusPending,
		SceneImageID:         original.SceneImageID,
		ProductID:            original.ProductID,
		AIModel:              s.aiModel,
		Temperature:          temperature,
	}
	if err := s.store.CreateGenerationRequest(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to create generation request: %w", err)
	}

	log.Printf("🔁 [Generation] Regenerating %s as %s", original.ID, record.ID)
	return s.run(ctx, record, scene, product)
}

// TestConnection - provider reachability for GET /api/generation/test
func (s *Service) TestConnection(ctx context.Context) bool {
	return s.generator.TestConnection(ctx)
}

// run - IN_PROGRESS is persisted before the provider is called; the record
// always lands on a terminal status afterwards.
func (s *Service) run(ctx context.Context, record *model.GenerationRequest, scene *model.SceneUpload, product *model.Product) (*Result, error) {
	inProgress := model.StatusInProgress
	if err := s.store.UpdateGenerationRequest(ctx, record.ID, database.RequestUpdate{Status: &inProgress}); err != nil {
		return nil, fmt.Errorf("failed to mark request in progress: %w", err)
	}
	record.Status = model.StatusInProgress

	genReq := &nanobanana.GenerateRequest{
		Prompt:          record.EnhancedPrompt,
		Temperature:     record.Temperature,
		MaxOutputTokens: s.maxOutputTokens,
	}

	if scene != nil {
		data, err := s.files.Fetch(ctx, scene.Path)
		if err != nil {
			return s.fail(ctx, record, model.ErrCodeGenerationFailed, "failed to load scene image")
		}
		genReq.SceneImage = &nanobanana.ImageInput{Data: data, MimeType: scene.MimeType}
	}

	if product != nil && product.ImageURL != nil {
		if path, ok := s.files.PathFromURL(*product.ImageURL); ok {
			if data, err := s.files.Fetch(ctx, path); err == nil {
				genReq.ProductImage = &nanobanana.ImageInput{Data: data, MimeType: mimeFromPath(path)}
			} else {
				log.Printf("⚠️ [Generation] Product image unavailable, continuing without it: %v", err)
			}
		}
	}

	resp := s.generator.GenerateImage(ctx, genReq)
	if !resp.Success {
		return s.fail(ctx, record, resp.Error.Code, resp.Error.Message)
	}

	img := &model.GeneratedImage{
		GenerationRequestID: record.ID,
		Filename:            fmt.Sprintf("generated_%d_%s.png", time.Now().UnixMilli(), shortID(record.ID)),
		OriginalPrompt:      record.UserDescription,
		EnhancedPrompt:      record.EnhancedPrompt,
		ImageData:           resp.ImageBase64,
		MimeType:            resp.MimeType,
	}
	// Persistence failures past this point still land the record on a
	// terminal status; a request is never left IN_PROGRESS.
	if err := s.store.CreateGeneratedImage(ctx, img); err != nil {
		log.Printf("❌ [Generation] Failed to persist generated image for %s: %v", record.ID, err)
		return s.fail(ctx, record, model.ErrCodeGenerationFailed, "failed to persist generated image")
	}

	completed := model.StatusCompleted
	completedAt := time.Now().UTC()
	update := database.RequestUpdate{Status: &completed, CompletedAt: &completedAt}
	if resp.Usage != nil {
		update.PromptTokens = &resp.Usage.PromptTokens
		update.OutputTokens = &resp.Usage.OutputTokens
		update.TotalTokens = &resp.Usage.TotalTokens
	}
	if err := s.store.UpdateGenerationRequest(ctx, record.ID, update); err != nil {
		log.Printf("❌ [Generation] Failed to finalize request %s: %v", record.ID, err)
		return s.fail(ctx, record, model.ErrCodeGenerationFailed, "failed to finalize generation request")
	}

	imgResult := imageResult(img)
	imgResult.URL = s.archiveWebP(ctx, record.UserID, img, resp)

	log.Printf("✅ [Generation] Request %s completed", record.ID)
	return &Result{
		GenerationID:   record.ID,
		Status:         model.StatusCompleted,
		EnhancedPrompt: record.EnhancedPrompt,
		CreatedAt:      record.CreatedAt,
		CompletedAt:    &completedAt,
		GeneratedImage: imgResult,
		Usage:          resp.Usage,
	}, nil
}

// fail - terminal FAILED state; failures are results, not transport errors
func (s *Service) fail(ctx context.Context, record *model.GenerationRequest, code, message string) (*Result, error) {
	failed := model.StatusFailed
	retryCount := 1
	update := database.RequestUpdate{
		Status:       &failed,
		ErrorCode:    &code,
		ErrorMessage: &message,
		RetryCount:   &retryCount,
	}
	if err := s.store.UpdateGenerationRequest(ctx, record.ID, update); err != nil {
		return nil, fmt.Errorf("failed to mark request failed: %w", err)
	}

	log.Printf("❌ [Generation] Request %s failed (%s): %s", record.ID, code, message)
	return &Result{
		GenerationID:   record.ID,
		Status:         model.StatusFailed,
		EnhancedPrompt: record.EnhancedPrompt,
		CreatedAt:      record.CreatedAt,
		Error:          &ErrorDetail{Code: code, Message: message},
	}, nil
}

// archiveWebP - best-effort WebP copy in storage for history thumbnails
func (s *Service) archiveWebP(ctx context.Context, userID string, img *model.GeneratedImage, resp *nanobanana.GenerateResponse) string {
	if resp.MimeType != "image/png" {
		return ""
	}

	pngData, err := base64.StdEncoding.DecodeString(resp.ImageBase64)
	if err != nil {
		log.Printf("⚠️ [Generation] Skipping WebP archive, bad base64: %v", err)
		return ""
	}
	webpData, err := storage.ConvertPNGToWebP(pngData, 90.0)
	if err != nil {
		log.Printf("⚠️ [Generation] Skipping WebP archive: %v", err)
		return ""
	}

	path := fmt.Sprintf("generated-images/user-%s/%s.webp", userID, strings.TrimSuffix(img.Filename, ".png"))
	url, err := s.files.Store(ctx, path, webpData, "image/webp")
	if err != nil {
		log.Printf("⚠️ [Generation] WebP archive upload failed: %v", err)
		return ""
	}
	return url
}

func resultFromRecord(record *model.GenerationRequest) *Result {
	result := &Result{
		GenerationID:   record.ID,
		Status:         record.Status,
		EnhancedPrompt: record.EnhancedPrompt,
		CreatedAt:      record.CreatedAt,
		CompletedAt:    record.CompletedAt,
	}
	if record.ErrorCode != nil {
		detail := &ErrorDetail{Code: *record.ErrorCode}
		if record.ErrorMessage != nil {
			detail.Message = *record.ErrorMessage
		}
		result.Error = detail
	}
	if record.PromptTokens != nil || record.OutputTokens != nil {
		usage := &nanobanana.Usage{}
		if record.PromptTokens != nil {
			usage.PromptTokens = *record.PromptTokens
		}
		if record.OutputTokens != nil {
			usage.OutputTokens = *record.OutputTokens
		}
		if record.TotalTokens != nil {
			usage.TotalTokens = *record.TotalTokens
		}
		result.Usage = usage
	}
	return result
}

func imageResult(img *model.GeneratedImage) *ImageResult {
	return &ImageResult{
		ID:        img.ID,
		Filename:  img.Filename,
		ImageData: img.ImageData,
		MimeType:  img.MimeType,
	}
}

func mimeFromPath(path string) string {
	switch {
	case strings.HasSuffix(path, ".jpg"), strings.HasSuffix(path, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(path, ".webp"):
		return "image/webp"
	case strings.HasSuffix(path, ".gif"):
		return "image/gif"
	default:
		return "image/png"
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
