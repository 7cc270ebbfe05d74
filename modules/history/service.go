package history

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"buyershow-server/modules/common/database"
	"buyershow-server/modules/common/model"
)

// Listing bounds.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Summary - one history list entry
type Summary struct {
	ID                string     `json:"id"`
	UserDescription   string     `json:"userDescription"`
	Status            string     `json:"status"`
	CreatedAt         time.Time  `json:"createdAt"`
	CompletedAt       *time.Time `json:"completedAt,omitempty"`
	HasGeneratedImage bool       `json:"hasGeneratedImage"`
}

// ListResult - paginated history page
type ListResult struct {
	Generations []Summary `json:"generations"`
	Total       int       `json:"total"`
	HasMore     bool      `json:"hasMore"`
}

// Detail - full view of one generation request
type Detail struct {
	Request        *model.GenerationRequest `json:"request"`
	GeneratedImage *model.GeneratedImage    `json:"generatedImage,omitempty"`
}

// Service - read/delete surface over generation history
type Service struct {
	store database.Store
}

func NewService(store database.Store) *Service {
	return &Service{store: store}
}

// List - newest first with optional status filter
func (s *Service) List(ctx context.Context, userID string, status string, limit, offset int) (*ListResult, error) {
	if status != "" && !model.IsValidStatus(status) {
		return nil, model.NewAppError(model.ErrCodeValidation, "Unknown status filter")
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}

	rows, total, err := s.store.ListGenerationRequests(ctx, userID, database.HistoryFilter{
		Status: status,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list generation history: %w", err)
	}

	summaries := make([]Summary, 0, len(rows))
	for _, row := range rows {
		_, imgErr := s.store.GetGeneratedImage(ctx, row.ID)
		summaries = append(summaries, Summary{
			ID:                row.ID,
			UserDescription:   row.UserDescription,
			Status:            row.Status,
			CreatedAt:         row.CreatedAt,
			CompletedAt:       row.CompletedAt,
			HasGeneratedImage: imgErr == nil,
		})
	}

	return &ListResult{
		Generations: summaries,
		Total:       total,
		HasMore:     offset+limit < total,
	}, nil
}

// Get - one owned generation with its image
func (s *Service) Get(ctx context.Context, userID, id string) (*Detail, error) {
	record, err := s.store.GetGenerationRequest(ctx, id, userID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, model.NewAppError(model.ErrCodeNotFound, "Generation not found or access denied")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load generation: %w", err)
	}

	detail := &Detail{Request: record}
	if img, err := s.store.GetGeneratedImage(ctx, record.ID); err == nil {
		detail.GeneratedImage = img
	}
	return detail, nil
}

// Delete - remove an owned generation and its images
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.store.GetGenerationRequest(ctx, id, userID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return model.NewAppError(model.ErrCodeNotFound, "Generation not found or access denied")
		}
		return fmt.Errorf("failed to load generation: %w", err)
	}

	if err := s.store.DeleteGeneratedImages(ctx, id); err != nil {
		return fmt.Errorf("failed to delete generated images: %w", err)
	}
	if err := s.store.DeleteGenerationRequest(ctx, id, userID); err != nil {
		return fmt.Errorf("failed to delete generation: %w", err)
	}

	log.Printf("🗑️ [History] Generation deleted: %s (user: %s)", id, userID)
	return nil
}

// Stats - per-user aggregate counts
func (s *Service) Stats(ctx context.Context, userID string) (*model.GenerationStats, error) {
	stats, err := s.store.GetStats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load generation stats: %w", err)
	}
	return stats, nil
}
