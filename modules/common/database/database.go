package database

import (
	"context"
	"errors"
	"time"

	"buyershow-server/modules/common/model"
)

// ErrNotFound - returned for absent records and records owned by someone
// else alike; callers cannot distinguish the two.
var ErrNotFound = errors.New("record not found")

// HistoryFilter - listing options for generation requests
type HistoryFilter struct {
	Status string
	Limit  int
	Offset int
}

// RequestUpdate - partial update of a generation request; nil fields are untouched
type RequestUpdate struct {
	Status       *string
	PromptTokens *int
	OutputTokens *int
	TotalTokens  *int
	ErrorCode    *string
	ErrorMessage *string
	RetryCount   *int
	CompletedAt  *time.Time
}

// Store - persistence surface for the generation pipeline. Every read is
// keyed by (id, userID) so ownership is enforced at the lowest layer.
type Store interface {
	CreateGenerationRequest(ctx context.Context, req *model.GenerationRequest) error
	UpdateGenerationRequest(ctx context.Context, id string, update RequestUpdate) error
	GetGenerationRequest(ctx context.Context, id, userID string) (*model.GenerationRequest, error)
	ListGenerationRequests(ctx context.Context, userID string, filter HistoryFilter) ([]model.GenerationRequest, int, error)
	DeleteGenerationRequest(ctx context.Context, id, userID string) error

	CreateGeneratedImage(ctx context.Context, img *model.GeneratedImage) error
	GetGeneratedImage(ctx context.Context, requestID string) (*model.GeneratedImage, error)
	DeleteGeneratedImages(ctx context.Context, requestID string) error

	CreateUpload(ctx context.Context, up *model.SceneUpload) error
	GetUpload(ctx context.Context, id, userID string) (*model.SceneUpload, error)
	ListUploads(ctx context.Context, userID string, limit int) ([]model.SceneUpload, error)
	DeleteUpload(ctx context.Context, id, userID string) error

	CreateProduct(ctx context.Context, p *model.Product) error
	GetProduct(ctx context.Context, id, userID string) (*model.Product, error)
	ListProducts(ctx context.Context, userID string) ([]model.Product, error)

	GetStats(ctx context.Context, userID string) (*model.GenerationStats, error)
}
