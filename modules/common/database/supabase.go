package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"

	"buyershow-server/modules/common/model"
)

const (
	tableRequests = "buyershow_generation_requests"
	tableImages   = "buyershow_generated_images"
	tableUploads  = "buyershow_uploads"
	tableProducts = "buyershow_products"
)

// Client - Supabase-backed Store
type Client struct {
	supabase *supabase.Client
}

// NewClient - connect to Supabase with the service key
func NewClient(supabaseURL, serviceKey string) (*Client, error) {
	supabaseClient, err := supabase.NewClient(supabaseURL, serviceKey, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to create Supabase client: %w", err)
	}
	return &Client{supabase: supabaseClient}, nil
}

// CreateGenerationRequest - insert a new request row, assigning id/timestamps
func (c *Client) CreateGenerationRequest(ctx context.Context, req *model.GenerationRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	req.CreatedAt = now
	req.UpdatedAt = now

	_, _, err := c.supabase.From(tableRequests).
		Insert(req, false, "", "", "").
		Execute()
	if err != nil {
		return fmt.Errorf("failed to insert generation request: %w", err)
	}

	log.Printf("📝 [DB] Generation request created: %s (user: %s)", req.ID, req.UserID)
	return nil
}

// UpdateGenerationRequest - partial update, nil fields untouched
func (c *Client) UpdateGenerationRequest(ctx context.Context, id string, update RequestUpdate) error {
	updateData := map[string]interface{}{
		"updated_at": time.Now().UTC(),
	}
	if update.Status != nil {
		updateData["status"] = *update.Status
	}
	if update.PromptTokens != nil {
		updateData["prompt_tokens"] = *update.PromptTokens
	}
	if update.OutputTokens != nil {
		updateData["output_tokens"] = *update.OutputTokens
	}
	if update.TotalTokens != nil {
		updateData["total_tokens"] = *update.TotalTokens
	}
	if update.ErrorCode != nil {
		updateData["error_code"] = *update.ErrorCode
	}
	if update.ErrorMessage != nil {
		updateData["error_message"] = *update.ErrorMessage
	}
	if update.RetryCount != nil {
		updateData["retry_count"] = *update.RetryCount
	}
	if update.CompletedAt != nil {
		updateData["completed_at"] = *update.CompletedAt
	}

	_, _, err := c.supabase.From(tableRequests).
		Update(updateData, "", "").
		Eq("request_id", id).
		Execute()
	if err != nil {
		return fmt.Errorf("failed to update generation request: %w", err)
	}
	return nil
}

// GetGenerationRequest - fetch one request owned by userID
func (c *Client) GetGenerationRequest(ctx context.Context, id, userID string) (*model.GenerationRequest, error) {
	var requests []model.GenerationRequest

	data, _, err := c.supabase.From(tableRequests).
		Select("*", "exact", false).
		Eq("request_id", id).
		Eq("user_id", userID).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to query generation request: %w", err)
	}
	if err := json.Unmarshal(data, &requests); err != nil {
		return nil, fmt.Errorf("failed to parse generation request: %w", err)
	}
	if len(requests) == 0 {
		return nil, ErrNotFound
	}
	return &requests[0], nil
}

// ListGenerationRequests - newest first, optional status filter, paginated
func (c *Client) ListGenerationRequests(ctx context.Context, userID string, filter HistoryFilter) ([]model.GenerationRequest, int, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}

	query := c.supabase.From(tableRequests).
		Select("*", "exact", false).
		Eq("user_id", userID)
	if filter.Status != "" {
		query = query.Eq("status", filter.Status)
	}

	data, total, err := query.
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		Range(filter.Offset, filter.Offset+limit-1, "").
		Execute()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list generation requests: %w", err)
	}

	var requests []model.GenerationRequest
	if err := json.Unmarshal(data, &requests); err != nil {
		return nil, 0, fmt.Errorf("failed to parse generation requests: %w", err)
	}
	return requests, int(total), nil
}

// DeleteGenerationRequest - delete one owned request row
func (c *Client) DeleteGenerationRequest(ctx context.Context, id, userID string) error {
	if _, err := c.GetGenerationRequest(ctx, id, userID); err != nil {
		return err
	}

	_, _, err := c.supabase.From(tableRequests).
		Delete("", "").
		Eq("request_id", id).
		Eq("user_id", userID).
		Execute()
	if err != nil {
		return fmt.Errorf("failed to delete generation request: %w", err)
	}

	log.Printf("🗑️ [DB] Generation request deleted: %s", id)
	return nil
}

// CreateGeneratedImage - insert the result image row
func (c *Client) CreateGeneratedImage(ctx context.Context, img *model.GeneratedImage) error {
	if img.ID == "" {
		img.ID = uuid.NewString()
	}
	if img.GeneratedAt.IsZero() {
		img.GeneratedAt = time.Now().UTC()
	}

	_, _, err := c.supabase.From(tableImages).
		Insert(img, false, "", "", "").
		Execute()
	if err != nil {
		return fmt.Errorf("failed to insert generated image: %w", err)
	}
	return nil
}

// GetGeneratedImage - image for a request, ErrNotFound when none exists
func (c *Client) GetGeneratedImage(ctx context.Context, requestID string) (*model.GeneratedImage, error) {
	var images []model.GeneratedImage

	data, _, err := c.supabase.From(tableImages).
		Select("*", "exact", false).
		Eq("generation_request_id", requestID).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to query generated image: %w", err)
	}
	if err := json.Unmarshal(data, &images); err != nil {
		return nil, fmt.Errorf("failed to parse generated image: %w", err)
	}
	if len(images) == 0 {
		return nil, ErrNotFound
	}
	return &images[0], nil
}

// DeleteGeneratedImages - remove all images attached to a request
func (c *Client) DeleteGeneratedImages(ctx context.Context, requestID string) error {
	_, _, err := c.supabase.From(tableImages).
		Delete("", "").
		Eq("generation_request_id", requestID).
		Execute()
	if err != nil {
		return fmt.Errorf("failed to delete generated images: %w", err)
	}
	return nil
}

// CreateUpload - insert an upload record
func (c *Client) CreateUpload(ctx context.Context, up *model.SceneUpload) error {
	if up.ID == "" {
		up.ID = uuid.NewString()
	}
	if up.UploadedAt.IsZero() {
		up.UploadedAt = time.Now().UTC()
	}

	_, _, err := c.supabase.From(tableUploads).
		Insert(up, false, "", "", "").
		Execute()
	if err != nil {
		return fmt.Errorf("failed to insert upload: %w", err)
	}
	return nil
}

// GetUpload - fetch one upload owned by userID
func (c *Client) GetUpload(ctx context.Context, id, userID string) (*model.SceneUpload, error) {
	var uploads []model.SceneUpload

	data, _, err := c.supabase.From(tableUploads).
		Select("*", "exact", false).
		Eq("upload_id", id).
		Eq("user_id", userID).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to query upload: %w", err)
	}
	if err := json.Unmarshal(data, &uploads); err != nil {
		return nil, fmt.Errorf("failed to parse upload: %w", err)
	}
	if len(uploads) == 0 {
		return nil, ErrNotFound
	}
	return &uploads[0], nil
}

// ListUploads - newest uploads for a user
func (c *Client) ListUploads(ctx context.Context, userID string, limit int) ([]model.SceneUpload, error) {
	if limit <= 0 {
		limit = 20
	}

	data, _, err := c.supabase.From(tableUploads).
		Select("*", "exact", false).
		Eq("user_id", userID).
		Order("uploaded_at", &postgrest.OrderOpts{Ascending: false}).
		Limit(limit, "").
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to list uploads: %w", err)
	}

	var uploads []model.SceneUpload
	if err := json.Unmarshal(data, &uploads); err != nil {
		return nil, fmt.Errorf("failed to parse uploads: %w", err)
	}
	return uploads, nil
}

// DeleteUpload - delete one owned upload record
func (c *Client) DeleteUpload(ctx context.Context, id, userID string) error {
	if _, err := c.GetUpload(ctx, id, userID); err != nil {
		return err
	}

	_, _, err := c.supabase.From(tableUploads).
		Delete("", "").
		Eq("upload_id", id).
		Eq("user_id", userID).
		Execute()
	if err != nil {
		return fmt.Errorf("failed to delete upload: %w", err)
	}
	return nil
}

// CreateProduct - insert a product row
func (c *Client) CreateProduct(ctx context.Context, p *model.Product) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	_, _, err := c.supabase.From(tableProducts).
		Insert(p, false, "", "", "").
		Execute()
	if err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}
	return nil
}

// GetProduct - fetch one active product owned by userID
func (c *Client) GetProduct(ctx context.Context, id, userID string) (*model.Product, error) {
	var products []model.Product

	data, _, err := c.supabase.From(tableProducts).
		Select("*", "exact", false).
		Eq("product_id", id).
		Eq("user_id", userID).
		Eq("is_active", "true").
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to query product: %w", err)
	}
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("failed to parse product: %w", err)
	}
	if len(products) == 0 {
		return nil, ErrNotFound
	}
	return &products[0], nil
}

// ListProducts - active products for a user, newest first
func (c *Client) ListProducts(ctx context.Context, userID string) ([]model.Product, error) {
	data, _, err := c.supabase.From(tableProducts).
		Select("*", "exact", false).
		Eq("user_id", userID).
		Eq("is_active", "true").
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	var products []model.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("failed to parse products: %w", err)
	}
	return products, nil
}

// GetStats - per-user aggregate counts over generation requests
func (c *Client) GetStats(ctx context.Context, userID string) (*model.GenerationStats, error) {
	data, total, err := c.supabase.From(tableRequests).
		Select("status,total_tokens", "exact", false).
		Eq("user_id", userID).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}

	var rows []struct {
		Status      string `json:"status"`
		TotalTokens *int   `json:"total_tokens"`
	}
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse stats rows: %w", err)
	}

	stats := &model.GenerationStats{TotalGenerations: int(total)}
	for _, row := range rows {
		switch row.Status {
		case model.StatusCompleted:
			stats.CompletedGenerations++
		case model.StatusFailed:
			stats.FailedGenerations++
		case model.StatusPending, model.StatusInProgress:
			stats.PendingGenerations++
		}
		if row.TotalTokens != nil {
			stats.TotalTokensUsed += *row.TotalTokens
		}
	}
	return stats, nil
}
