package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"buyershow-server/modules/common/model"
)

// MemoryStore - mutex-guarded in-memory Store for development and tests
type MemoryStore struct {
	mu       sync.Mutex
	requests map[string]*model.GenerationRequest
	images   map[string]*model.GeneratedImage // keyed by generation request id
	uploads  map[string]*model.SceneUpload
	products map[string]*model.Product
}

// NewMemoryStore - empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		requests: make(map[string]*model.GenerationRequest),
		images:   make(map[string]*model.GeneratedImage),
		uploads:  make(map[string]*model.SceneUpload),
		products: make(map[string]*model.Product),
	}
}

func (s *MemoryStore) CreateGenerationRequest(ctx context.Context, req *model.GenerationRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	req.CreatedAt = now
	req.UpdatedAt = now

	clone := *req
	s.requests[req.ID] = &clone
	return nil
}

func (s *MemoryStore) UpdateGenerationRequest(ctx context.Context, id string, update RequestUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[id]
	if !ok {
		return ErrNotFound
	}

	if update.Status != nil {
		req.Status = *update.Status
	}
	if update.PromptTokens != nil {
		req.PromptTokens = update.PromptTokens
	}
	if update.OutputTokens != nil {
		req.OutputTokens = update.OutputTokens
	}
	if update.TotalTokens != nil {
		req.TotalTokens = update.TotalTokens
	}
	if update.ErrorCode != nil {
		req.ErrorCode = update.ErrorCode
	}
	if update.ErrorMessage != nil {
		req.ErrorMessage = update.ErrorMessage
	}
	if update.RetryCount != nil {
		req.RetryCount = *update.RetryCount
	}
	if update.CompletedAt != nil {
		req.CompletedAt = update.CompletedAt
	}
	req.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) GetGenerationRequest(ctx context.Context, id, userID string) (*model.GenerationRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[id]
	if !ok || req.UserID != userID {
		return nil, ErrNotFound
	}
	clone := *req
	return &clone, nil
}

func (s *MemoryStore) ListGenerationRequests(ctx context.Context, userID string, filter HistoryFilter) ([]model.GenerationRequest, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}

	var matched []model.GenerationRequest
	for _, req := range s.requests {
		if req.UserID != userID {
			continue
		}
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		matched = append(matched, *req)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	if filter.Offset >= total {
		return []model.GenerationRequest{}, total, nil
	}
	end := filter.Offset + limit
	if end > total {
		end = total
	}
	return matched[filter.Offset:end], total, nil
}

func (s *MemoryStore) DeleteGenerationRequest(ctx context.Context, id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[id]
	if !ok || req.UserID != userID {
		return ErrNotFound
	}
	delete(s.requests, id)
	delete(s.images, id)
	return nil
}

func (s *MemoryStore) CreateGeneratedImage(ctx context.Context, img *model.GeneratedImage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if img.ID == "" {
		img.ID = uuid.NewString()
	}
	if img.GeneratedAt.IsZero() {
		img.GeneratedAt = time.Now().UTC()
	}
	clone := *img
	s.images[img.GenerationRequestID] = &clone
	return nil
}

func (s *MemoryStore) GetGeneratedImage(ctx context.Context, requestID string) (*model.GeneratedImage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	img, ok := s.images[requestID]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *img
	return &clone, nil
}

func (s *MemoryStore) DeleteGeneratedImages(ctx context.Context, requestID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.images, requestID)
	return nil
}

func (s *MemoryStore) CreateUpload(ctx context.Context, up *model.SceneUpload) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if up.ID == "" {
		up.ID = uuid.NewString()
	}
	if up.UploadedAt.IsZero() {
		up.UploadedAt = time.Now().UTC()
	}
	clone := *up
	s.uploads[up.ID] = &clone
	return nil
}

func (s *MemoryStore) GetUpload(ctx context.Context, id, userID string) (*model.SceneUpload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	up, ok := s.uploads[id]
	if !ok || up.UserID != userID {
		return nil, ErrNotFound
	}
	clone := *up
	return &clone, nil
}

func (s *MemoryStore) ListUploads(ctx context.Context, userID string, limit int) ([]model.SceneUpload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 20
	}

	var matched []model.SceneUpload
	for _, up := range s.uploads {
		if up.UserID == userID {
			matched = append(matched, *up)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].UploadedAt.After(matched[j].UploadedAt)
	})
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (s *MemoryStore) DeleteUpload(ctx context.Context, id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	up, ok := s.uploads[id]
	if !ok || up.UserID != userID {
		return ErrNotFound
	}
	delete(s.uploads, id)
	return nil
}

func (s *MemoryStore) CreateProduct(ctx context.Context, p *model.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	clone := *p
	s.products[p.ID] = &clone
	return nil
}

func (s *MemoryStore) GetProduct(ctx context.Context, id, userID string) (*model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok || p.UserID != userID || !p.IsActive {
		return nil, ErrNotFound
	}
	clone := *p
	return &clone, nil
}

func (s *MemoryStore) ListProducts(ctx context.Context, userID string) ([]model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []model.Product
	for _, p := range s.products {
		if p.UserID == userID && p.IsActive {
			matched = append(matched, *p)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return matched, nil
}

func (s *MemoryStore) GetStats(ctx context.Context, userID string) (*model.GenerationStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := &model.GenerationStats{}
	for _, req := range s.requests {
		if req.UserID != userID {
			continue
		}
		stats.TotalGenerations++
		switch req.Status {
		case model.StatusCompleted:
			stats.CompletedGenerations++
		case model.StatusFailed:
			stats.FailedGenerations++
		case model.StatusPending, model.StatusInProgress:
			stats.PendingGenerations++
		}
		if req.TotalTokens != nil {
			stats.TotalTokensUsed += *req.TotalTokens
		}
	}
	return stats, nil
}
