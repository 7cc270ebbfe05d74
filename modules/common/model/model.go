package model

import "time"

// Generation request lifecycle statuses.
const (
	StatusPending    = "PENDING"
	StatusInProgress = "IN_PROGRESS"
	StatusCompleted  = "COMPLETED"
	StatusFailed     = "FAILED"
	StatusCancelled  = "CANCELLED"
)

// Error codes returned to clients and persisted on failed requests.
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeInvalidAPIKey    = "INVALID_API_KEY"
	ErrCodeRateLimit        = "RATE_LIMIT_EXCEEDED"
	ErrCodeInvalidRequest   = "INVALID_REQUEST"
	ErrCodeAPIError         = "API_ERROR"
	ErrCodeGenerationFailed = "GENERATION_FAILED"
	ErrCodeFileTooLarge     = "FILE_TOO_LARGE"
	ErrCodeInvalidFileType  = "INVALID_FILE_TYPE"
	ErrCodeUploadFailed     = "UPLOAD_FAILED"
	ErrCodeInternal         = "INTERNAL_ERROR"
)

// Upload kinds.
const (
	UploadKindScene   = "scene"
	UploadKindProduct = "product"
)

// IsTerminalStatus - COMPLETED/FAILED/CANCELLED requests never transition again
func IsTerminalStatus(status string) bool {
	return status == StatusCompleted || status == StatusFailed || status == StatusCancelled
}

// IsValidStatus - membership in the status taxonomy
func IsValidStatus(status string) bool {
	switch status {
	case StatusPending, StatusInProgress, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// GenerationRequest - buyershow_generation_requests table row
type GenerationRequest struct {
	ID                   string     `json:"request_id"`
	UserID               string     `json:"user_id"`
	UserDescription      string     `json:"user_description"`
	ProductDescription   *string    `json:"product_description"`
	PlacementDescription *string    `json:"placement_description"`
	StyleDescription     *string    `json:"style_description"`
	EnhancedPrompt       string     `json:"enhanced_prompt"`
	Status               string     `json:"status"`
	SceneImageID         *string    `json:"scene_image_id"`
	ProductID            *string    `json:"product_id"`
	AIModel              string     `json:"ai_model"`
	Temperature          float64    `json:"temperature"`
	PromptTokens         *int       `json:"prompt_tokens"`
	OutputTokens         *int       `json:"output_tokens"`
	TotalTokens          *int       `json:"total_tokens"`
	ErrorCode            *string    `json:"error_code"`
	ErrorMessage         *string    `json:"error_message"`
	RetryCount           int        `json:"retry_count"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
	CompletedAt          *time.Time `json:"completed_at"`
}

// GeneratedImage - buyershow_generated_images table row (1:1 with its request)
type GeneratedImage struct {
	ID                  string    `json:"image_id"`
	GenerationRequestID string    `json:"generation_request_id"`
	Filename            string    `json:"filename"`
	OriginalPrompt      string    `json:"original_prompt"`
	EnhancedPrompt      string    `json:"enhanced_prompt"`
	ImageData           string    `json:"image_data"` // base64
	MimeType            string    `json:"mime_type"`
	Width               *int      `json:"width"`
	Height              *int      `json:"height"`
	GeneratedAt         time.Time `json:"generated_at"`
}

// SceneUpload - buyershow_uploads table row (scene and product photos)
type SceneUpload struct {
	ID           string    `json:"upload_id"`
	UserID       string    `json:"user_id"`
	Kind         string    `json:"kind"`
	Filename     string    `json:"filename"`
	OriginalName string    `json:"original_name"`
	Size         int64     `json:"size"`
	MimeType     string    `json:"mime_type"`
	Path         string    `json:"path"`
	URL          string    `json:"url"`
	UploadedAt   time.Time `json:"uploaded_at"`
}

// Product - buyershow_products table row
type Product struct {
	ID          string    `json:"product_id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	Category    *string   `json:"category"`
	ImageURL    *string   `json:"image_url"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// GenerationStats - per-user aggregate over generation requests
type GenerationStats struct {
	TotalGenerations     int `json:"totalGenerations"`
	CompletedGenerations int `json:"completedGenerations"`
	FailedGenerations    int `json:"failedGenerations"`
	PendingGenerations   int `json:"pendingGenerations"`
	TotalTokensUsed      int `json:"totalTokensUsed"`
}

// AppError - service-level error carrying a client-facing code
type AppError struct {
	Code    string
	Message string
}

func (e *AppError) Error() string {
	return e.Message
}

// NewAppError - build a coded error
func NewAppError(code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}
