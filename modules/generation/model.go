package generation

import (
	"time"

	"buyershow-server/modules/nanobanana"
)

// GenerateInput - POST /api/generation/generate body
type GenerateInput struct {
	UserDescription      string   `json:"userDescription"`
	ProductDescription   string   `json:"productDescription,omitempty"`
	PlacementDescription string   `json:"placementDescription,omitempty"`
	StyleDescription     string   `json:"styleDescription,omitempty"`
	SceneImageID         string   `json:"sceneImageId,omitempty"`
	ProductID            string   `json:"productId,omitempty"`
	Temperature          *float64 `json:"temperature,omitempty"`
}

// RegenerateInput - POST /api/generation/{id}/regenerate body
type RegenerateInput struct {
	Temperature *float64 `json:"temperature,omitempty"`
}

// ImageResult - generated image as returned to clients
type ImageResult struct {
	ID        string `json:"id"`
	Filename  string `json:"filename"`
	ImageData string `json:"imageData"`
	MimeType  string `json:"mimeType"`
	URL       string `json:"url,omitempty"`
}

// ErrorDetail - terminal failure metadata on a result
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Result - lifecycle view of one generation request
type Result struct {
	GenerationID   string            `json:"generationId"`
	Status         string            `json:"status"`
	EnhancedPrompt string            `json:"enhancedPrompt"`
	CreatedAt      time.Time         `json:"createdAt"`
	CompletedAt    *time.Time        `json:"completedAt,omitempty"`
	GeneratedImage *ImageResult      `json:"generatedImage,omitempty"`
	Usage          *nanobanana.Usage `json:"usage,omitempty"`
	Error          *ErrorDetail      `json:"error,omitempty"`
}
