package flow

import (
	"time"

	"buyershow-server/modules/generation"
)

// TotalSteps - upload scene, pick product, describe, view result
const TotalSteps = 4

// Wizard steps.
const (
	StepUploadScene   = 1
	StepSelectProduct = 2
	StepDescribe      = 3
	StepResult        = 4
)

// ImageRef - lightweight handle to an uploaded image
type ImageRef struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	URL      string `json:"url"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size"`
}

// ProductRef - product chosen in step 2
type ProductRef struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
}

// State - everything the wizard needs to render and resume
type State struct {
	CurrentStep       int                       `json:"currentStep"`
	TotalSteps        int                       `json:"totalSteps"`
	SceneImage        *ImageRef                 `json:"sceneImage,omitempty"`
	ProductImage      *ImageRef                 `json:"productImage,omitempty"`
	SelectedProduct   *ProductRef               `json:"selectedProduct,omitempty"`
	GenerationRequest *generation.GenerateInput `json:"generationRequest,omitempty"`
	GenerationResult  *generation.Result        `json:"generationResult,omitempty"`
	IsGenerating      bool                      `json:"isGenerating"`
	Error             string                    `json:"error,omitempty"`
	UpdatedAt         time.Time                 `json:"updatedAt"`
}

// NewState - fresh wizard at step 1
func NewState() State {
	return State{
		CurrentStep: StepUploadScene,
		TotalSteps:  TotalSteps,
		UpdatedAt:   time.Now(),
	}
}

// CanProceedTo - gate predicate for entering a step. Steps 2 and 3 need a
// scene image; step 4 needs a generation result.
func (s *State) CanProceedTo(step int) bool {
	switch step {
	case StepUploadScene:
		return true
	case StepSelectProduct, StepDescribe:
		return s.SceneImage != nil
	case StepResult:
		return s.GenerationResult != nil
	default:
		return false
	}
}

// CanGoNext - whether the next step's gate passes
func (s *State) CanGoNext() bool {
	return s.CurrentStep < TotalSteps && s.CanProceedTo(s.CurrentStep+1)
}

// CanGoPrevious - backwards navigation is always allowed above step 1
func (s *State) CanGoPrevious() bool {
	return s.CurrentStep > StepUploadScene
}
