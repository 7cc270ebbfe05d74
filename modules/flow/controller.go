package flow

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"buyershow-server/modules/common/model"
	"buyershow-server/modules/generation"
	"buyershow-server/modules/upload"
)

// GenerationService - the orchestrator as the wizard sees it
type GenerationService interface {
	Generate(ctx context.Context, userID string, input *generation.GenerateInput) (*generation.Result, error)
	Regenerate(ctx context.Context, userID, generationID string, input *generation.RegenerateInput) (*generation.Result, error)
}

// UploadService - upload handling as the wizard sees it
type UploadService interface {
	Upload(ctx context.Context, userID, kind string, input *upload.Input) (*model.SceneUpload, error)
}

// Controller - one user's wizard session. Every mutation snapshots the
// state so a reconnect within the resume window lands where it left off.
type Controller struct {
	mu         sync.Mutex
	key        string
	userID     string
	state      State
	snaps      SnapshotStore
	uploads    UploadService
	gen        GenerationService
	notify     func(state State)
	lastActive time.Time
}

// NewController - start fresh or resume from a non-stale snapshot
func NewController(ctx context.Context, key, userID string, snaps SnapshotStore, uploads UploadService, gen GenerationService, notify func(State)) *Controller {
	c := &Controller{
		key:        key,
		userID:     userID,
		state:      NewState(),
		snaps:      snaps,
		uploads:    uploads,
		gen:        gen,
		notify:     notify,
		lastActive: time.Now(),
	}

	if snap, err := snaps.Restore(ctx, key); err != nil {
		log.Printf("⚠️ [Flow] Snapshot restore failed for %s: %v", key, err)
	} else if snap != nil {
		c.state = snap.State
		// A reload mid-generation cannot resume the in-flight call.
		c.state.IsGenerating = false
		log.Printf("🔄 [Flow] Session %s resumed at step %d", key, c.state.CurrentStep)
	}
	return c
}

// State - copy of the current wizard state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastActive - for idle-session cleanup
func (c *Controller) LastActive() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActive
}

// NextStep - advance when the next step's gate passes
func (c *Controller) NextStep(ctx context.Context) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.state.CanGoNext() {
		return c.state, model.NewAppError(model.ErrCodeValidation,
			fmt.Sprintf("Cannot proceed to step %d yet", c.state.CurrentStep+1))
	}
	c.state.CurrentStep++
	c.touchLocked(ctx)
	return c.state, nil
}

// PreviousStep - go back one step
func (c *Controller) PreviousStep(ctx context.Context) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.state.CanGoPrevious() {
		return c.state, model.NewAppError(model.ErrCodeValidation, "Already at the first step")
	}
	c.state.CurrentStep--
	c.touchLocked(ctx)
	return c.state, nil
}

// GoToStep - jump to a step; force skips the gate check
func (c *Controller) GoToStep(ctx context.Context, step int, force bool) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if step < StepUploadScene || step > TotalSteps {
		return c.state, model.NewAppError(model.ErrCodeValidation, "Step out of range")
	}
	if !force && !c.state.CanProceedTo(step) {
		return c.state, model.NewAppError(model.ErrCodeValidation,
			fmt.Sprintf("Cannot proceed to step %d yet", step))
	}
	c.state.CurrentStep = step
	c.touchLocked(ctx)
	return c.state, nil
}

// UploadSceneImage - step 1 artifact
func (c *Controller) UploadSceneImage(ctx context.Context, input *upload.Input) (State, error) {
	record, err := c.uploads.Upload(ctx, c.userID, model.UploadKindScene, input)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.state.Error = err.Error()
		c.touchLocked(ctx)
		return c.state, err
	}

	c.state.SceneImage = imageRef(record)
	c.state.Error = ""
	c.touchLocked(ctx)
	return c.state, nil
}

// UploadProductImage - optional product photo used as a second reference
func (c *Controller) UploadProductImage(ctx context.Context, input *upload.Input) (State, error) {
	record, err := c.uploads.Upload(ctx, c.userID, model.UploadKindProduct, input)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.state.Error = err.Error()
		c.touchLocked(ctx)
		return c.state, err
	}

	c.state.ProductImage = imageRef(record)
	c.state.Error = ""
	c.touchLocked(ctx)
	return c.state, nil
}

// SelectProduct - step 2 choice
func (c *Controller) SelectProduct(ctx context.Context, product ProductRef) State {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.SelectedProduct = &product
	c.state.Error = ""
	c.touchLocked(ctx)
	return c.state
}

// GenerateImage - step 3 submit. Session artifacts fill the request; a
// completed result auto-advances the wizard to the result step.
func (c *Controller) GenerateImage(ctx context.Context, params *generation.GenerateInput) (State, error) {
	c.mu.Lock()
	if c.state.IsGenerating {
		c.mu.Unlock()
		return c.State(), model.NewAppError(model.ErrCodeValidation, "A generation is already running")
	}

	input := *params
	if c.state.SceneImage != nil {
		input.SceneImageID = c.state.SceneImage.ID
	}
	if c.state.SelectedProduct != nil {
		input.ProductID = c.state.SelectedProduct.ID
	}

	c.state.GenerationRequest = &input
	c.state.IsGenerating = true
	c.state.Error = ""
	c.touchLocked(ctx)
	c.mu.Unlock()

	result, err := c.gen.Generate(ctx, c.userID, &input)
	return c.finishGeneration(ctx, result, err)
}

// RegenerateImage - rerun from the result step, replacing the old result
func (c *Controller) RegenerateImage(ctx context.Context) (State, error) {
	c.mu.Lock()
	if c.state.GenerationResult == nil {
		c.mu.Unlock()
		return c.State(), model.NewAppError(model.ErrCodeValidation, "Nothing to regenerate yet")
	}
	if c.state.IsGenerating {
		c.mu.Unlock()
		return c.State(), model.NewAppError(model.ErrCodeValidation, "A generation is already running")
	}

	previousID := c.state.GenerationResult.GenerationID
	c.state.GenerationResult = nil
	c.state.IsGenerating = true
	c.state.Error = ""
	c.touchLocked(ctx)
	c.mu.Unlock()

	result, err := c.gen.Regenerate(ctx, c.userID, previousID, nil)
	return c.finishGeneration(ctx, result, err)
}

// Reset - wipe the wizard and its snapshot
func (c *Controller) Reset(ctx context.Context) State {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = NewState()
	if err := c.snaps.Delete(ctx, c.key); err != nil {
		log.Printf("⚠️ [Flow] Snapshot delete failed for %s: %v", c.key, err)
	}
	c.lastActive = time.Now()
	c.notifyLocked()
	return c.state
}

func (c *Controller) finishGeneration(ctx context.Context, result *generation.Result, err error) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.IsGenerating = false
	if err != nil {
		c.state.Error = err.Error()
		c.touchLocked(ctx)
		return c.state, err
	}

	c.state.GenerationResult = result
	if result.Status == model.StatusCompleted {
		c.state.CurrentStep = StepResult
	} else if result.Error != nil {
		c.state.Error = result.Error.Message
	}
	c.touchLocked(ctx)
	return c.state, nil
}

// touchLocked - timestamp, snapshot, and push; callers hold the lock
func (c *Controller) touchLocked(ctx context.Context) {
	c.state.UpdatedAt = time.Now()
	c.lastActive = c.state.UpdatedAt

	snap := &Snapshot{State: c.state, SavedAt: time.Now()}
	if err := c.snaps.Save(ctx, c.key, snap); err != nil {
		log.Printf("⚠️ [Flow] Snapshot save failed for %s: %v", c.key, err)
	}
	c.notifyLocked()
}

func (c *Controller) notifyLocked() {
	if c.notify != nil {
		c.notify(c.state)
	}
}

func imageRef(record *model.SceneUpload) *ImageRef {
	return &ImageRef{
		ID:       record.ID,
		Filename: record.Filename,
		URL:      record.URL,
		MimeType: record.MimeType,
		Size:     record.Size,
	}
}
