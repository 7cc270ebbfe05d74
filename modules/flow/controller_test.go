package flow

import (
	"context"
	"testing"
	"time"

	"buyershow-server/modules/common/model"
	"buyershow-server/modules/generation"
	"buyershow-server/modules/upload"
)

type fakeGeneration struct {
	result      *generation.Result
	err         error
	calls       int
	lastInput   *generation.GenerateInput
	lastRegenID string
	block       chan struct{}
	started     chan struct{}
}

func (f *fakeGeneration) Generate(ctx context.Context, userID string, input *generation.GenerateInput) (*generation.Result, error) {
	f.calls++
	f.lastInput = input
	if f.started != nil {
		close(f.started)
		f.started = nil
	}
	if f.block != nil {
		<-f.block
	}
	return f.result, f.err
}

func (f *fakeGeneration) Regenerate(ctx context.Context, userID, generationID string, input *generation.RegenerateInput) (*generation.Result, error) {
	f.calls++
	f.lastRegenID = generationID
	return f.result, f.err
}

type fakeUploads struct {
	err      error
	lastKind string
}

func (f *fakeUploads) Upload(ctx context.Context, userID, kind string, input *upload.Input) (*model.SceneUpload, error) {
	f.lastKind = kind
	if f.err != nil {
		return nil, f.err
	}
	return &model.SceneUpload{
		ID:       "up-" + kind,
		UserID:   userID,
		Kind:     kind,
		Filename: input.Filename,
		MimeType: input.MimeType,
		Size:     int64(len(input.Data)),
		URL:      "memory://uploads/" + input.Filename,
	}, nil
}

func completedResult(id string) *generation.Result {
	return &generation.Result{
		GenerationID:   id,
		Status:         model.StatusCompleted,
		EnhancedPrompt: "Create a photorealistic image: a mug on a desk",
		CreatedAt:      time.Now(),
	}
}

func failedResult(id string) *generation.Result {
	return &generation.Result{
		GenerationID: id,
		Status:       model.StatusFailed,
		CreatedAt:    time.Now(),
		Error:        &generation.ErrorDetail{Code: model.ErrCodeRateLimit, Message: "Rate limit exceeded"},
	}
}

func newTestController(gen *fakeGeneration, uploads *fakeUploads, snaps SnapshotStore) *Controller {
	if snaps == nil {
		snaps = NewMemorySnapshotStore()
	}
	return NewController(context.Background(), "user-1:sess-1", "user-1", snaps, uploads, gen, nil)
}

func TestControllerNavigation(t *testing.T) {
	ctx := context.Background()

	t.Run("next refused until the gate passes", func(t *testing.T) {
		ctrl := newTestController(&fakeGeneration{}, &fakeUploads{}, nil)

		if _, err := ctrl.NextStep(ctx); err == nil {
			t.Fatal("expected next to fail without a scene image")
		}
		if got := ctrl.State().CurrentStep; got != StepUploadScene {
			t.Errorf("step = %d, want %d", got, StepUploadScene)
		}

		if _, err := ctrl.UploadSceneImage(ctx, &upload.Input{Filename: "room.png", Data: "aGVsbG8=", MimeType: "image/png"}); err != nil {
			t.Fatalf("upload failed: %v", err)
		}
		state, err := ctrl.NextStep(ctx)
		if err != nil {
			t.Fatalf("next failed after upload: %v", err)
		}
		if state.CurrentStep != StepSelectProduct {
			t.Errorf("step = %d, want %d", state.CurrentStep, StepSelectProduct)
		}
	})

	t.Run("previous refused at the first step", func(t *testing.T) {
		ctrl := newTestController(&fakeGeneration{}, &fakeUploads{}, nil)
		if _, err := ctrl.PreviousStep(ctx); err == nil {
			t.Fatal("expected previous to fail at step 1")
		}
	})

	t.Run("force jumps past a closed gate", func(t *testing.T) {
		ctrl := newTestController(&fakeGeneration{}, &fakeUploads{}, nil)

		if _, err := ctrl.GoToStep(ctx, StepDescribe, false); err == nil {
			t.Fatal("expected goto step 3 to fail without a scene image")
		}
		state, err := ctrl.GoToStep(ctx, StepDescribe, true)
		if err != nil {
			t.Fatalf("forced goto failed: %v", err)
		}
		if state.CurrentStep != StepDescribe {
			t.Errorf("step = %d, want %d", state.CurrentStep, StepDescribe)
		}
	})

	t.Run("goto rejects steps out of range", func(t *testing.T) {
		ctrl := newTestController(&fakeGeneration{}, &fakeUploads{}, nil)
		if _, err := ctrl.GoToStep(ctx, 0, true); err == nil {
			t.Error("expected step 0 to be rejected")
		}
		if _, err := ctrl.GoToStep(ctx, 5, true); err == nil {
			t.Error("expected step 5 to be rejected")
		}
	})
}

func TestControllerUploads(t *testing.T) {
	ctx := context.Background()

	t.Run("scene upload fills the step 1 artifact", func(t *testing.T) {
		uploads := &fakeUploads{}
		ctrl := newTestController(&fakeGeneration{}, uploads, nil)

		state, err := ctrl.UploadSceneImage(ctx, &upload.Input{Filename: "room.png", Data: "aGVsbG8=", MimeType: "image/png"})
		if err != nil {
			t.Fatalf("upload failed: %v", err)
		}
		if uploads.lastKind != model.UploadKindScene {
			t.Errorf("kind = %q, want %q", uploads.lastKind, model.UploadKindScene)
		}
		if state.SceneImage == nil || state.SceneImage.Filename != "room.png" {
			t.Errorf("scene image not recorded: %+v", state.SceneImage)
		}
	})

	t.Run("product upload fills its own slot", func(t *testing.T) {
		uploads := &fakeUploads{}
		ctrl := newTestController(&fakeGeneration{}, uploads, nil)

		state, err := ctrl.UploadProductImage(ctx, &upload.Input{Filename: "mug.png", Data: "aGVsbG8=", MimeType: "image/png"})
		if err != nil {
			t.Fatalf("upload failed: %v", err)
		}
		if uploads.lastKind != model.UploadKindProduct {
			t.Errorf("kind = %q, want %q", uploads.lastKind, model.UploadKindProduct)
		}
		if state.ProductImage == nil || state.SceneImage != nil {
			t.Errorf("expected only the product slot set: %+v", state)
		}
	})

	t.Run("failed upload lands in the error field", func(t *testing.T) {
		uploads := &fakeUploads{err: model.NewAppError(model.ErrCodeInvalidFileType, "File type not allowed")}
		ctrl := newTestController(&fakeGeneration{}, uploads, nil)

		state, err := ctrl.UploadSceneImage(ctx, &upload.Input{Filename: "room.svg", Data: "aGVsbG8=", MimeType: "image/svg+xml"})
		if err == nil {
			t.Fatal("expected the upload error to propagate")
		}
		if state.Error == "" {
			t.Error("expected the state to carry the error")
		}
		if state.SceneImage != nil {
			t.Error("failed upload must not set the scene image")
		}
	})
}

func TestControllerGenerate(t *testing.T) {
	ctx := context.Background()

	t.Run("session artifacts fill the request and success advances", func(t *testing.T) {
		gen := &fakeGeneration{result: completedResult("gen-1")}
		ctrl := newTestController(gen, &fakeUploads{}, nil)

		ctrl.UploadSceneImage(ctx, &upload.Input{Filename: "room.png", Data: "aGVsbG8=", MimeType: "image/png"})
		ctrl.SelectProduct(ctx, ProductRef{ID: "prod-1", Name: "Mug"})

		state, err := ctrl.GenerateImage(ctx, &generation.GenerateInput{UserDescription: "a mug on a wooden desk"})
		if err != nil {
			t.Fatalf("generate failed: %v", err)
		}
		if gen.lastInput.SceneImageID != "up-scene" {
			t.Errorf("sceneImageId = %q, want up-scene", gen.lastInput.SceneImageID)
		}
		if gen.lastInput.ProductID != "prod-1" {
			t.Errorf("productId = %q, want prod-1", gen.lastInput.ProductID)
		}
		if state.GenerationResult == nil || state.GenerationResult.GenerationID != "gen-1" {
			t.Fatalf("result not recorded: %+v", state.GenerationResult)
		}
		if state.CurrentStep != StepResult {
			t.Errorf("step = %d, want %d after a completed generation", state.CurrentStep, StepResult)
		}
		if state.IsGenerating {
			t.Error("isGenerating must clear when the call returns")
		}
	})

	t.Run("failed generation stays put with the error surfaced", func(t *testing.T) {
		gen := &fakeGeneration{result: failedResult("gen-2")}
		ctrl := newTestController(gen, &fakeUploads{}, nil)
		ctrl.UploadSceneImage(ctx, &upload.Input{Filename: "room.png", Data: "aGVsbG8=", MimeType: "image/png"})
		ctrl.GoToStep(ctx, StepDescribe, false)

		state, err := ctrl.GenerateImage(ctx, &generation.GenerateInput{UserDescription: "a mug on a wooden desk"})
		if err != nil {
			t.Fatalf("a failed generation is a result, not an error: %v", err)
		}
		if state.CurrentStep != StepDescribe {
			t.Errorf("step = %d, want to stay on %d", state.CurrentStep, StepDescribe)
		}
		if state.Error != "Rate limit exceeded" {
			t.Errorf("error = %q, want the provider message", state.Error)
		}
	})

	t.Run("service error clears the generating flag", func(t *testing.T) {
		gen := &fakeGeneration{err: model.NewAppError(model.ErrCodeNotFound, "Generation request not found")}
		ctrl := newTestController(gen, &fakeUploads{}, nil)

		state, err := ctrl.GenerateImage(ctx, &generation.GenerateInput{UserDescription: "a mug on a wooden desk"})
		if err == nil {
			t.Fatal("expected the service error to propagate")
		}
		if state.IsGenerating {
			t.Error("isGenerating must clear on failure")
		}
		if state.Error == "" {
			t.Error("expected the state to carry the error")
		}
	})

	t.Run("a second submit is refused while one runs", func(t *testing.T) {
		gen := &fakeGeneration{
			result:  completedResult("gen-3"),
			block:   make(chan struct{}),
			started: make(chan struct{}),
		}
		started := gen.started
		ctrl := newTestController(gen, &fakeUploads{}, nil)

		done := make(chan struct{})
		go func() {
			defer close(done)
			ctrl.GenerateImage(ctx, &generation.GenerateInput{UserDescription: "a mug on a wooden desk"})
		}()

		<-started
		if _, err := ctrl.GenerateImage(ctx, &generation.GenerateInput{UserDescription: "another mug"}); err == nil {
			t.Error("expected a concurrent submit to be refused")
		}

		close(gen.block)
		<-done
		if gen.calls != 1 {
			t.Errorf("calls = %d, want 1", gen.calls)
		}
	})
}

func TestControllerRegenerate(t *testing.T) {
	ctx := context.Background()

	t.Run("refused without a previous result", func(t *testing.T) {
		ctrl := newTestController(&fakeGeneration{}, &fakeUploads{}, nil)
		if _, err := ctrl.RegenerateImage(ctx); err == nil {
			t.Fatal("expected regenerate to fail with nothing to redo")
		}
	})

	t.Run("reruns against the previous generation id", func(t *testing.T) {
		gen := &fakeGeneration{result: completedResult("gen-1")}
		ctrl := newTestController(gen, &fakeUploads{}, nil)
		ctrl.UploadSceneImage(ctx, &upload.Input{Filename: "room.png", Data: "aGVsbG8=", MimeType: "image/png"})
		ctrl.GenerateImage(ctx, &generation.GenerateInput{UserDescription: "a mug on a wooden desk"})

		gen.result = completedResult("gen-2")
		state, err := ctrl.RegenerateImage(ctx)
		if err != nil {
			t.Fatalf("regenerate failed: %v", err)
		}
		if gen.lastRegenID != "gen-1" {
			t.Errorf("regenerated from %q, want gen-1", gen.lastRegenID)
		}
		if state.GenerationResult.GenerationID != "gen-2" {
			t.Errorf("result id = %q, want gen-2", state.GenerationResult.GenerationID)
		}
	})
}

func TestControllerSnapshots(t *testing.T) {
	ctx := context.Background()

	t.Run("a new controller resumes from the snapshot", func(t *testing.T) {
		snaps := NewMemorySnapshotStore()
		gen := &fakeGeneration{result: completedResult("gen-1")}
		first := NewController(ctx, "user-1:sess-9", "user-1", snaps, &fakeUploads{}, gen, nil)
		first.UploadSceneImage(ctx, &upload.Input{Filename: "room.png", Data: "aGVsbG8=", MimeType: "image/png"})
		first.NextStep(ctx)

		second := NewController(ctx, "user-1:sess-9", "user-1", snaps, &fakeUploads{}, gen, nil)
		state := second.State()
		if state.CurrentStep != StepSelectProduct {
			t.Errorf("resumed step = %d, want %d", state.CurrentStep, StepSelectProduct)
		}
		if state.SceneImage == nil {
			t.Error("resumed state lost the scene image")
		}
	})

	t.Run("resume clears the generating flag", func(t *testing.T) {
		snaps := NewMemorySnapshotStore()
		state := NewState()
		state.IsGenerating = true
		snaps.Save(ctx, "user-1:sess-9", &Snapshot{State: state, SavedAt: time.Now()})

		ctrl := NewController(ctx, "user-1:sess-9", "user-1", snaps, &fakeUploads{}, &fakeGeneration{}, nil)
		if ctrl.State().IsGenerating {
			t.Error("an in-flight call cannot survive a reload")
		}
	})

	t.Run("stale snapshots are discarded", func(t *testing.T) {
		snaps := NewMemorySnapshotStore()
		state := NewState()
		state.CurrentStep = StepDescribe
		state.SceneImage = &ImageRef{ID: "up-1"}
		snaps.Save(ctx, "user-1:sess-9", &Snapshot{State: state, SavedAt: time.Now().Add(-25 * time.Hour)})

		ctrl := NewController(ctx, "user-1:sess-9", "user-1", snaps, &fakeUploads{}, &fakeGeneration{}, nil)
		if got := ctrl.State().CurrentStep; got != StepUploadScene {
			t.Errorf("step = %d, want a fresh session", got)
		}
	})

	t.Run("reset wipes the state and the snapshot", func(t *testing.T) {
		snaps := NewMemorySnapshotStore()
		ctrl := NewController(ctx, "user-1:sess-9", "user-1", snaps, &fakeUploads{}, &fakeGeneration{}, nil)
		ctrl.UploadSceneImage(ctx, &upload.Input{Filename: "room.png", Data: "aGVsbG8=", MimeType: "image/png"})

		state := ctrl.Reset(ctx)
		if state.CurrentStep != StepUploadScene || state.SceneImage != nil {
			t.Errorf("reset left residue: %+v", state)
		}
		snap, err := snaps.Restore(ctx, "user-1:sess-9")
		if err != nil {
			t.Fatalf("restore failed: %v", err)
		}
		if snap != nil {
			t.Error("reset must delete the snapshot")
		}
	})
}
