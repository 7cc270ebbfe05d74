package flow

import "testing"

func TestCanProceedTo(t *testing.T) {
	scene := &ImageRef{ID: "up-1", Filename: "scene.png"}

	tests := []struct {
		name  string
		state State
		step  int
		want  bool
	}{
		{"step 1 always open", NewState(), StepUploadScene, true},
		{"step 2 blocked without scene", NewState(), StepSelectProduct, false},
		{"step 3 blocked without scene", NewState(), StepDescribe, false},
		{"step 4 blocked without result", NewState(), StepResult, false},
		{"step out of range", NewState(), 5, false},
		{"step zero", NewState(), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.CanProceedTo(tt.step); got != tt.want {
				t.Errorf("CanProceedTo(%d) = %v, want %v", tt.step, got, tt.want)
			}
		})
	}

	t.Run("scene image opens steps 2 and 3", func(t *testing.T) {
		state := NewState()
		state.SceneImage = scene
		if !state.CanProceedTo(StepSelectProduct) {
			t.Error("expected step 2 to open with a scene image")
		}
		if !state.CanProceedTo(StepDescribe) {
			t.Error("expected step 3 to open with a scene image")
		}
		if state.CanProceedTo(StepResult) {
			t.Error("step 4 must stay closed until a result exists")
		}
	})

	t.Run("generation result opens step 4", func(t *testing.T) {
		state := NewState()
		state.SceneImage = scene
		state.GenerationResult = completedResult("gen-1")
		if !state.CanProceedTo(StepResult) {
			t.Error("expected step 4 to open with a generation result")
		}
	})
}

func TestCanGoNextAndPrevious(t *testing.T) {
	t.Run("fresh state cannot move", func(t *testing.T) {
		state := NewState()
		if state.CanGoNext() {
			t.Error("fresh state must not advance past step 1")
		}
		if state.CanGoPrevious() {
			t.Error("step 1 has no previous step")
		}
	})

	t.Run("next honors the target gate", func(t *testing.T) {
		state := NewState()
		state.SceneImage = &ImageRef{ID: "up-1"}
		if !state.CanGoNext() {
			t.Error("expected step 1 -> 2 with a scene image")
		}
		state.CurrentStep = StepDescribe
		if state.CanGoNext() {
			t.Error("step 3 -> 4 must wait for a generation result")
		}
	})

	t.Run("no next beyond the last step", func(t *testing.T) {
		state := NewState()
		state.SceneImage = &ImageRef{ID: "up-1"}
		state.GenerationResult = completedResult("gen-1")
		state.CurrentStep = StepResult
		if state.CanGoNext() {
			t.Error("step 4 is the last step")
		}
		if !state.CanGoPrevious() {
			t.Error("expected backwards navigation from step 4")
		}
	})
}
