package linden

import (
	"testing"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/phanxgames/linden/analysis"
	"go.uber.org/zap/zaptest"
)

// newTestScene creates a scene with a generous frame timeout so background
// analysis never causes a skipped frame on a slow machine.
func newTestScene(t *testing.T, opts ...SceneOption) *Scene {
	t.Helper()
	opts = append([]SceneOption{
		WithLogger(zaptest.NewLogger(t)),
		WithFrameTimeout(10 * time.Second),
	}, opts...)
	s, err := NewScene(opts...)
	if err != nil {
		t.Fatalf("NewScene: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestNewScene(t *testing.T) {
	s := newTestScene(t)
	if s.Root() == nil {
		t.Fatal("Root() is nil")
	}
	if s.Root().Type != NodeTypeContainer {
		t.Errorf("root Type = %v, want NodeTypeContainer", s.Root().Type)
	}
	if !s.Root().Interactable() {
		t.Error("root should be interactable")
	}
	if s.Analysor() == nil {
		t.Fatal("Analysor() is nil")
	}
	if got := s.Analysor().Generation(); got != 1 {
		t.Errorf("Generation = %d, want 1", got)
	}
	if s.dragDead != defaultDragDeadZone {
		t.Errorf("dragDead = %v, want %v", s.dragDead, defaultDragDeadZone)
	}
}

func TestNewSceneInvalidConfig(t *testing.T) {
	cfg := analysis.DefaultConfig()
	cfg.Workers = 0
	s, err := NewScene(WithAnalysisConfig(cfg), WithLogger(zaptest.NewLogger(t)))
	if err == nil {
		s.Close()
		t.Fatal("expected error for zero workers")
	}
}

func TestSceneSetEntityStore(t *testing.T) {
	s := newTestScene(t)
	store := &recordingStore{}
	s.SetEntityStore(store)
	if s.store != store {
		t.Error("store not set")
	}
}

func TestSceneSetDebugMode(t *testing.T) {
	s := newTestScene(t)
	s.SetDebugMode(true)
	if !s.debug || !globalDebug {
		t.Error("debug mode should be on")
	}
	s.SetDebugMode(false)
	if s.debug || globalDebug {
		t.Error("debug mode should be off")
	}
}

func TestSceneTreeEditsInvalidate(t *testing.T) {
	s := newTestScene(t)
	a := s.Analysor()

	child := NewRect("r", 10, 10, ColorWhite)
	s.Root().AddChild(child)
	if got := a.Generation(); got != 2 {
		t.Fatalf("after AddChild Generation = %d, want 2", got)
	}

	child.SetZLevel(4)
	if got := a.Generation(); got != 3 {
		t.Fatalf("after SetZLevel Generation = %d, want 3", got)
	}

	// Same value, transform fields and color never start a generation.
	child.SetZLevel(4)
	child.X, child.Y = 30, 40
	child.SetRotation(1)
	child.Color = Color{R: 1, A: 0.5}
	if got := a.Generation(); got != 3 {
		t.Errorf("Generation = %d, want 3", got)
	}

	child.RemoveFromParent()
	if got := a.Generation(); got != 4 {
		t.Errorf("after RemoveFromParent Generation = %d, want 4", got)
	}

	// Detached nodes have no scene to invalidate.
	child.SetZLevel(9)
	if got := a.Generation(); got != 4 {
		t.Errorf("detached setter changed Generation to %d", got)
	}
}

func TestScenePauseSkipsFrames(t *testing.T) {
	s := newTestScene(t)
	s.Root().AddChild(NewRect("r", 10, 10, ColorWhite))
	screen := ebiten.NewImage(64, 64)

	s.Pause()
	s.Draw(screen)
	if !s.Stats().Skipped {
		t.Error("frame should be skipped while paused")
	}

	s.Resume()
	s.Draw(screen)
	st := s.Stats()
	if st.Skipped {
		t.Fatal("frame skipped after Resume")
	}
	if st.Commands != 1 {
		t.Errorf("Commands = %d, want 1", st.Commands)
	}
}

func TestSceneCloseSkipsFrames(t *testing.T) {
	s := newTestScene(t)
	s.Close()
	s.Draw(ebiten.NewImage(8, 8))
	if !s.Stats().Skipped {
		t.Error("frame should be skipped after Close")
	}
	// Close is idempotent; the cleanup closes again.
	s.Close()
}

func TestSceneUpdateFunc(t *testing.T) {
	s := newTestScene(t)
	calls := 0
	s.SetUpdateFunc(func() error {
		calls++
		return nil
	})
	s.InjectMove(1, 1) // keeps Update away from the real mouse
	if err := s.Update(); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if calls != 1 {
		t.Errorf("update func calls = %d, want 1", calls)
	}
}

func TestSceneUpdateFuncError(t *testing.T) {
	s := newTestScene(t)
	want := errTest
	s.SetUpdateFunc(func() error { return want })
	if err := s.Update(); err != want {
		t.Errorf("Update error = %v, want %v", err, want)
	}
}

type testError string

func (e testError) Error() string { return string(e) }

const errTest = testError("update failed")
