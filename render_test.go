package linden

import (
	"math"
	"testing"

	"github.com/hajimehoshi/ebiten/v2"
)

// drawScene draws s onto a scratch image and fails if the frame is skipped.
func drawScene(t *testing.T, s *Scene) []RenderCommand {
	t.Helper()
	s.Draw(ebiten.NewImage(256, 256))
	if s.Stats().Skipped {
		t.Fatal("frame skipped")
	}
	return s.commands
}

func commandNames(cmds []RenderCommand) []string {
	names := make([]string, len(cmds))
	for i := range cmds {
		names[i] = cmds[i].Node().Name
	}
	return names
}

// --- Command emission ---

func TestSingleSpriteEmitsOneCommand(t *testing.T) {
	s := newTestScene(t)
	sprite := NewRect("s", 32, 32, ColorWhite)
	s.Root().AddChild(sprite)

	cmds := drawScene(t, s)
	if len(cmds) != 1 {
		t.Fatalf("commands = %d, want 1", len(cmds))
	}
	if cmds[0].Node() != sprite {
		t.Errorf("command node = %v, want sprite", cmds[0].Node().Name)
	}
	if cmds[0].TextureID != sprite.TextureID() {
		t.Errorf("TextureID = %d, want %d", cmds[0].TextureID, sprite.TextureID())
	}
}

func TestEmptySceneNoCommands(t *testing.T) {
	s := newTestScene(t)
	cmds := drawScene(t, s)
	if len(cmds) != 0 {
		t.Errorf("commands = %d, want 0", len(cmds))
	}
	if s.Stats().Batches != 0 {
		t.Errorf("Batches = %d, want 0", s.Stats().Batches)
	}
}

func TestInvisibleNodeNoCommands(t *testing.T) {
	s := newTestScene(t)
	sprite := NewRect("s", 32, 32, ColorWhite)
	sprite.SetVisible(false)
	s.Root().AddChild(sprite)

	if cmds := drawScene(t, s); len(cmds) != 0 {
		t.Errorf("commands = %d, want 0", len(cmds))
	}
}

func TestInvisibleSubtreeSkipped(t *testing.T) {
	s := newTestScene(t)
	parent := NewContainer("parent")
	parent.SetVisible(false)
	parent.AddChild(NewRect("child", 8, 8, ColorWhite))
	s.Root().AddChild(parent)

	if cmds := drawScene(t, s); len(cmds) != 0 {
		t.Errorf("commands = %d, want 0", len(cmds))
	}
}

func TestNonRenderableNodeSkipped(t *testing.T) {
	s := newTestScene(t)
	hidden := NewRect("hidden", 8, 8, ColorWhite)
	hidden.SetRenderable(false)
	shown := NewRect("shown", 8, 8, ColorWhite)
	hidden.AddChild(shown)
	s.Root().AddChild(hidden)

	cmds := drawScene(t, s)
	if len(cmds) != 1 || cmds[0].Node() != shown {
		t.Errorf("commands = %v, want [shown]", commandNames(cmds))
	}
}

// --- Ordering ---

func TestZLevelOrdersBackToFront(t *testing.T) {
	s := newTestScene(t)
	near := NewRect("near", 8, 8, ColorWhite)
	mid := NewRect("mid", 8, 8, ColorWhite)
	far := NewRect("far", 8, 8, ColorWhite)
	near.SetZLevel(1)
	mid.SetZLevel(5)
	far.SetZLevel(9)
	// Tree order is the reverse of draw order.
	s.Root().AddChild(near)
	s.Root().AddChild(mid)
	s.Root().AddChild(far)

	cmds := drawScene(t, s)
	got := commandNames(cmds)
	want := []string{"far", "mid", "near"}
	if len(got) != len(want) {
		t.Fatalf("commands = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("commands = %v, want %v", got, want)
			break
		}
	}
}

func TestZLevelAcrossSubtrees(t *testing.T) {
	s := newTestScene(t)
	left := NewContainer("left")
	right := NewContainer("right")
	left.SetPosition(10, 0)
	right.SetPosition(0, 10)
	for i, name := range []string{"l0", "l1"} {
		n := NewRect(name, 4, 4, ColorWhite)
		n.SetZLevel(int32(2 * i))
		left.AddChild(n)
	}
	for i, name := range []string{"r0", "r1"} {
		n := NewRect(name, 4, 4, ColorWhite)
		n.SetZLevel(int32(2*i + 1))
		right.AddChild(n)
	}
	s.Root().AddChild(left)
	s.Root().AddChild(right)

	cmds := drawScene(t, s)
	if len(cmds) != 4 {
		t.Fatalf("commands = %d, want 4", len(cmds))
	}
	for i := 1; i < len(cmds); i++ {
		if cmds[i-1].ZLevel < cmds[i].ZLevel {
			t.Errorf("z order violated at %d: %v", i, commandNames(cmds))
		}
	}
	// Each command carries its own subtree's translation.
	for i := range cmds {
		n := cmds[i].Node()
		wantX := float32(0)
		if n.Parent == left {
			wantX = 10
		}
		if cmds[i].Transform[4] != wantX {
			t.Errorf("%s tx = %v, want %v", n.Name, cmds[i].Transform[4], wantX)
		}
	}
}

func TestClusterDrawsTogether(t *testing.T) {
	s := newTestScene(t)
	a := NewRect("a", 4, 4, ColorWhite)
	b := NewRect("b", 4, 4, ColorWhite)
	c := NewRect("c", 4, 4, ColorWhite)
	a.SetClusterTag(3)
	c.SetClusterTag(3)
	s.Root().AddChild(a)
	s.Root().AddChild(b)
	s.Root().AddChild(c)

	cmds := drawScene(t, s)
	if len(cmds) != 3 {
		t.Fatalf("commands = %d, want 3", len(cmds))
	}
	pos := map[*Node]int{}
	for i := range cmds {
		pos[cmds[i].Node()] = i
	}
	if d := pos[a] - pos[c]; d != 1 && d != -1 {
		t.Errorf("clustered nodes not adjacent: %v", commandNames(cmds))
	}
}

func TestMovingNodeKeepsGeneration(t *testing.T) {
	s := newTestScene(t)
	sprite := NewRect("s", 4, 4, ColorWhite)
	s.Root().AddChild(sprite)
	drawScene(t, s)
	gen := s.Stats().Generation

	sprite.X = 50
	cmds := drawScene(t, s)
	if s.Stats().Generation != gen {
		t.Errorf("Generation = %d, want %d", s.Stats().Generation, gen)
	}
	if cmds[0].Transform[4] != 50 {
		t.Errorf("tx = %v, want 50", cmds[0].Transform[4])
	}
}

// --- Command contents ---

func TestWorldAlphaInCommand(t *testing.T) {
	s := newTestScene(t)
	parent := NewContainer("parent")
	parent.Alpha = 0.5
	child := NewRect("child", 4, 4, Color{R: 1, G: 1, B: 1, A: 0.8})
	child.Alpha = 0.5
	parent.AddChild(child)
	s.Root().AddChild(parent)

	cmds := drawScene(t, s)
	if len(cmds) != 1 {
		t.Fatalf("commands = %d, want 1", len(cmds))
	}
	if got := cmds[0].Color.A; math.Abs(float64(got)-0.2) > 1e-6 {
		t.Errorf("Color.A = %v, want 0.2", got)
	}
}

func TestCommandTransformScalesSolidRect(t *testing.T) {
	s := newTestScene(t)
	r := NewRect("r", 30, 20, ColorWhite)
	r.SetPosition(5, 6)
	s.Root().AddChild(r)

	cmds := drawScene(t, s)
	want := [6]float32{30, 0, 0, 20, 5, 6}
	if cmds[0].Transform != want {
		t.Errorf("Transform = %v, want %v", cmds[0].Transform, want)
	}
}

func TestDisposedNodeNotDrawn(t *testing.T) {
	s := newTestScene(t)
	a := NewRect("a", 4, 4, ColorWhite)
	b := NewRect("b", 4, 4, ColorWhite)
	s.Root().AddChild(a)
	s.Root().AddChild(b)
	drawScene(t, s)

	a.Dispose()
	cmds := drawScene(t, s)
	if len(cmds) != 1 || cmds[0].Node() != b {
		t.Errorf("commands = %v, want [b]", commandNames(cmds))
	}
}

func TestStatsCountStateChanges(t *testing.T) {
	s := newTestScene(t)
	img := ebiten.NewImage(4, 4)
	a := NewSprite("a", img)
	b := NewRect("b", 4, 4, ColorWhite)
	a.SetZLevel(2)
	b.SetZLevel(1)
	s.Root().AddChild(a)
	s.Root().AddChild(b)

	drawScene(t, s)
	st := s.Stats()
	if st.Commands != 2 {
		t.Errorf("Commands = %d, want 2", st.Commands)
	}
	if st.Batches != 2 {
		t.Errorf("Batches = %d, want 2", st.Batches)
	}
	if st.StateChanges != 1 {
		t.Errorf("StateChanges = %d, want 1", st.StateChanges)
	}
}
