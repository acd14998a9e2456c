package linden

import (
	"context"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/phanxgames/linden/analysis"
	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"go.uber.org/zap"
)

// EntityStore is the interface for optional ECS integration.
// When set on a Scene, interaction events are forwarded to the ECS.
type EntityStore interface {
	EmitEvent(event InteractionEvent)
}

// InteractionEvent carries interaction data for the ECS bridge.
type InteractionEvent struct {
	Type      EventType
	EntityID  uint32
	GlobalX   float64
	GlobalY   float64
	LocalX    float64
	LocalY    float64
	Button    MouseButton
	Modifiers KeyModifiers
	// Valid for EventDragStart, EventDrag and EventDragEnd.
	StartX float64
	StartY float64
	DeltaX float64
	DeltaY float64
}

const (
	defaultCommandCap   = 1024
	defaultFrameTimeout = 100 * time.Millisecond
)

// SceneOption configures a Scene.
type SceneOption func(*sceneOptions)

type sceneOptions struct {
	config       *analysis.Config
	logger       *zap.Logger
	frameTimeout time.Duration
}

// WithAnalysisConfig sets the configuration of the scene's Analysor.
func WithAnalysisConfig(cfg *analysis.Config) SceneOption {
	return func(o *sceneOptions) { o.config = cfg }
}

// WithLogger sets the logger used by the scene and its Analysor.
func WithLogger(logger *zap.Logger) SceneOption {
	return func(o *sceneOptions) { o.logger = logger }
}

// WithFrameTimeout bounds how long Draw and Update wait for a linearization
// of a changed tree before skipping the frame.
func WithFrameTimeout(d time.Duration) SceneOption {
	return func(o *sceneOptions) { o.frameTimeout = d }
}

// Scene owns a node tree, the Analysor that orders it, input state, and
// render buffers. A Scene and its nodes belong to one goroutine, normally
// the ebiten game loop.
type Scene struct {
	root     *Node
	store    EntityStore
	analysor *analysis.Analysor
	logger   *zap.Logger
	debug    bool

	frameTimeout time.Duration

	// ClearColor fills the screen before drawing when its alpha is non-zero.
	ClearColor Color

	updateFunc func() error

	// Render state
	render   renderVisitor
	commands []RenderCommand
	stats    FrameStats

	// Input state
	interact    interactionVisitor
	handlers    handlerRegistry
	pointer     pointerState
	captured    *Node
	dragDead    float64
	injectQueue []syntheticPointerEvent
	script      *InputScript
}

// NewScene creates a scene with a root container and starts its Analysor.
// Call Close when done with the scene.
func NewScene(opts ...SceneOption) (*Scene, error) {
	o := sceneOptions{frameTimeout: defaultFrameTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.L()
	}
	aopts := []analysis.Option{analysis.WithLogger(o.logger)}
	if o.config != nil {
		aopts = append(aopts, analysis.WithConfig(o.config))
	}
	a, err := analysis.NewAnalysor(aopts...)
	if err != nil {
		return nil, errors.Annotate(err, "create scene")
	}

	root := NewContainer("root")
	root.interactable = true
	s := &Scene{
		root:         root,
		analysor:     a,
		logger:       o.logger.With(zap.String("component", "scene")),
		frameTimeout: o.frameTimeout,
		commands:     make([]RenderCommand, 0, defaultCommandCap),
		dragDead:     defaultDragDeadZone,
	}
	root.onInvalidate = s.Invalidate
	return s, nil
}

// Root returns the scene's root container.
func (s *Scene) Root() *Node {
	return s.root
}

// Analysor returns the scene's Analysor.
func (s *Scene) Analysor() *analysis.Analysor {
	return s.analysor
}

// Invalidate starts a new analysis generation. Node setters call it; call
// it directly after changing scheduling state by other means.
func (s *Scene) Invalidate() {
	s.analysor.SetDirty()
}

// Pause stops background analysis until Resume, for example while the
// game is backgrounded. Draw and Update skip their work while paused.
func (s *Scene) Pause() {
	s.analysor.OnPause()
}

// Resume restarts analysis with a fresh generation.
func (s *Scene) Resume() {
	s.analysor.OnResume()
}

// Close stops the Analysor and waits for its workers.
func (s *Scene) Close() {
	s.analysor.OnDestroy()
}

// SetUpdateFunc sets a callback run at the start of every Update.
func (s *Scene) SetUpdateFunc(fn func() error) {
	s.updateFunc = fn
}

// SetEntityStore sets the optional ECS bridge.
func (s *Scene) SetEntityStore(store EntityStore) {
	s.store = store
}

// SetInputScript attaches a scripted input sequence, stepped once per Update.
func (s *Scene) SetInputScript(script *InputScript) {
	s.script = script
}

// SetDebugMode enables or disables debug mode. When enabled, disposed-node
// access panics, deep trees and wide nodes are logged, and per-frame stats
// are logged at debug level.
func (s *Scene) SetDebugMode(enabled bool) {
	s.debug = enabled
	globalDebug = enabled
}

// globalDebug mirrors the most recent SetDebugMode so node operations,
// which have no Scene pointer, can check it.
var globalDebug bool

// Update runs the update callback, advances the input script, and
// dispatches pointer input in interaction order.
func (s *Scene) Update() error {
	if s.updateFunc != nil {
		if err := s.updateFunc(); err != nil {
			return err
		}
	}
	if s.script != nil {
		s.script.step(s)
	}
	s.processInput()
	return nil
}

// Draw replays the render linearization of the current tree onto screen.
// The frame is skipped if none is available within the frame timeout.
func (s *Scene) Draw(screen *ebiten.Image) {
	if s.ClearColor.A > 0 {
		screen.Fill(s.ClearColor.toRGBA())
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.frameTimeout)
	defer cancel()

	t0 := time.Now()
	lin := s.analysor.RenderLinearization(ctx, s.root)
	if lin == nil {
		s.stats = FrameStats{Skipped: true}
		if s.debug {
			s.logger.Debug("frame skipped, no render linearization",
				zap.Int32("generation", s.analysor.Generation()))
		}
		return
	}
	wait := time.Since(t0)

	t0 = time.Now()
	s.commands = s.render.replay(lin, s.commands[:0])
	replay := time.Since(t0)

	t0 = time.Now()
	submitCommands(screen, s.commands)

	s.stats = FrameStats{
		Generation:   lin.Generation,
		Price:        lin.Price,
		Commands:     len(s.commands),
		Batches:      countBatches(s.commands),
		StateChanges: lin.StateChanges(),
		WaitTime:     wait,
		ReplayTime:   replay,
		SubmitTime:   time.Since(t0),
	}
	if s.debug {
		s.debugLog(s.stats)
	}
}

// Stats returns the statistics of the last Draw.
func (s *Scene) Stats() FrameStats {
	return s.stats
}
