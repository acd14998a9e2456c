package analysis

import (
	"context"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Generation sentinels. Any non-positive generation makes every job abort.
const (
	generationPaused    int32 = -1
	generationDestroyed int32 = -2
)

// slot holds the published linearization of one variant.
type slot struct {
	published atomic.Pointer[Linearization]

	mu sync.Mutex
	// dispatched is the last generation a job was queued for.
	dispatched int32
	// notify is closed and replaced whenever the slot may have changed.
	notify chan struct{}
}

func (s *slot) broadcast() {
	close(s.notify)
	s.notify = make(chan struct{})
}

// Option configures an Analysor.
type Option func(*Analysor)

// WithConfig replaces the default configuration.
func WithConfig(cfg *Config) Option {
	return func(a *Analysor) { a.cfg = cfg }
}

// WithLogger sets the logger. The default is the global pingcap logger.
func WithLogger(logger *zap.Logger) Option {
	return func(a *Analysor) { a.logger = logger }
}

// WithClock sets the clock used for wake-ups and job timing.
func WithClock(clk clock.Clock) Option {
	return func(a *Analysor) { a.clock = clk }
}

// Analysor keeps a linearization of a changing tree available to one
// consuming goroutine. Tree changes bump the generation; background jobs
// capture their generation and publish only while it is still current.
//
// Every write of the generation happens under both slot locks, so a
// publisher holding one slot lock sees a stable generation.
type Analysor struct {
	cfg    *Config
	logger *zap.Logger
	clock  clock.Clock

	generation atomic.Int32

	// lifecycleMu guards lastGeneration and the generation context.
	lifecycleMu    sync.Mutex
	lastGeneration int32
	genCtx         context.Context
	genCancel      context.CancelFunc

	slots [2]slot
	pool  *pool
}

// NewAnalysor creates an Analysor and starts its workers.
// Call OnDestroy to stop them.
func NewAnalysor(opts ...Option) (*Analysor, error) {
	a := &Analysor{cfg: DefaultConfig()}
	for _, opt := range opts {
		opt(a)
	}
	if err := a.cfg.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	if a.logger == nil {
		a.logger = log.L()
	}
	a.logger = a.logger.With(zap.String("component", "analysor"))
	if a.clock == nil {
		a.clock = clock.New()
	}
	for i := range a.slots {
		a.slots[i].notify = make(chan struct{})
	}
	a.lastGeneration = 1
	a.generation.Store(1)
	a.genCtx, a.genCancel = context.WithCancel(context.Background())
	a.pool = newPool(a.cfg.Workers, a.cfg.QueueSize, a.generation.Load, a.preempted)
	return a, nil
}

// Generation returns the current generation, or a negative sentinel while
// paused or after OnDestroy.
func (a *Analysor) Generation() int32 {
	return a.generation.Load()
}

// --- Lifecycle ---

// lockSlots takes both result locks in a fixed order.
func (a *Analysor) lockSlots() {
	a.slots[Render].mu.Lock()
	a.slots[Interaction].mu.Lock()
}

func (a *Analysor) unlockSlots() {
	a.slots[Interaction].mu.Unlock()
	a.slots[Render].mu.Unlock()
}

// setGeneration installs gen, cancels the previous generation's context,
// clears both published results and wakes blocked consumers.
// Callers hold lifecycleMu and both slot locks.
func (a *Analysor) setGeneration(gen int32) {
	a.generation.Store(gen)
	a.genCancel()
	a.genCtx, a.genCancel = context.WithCancel(context.Background())
	for i := range a.slots {
		a.slots[i].published.Store(nil)
		a.slots[i].broadcast()
	}
}

// SetDirty marks the tree as changed. In-flight jobs for the old generation
// abort at their next checkpoint and never publish. While paused the
// generation stays paused, but OnResume will start from a fresh one.
func (a *Analysor) SetDirty() {
	a.lifecycleMu.Lock()
	defer a.lifecycleMu.Unlock()
	a.lockSlots()
	defer a.unlockSlots()

	gen := a.generation.Load()
	if gen == generationDestroyed {
		return
	}
	a.lastGeneration++
	if gen > 0 {
		gen = a.lastGeneration
	}
	a.setGeneration(gen)
}

// OnPause makes all in-flight and future jobs abort until OnResume.
func (a *Analysor) OnPause() {
	a.lifecycleMu.Lock()
	defer a.lifecycleMu.Unlock()
	a.lockSlots()
	defer a.unlockSlots()

	if a.generation.Load() == generationDestroyed {
		return
	}
	a.setGeneration(generationPaused)
	a.logger.Info("analysor paused", zap.Int32("lastGeneration", a.lastGeneration))
}

// OnResume starts a fresh generation, invalidating anything pending.
func (a *Analysor) OnResume() {
	a.lifecycleMu.Lock()
	defer a.lifecycleMu.Unlock()
	a.lockSlots()
	defer a.unlockSlots()

	if a.generation.Load() == generationDestroyed {
		return
	}
	a.lastGeneration++
	a.setGeneration(a.lastGeneration)
	a.logger.Info("analysor resumed", zap.Int32("generation", a.lastGeneration))
}

// OnDestroy permanently stops the Analysor and waits for its workers.
// It is safe to call more than once.
func (a *Analysor) OnDestroy() {
	a.lifecycleMu.Lock()
	a.lockSlots()
	destroyed := a.generation.Load() == generationDestroyed
	if !destroyed {
		a.setGeneration(generationDestroyed)
		a.genCancel()
	}
	a.unlockSlots()
	a.lifecycleMu.Unlock()

	a.pool.close()
	if !destroyed {
		a.logger.Info("analysor destroyed")
	}
}

// --- Consumer side ---

// RenderLinearization returns the render linearization of the current
// generation, dispatching a job and blocking until one is published. It
// returns nil while paused, after destroy, or when ctx is done, so the
// caller can skip a frame.
func (a *Analysor) RenderLinearization(ctx context.Context, root NodeView) *Linearization {
	return a.linearization(ctx, Render, root)
}

// InteractionLinearization is RenderLinearization for interaction dispatch.
func (a *Analysor) InteractionLinearization(ctx context.Context, root NodeView) *Linearization {
	return a.linearization(ctx, Interaction, root)
}

// Published returns the published linearization of v for the current
// generation without blocking, or nil.
func (a *Analysor) Published(v Variant) *Linearization {
	gen := a.generation.Load()
	if l := a.slots[v].published.Load(); l != nil && l.Generation == gen {
		return l
	}
	return nil
}

func (a *Analysor) linearization(ctx context.Context, v Variant, root NodeView) *Linearization {
	s := &a.slots[v]
	for {
		gen := a.generation.Load()
		if gen <= 0 {
			return nil
		}
		if l := s.published.Load(); l != nil && l.Generation == gen {
			return l
		}

		s.mu.Lock()
		gen = a.generation.Load()
		if gen <= 0 {
			s.mu.Unlock()
			return nil
		}
		if l := s.published.Load(); l != nil && l.Generation == gen {
			s.mu.Unlock()
			return l
		}
		dispatch := s.dispatched != gen
		if dispatch {
			s.dispatched = gen
		}
		notify := s.notify
		s.mu.Unlock()

		if dispatch {
			if err := a.dispatch(ctx, v, gen, root); err != nil {
				s.mu.Lock()
				if s.dispatched == gen {
					s.dispatched = 0
				}
				s.mu.Unlock()
				a.logger.Debug("analysis job not dispatched",
					zap.Stringer("variant", v), zap.Int32("generation", gen), zap.Error(err))
				return nil
			}
		}

		timer := a.clock.Timer(a.cfg.WakeInterval)
		select {
		case <-notify:
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil
		}
		timer.Stop()
	}
}

// dispatch captures the tree on the calling goroutine and queues a job for gen.
func (a *Analysor) dispatch(ctx context.Context, v Variant, gen int32, root NodeView) error {
	snap := Capture(root)

	a.lifecycleMu.Lock()
	genCtx := a.genCtx
	a.lifecycleMu.Unlock()

	t := &task{variant: v, generation: gen, ctx: genCtx}
	t.run = func() { a.runJob(t, snap) }
	a.logger.Debug("dispatching analysis job",
		zap.Stringer("variant", v), zap.Int32("generation", gen), zap.Int("treeSize", snap.Size()))
	return errors.Trace(a.pool.submit(ctx, t))
}

func (a *Analysor) runJob(t *task, snap *Snapshot) {
	abort := func() bool {
		return t.ctx.Err() != nil || a.generation.Load() != t.generation
	}
	publish := func(l *Linearization) { a.publish(l) }
	j := newJob(t.variant, t.generation, snap, a.cfg.Variant(t.variant), abort, publish)

	start := a.clock.Now()
	err := j.run()
	label := t.variant.String()
	jobDuration.WithLabelValues(label).Observe(a.clock.Since(start).Seconds())
	markedNodesGauge.WithLabelValues(label).Set(float64(len(j.nodes)))

	switch {
	case err == nil && j.empty:
		jobCounter.WithLabelValues(label, resultEmpty).Inc()
	case err == nil:
		jobCounter.WithLabelValues(label, resultFound).Inc()
	case errors.Cause(err) == ErrStaleJob:
		jobCounter.WithLabelValues(label, resultStale).Inc()
		a.logger.Debug("stale analysis job dropped",
			zap.String("variant", label), zap.Int32("generation", t.generation),
			zap.String("state", j.state.String()))
	default:
		jobCounter.WithLabelValues(label, resultNotFound).Inc()
		a.logger.Error("no linearization found",
			zap.String("variant", label), zap.Int32("generation", t.generation),
			zap.Int("nodes", len(j.nodes)), zap.Int("steps", j.steps), zap.Error(err))
	}
}

func (a *Analysor) preempted(t *task) {
	jobCounter.WithLabelValues(t.variant.String(), resultPreempted).Inc()
	a.logger.Debug("analysis job preempted",
		zap.Stringer("variant", t.variant), zap.Int32("generation", t.generation))
}

// publish expands clusters and stores l if its generation is still current
// and it improves on what was published for that generation.
func (a *Analysor) publish(l *Linearization) {
	l = l.Uncluster()
	s := &a.slots[l.Variant]
	s.mu.Lock()
	defer s.mu.Unlock()

	if l.Generation != a.generation.Load() {
		a.logger.Debug("stale linearization dropped",
			zap.Stringer("variant", l.Variant), zap.Int32("generation", l.Generation))
		return
	}
	if cur := s.published.Load(); cur != nil && cur.Generation == l.Generation && cur.Price <= l.Price {
		return
	}
	label := l.Variant.String()
	publishedCounter.WithLabelValues(label).Inc()
	priceGauge.WithLabelValues(label).Set(float64(l.Price))
	s.published.Store(l)
	s.broadcast()
	a.logger.Debug("linearization published",
		zap.String("variant", label), zap.Int32("generation", l.Generation),
		zap.Int32("price", l.Price), zap.Int("paths", len(l.Paths)))
}
