package analysis

import (
	"context"
	"sync"

	"github.com/pingcap/errors"
	"golang.org/x/sync/errgroup"
)

// errPoolClosed is returned by submit once the pool has been closed.
var errPoolClosed = errors.New("analysis pool closed")

// task is one queued analysis job bound to the generation it was created for.
type task struct {
	variant    Variant
	generation int32
	ctx        context.Context
	run        func()
}

// pool runs analysis jobs on a fixed number of workers. Before starting a
// task a worker compares its generation with the watermark and drops it if
// a newer generation exists, so queued stale work never burns CPU.
type pool struct {
	tasks     chan *task
	watermark func() int32
	preempted func(*task)

	eg        *errgroup.Group
	cancel    context.CancelFunc
	done      <-chan struct{}
	closeOnce sync.Once
}

func newPool(workers, queueSize int, watermark func() int32, preempted func(*task)) *pool {
	ctx, cancel := context.WithCancel(context.Background())
	eg, ctx := errgroup.WithContext(ctx)
	p := &pool{
		tasks:     make(chan *task, queueSize),
		watermark: watermark,
		preempted: preempted,
		eg:        eg,
		cancel:    cancel,
		done:      ctx.Done(),
	}
	for i := 0; i < workers; i++ {
		eg.Go(func() error {
			return p.work(ctx)
		})
	}
	return p
}

func (p *pool) work(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case t := <-p.tasks:
			if t.generation != p.watermark() || t.ctx.Err() != nil {
				p.preempted(t)
				continue
			}
			t.run()
		}
	}
}

// submit queues t, blocking while the queue is full.
func (p *pool) submit(ctx context.Context, t *task) error {
	select {
	case <-p.done:
		return errPoolClosed
	default:
	}
	select {
	case p.tasks <- t:
		return nil
	case <-p.done:
		return errPoolClosed
	case <-ctx.Done():
		return errors.Trace(ctx.Err())
	}
}

// close stops the workers and waits for running tasks to return.
func (p *pool) close() {
	p.closeOnce.Do(func() {
		p.cancel()
		_ = p.eg.Wait()
	})
}
