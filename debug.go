package linden

import (
	"fmt"
	"time"

	"github.com/pingcap/log"
	"go.uber.org/zap"
)

// FrameStats describes the last Draw.
type FrameStats struct {
	// Skipped is set when no render linearization arrived in time.
	Skipped bool

	Generation   int32
	Price        int32
	Commands     int
	Batches      int
	StateChanges int

	WaitTime   time.Duration
	ReplayTime time.Duration
	SubmitTime time.Duration
}

// Total returns the time spent in Draw after the clear.
func (f FrameStats) Total() time.Duration {
	return f.WaitTime + f.ReplayTime + f.SubmitTime
}

func (s *Scene) debugLog(stats FrameStats) {
	s.logger.Debug("frame drawn",
		zap.Int32("generation", stats.Generation),
		zap.Int32("price", stats.Price),
		zap.Int("commands", stats.Commands),
		zap.Int("batches", stats.Batches),
		zap.Int("stateChanges", stats.StateChanges),
		zap.Duration("wait", stats.WaitTime),
		zap.Duration("replay", stats.ReplayTime),
		zap.Duration("submit", stats.SubmitTime),
		zap.Duration("total", stats.Total()))
}

// debugCheckDisposed panics when a disposed node is used in a tree
// operation. Callers only check in debug mode.
func debugCheckDisposed(n *Node, op string) {
	if n.disposed {
		panic(fmt.Sprintf("linden debug: %s on disposed node %q (ID was %d)", op, n.Name, n.ID))
	}
}

const debugMaxTreeDepth = 32

// debugCheckTreeDepth warns when n sits deeper than debugMaxTreeDepth.
// Replay cost grows with path length between drawn nodes.
func debugCheckTreeDepth(n *Node) {
	depth := 0
	for p := n; p != nil; p = p.Parent {
		depth++
	}
	if depth > debugMaxTreeDepth {
		log.L().Warn("tree depth exceeds threshold",
			zap.String("node", n.Name), zap.Int("depth", depth), zap.Int("threshold", debugMaxTreeDepth))
	}
}

const debugMaxChildCount = 1000

func debugCheckChildCount(n *Node) {
	if len(n.children) > debugMaxChildCount {
		log.L().Warn("node child count exceeds threshold",
			zap.String("node", n.Name), zap.Int("children", len(n.children)), zap.Int("threshold", debugMaxChildCount))
	}
}
