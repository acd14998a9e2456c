package analysis

import (
	"sort"

	"github.com/pingcap/errors"
)

var (
	// ErrNoLinearization means the search exhausted every option without
	// completing a tour. It indicates a tree connectivity bug.
	ErrNoLinearization = errors.New("no linearization found")

	// ErrStaleJob means the job's generation was superseded before it
	// finished. It is a normal race, not a failure.
	ErrStaleJob = errors.New("analysis job is stale")
)

type jobState uint8

const (
	stateCollectNodes jobState = iota
	stateCluster
	statePriceAllPairs
	stateSortBySource
	stateSearch
	stateFound
	stateNotFound
)

func (s jobState) String() string {
	switch s {
	case stateCollectNodes:
		return "collect-nodes"
	case stateCluster:
		return "cluster"
	case statePriceAllPairs:
		return "price-all-pairs"
	case stateSortBySource:
		return "sort-by-source"
	case stateSearch:
		return "search"
	case stateFound:
		return "found"
	case stateNotFound:
		return "not-found"
	default:
		return "unknown"
	}
}

// job computes the cheapest linearization of one tree snapshot for one
// variant. It runs strictly sequentially on its worker goroutine.
type job struct {
	variant    Variant
	generation int32
	snap       *Snapshot
	cfg        VariantConfig
	pr         pricer

	// abort reports whether the job's generation has been superseded.
	abort func() bool
	// publish hands an improved linearization to the orchestrator.
	publish func(*Linearization)

	state jobState
	arena *arena
	root  *AnalysisNode
	nodes []*AnalysisNode
	edges map[uint32][]*Path

	// atomic holds the search nodes before clustering. Clusters whose
	// members span several z-levels can make every tour infeasible, in
	// which case the search is repeated once over atomic.
	atomic      []*AnalysisNode
	unclustered bool

	empty     bool
	steps     int
	exhausted bool
	found     bool
	bestPrice int64
}

func newJob(v Variant, gen int32, snap *Snapshot, cfg VariantConfig, abort func() bool, publish func(*Linearization)) *job {
	var pr pricer = renderPricer{costs: cfg.Costs}
	if v == Interaction {
		pr = interactionPricer{costs: cfg.Costs}
	}
	return &job{
		variant:    v,
		generation: gen,
		snap:       snap,
		cfg:        cfg,
		pr:         pr,
		abort:      abort,
		publish:    publish,
	}
}

// run drives the job through its states, checking for staleness before
// every transition. It returns nil once a linearization was published.
func (j *job) run() error {
	for {
		if j.state == stateFound {
			return nil
		}
		if j.abort() {
			return ErrStaleJob
		}
		switch j.state {
		case stateCollectNodes:
			j.collectNodes()
			if len(j.nodes) <= 1 {
				j.empty = true
				j.publish(newLinearization(j.variant, j.generation, j.root, nil, j.pr))
				j.state = stateFound
				continue
			}
			j.state = stateCluster
		case stateCluster:
			j.atomic = j.nodes
			clustered := j.arena.cluster(j.nodes)
			if j.variant == Render && !zCompatible(clustered) {
				j.unclustered = true
			} else {
				j.nodes = clustered
			}
			j.state = statePriceAllPairs
		case statePriceAllPairs:
			if !j.priceAllPairs() {
				return ErrStaleJob
			}
			j.state = stateSortBySource
		case stateSortBySource:
			for _, paths := range j.edges {
				sort.SliceStable(paths, func(a, b int) bool {
					return paths[a].Price < paths[b].Price
				})
			}
			j.state = stateSearch
		case stateSearch:
			if err := j.search(); err != nil {
				return err
			}
			if j.found {
				j.state = stateFound
			} else {
				j.state = stateNotFound
			}
		case stateNotFound:
			// A search cut short by the step budget would only run out again
			// over the larger atomic node set.
			if !j.exhausted && !j.unclustered && len(j.atomic) != len(j.nodes) {
				j.unclustered = true
				j.nodes = j.atomic
				j.steps = 0
				j.state = statePriceAllPairs
				continue
			}
			return errors.Annotatef(ErrNoLinearization, "%s generation %d with %d nodes", j.variant, j.generation, len(j.nodes))
		}
	}
}

// collectNodes builds an AnalysisNode for every tree node in pre-order and
// keeps the marked ones. The root is always kept.
func (j *job) collectNodes() {
	if j.snap == nil {
		return
	}
	size := j.snap.Size()
	j.arena = newArena(size + size/2 + 1)
	j.root = j.collect(j.snap, nil)
}

func (j *job) collect(s *Snapshot, parent *AnalysisNode) *AnalysisNode {
	n := j.arena.newNode(s, parent)
	if parent == nil || j.variant.marks(s.Attrs) {
		j.nodes = append(j.nodes, n)
	}
	for _, c := range s.Children {
		j.collect(c, n)
	}
	return n
}

// priceAllPairs prices every ordered pair of search nodes that does not end
// at the root, keeping valid paths without the z-order penalty. Returns
// false if the job went stale.
func (j *job) priceAllPairs() bool {
	j.edges = make(map[uint32][]*Path, len(j.nodes))
	for _, from := range j.nodes {
		if j.abort() {
			return false
		}
		for _, to := range j.nodes {
			if from == to || to == j.root {
				continue
			}
			if p, ok := newPricedPath(from, to, j.pr); ok {
				j.edges[from.Key] = append(j.edges[from.Key], p)
			}
		}
	}
	return true
}

// searchFrame is one level of the depth-first search: the candidate paths
// leaving a node and the index of the next one to try.
type searchFrame struct {
	edges []*Path
	next  int
}

// search runs a branch-and-bound depth-first search for the cheapest tour
// visiting every search node once, starting at the root. Candidate paths
// are tried cheapest first, so once one exceeds the bound the rest of the
// frame is pruned. An explicit stack bounds memory to the node count.
func (j *job) search() error {
	n := len(j.nodes)
	for _, node := range j.nodes {
		node.visited = false
	}
	j.root.visited = true
	visitedCount := 1

	route := make([]*Path, 0, n-1)
	var price int64
	stack := make([]searchFrame, 1, n)
	stack[0] = searchFrame{edges: j.edges[j.root.Key]}

	for len(stack) > 0 {
		if j.abort() {
			return ErrStaleJob
		}
		if j.cfg.MaxSearchSteps > 0 && j.steps >= j.cfg.MaxSearchSteps {
			j.exhausted = true
			return nil
		}
		j.steps++

		top := &stack[len(stack)-1]
		if top.next >= len(top.edges) {
			stack = stack[:len(stack)-1]
			if len(route) > 0 {
				last := route[len(route)-1]
				route = route[:len(route)-1]
				price -= int64(last.Price)
				last.End.visited = false
				visitedCount--
			}
			continue
		}

		p := top.edges[top.next]
		top.next++
		if p.End.visited {
			continue
		}
		if j.found && price+int64(p.Price) >= j.bestPrice {
			top.next = len(top.edges)
			continue
		}

		if !j.feasibleAfter(p.End) {
			continue
		}

		if visitedCount+1 == n {
			j.found = true
			j.bestPrice = price + int64(p.Price)
			tour := make([]*Path, len(route)+1)
			copy(tour, route)
			tour[len(route)] = p
			j.publish(newLinearization(j.variant, j.generation, j.root, tour, j.pr))
			if j.cfg.AcceptFirstTour {
				return nil
			}
			continue
		}

		route = append(route, p)
		price += int64(p.Price)
		p.End.visited = true
		visitedCount++
		stack = append(stack, searchFrame{edges: j.edges[p.End.Key]})
	}
	return nil
}

// feasibleAfter reports whether every unvisited node other than next can
// still be drawn after next in back-to-front order. Only render paths carry
// the z-order constraint.
func (j *job) feasibleAfter(next *AnalysisNode) bool {
	if j.variant != Render {
		return true
	}
	limit := next.exit().attrs.ZLevel
	for _, n := range j.nodes {
		if !n.visited && n != next && n.entry().attrs.ZLevel > limit {
			return false
		}
	}
	return true
}

// zCompatible reports whether the z-ranges of clusters leave room for a
// back-to-front order: no other node may fall strictly inside a cluster's
// range and no two clusters may overlap.
func zCompatible(nodes []*AnalysisNode) bool {
	for _, c := range nodes {
		if !c.IsCluster() {
			continue
		}
		clo, chi := c.exit().attrs.ZLevel, c.entry().attrs.ZLevel
		for _, n := range nodes {
			if n == c || n.IsRoot() {
				continue
			}
			lo, hi := n.exit().attrs.ZLevel, n.entry().attrs.ZLevel
			if lo < chi && clo < hi {
				return false
			}
		}
	}
	return true
}
