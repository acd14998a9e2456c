package analysis

// ZPenalty is the effectively infinite price of drawing a farther node after
// a nearer one. Paths carrying it never become search candidates.
const ZPenalty int32 = 10_000_000

// Path is a priced route between two marked nodes through their lowest
// common ancestor. Up runs from the start to the shared ancestor and Down
// from the shared ancestor to the end, both inclusive.
type Path struct {
	Start *AnalysisNode
	End   *AnalysisNode
	Price int32
	Up    []*AnalysisNode
	Down  []*AnalysisNode
}

// SharedAncestor returns the lowest common ancestor of Start and End.
func (p *Path) SharedAncestor() *AnalysisNode {
	if len(p.Up) == 0 {
		return nil
	}
	return p.Up[len(p.Up)-1]
}

// computePath splits the route from start to end at their shared ancestor.
// A cluster start leaves from its last member and a cluster end is entered
// through its first member. Returns false when no shared ancestor exists.
func computePath(start, end *AnalysisNode) (*Path, bool) {
	from := start.exit()
	to := end.entry()

	var shared *AnalysisNode
	up := make([]*AnalysisNode, 0, len(from.pathToRoot))
	for _, a := range from.pathToRoot {
		up = append(up, a)
		if chainContains(to.pathToRoot, a) {
			shared = a
			break
		}
	}
	if shared == nil {
		return nil, false
	}

	k := 0
	for k < len(to.pathToRoot) && to.pathToRoot[k] != shared {
		k++
	}
	if k == len(to.pathToRoot) {
		return nil, false
	}
	down := make([]*AnalysisNode, k+1)
	for i := 0; i <= k; i++ {
		down[k-i] = to.pathToRoot[i]
	}
	return &Path{Start: start, End: end, Up: up, Down: down}, true
}

// --- Pricing ---

// PriceTable holds the fixed costs used to price a Path.
type PriceTable struct {
	UpTransform   int32 `toml:"up-transform"`
	DownTransform int32 `toml:"down-transform"`
	Blend         int32 `toml:"blend"`
	DepthTest     int32 `toml:"depth-test"`
	Program       int32 `toml:"program"`
	Texture       int32 `toml:"texture"`
	Overwrite     int32 `toml:"overwrite"`
}

// DefaultPriceTable returns the default costs. Entering a subtree context
// costs more than restoring one.
func DefaultPriceTable() PriceTable {
	return PriceTable{
		UpTransform:   1,
		DownTransform: 4,
		Blend:         10,
		DepthTest:     10,
		Program:       40,
		Texture:       20,
		Overwrite:     100,
	}
}

// pricer assigns a price to a computed path. penalized reports a path
// that breaks back-to-front order and must never be taken.
type pricer interface {
	price(p *Path) (price int32, penalized bool)
}

// transformCost sums the costs of restoring contexts on the up leg and
// establishing contexts on the down leg. The shared ancestor is excluded.
func transformCost(p *Path, t PriceTable) int32 {
	var cost int32
	for _, n := range p.Up[:len(p.Up)-1] {
		if n.attrs.Transforms {
			cost += t.UpTransform
		}
	}
	for _, n := range p.Down[1:] {
		if n.attrs.Transforms {
			cost += t.DownTransform
		}
	}
	return cost
}

type renderPricer struct {
	costs PriceTable
}

func (r renderPricer) price(p *Path) (int32, bool) {
	e := p.End.entry().attrs
	if p.Start.IsRoot() {
		// Prefer starting with the farthest node.
		return -e.ZLevel, false
	}
	s := p.Start.exit().attrs
	if s.ZLevel < e.ZLevel {
		return ZPenalty, true
	}

	cost := transformCost(p, r.costs)
	if s.Blend.conflicts(e.Blend) {
		cost += r.costs.Blend
	}
	if s.DepthTest.conflicts(e.DepthTest) {
		cost += r.costs.DepthTest
	}
	if s.Program != NoID && e.Program != NoID && s.Program != e.Program {
		cost += r.costs.Program
	}
	if s.Texture != NoID && e.Texture != NoID && s.Texture != e.Texture {
		cost += r.costs.Texture
	}
	if s.ZLevel > e.ZLevel && e.Blend == Off && e.DepthTest == On {
		// An opaque depth-tested node could have been drawn first.
		cost += r.costs.Overwrite
	}
	return cost, false
}

type interactionPricer struct {
	costs PriceTable
}

func (r interactionPricer) price(p *Path) (int32, bool) {
	return transformCost(p, r.costs), false
}

// newPricedPath computes and prices the path from start to end. It reports
// false for invalid paths and for paths carrying the z-order penalty.
func newPricedPath(start, end *AnalysisNode, pr pricer) (*Path, bool) {
	p, ok := computePath(start, end)
	if !ok {
		return nil, false
	}
	price, penalized := pr.price(p)
	if penalized {
		return nil, false
	}
	p.Price = price
	return p, true
}
