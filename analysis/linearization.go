package analysis

// Variant selects which marked nodes a job schedules and how paths are priced.
type Variant uint8

const (
	Render      Variant = iota // nodes that draw
	Interaction                // nodes that handle interaction
)

// String returns the metric/log label of the variant.
func (v Variant) String() string {
	if v == Interaction {
		return "interaction"
	}
	return "render"
}

func (v Variant) marks(a Attrs) bool {
	if v == Interaction {
		return a.HandlesInteraction
	}
	return a.Draws
}

// Linearization is a complete visiting order over the marked nodes of one
// tree snapshot. Paths[0].Start is always the root. A Linearization is never
// mutated once published.
type Linearization struct {
	Variant    Variant
	Generation int32
	Root       *AnalysisNode
	Paths      []*Path
	Price      int32

	pr pricer
}

func newLinearization(v Variant, gen int32, root *AnalysisNode, paths []*Path, pr pricer) *Linearization {
	l := &Linearization{
		Variant:    v,
		Generation: gen,
		Root:       root,
		Paths:      paths,
		pr:         pr,
	}
	for _, p := range paths {
		l.Price += p.Price
	}
	return l
}

// Len returns the number of paths.
func (l *Linearization) Len() int { return len(l.Paths) }

// Empty reports whether the linearization visits nothing beyond the root.
func (l *Linearization) Empty() bool { return len(l.Paths) == 0 }

// HasClusters reports whether any path endpoint is a cluster node.
func (l *Linearization) HasClusters() bool {
	for _, p := range l.Paths {
		if p.Start.IsCluster() || p.End.IsCluster() {
			return true
		}
	}
	return false
}

// Uncluster expands every cluster endpoint into its members, joining them
// with freshly computed intra-cluster paths. The result holds no cluster
// references. An already atomic linearization is returned unchanged.
func (l *Linearization) Uncluster() *Linearization {
	if !l.HasClusters() {
		return l
	}
	paths := make([]*Path, 0, len(l.Paths)*2)
	add := func(from, to *AnalysisNode) {
		p, ok := computePath(from, to)
		if !ok {
			return
		}
		if l.pr != nil {
			p.Price, _ = l.pr.price(p)
		}
		paths = append(paths, p)
	}
	for _, p := range l.Paths {
		from := p.Start.exit()
		if !p.End.IsCluster() {
			add(from, p.End)
			continue
		}
		members := p.End.members
		add(from, members[0])
		for i := 1; i < len(members); i++ {
			add(members[i-1], members[i])
		}
	}
	return newLinearization(l.Variant, l.Generation, l.Root, paths, l.pr)
}

// Ends returns the visited nodes in order, starting with the root.
func (l *Linearization) Ends() []*AnalysisNode {
	if l.Root == nil {
		return nil
	}
	out := make([]*AnalysisNode, 0, len(l.Paths)+1)
	out = append(out, l.Root)
	for _, p := range l.Paths {
		out = append(out, p.End)
	}
	return out
}

// Visitor receives the replay of a linearization.
type Visitor interface {
	EnterTransform(n NodeView)
	ExitTransform(n NodeView)
	Visit(n NodeView)
}

// Replay walks the linearization: it enters and visits the root, then for
// each path exits every Up node and enters every Down node except the shared
// ancestor before visiting the end. Finally it unwinds back out of the root,
// so every EnterTransform is matched by one ExitTransform.
func (l *Linearization) Replay(v Visitor) {
	if l.Root == nil {
		return
	}
	lin := l.Uncluster()
	v.EnterTransform(lin.Root.view)
	v.Visit(lin.Root.view)
	last := lin.Root
	for _, p := range lin.Paths {
		for _, n := range p.Up[:len(p.Up)-1] {
			v.ExitTransform(n.view)
		}
		for _, n := range p.Down[1:] {
			v.EnterTransform(n.view)
		}
		v.Visit(p.End.view)
		last = p.End
	}
	for _, n := range last.pathToRoot {
		v.ExitTransform(n.view)
	}
}

// StateChanges counts program, texture, blend and depth-test switches
// between consecutive visited nodes.
func (l *Linearization) StateChanges() int {
	ends := l.Uncluster().Ends()
	changes := 0
	for i := 1; i < len(ends); i++ {
		s, e := ends[i-1].attrs, ends[i].attrs
		if s.Program != NoID && e.Program != NoID && s.Program != e.Program {
			changes++
		}
		if s.Texture != NoID && e.Texture != NoID && s.Texture != e.Texture {
			changes++
		}
		if s.Blend.conflicts(e.Blend) {
			changes++
		}
		if s.DepthTest.conflicts(e.DepthTest) {
			changes++
		}
	}
	return changes
}
