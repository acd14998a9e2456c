package analysis

import (
	"fmt"
	"math/rand"
)

// testNode is a minimal NodeView for building synthetic trees.
type testNode struct {
	name       string
	draws      bool
	transforms bool
	interacts  bool
	z          int32
	tag        int16
	blend      TriState
	depth      TriState
	program    int32
	texture    int32
	children   []*testNode
}

func newTestNode(name string) *testNode {
	return &testNode{name: name, draws: true, tag: NoCluster, program: NoID, texture: NoID}
}

func (n *testNode) add(children ...*testNode) *testNode {
	n.children = append(n.children, children...)
	return n
}

func (n *testNode) Draws() bool              { return n.draws }
func (n *testNode) Transforms() bool         { return n.transforms }
func (n *testNode) HandlesInteraction() bool { return n.interacts }
func (n *testNode) ZLevel() int32            { return n.z }
func (n *testNode) ClusterTag() int16        { return n.tag }
func (n *testNode) BlendState() TriState     { return n.blend }
func (n *testNode) DepthTestState() TriState { return n.depth }
func (n *testNode) RenderProgramID() int32   { return n.program }
func (n *testNode) TextureID() int32         { return n.texture }
func (n *testNode) NumChildren() int         { return len(n.children) }
func (n *testNode) ChildView(i int) NodeView { return n.children[i] }
func (n *testNode) String() string           { return n.name }

// randomTree builds a tree of size nodes where every node picks a random
// earlier node as its parent. Scheduling attributes are randomized.
func randomTree(rng *rand.Rand, size int, tags bool) (*testNode, []*testNode) {
	nodes := make([]*testNode, size)
	nodes[0] = newTestNode("root")
	nodes[0].draws = false
	for i := 1; i < size; i++ {
		n := newTestNode(fmt.Sprintf("n%d", i))
		n.draws = rng.Intn(3) > 0
		n.interacts = rng.Intn(2) == 0
		n.transforms = rng.Intn(2) == 0
		n.z = int32(rng.Intn(4))
		n.blend = TriState(rng.Intn(3))
		n.depth = TriState(rng.Intn(3))
		n.program = int32(rng.Intn(3)) - 1
		n.texture = int32(rng.Intn(3)) - 1
		if tags && rng.Intn(3) == 0 {
			n.tag = int16(rng.Intn(2))
		}
		parent := nodes[rng.Intn(i)]
		parent.add(n)
		nodes[i] = n
	}
	return nodes[0], nodes
}

// runTestJob runs a job synchronously and collects everything it publishes.
func runTestJob(v Variant, root NodeView, cfg VariantConfig) (*job, []*Linearization, error) {
	var published []*Linearization
	j := newJob(v, 1, Capture(root), cfg,
		func() bool { return false },
		func(l *Linearization) { published = append(published, l) })
	err := j.run()
	return j, published, err
}

// buildArena creates AnalysisNodes for every node of the tree and returns
// them in pre-order, matching the order of randomTree's node slice only
// when the tree was built in pre-order.
func buildArena(root NodeView) (*arena, map[NodeView]*AnalysisNode) {
	snap := Capture(root)
	a := newArena(snap.Size()*2 + 1)
	byView := make(map[NodeView]*AnalysisNode)
	var walk func(s *Snapshot, parent *AnalysisNode)
	walk = func(s *Snapshot, parent *AnalysisNode) {
		n := a.newNode(s, parent)
		byView[s.View] = n
		for _, c := range s.Children {
			walk(c, n)
		}
	}
	walk(snap, nil)
	return a, byView
}

// recordingVisitor records a replay as a list of "enter x", "exit x" and
// "visit x" entries.
type recordingVisitor struct {
	events []string
}

func (r *recordingVisitor) EnterTransform(n NodeView) {
	r.events = append(r.events, "enter "+n.(*testNode).name)
}

func (r *recordingVisitor) ExitTransform(n NodeView) {
	r.events = append(r.events, "exit "+n.(*testNode).name)
}

func (r *recordingVisitor) Visit(n NodeView) {
	r.events = append(r.events, "visit "+n.(*testNode).name)
}
