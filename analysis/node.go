package analysis

import "sort"

// AnalysisNode binds a tree node to its chain of ancestors for one analysis
// pass. A node is either a single tree node or a cluster of interchangeable
// nodes sharing a cluster tag. Nodes live in a per-job arena and Key is the
// node's index in that arena.
type AnalysisNode struct {
	Key uint32

	view  NodeView
	attrs Attrs

	// pathToRoot runs from the node itself up to and including the root.
	// A cluster shares the chain of its first member.
	pathToRoot []*AnalysisNode

	// members is non-empty only for clusters.
	members []*AnalysisNode

	// visited is search scratch state.
	visited bool
}

// View returns the live tree node. For a cluster it is the first member's node.
func (n *AnalysisNode) View() NodeView {
	if n.IsCluster() {
		return n.members[0].view
	}
	return n.view
}

// Attrs returns the frozen scheduling attributes of the node.
func (n *AnalysisNode) Attrs() Attrs { return n.attrs }

// IsCluster reports whether the node aggregates several members.
func (n *AnalysisNode) IsCluster() bool { return len(n.members) > 0 }

// Members returns the cluster members in visiting order, or nil.
func (n *AnalysisNode) Members() []*AnalysisNode { return n.members }

// IsRoot reports whether the node is the tree root.
func (n *AnalysisNode) IsRoot() bool {
	return !n.IsCluster() && len(n.pathToRoot) == 1
}

// PathToRoot returns the ancestor chain starting at the node itself.
// The returned slice must not be mutated.
func (n *AnalysisNode) PathToRoot() []*AnalysisNode { return n.pathToRoot }

// Depth returns the number of ancestors above the node.
func (n *AnalysisNode) Depth() int { return len(n.pathToRoot) - 1 }

// entry is the node a path arriving at n actually reaches.
func (n *AnalysisNode) entry() *AnalysisNode {
	if n.IsCluster() {
		return n.members[0]
	}
	return n
}

// exit is the node a path leaving n actually starts from.
func (n *AnalysisNode) exit() *AnalysisNode {
	if n.IsCluster() {
		return n.members[len(n.members)-1]
	}
	return n
}

// chainContains is the lowest-common-ancestor test: it reports whether x lies
// on chain, or for a cluster whether any of its members does.
func chainContains(chain []*AnalysisNode, x *AnalysisNode) bool {
	if x.IsCluster() {
		for _, m := range x.members {
			if chainContains(chain, m) {
				return true
			}
		}
		return false
	}
	for _, c := range chain {
		if c == x {
			return true
		}
	}
	return false
}

// --- Arena ---

// arena hands out AnalysisNodes from one preallocated block. The block never
// grows, so pointers into it stay valid for the life of the job.
type arena struct {
	nodes []AnalysisNode
}

func newArena(capacity int) *arena {
	return &arena{nodes: make([]AnalysisNode, 0, capacity)}
}

func (a *arena) alloc() *AnalysisNode {
	if len(a.nodes) == cap(a.nodes) {
		panic("analysis: node arena exhausted")
	}
	a.nodes = append(a.nodes, AnalysisNode{Key: uint32(len(a.nodes))})
	return &a.nodes[len(a.nodes)-1]
}

// newNode creates an AnalysisNode for snap under parent (nil for the root)
// by prefixing the node onto a copy of the parent's chain.
func (a *arena) newNode(snap *Snapshot, parent *AnalysisNode) *AnalysisNode {
	n := a.alloc()
	n.view = snap.View
	n.attrs = snap.Attrs
	if parent == nil {
		n.pathToRoot = []*AnalysisNode{n}
		return n
	}
	n.pathToRoot = make([]*AnalysisNode, len(parent.pathToRoot)+1)
	n.pathToRoot[0] = n
	copy(n.pathToRoot[1:], parent.pathToRoot)
	return n
}

// newCluster folds members into one cluster node. Members are ordered back
// to front (descending z-level, stable) so the expanded order never draws a
// farther member after a nearer one.
func (a *arena) newCluster(members []*AnalysisNode) *AnalysisNode {
	sorted := make([]*AnalysisNode, len(members))
	copy(sorted, members)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].attrs.ZLevel > sorted[j].attrs.ZLevel
	})
	c := a.alloc()
	c.members = sorted
	c.attrs = sorted[0].attrs
	c.pathToRoot = sorted[0].pathToRoot
	return c
}

// cluster collapses nodes with equal, non-NoCluster tags into cluster nodes.
// The cluster takes the position of the first occurrence of its tag; a tag
// seen only once leaves the node unchanged. The root is never clustered.
func (a *arena) cluster(flat []*AnalysisNode) []*AnalysisNode {
	groups := make(map[int16][]*AnalysisNode)
	for _, n := range flat {
		tag := n.attrs.ClusterTag
		if tag == NoCluster || n.IsRoot() {
			continue
		}
		groups[tag] = append(groups[tag], n)
	}
	if len(groups) == 0 {
		return flat
	}

	out := make([]*AnalysisNode, 0, len(flat))
	for _, n := range flat {
		tag := n.attrs.ClusterTag
		if tag == NoCluster || n.IsRoot() {
			out = append(out, n)
			continue
		}
		g, ok := groups[tag]
		if !ok {
			// Absorbed into an earlier cluster.
			continue
		}
		delete(groups, tag)
		if len(g) < 2 {
			out = append(out, n)
			continue
		}
		out = append(out, a.newCluster(g))
	}
	return out
}
