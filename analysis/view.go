package analysis

// TriState is a render-state requirement that may be left unspecified.
type TriState uint8

const (
	DontCare TriState = iota // node does not depend on the state
	On                       // state must be enabled
	Off                      // state must be disabled
)

// String returns a short name for the state.
func (s TriState) String() string {
	switch s {
	case On:
		return "on"
	case Off:
		return "off"
	default:
		return "dont-care"
	}
}

// conflicts reports whether switching from s to o requires a state change.
// DontCare on either side never conflicts.
func (s TriState) conflicts(o TriState) bool {
	return s != DontCare && o != DontCare && s != o
}

// NoCluster is the ClusterTag of a node that does not belong to a cluster.
const NoCluster int16 = -1

// NoID marks an unset RenderProgramID or TextureID.
const NoID int32 = -1

// NodeView is the read-only contract the scheduler consumes from a scene tree.
// Implementations are polled once per analysis pass by Capture, on the
// goroutine that owns the tree.
type NodeView interface {
	Draws() bool
	Transforms() bool
	HandlesInteraction() bool
	ZLevel() int32
	ClusterTag() int16
	BlendState() TriState
	DepthTestState() TriState
	RenderProgramID() int32
	TextureID() int32
	NumChildren() int
	ChildView(i int) NodeView
}

// Attrs is a frozen copy of the scheduling attributes of a NodeView.
type Attrs struct {
	Draws              bool
	Transforms         bool
	HandlesInteraction bool
	ZLevel             int32
	ClusterTag         int16
	Blend              TriState
	DepthTest          TriState
	Program            int32
	Texture            int32
}

func attrsOf(v NodeView) Attrs {
	return Attrs{
		Draws:              v.Draws(),
		Transforms:         v.Transforms(),
		HandlesInteraction: v.HandlesInteraction(),
		ZLevel:             v.ZLevel(),
		ClusterTag:         v.ClusterTag(),
		Blend:              v.BlendState(),
		DepthTest:          v.DepthTestState(),
		Program:            v.RenderProgramID(),
		Texture:            v.TextureID(),
	}
}

// Snapshot is an immutable copy of a tree taken for one analysis pass.
// Background jobs read only the snapshot; View points back at the live node
// so consumers can replay a Linearization against the real tree.
type Snapshot struct {
	View     NodeView
	Attrs    Attrs
	Children []*Snapshot
	size     int
}

// Capture freezes the scheduling attributes of the tree rooted at root.
// It must run on the goroutine that mutates the tree. Returns nil for a nil root.
func Capture(root NodeView) *Snapshot {
	if root == nil {
		return nil
	}
	return capture(root)
}

func capture(v NodeView) *Snapshot {
	s := &Snapshot{View: v, Attrs: attrsOf(v), size: 1}
	nc := v.NumChildren()
	if nc == 0 {
		return s
	}
	s.Children = make([]*Snapshot, nc)
	for i := 0; i < nc; i++ {
		c := capture(v.ChildView(i))
		s.Children[i] = c
		s.size += c.size
	}
	return s
}

// Size returns the number of nodes in the snapshot.
func (s *Snapshot) Size() int {
	if s == nil {
		return 0
	}
	return s.size
}
