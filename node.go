package linden

import (
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/phanxgames/linden/analysis"
)

// HitShape is a custom hit testing region in local coordinates.
type HitShape interface {
	Contains(x, y float64) bool
}

// PointerContext carries pointer event data.
type PointerContext struct {
	Node      *Node
	EntityID  uint32
	UserData  any
	GlobalX   float64
	GlobalY   float64
	LocalX    float64
	LocalY    float64
	Button    MouseButton
	Modifiers KeyModifiers
}

// ClickContext carries click event data.
type ClickContext = PointerContext

// DragContext carries drag event data.
type DragContext struct {
	PointerContext
	StartX float64
	StartY float64
	DeltaX float64
	DeltaY float64
}

// nodeIDCounter is a plain counter; a scene tree is owned by one goroutine.
var nodeIDCounter uint32

func nextNodeID() uint32 {
	nodeIDCounter++
	return nodeIDCounter
}

// Node is the scene graph element. It implements analysis.NodeView: every
// setter that changes what the scheduler sees invalidates the analysis of
// the scene the node belongs to.
type Node struct {
	ID   uint32
	Name string
	Type NodeType

	Parent   *Node
	children []*Node

	// Local transform. Writing these directly is fine: transforms only
	// affect pricing, and every replay recomputes world matrices.
	X, Y         float64
	ScaleX       float64
	ScaleY       float64
	Rotation     float64
	SkewX, SkewY float64
	PivotX       float64
	PivotY       float64

	Alpha float64
	Color Color

	UserData any
	EntityID uint32

	// Scheduling state, see the setters.
	visible      bool
	renderable   bool
	interactable bool
	zLevel       int32
	clusterTag   int16
	blend        BlendMode
	depthTest    analysis.TriState
	image        *ebiten.Image
	textureID    int32
	shader       *ebiten.Shader
	programID    int32
	hitShape     HitShape

	worldTransform affine
	worldAlpha     float64
	drawSeq        uint64

	// onInvalidate is set on a scene root.
	onInvalidate func()

	OnPointerDown  func(PointerContext)
	OnPointerUp    func(PointerContext)
	OnPointerMove  func(PointerContext)
	OnPointerEnter func(PointerContext)
	OnPointerLeave func(PointerContext)
	OnClick        func(ClickContext)
	OnDragStart    func(DragContext)
	OnDrag         func(DragContext)
	OnDragEnd      func(DragContext)

	disposed bool
}

func nodeDefaults(n *Node) {
	n.ID = nextNodeID()
	n.ScaleX = 1
	n.ScaleY = 1
	n.Alpha = 1
	n.Color = ColorWhite
	n.visible = true
	n.renderable = true
	n.clusterTag = analysis.NoCluster
	n.textureID = analysis.NoID
	n.programID = analysis.NoID
	n.worldTransform = identityAffine
	n.worldAlpha = 1
}

// NewContainer creates a container node with no visual representation.
func NewContainer(name string) *Node {
	n := &Node{Name: name, Type: NodeTypeContainer}
	nodeDefaults(n)
	return n
}

// NewSprite creates a sprite that draws img. A nil img draws WhitePixel,
// which with ScaleX and ScaleY set gives a solid rectangle.
func NewSprite(name string, img *ebiten.Image) *Node {
	n := &Node{Name: name, Type: NodeTypeSprite}
	nodeDefaults(n)
	n.setImage(img)
	return n
}

// NewRect creates a solid-color sprite of the given size.
func NewRect(name string, w, h float64, c Color) *Node {
	n := NewSprite(name, nil)
	n.ScaleX, n.ScaleY = w, h
	n.Color = c
	return n
}

// --- analysis.NodeView ---

// Draws reports whether the node emits a draw command: a renderable sprite
// whose ancestors are all visible.
func (n *Node) Draws() bool {
	return n.Type == NodeTypeSprite && n.renderable && n.visibleInTree()
}

// Transforms reports whether entering the node pushes a transform. Replay
// pushes every node, and position, scale and rotation writes do not
// invalidate the analysis, so this never depends on the current values.
func (n *Node) Transforms() bool {
	return true
}

// HandlesInteraction reports whether the node takes part in hit testing:
// it and all its ancestors are visible and interactable, and it has a hit
// area.
func (n *Node) HandlesInteraction() bool {
	if n.hitShape == nil && n.Type == NodeTypeContainer {
		return false
	}
	for p := n; p != nil; p = p.Parent {
		if !p.visible || !p.interactable {
			return false
		}
	}
	return true
}

// ZLevel returns the node's depth level. Higher levels are farther away and
// draw first.
func (n *Node) ZLevel() int32 { return n.zLevel }

// ClusterTag returns the node's cluster tag, or analysis.NoCluster.
func (n *Node) ClusterTag() int16 { return n.clusterTag }

func (n *Node) BlendState() analysis.TriState {
	if n.Type != NodeTypeSprite {
		return analysis.DontCare
	}
	return n.blend.blendState()
}

func (n *Node) DepthTestState() analysis.TriState { return n.depthTest }
func (n *Node) RenderProgramID() int32            { return n.programID }
func (n *Node) TextureID() int32                  { return n.textureID }
func (n *Node) NumChildren() int                  { return len(n.children) }

// ChildView returns the i-th child as a NodeView.
func (n *Node) ChildView(i int) analysis.NodeView { return n.children[i] }

var _ analysis.NodeView = (*Node)(nil)

func (n *Node) visibleInTree() bool {
	for p := n; p != nil; p = p.Parent {
		if !p.visible {
			return false
		}
	}
	return true
}

// --- Scheduling setters ---

// invalidate notifies the scene owning this node's tree, if any.
func (n *Node) invalidate() {
	root := n
	for root.Parent != nil {
		root = root.Parent
	}
	if root.onInvalidate != nil {
		root.onInvalidate()
	}
}

// Visible reports whether the node and its subtree are shown.
func (n *Node) Visible() bool { return n.visible }

// SetVisible shows or hides the node and its subtree.
func (n *Node) SetVisible(v bool) {
	if n.visible != v {
		n.visible = v
		n.invalidate()
	}
}

// Renderable reports whether the node itself draws.
func (n *Node) Renderable() bool { return n.renderable }

// SetRenderable controls whether the node itself draws; children are not
// affected.
func (n *Node) SetRenderable(v bool) {
	if n.renderable != v {
		n.renderable = v
		n.invalidate()
	}
}

// Interactable reports whether the node receives pointer events.
func (n *Node) Interactable() bool { return n.interactable }

// SetInteractable enables pointer events for the node. A non-interactable
// node also blocks events for its whole subtree.
func (n *Node) SetInteractable(v bool) {
	if n.interactable != v {
		n.interactable = v
		n.invalidate()
	}
}

// SetZLevel sets the depth level. Higher levels are farther away.
func (n *Node) SetZLevel(z int32) {
	if n.zLevel != z {
		n.zLevel = z
		n.invalidate()
	}
}

// SetClusterTag groups the node with every other node carrying the same
// tag; the scheduler places a group as one unit. Use analysis.NoCluster to
// leave the group.
func (n *Node) SetClusterTag(tag int16) {
	if n.clusterTag != tag {
		n.clusterTag = tag
		n.invalidate()
	}
}

// BlendMode returns the node's blend mode.
func (n *Node) BlendMode() BlendMode { return n.blend }

// SetBlendMode sets the compositing operation used to draw the node.
func (n *Node) SetBlendMode(b BlendMode) {
	if n.blend != b {
		n.blend = b
		n.invalidate()
	}
}

// SetDepthTest sets the node's depth test requirement.
func (n *Node) SetDepthTest(s analysis.TriState) {
	if n.depthTest != s {
		n.depthTest = s
		n.invalidate()
	}
}

// Image returns the image the sprite draws.
func (n *Node) Image() *ebiten.Image { return n.image }

// SetImage replaces the sprite's image. nil draws WhitePixel.
func (n *Node) SetImage(img *ebiten.Image) {
	old := n.textureID
	n.setImage(img)
	if n.textureID != old {
		n.invalidate()
	}
}

func (n *Node) setImage(img *ebiten.Image) {
	if img == nil {
		img = WhitePixel
	}
	if n.image == img {
		return
	}
	id := resources.acquire(img)
	n.releaseImage()
	n.image = img
	n.textureID = id
}

func (n *Node) releaseImage() {
	if n.image != nil {
		resources.release(n.image)
	}
	n.image = nil
	n.textureID = analysis.NoID
}

func (n *Node) releaseShader() {
	if n.shader != nil {
		resources.release(n.shader)
	}
	n.shader = nil
	n.programID = analysis.NoID
}

// Shader returns the node's shader, or nil for the default program.
func (n *Node) Shader() *ebiten.Shader { return n.shader }

// SetShader draws the sprite with a Kage shader instead of the default
// program. The sprite image is bound as the shader's first source.
func (n *Node) SetShader(s *ebiten.Shader) {
	if n.shader == s {
		return
	}
	id := analysis.NoID
	if s != nil {
		id = resources.acquire(s)
	}
	n.releaseShader()
	if s != nil {
		n.shader = s
		n.programID = id
	}
	n.invalidate()
}

// HitShape returns the custom hit area, or nil.
func (n *Node) HitShape() HitShape { return n.hitShape }

// SetHitShape sets a custom hit area in local coordinates. Containers with
// a hit shape take part in hit testing.
func (n *Node) SetHitShape(h HitShape) {
	n.hitShape = h
	n.invalidate()
}

// resources assigns small ids to the images and shaders nodes use so the
// scheduler can compare them. Entries are reference counted by node and
// dropped with their last user; freed ids are reused.
var resources = newResourceRegistry()

type resourceEntry struct {
	id   int32
	refs int
}

type resourceRegistry struct {
	mu      sync.Mutex
	entries map[any]*resourceEntry
	free    []int32
	next    int32
}

func newResourceRegistry() *resourceRegistry {
	return &resourceRegistry{entries: map[any]*resourceEntry{}}
}

// acquire returns the id of r and adds a reference to it.
func (r *resourceRegistry) acquire(res any) int32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[res]; ok {
		e.refs++
		return e.id
	}
	var id int32
	if k := len(r.free); k > 0 {
		id = r.free[k-1]
		r.free = r.free[:k-1]
	} else {
		id = r.next
		r.next++
	}
	r.entries[res] = &resourceEntry{id: id, refs: 1}
	return id
}

// release drops a reference to res. Nil and unknown resources are ignored.
func (r *resourceRegistry) release(res any) {
	if res == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[res]
	if !ok {
		return
	}
	e.refs--
	if e.refs == 0 {
		delete(r.entries, res)
		r.free = append(r.free, e.id)
	}
}

func (r *resourceRegistry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// --- Tree manipulation ---

// AddChild appends child to this node's children, removing it from its
// previous parent first. Panics if child is nil or an ancestor of n.
func (n *Node) AddChild(child *Node) {
	n.AddChildAt(child, len(n.children))
}

// AddChildAt inserts child at index. Same reparenting and cycle checks as
// AddChild.
func (n *Node) AddChildAt(child *Node, index int) {
	if child == nil {
		panic("linden: cannot add nil child")
	}
	if globalDebug {
		debugCheckDisposed(n, "AddChildAt (parent)")
		debugCheckDisposed(child, "AddChildAt (child)")
	}
	if isAncestor(child, n) {
		panic("linden: adding child would create a cycle")
	}
	if child.Parent != nil {
		child.Parent.removeChildByPtr(child)
		if child.Parent == n && index > len(n.children) {
			index = len(n.children)
		}
		child.Parent.invalidate()
	}
	if index < 0 || index > len(n.children) {
		panic("linden: child index out of range")
	}
	child.Parent = n
	n.children = append(n.children, nil)
	copy(n.children[index+1:], n.children[index:])
	n.children[index] = child
	n.invalidate()
	if globalDebug {
		debugCheckTreeDepth(child)
		debugCheckChildCount(n)
	}
}

// RemoveChild detaches child from this node. Panics if child.Parent != n.
func (n *Node) RemoveChild(child *Node) {
	if child.Parent != n {
		panic("linden: child's parent is not this node")
	}
	n.removeChildByPtr(child)
	child.Parent = nil
	n.invalidate()
}

// RemoveChildAt removes and returns the child at index.
func (n *Node) RemoveChildAt(index int) *Node {
	if index < 0 || index >= len(n.children) {
		panic("linden: child index out of range")
	}
	child := n.children[index]
	n.RemoveChild(child)
	return child
}

// RemoveFromParent detaches this node from its parent, if any.
func (n *Node) RemoveFromParent() {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// RemoveChildren detaches all children. They are not disposed.
func (n *Node) RemoveChildren() {
	if len(n.children) == 0 {
		return
	}
	for i, child := range n.children {
		child.Parent = nil
		n.children[i] = nil
	}
	n.children = n.children[:0]
	n.invalidate()
}

// Children returns the child list. Callers must not mutate it.
func (n *Node) Children() []*Node {
	return n.children
}

// ChildAt returns the child at index.
func (n *Node) ChildAt(index int) *Node {
	return n.children[index]
}

// Dispose detaches the node and marks it and its subtree as disposed.
func (n *Node) Dispose() {
	if n.disposed {
		return
	}
	n.RemoveFromParent()
	n.dispose()
}

func (n *Node) dispose() {
	n.disposed = true
	for _, child := range n.children {
		child.Parent = nil
		child.dispose()
	}
	n.children = nil
	n.releaseImage()
	n.releaseShader()
	n.hitShape = nil
	n.UserData = nil
	n.OnPointerDown = nil
	n.OnPointerUp = nil
	n.OnPointerMove = nil
	n.OnPointerEnter = nil
	n.OnPointerLeave = nil
	n.OnClick = nil
	n.OnDragStart = nil
	n.OnDrag = nil
	n.OnDragEnd = nil
}

// IsDisposed reports whether Dispose was called.
func (n *Node) IsDisposed() bool {
	return n.disposed
}

func isAncestor(candidate, node *Node) bool {
	for p := node; p != nil; p = p.Parent {
		if p == candidate {
			return true
		}
	}
	return false
}

// removeChildByPtr removes child without clearing child.Parent.
func (n *Node) removeChildByPtr(child *Node) {
	for i, c := range n.children {
		if c == child {
			copy(n.children[i:], n.children[i+1:])
			n.children[len(n.children)-1] = nil
			n.children = n.children[:len(n.children)-1]
			return
		}
	}
}
