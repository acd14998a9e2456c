package linden

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/phanxgames/linden/analysis"
)

// color32 is a compact RGBA color for render commands.
type color32 struct {
	R, G, B, A float32
}

// RenderCommand is one draw emitted while replaying a render linearization.
type RenderCommand struct {
	Transform [6]float32
	Color     color32
	BlendMode BlendMode
	DepthTest analysis.TriState
	ZLevel    int32
	ProgramID int32
	TextureID int32

	image  *ebiten.Image
	shader *ebiten.Shader
	node   *Node
}

// Node returns the node the command draws.
func (c *RenderCommand) Node() *Node {
	return c.node
}

func affine32(m affine) [6]float32 {
	return [6]float32{float32(m[0]), float32(m[1]), float32(m[2]), float32(m[3]), float32(m[4]), float32(m[5])}
}

// renderVisitor turns a render linearization into commands, keeping a
// transform stack in step with the replay.
type renderVisitor struct {
	stack transformStack
	out   []RenderCommand
}

// drawSeq increases with every drawn command, so a larger value on a node
// means it was drawn later in its frame and sits on top.
var drawSeq uint64

func (v *renderVisitor) EnterTransform(n analysis.NodeView) {
	v.stack.push(n.(*Node))
}

func (v *renderVisitor) ExitTransform(analysis.NodeView) {
	v.stack.pop()
}

func (v *renderVisitor) Visit(view analysis.NodeView) {
	n := view.(*Node)
	if !n.Draws() || n.disposed {
		return
	}
	drawSeq++
	n.drawSeq = drawSeq
	v.out = append(v.out, RenderCommand{
		Transform: affine32(n.worldTransform),
		Color:     color32{float32(n.Color.R), float32(n.Color.G), float32(n.Color.B), float32(n.Color.A * n.worldAlpha)},
		BlendMode: n.blend,
		DepthTest: n.depthTest,
		ZLevel:    n.zLevel,
		ProgramID: n.programID,
		TextureID: n.textureID,
		image:     n.image,
		shader:    n.shader,
		node:      n,
	})
}

// replay appends the commands of lin to buf in linearization order.
func (v *renderVisitor) replay(lin *analysis.Linearization, buf []RenderCommand) []RenderCommand {
	v.stack.reset()
	v.out = buf
	lin.Replay(v)
	out := v.out
	v.out = nil
	return out
}
