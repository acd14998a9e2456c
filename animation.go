package linden

import (
	"math"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// TweenGroup animates up to 4 float64 values on a Node at once. Create one
// with the Tween constructors and call Update(dt) each frame. If the target
// node is disposed the group stops immediately.
//
// Transform, alpha and color tweens write fields directly and never start a
// new analysis generation; TweenZLevel goes through SetZLevel and does.
type TweenGroup struct {
	tweens [4]*gween.Tween
	count  int
	apply  func(vals [4]float64)
	target *Node
	Done   bool
}

func newTweenGroup(node *Node, from, to []float64, duration float32, fn ease.TweenFunc, apply func([4]float64)) *TweenGroup {
	g := &TweenGroup{count: len(from), target: node, apply: apply}
	for i := range from {
		g.tweens[i] = gween.New(float32(from[i]), float32(to[i]), duration, fn)
	}
	return g
}

// Update advances all tweens by dt seconds and applies the values.
func (g *TweenGroup) Update(dt float32) {
	if g.Done {
		return
	}
	if g.target != nil && g.target.IsDisposed() {
		g.Done = true
		return
	}

	var vals [4]float64
	allDone := true
	for i := 0; i < g.count; i++ {
		val, finished := g.tweens[i].Update(dt)
		vals[i] = float64(val)
		if !finished {
			allDone = false
		}
	}
	g.apply(vals)
	g.Done = allDone
}

// TweenPosition animates node.X and node.Y.
func TweenPosition(node *Node, toX, toY float64, duration float32, fn ease.TweenFunc) *TweenGroup {
	return newTweenGroup(node, []float64{node.X, node.Y}, []float64{toX, toY}, duration, fn,
		func(v [4]float64) { node.X, node.Y = v[0], v[1] })
}

// TweenScale animates node.ScaleX and node.ScaleY.
func TweenScale(node *Node, toSX, toSY float64, duration float32, fn ease.TweenFunc) *TweenGroup {
	return newTweenGroup(node, []float64{node.ScaleX, node.ScaleY}, []float64{toSX, toSY}, duration, fn,
		func(v [4]float64) { node.ScaleX, node.ScaleY = v[0], v[1] })
}

// TweenRotation animates node.Rotation, in radians.
func TweenRotation(node *Node, to float64, duration float32, fn ease.TweenFunc) *TweenGroup {
	return newTweenGroup(node, []float64{node.Rotation}, []float64{to}, duration, fn,
		func(v [4]float64) { node.Rotation = v[0] })
}

// TweenAlpha animates node.Alpha.
func TweenAlpha(node *Node, to float64, duration float32, fn ease.TweenFunc) *TweenGroup {
	return newTweenGroup(node, []float64{node.Alpha}, []float64{to}, duration, fn,
		func(v [4]float64) { node.Alpha = v[0] })
}

// TweenColor animates all four components of node.Color.
func TweenColor(node *Node, to Color, duration float32, fn ease.TweenFunc) *TweenGroup {
	c := node.Color
	return newTweenGroup(node, []float64{c.R, c.G, c.B, c.A}, []float64{to.R, to.G, to.B, to.A}, duration, fn,
		func(v [4]float64) { node.Color = Color{R: v[0], G: v[1], B: v[2], A: v[3]} })
}

// TweenZLevel moves a node between depth levels. Values are rounded, and
// each change of level invalidates the scene's analysis.
func TweenZLevel(node *Node, to int32, duration float32, fn ease.TweenFunc) *TweenGroup {
	return newTweenGroup(node, []float64{float64(node.zLevel)}, []float64{float64(to)}, duration, fn,
		func(v [4]float64) { node.SetZLevel(int32(math.Round(v[0]))) })
}
