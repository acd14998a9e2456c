// Package linden is a retained-mode 2D scene graph for [Ebitengine] whose
// draw and hit-test order is chosen by a background scheduler instead of a
// fixed tree walk.
//
// # Quick start
//
//	scene, err := linden.NewScene()
//	if err != nil {
//		log.Fatal(err)
//	}
//	box := linden.NewRect("box", 80, 40, linden.Color{R: 0.3, G: 0.7, B: 1, A: 1})
//	box.SetZLevel(1)
//	scene.Root().AddChild(box)
//	linden.Run(scene, linden.RunConfig{Title: "demo", Width: 640, Height: 480})
//
// For full control, implement [ebiten.Game] yourself, call [Scene.Update]
// and [Scene.Draw], and [Scene.Close] the scene when done.
//
// # Ordering
//
// Every [Node] carries scheduling state: a z-level (higher is farther away
// and draws first), a cluster tag, a blend mode, a depth-test state, and
// the image and shader it draws with. The [analysis] package searches for
// the cheapest order that visits every drawn node back to front while
// minimizing transform pushes and GPU state changes. Draw replays that
// order, so siblings may be drawn out of tree order.
//
// Setters such as [Node.SetZLevel], [Node.SetVisible] and tree edits start
// a new analysis generation. Transform, alpha and color fields are plain
// fields: they change where and how a node draws, never the order, so
// animating them costs nothing in the scheduler.
//
// Draw waits for the current generation's order for at most the frame
// timeout (see [WithFrameTimeout]) and skips the frame otherwise; see
// [Scene.Stats].
//
// # Input
//
// Pointer input is hit-tested against a separate interaction order that
// only contains interactable nodes. Among nodes under the pointer, the one
// with the lowest z-level wins, then the one drawn last. Callbacks are set
// per node ([Node.OnClick], [Node.OnDrag], ...) or per scene
// ([Scene.OnClick], ...). Input can be scripted with [Scene.InjectClick],
// [Scene.InjectDrag] or a TOML [InputScript].
//
// # Animation
//
// Tweens come from [gween]: [TweenPosition], [TweenScale], [TweenAlpha],
// [TweenColor], [TweenRotation] and [TweenZLevel].
//
// [Ebitengine]: https://ebitengine.org
// [gween]: https://github.com/tanema/gween
package linden
