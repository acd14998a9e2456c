package linden

import (
	"context"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/phanxgames/linden/analysis"
	"go.uber.org/zap"
)

const defaultDragDeadZone = 4.0 // pixels

// HitRect is an axis-aligned hit area in local coordinates.
type HitRect struct {
	X, Y, Width, Height float64
}

// Contains reports whether (x, y) lies inside the rectangle.
func (r HitRect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width &&
		y >= r.Y && y <= r.Y+r.Height
}

// HitCircle is a circular hit area in local coordinates.
type HitCircle struct {
	CenterX, CenterY, Radius float64
}

// Contains reports whether (x, y) lies inside or on the circle.
func (c HitCircle) Contains(x, y float64) bool {
	dx := x - c.CenterX
	dy := y - c.CenterY
	return dx*dx+dy*dy <= c.Radius*c.Radius
}

// HitPolygon is a convex polygon hit area in local coordinates, in either
// winding order.
type HitPolygon struct {
	Points []Vec2
}

// Contains reports whether (x, y) is on the same side of every edge.
func (p HitPolygon) Contains(x, y float64) bool {
	n := len(p.Points)
	if n < 3 {
		return false
	}
	var positive, negative bool
	for i := 0; i < n; i++ {
		a, b := p.Points[i], p.Points[(i+1)%n]
		cross := (b.X-a.X)*(y-a.Y) - (b.Y-a.Y)*(x-a.X)
		if cross > 0 {
			positive = true
		} else if cross < 0 {
			negative = true
		}
		if positive && negative {
			return false
		}
	}
	return true
}

type pointerState struct {
	down      bool
	startX    float64
	startY    float64
	lastX     float64
	lastY     float64
	hitNode   *Node
	hoverNode *Node
	dragging  bool
	button    MouseButton
}

// --- Handler registry ---

type handlerEntry[T any] struct {
	id uint32
	fn func(T)
}

type handlerList[T any] []handlerEntry[T]

func (l *handlerList[T]) remove(id uint32) {
	s := *l
	for i := range s {
		if s[i].id == id {
			copy(s[i:], s[i+1:])
			s[len(s)-1] = handlerEntry[T]{}
			*l = s[:len(s)-1]
			return
		}
	}
}

func (l handlerList[T]) fire(ctx T) {
	for _, h := range l {
		h.fn(ctx)
	}
}

type handlerRegistry struct {
	pointerDown  handlerList[PointerContext]
	pointerUp    handlerList[PointerContext]
	pointerMove  handlerList[PointerContext]
	pointerEnter handlerList[PointerContext]
	pointerLeave handlerList[PointerContext]
	click        handlerList[ClickContext]
	dragStart    handlerList[DragContext]
	drag         handlerList[DragContext]
	dragEnd      handlerList[DragContext]
	nextID       uint32
}

// CallbackHandle removes a registered scene-level callback.
type CallbackHandle struct {
	remove func()
}

// Remove unregisters the callback. Safe to call on a zero handle.
func (h CallbackHandle) Remove() {
	if h.remove != nil {
		h.remove()
	}
}

func register[T any](r *handlerRegistry, l *handlerList[T], fn func(T)) CallbackHandle {
	r.nextID++
	id := r.nextID
	*l = append(*l, handlerEntry[T]{id: id, fn: fn})
	return CallbackHandle{remove: func() { l.remove(id) }}
}

// OnPointerDown registers a scene-level callback for pointer down events.
func (s *Scene) OnPointerDown(fn func(PointerContext)) CallbackHandle {
	return register(&s.handlers, &s.handlers.pointerDown, fn)
}

// OnPointerUp registers a scene-level callback for pointer up events.
func (s *Scene) OnPointerUp(fn func(PointerContext)) CallbackHandle {
	return register(&s.handlers, &s.handlers.pointerUp, fn)
}

// OnPointerMove registers a scene-level callback for hover moves.
func (s *Scene) OnPointerMove(fn func(PointerContext)) CallbackHandle {
	return register(&s.handlers, &s.handlers.pointerMove, fn)
}

// OnPointerEnter registers a scene-level callback fired when the pointer
// moves onto a node.
func (s *Scene) OnPointerEnter(fn func(PointerContext)) CallbackHandle {
	return register(&s.handlers, &s.handlers.pointerEnter, fn)
}

// OnPointerLeave registers a scene-level callback fired when the pointer
// moves off a node.
func (s *Scene) OnPointerLeave(fn func(PointerContext)) CallbackHandle {
	return register(&s.handlers, &s.handlers.pointerLeave, fn)
}

// OnClick registers a scene-level callback for click events.
func (s *Scene) OnClick(fn func(ClickContext)) CallbackHandle {
	return register(&s.handlers, &s.handlers.click, fn)
}

// OnDragStart registers a scene-level callback for drag start events.
func (s *Scene) OnDragStart(fn func(DragContext)) CallbackHandle {
	return register(&s.handlers, &s.handlers.dragStart, fn)
}

// OnDrag registers a scene-level callback for drag events.
func (s *Scene) OnDrag(fn func(DragContext)) CallbackHandle {
	return register(&s.handlers, &s.handlers.drag, fn)
}

// OnDragEnd registers a scene-level callback for drag end events.
func (s *Scene) OnDragEnd(fn func(DragContext)) CallbackHandle {
	return register(&s.handlers, &s.handlers.dragEnd, fn)
}

// CapturePointer routes all pointer events to node until release.
func (s *Scene) CapturePointer(node *Node) {
	s.captured = node
}

// ReleasePointer stops routing pointer events to a captured node.
func (s *Scene) ReleasePointer() {
	s.captured = nil
}

// SetDragDeadZone sets the minimum movement in pixels before a drag starts.
func (s *Scene) SetDragDeadZone(pixels float64) {
	s.dragDead = pixels
}

// --- Hit testing ---

// nodeContainsLocal tests (lx, ly) against the node's hit shape, or the
// bounds of its image.
func nodeContainsLocal(n *Node, lx, ly float64) bool {
	if n.hitShape != nil {
		return n.hitShape.Contains(lx, ly)
	}
	if n.image == nil {
		return false
	}
	b := n.image.Bounds()
	return lx >= 0 && lx <= float64(b.Dx()) && ly >= 0 && ly <= float64(b.Dy())
}

// interactionVisitor replays an interaction linearization and picks the
// topmost node under a point: the nearest z-level first, then the node
// drawn last.
type interactionVisitor struct {
	stack  transformStack
	wx, wy float64
	best   *Node
}

func (v *interactionVisitor) EnterTransform(n analysis.NodeView) {
	v.stack.push(n.(*Node))
}

func (v *interactionVisitor) ExitTransform(analysis.NodeView) {
	v.stack.pop()
}

func (v *interactionVisitor) Visit(view analysis.NodeView) {
	n := view.(*Node)
	if n.disposed || !n.HandlesInteraction() {
		return
	}
	lx, ly := n.WorldToLocal(v.wx, v.wy)
	if !nodeContainsLocal(n, lx, ly) {
		return
	}
	if v.best == nil || above(n, v.best) {
		v.best = n
	}
}

// above reports whether a is on top of b.
func above(a, b *Node) bool {
	if a.zLevel != b.zLevel {
		return a.zLevel < b.zLevel
	}
	return a.drawSeq >= b.drawSeq
}

func (v *interactionVisitor) hitTest(lin *analysis.Linearization, wx, wy float64) *Node {
	v.stack.reset()
	v.wx, v.wy = wx, wy
	v.best = nil
	lin.Replay(v)
	hit := v.best
	v.best = nil
	return hit
}

// hitTest finds the topmost interactable node at (wx, wy). ok is false if
// no interaction linearization was available this frame.
func (s *Scene) hitTest(wx, wy float64) (hit *Node, ok bool) {
	ctx, cancel := context.WithTimeout(context.Background(), s.frameTimeout)
	defer cancel()
	lin := s.analysor.InteractionLinearization(ctx, s.root)
	if lin == nil {
		return nil, false
	}
	return s.interact.hitTest(lin, wx, wy), true
}

// --- Input processing ---

func readModifiers() KeyModifiers {
	var mods KeyModifiers
	if ebiten.IsKeyPressed(ebiten.KeyShift) {
		mods |= ModShift
	}
	if ebiten.IsKeyPressed(ebiten.KeyControl) {
		mods |= ModCtrl
	}
	if ebiten.IsKeyPressed(ebiten.KeyAlt) {
		mods |= ModAlt
	}
	if ebiten.IsKeyPressed(ebiten.KeyMeta) {
		mods |= ModMeta
	}
	return mods
}

// processInput feeds one injected event if any is queued, otherwise the
// real mouse state, through the pointer state machine.
func (s *Scene) processInput() {
	if len(s.injectQueue) > 0 {
		evt := s.injectQueue[0]
		copy(s.injectQueue, s.injectQueue[1:])
		s.injectQueue = s.injectQueue[:len(s.injectQueue)-1]
		s.processPointer(evt.x, evt.y, evt.pressed, evt.button, 0)
		return
	}

	mx, my := ebiten.CursorPosition()
	var pressed bool
	var button MouseButton
	switch {
	case ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft):
		pressed, button = true, MouseButtonLeft
	case ebiten.IsMouseButtonPressed(ebiten.MouseButtonRight):
		pressed, button = true, MouseButtonRight
	case ebiten.IsMouseButtonPressed(ebiten.MouseButtonMiddle):
		pressed, button = true, MouseButtonMiddle
	}
	s.processPointer(float64(mx), float64(my), pressed, button, readModifiers())
}

// processPointer runs the pointer state machine for one frame.
func (s *Scene) processPointer(wx, wy float64, pressed bool, button MouseButton, mods KeyModifiers) {
	ps := &s.pointer

	target := s.captured
	if target == nil {
		hit, ok := s.hitTest(wx, wy)
		if !ok {
			if s.debug {
				s.logger.Debug("input skipped, no interaction linearization",
					zap.Int32("generation", s.analysor.Generation()))
			}
			return
		}
		target = hit
	}

	if target != ps.hoverNode {
		if ps.hoverNode != nil {
			s.firePointer(EventPointerLeave, ps.hoverNode, wx, wy, button, mods)
		}
		if target != nil {
			s.firePointer(EventPointerEnter, target, wx, wy, button, mods)
		}
		ps.hoverNode = target
	}

	switch {
	case pressed && !ps.down:
		ps.down = true
		ps.button = button
		ps.startX, ps.startY = wx, wy
		ps.lastX, ps.lastY = wx, wy
		ps.hitNode = target
		ps.dragging = false
		s.firePointer(EventPointerDown, target, wx, wy, button, mods)

	case !pressed && ps.down:
		if ps.dragging {
			s.fireDrag(EventDragEnd, ps.hitNode, wx, wy, wx-ps.lastX, wy-ps.lastY, mods)
		} else if ps.hitNode != nil && ps.hitNode == target {
			s.firePointer(EventClick, target, wx, wy, ps.button, mods)
		}
		s.firePointer(EventPointerUp, target, wx, wy, ps.button, mods)
		s.captured = nil
		ps.down = false
		ps.hitNode = nil
		ps.dragging = false

	case pressed && ps.down:
		if wx != ps.lastX || wy != ps.lastY {
			if !ps.dragging && math.Hypot(wx-ps.startX, wy-ps.startY) > s.dragDead {
				ps.dragging = true
				s.fireDrag(EventDragStart, ps.hitNode, wx, wy, wx-ps.startX, wy-ps.startY, mods)
			}
			if ps.dragging {
				s.fireDrag(EventDrag, ps.hitNode, wx, wy, wx-ps.lastX, wy-ps.lastY, mods)
			}
		}
		ps.lastX, ps.lastY = wx, wy

	default:
		if wx != ps.lastX || wy != ps.lastY {
			s.firePointer(EventPointerMove, target, wx, wy, button, mods)
			ps.lastX, ps.lastY = wx, wy
		}
	}
}

// --- Event dispatch ---

func (s *Scene) pointerContext(node *Node, wx, wy float64, button MouseButton, mods KeyModifiers) PointerContext {
	ctx := PointerContext{GlobalX: wx, GlobalY: wy, Button: button, Modifiers: mods}
	if node != nil {
		ctx.Node = node
		ctx.EntityID = node.EntityID
		ctx.UserData = node.UserData
		ctx.LocalX, ctx.LocalY = node.WorldToLocal(wx, wy)
	}
	return ctx
}

// firePointer runs scene-level handlers, then the node callback, then the
// ECS bridge.
func (s *Scene) firePointer(typ EventType, node *Node, wx, wy float64, button MouseButton, mods KeyModifiers) {
	ctx := s.pointerContext(node, wx, wy, button, mods)
	var cb func(PointerContext)
	switch typ {
	case EventPointerDown:
		s.handlers.pointerDown.fire(ctx)
		if node != nil {
			cb = node.OnPointerDown
		}
	case EventPointerUp:
		s.handlers.pointerUp.fire(ctx)
		if node != nil {
			cb = node.OnPointerUp
		}
	case EventPointerMove:
		s.handlers.pointerMove.fire(ctx)
		if node != nil {
			cb = node.OnPointerMove
		}
	case EventPointerEnter:
		s.handlers.pointerEnter.fire(ctx)
		if node != nil {
			cb = node.OnPointerEnter
		}
	case EventPointerLeave:
		s.handlers.pointerLeave.fire(ctx)
		if node != nil {
			cb = node.OnPointerLeave
		}
	case EventClick:
		s.handlers.click.fire(ctx)
		if node != nil {
			cb = node.OnClick
		}
	}
	if cb != nil {
		cb(ctx)
	}
	s.emitInteractionEvent(typ, ctx, DragContext{})
}

func (s *Scene) fireDrag(typ EventType, node *Node, wx, wy, dx, dy float64, mods KeyModifiers) {
	ps := &s.pointer
	ctx := DragContext{
		PointerContext: s.pointerContext(node, wx, wy, ps.button, mods),
		StartX:         ps.startX,
		StartY:         ps.startY,
		DeltaX:         dx,
		DeltaY:         dy,
	}
	var cb func(DragContext)
	switch typ {
	case EventDragStart:
		s.handlers.dragStart.fire(ctx)
		if node != nil {
			cb = node.OnDragStart
		}
	case EventDrag:
		s.handlers.drag.fire(ctx)
		if node != nil {
			cb = node.OnDrag
		}
	case EventDragEnd:
		s.handlers.dragEnd.fire(ctx)
		if node != nil {
			cb = node.OnDragEnd
		}
	}
	if cb != nil {
		cb(ctx)
	}
	s.emitInteractionEvent(typ, ctx.PointerContext, ctx)
}

// emitInteractionEvent forwards an event for a node with an EntityID to the
// entity store.
func (s *Scene) emitInteractionEvent(typ EventType, ctx PointerContext, drag DragContext) {
	if s.store == nil || ctx.Node == nil || ctx.EntityID == 0 {
		return
	}
	s.store.EmitEvent(InteractionEvent{
		Type:      typ,
		EntityID:  ctx.EntityID,
		GlobalX:   ctx.GlobalX,
		GlobalY:   ctx.GlobalY,
		LocalX:    ctx.LocalX,
		LocalY:    ctx.LocalY,
		Button:    ctx.Button,
		Modifiers: ctx.Modifiers,
		StartX:    drag.StartX,
		StartY:    drag.StartY,
		DeltaX:    drag.DeltaX,
		DeltaY:    drag.DeltaY,
	})
}
