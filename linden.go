package linden

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/phanxgames/linden/analysis"
)

// Color represents an RGBA color with components in [0, 1]. Not premultiplied.
// Premultiplication happens when a command is submitted.
type Color struct {
	R, G, B, A float64
}

// ColorWhite is the default tint.
var ColorWhite = Color{1, 1, 1, 1}

// toRGBA converts c to a premultiplied color.RGBA.
func (c Color) toRGBA() color.RGBA {
	return color.RGBA{
		R: uint8(clamp01(c.R*c.A) * 255),
		G: uint8(clamp01(c.G*c.A) * 255),
		B: uint8(clamp01(c.B*c.A) * 255),
		A: uint8(clamp01(c.A) * 255),
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Vec2 is a 2D vector.
type Vec2 struct {
	X, Y float64
}

// WhitePixel is a 1x1 white image. Sprites without an image draw it, scaled
// by ScaleX and ScaleY, as a solid rectangle.
var WhitePixel *ebiten.Image

func init() {
	WhitePixel = ebiten.NewImage(1, 1)
	WhitePixel.Fill(ColorWhite.toRGBA())
}

// Rect is an axis-aligned rectangle with its origin at the top-left.
type Rect struct {
	X, Y, Width, Height float64
}

// Contains reports whether (x, y) lies inside the rectangle, edges included.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width &&
		y >= r.Y && y <= r.Y+r.Height
}

// BlendMode selects a compositing operation.
type BlendMode uint8

const (
	BlendNormal   BlendMode = iota // source-over
	BlendAdd                       // additive
	BlendMultiply                  // source * destination
	BlendScreen                    // 1 - (1-src)*(1-dst)
	BlendErase                     // destination-out
	BlendNone                      // opaque copy, blending disabled
)

// EbitenBlend returns the ebiten.Blend value for b.
func (b BlendMode) EbitenBlend() ebiten.Blend {
	switch b {
	case BlendAdd:
		return ebiten.BlendLighter
	case BlendMultiply:
		return ebiten.Blend{
			BlendFactorSourceRGB:        ebiten.BlendFactorDestinationColor,
			BlendFactorSourceAlpha:      ebiten.BlendFactorDestinationAlpha,
			BlendFactorDestinationRGB:   ebiten.BlendFactorOneMinusSourceAlpha,
			BlendFactorDestinationAlpha: ebiten.BlendFactorOneMinusSourceAlpha,
			BlendOperationRGB:           ebiten.BlendOperationAdd,
			BlendOperationAlpha:         ebiten.BlendOperationAdd,
		}
	case BlendScreen:
		return ebiten.Blend{
			BlendFactorSourceRGB:        ebiten.BlendFactorOne,
			BlendFactorSourceAlpha:      ebiten.BlendFactorOne,
			BlendFactorDestinationRGB:   ebiten.BlendFactorOneMinusSourceColor,
			BlendFactorDestinationAlpha: ebiten.BlendFactorOneMinusSourceAlpha,
			BlendOperationRGB:           ebiten.BlendOperationAdd,
			BlendOperationAlpha:         ebiten.BlendOperationAdd,
		}
	case BlendErase:
		return ebiten.BlendDestinationOut
	case BlendNone:
		return ebiten.BlendCopy
	default:
		return ebiten.BlendSourceOver
	}
}

// blendState is the blending requirement the scheduler sees for b.
func (b BlendMode) blendState() analysis.TriState {
	if b == BlendNone {
		return analysis.Off
	}
	return analysis.On
}

// NodeType distinguishes rendering behavior for a Node.
type NodeType uint8

const (
	NodeTypeContainer NodeType = iota // group node with no visual output
	NodeTypeSprite                    // draws an image or a solid rectangle
)

// EventType identifies a kind of interaction event.
type EventType uint8

const (
	EventPointerDown  EventType = iota // a pointer button was pressed
	EventPointerUp                     // a pointer button was released
	EventPointerMove                   // the pointer moved with no button held
	EventClick                         // press then release over the same node
	EventDragStart                     // movement exceeded the drag dead zone
	EventDrag                          // each frame while dragging
	EventDragEnd                       // release after dragging
	EventPointerEnter                  // the pointer entered a node
	EventPointerLeave                  // the pointer left a node
)

// String returns the event name.
func (e EventType) String() string {
	switch e {
	case EventPointerDown:
		return "pointer-down"
	case EventPointerUp:
		return "pointer-up"
	case EventPointerMove:
		return "pointer-move"
	case EventClick:
		return "click"
	case EventDragStart:
		return "drag-start"
	case EventDrag:
		return "drag"
	case EventDragEnd:
		return "drag-end"
	case EventPointerEnter:
		return "pointer-enter"
	case EventPointerLeave:
		return "pointer-leave"
	default:
		return "unknown"
	}
}

// MouseButton identifies a mouse button.
type MouseButton uint8

const (
	MouseButtonLeft MouseButton = iota
	MouseButtonRight
	MouseButtonMiddle
)

// KeyModifiers is a bitmask of keyboard modifier keys.
type KeyModifiers uint8

const (
	ModShift KeyModifiers = 1 << iota
	ModCtrl
	ModAlt
	ModMeta
)
