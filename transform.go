package linden

import "math"

// affine is a 2D affine matrix [a, b, c, d, tx, ty]:
//
//	| a  c  tx |
//	| b  d  ty |
//	| 0  0   1 |
type affine [6]float64

var identityAffine = affine{1, 0, 0, 1, 0, 0}

// localTransform composes the node's local matrix:
//
//	Translate(-PivotX, -PivotY) -> Scale -> Skew -> Rotate -> Translate(X, Y)
func localTransform(n *Node) affine {
	if n.isIdentity() {
		return identityAffine
	}
	sx, sy := n.ScaleX, n.ScaleY
	sin, cos := math.Sincos(n.Rotation)

	var tanX, tanY float64
	if n.SkewX != 0 {
		tanX = math.Tan(n.SkewX)
	}
	if n.SkewY != 0 {
		tanY = math.Tan(n.SkewY)
	}

	a, b := sx, tanY*sx
	c, d := tanX*sy, sy
	tx := -n.PivotX*sx - tanX*n.PivotY*sy
	ty := -tanY*n.PivotX*sx - n.PivotY*sy

	return affine{
		cos*a - sin*b,
		sin*a + cos*b,
		cos*c - sin*d,
		sin*c + cos*d,
		cos*tx - sin*ty + n.X,
		sin*tx + cos*ty + n.Y,
	}
}

// isIdentity reports whether the node's local transform leaves coordinates
// unchanged.
func (n *Node) isIdentity() bool {
	return n.X == 0 && n.Y == 0 && n.ScaleX == 1 && n.ScaleY == 1 &&
		n.Rotation == 0 && n.SkewX == 0 && n.SkewY == 0 && n.PivotX == 0 && n.PivotY == 0
}

// mul returns p * c.
func (p affine) mul(c affine) affine {
	return affine{
		p[0]*c[0] + p[2]*c[1],
		p[1]*c[0] + p[3]*c[1],
		p[0]*c[2] + p[2]*c[3],
		p[1]*c[2] + p[3]*c[3],
		p[0]*c[4] + p[2]*c[5] + p[4],
		p[1]*c[4] + p[3]*c[5] + p[5],
	}
}

// inverse returns the inverse of m, or the identity if m is singular.
func (m affine) inverse() affine {
	det := m[0]*m[3] - m[2]*m[1]
	if det > -1e-12 && det < 1e-12 {
		return identityAffine
	}
	inv := 1.0 / det
	a, b := m[3]*inv, -m[1]*inv
	c, d := -m[2]*inv, m[0]*inv
	return affine{a, b, c, d, -(a*m[4] + c*m[5]), -(b*m[4] + d*m[5])}
}

func (m affine) apply(x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

// transformStack mirrors the transform pushes and pops of a linearization
// replay. Entering a node pushes its world matrix and stores it on the node.
type transformStack struct {
	matrices []affine
	alphas   []float64
}

func (s *transformStack) reset() {
	s.matrices = s.matrices[:0]
	s.alphas = s.alphas[:0]
}

func (s *transformStack) push(n *Node) {
	parent, alpha := identityAffine, 1.0
	if k := len(s.matrices); k > 0 {
		parent, alpha = s.matrices[k-1], s.alphas[k-1]
	}
	n.worldTransform = parent.mul(localTransform(n))
	n.worldAlpha = alpha * n.Alpha
	s.matrices = append(s.matrices, n.worldTransform)
	s.alphas = append(s.alphas, n.worldAlpha)
}

func (s *transformStack) pop() {
	if k := len(s.matrices); k > 0 {
		s.matrices = s.matrices[:k-1]
		s.alphas = s.alphas[:k-1]
	}
}

func (s *transformStack) depth() int {
	return len(s.matrices)
}

// --- Transform property setters ---

// SetPosition sets the node's local X and Y.
func (n *Node) SetPosition(x, y float64) {
	n.X, n.Y = x, y
}

// SetScale sets the node's ScaleX and ScaleY.
func (n *Node) SetScale(sx, sy float64) {
	n.ScaleX, n.ScaleY = sx, sy
}

// SetRotation sets the node's rotation in radians.
func (n *Node) SetRotation(r float64) {
	n.Rotation = r
}

// SetSkew sets the node's SkewX and SkewY.
func (n *Node) SetSkew(sx, sy float64) {
	n.SkewX, n.SkewY = sx, sy
}

// SetPivot sets the node's PivotX and PivotY.
func (n *Node) SetPivot(px, py float64) {
	n.PivotX, n.PivotY = px, py
}

// --- Coordinate conversion ---

// WorldToLocal converts a world-space point to this node's local space, using
// the world transform of the most recent replay that entered the node.
func (n *Node) WorldToLocal(wx, wy float64) (lx, ly float64) {
	return n.worldTransform.inverse().apply(wx, wy)
}

// LocalToWorld converts a local-space point to world space.
func (n *Node) LocalToWorld(lx, ly float64) (wx, wy float64) {
	return n.worldTransform.apply(lx, ly)
}

// WorldTransform returns the node's world matrix as of the last replay.
func (n *Node) WorldTransform() [6]float64 {
	return n.worldTransform
}
