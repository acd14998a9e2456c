package analysis

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

// bruteLCA intersects ancestor sets the slow way.
func bruteLCA(a, b *AnalysisNode) *AnalysisNode {
	ancestors := make(map[*AnalysisNode]bool)
	for _, n := range a.PathToRoot() {
		ancestors[n] = true
	}
	for _, n := range b.PathToRoot() {
		if ancestors[n] {
			return n
		}
	}
	return nil
}

func TestComputePathMatchesBruteForceLCA(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for iter := 0; iter < 50; iter++ {
		root, nodes := randomTree(rng, 2+rng.Intn(14), false)
		_, byView := buildArena(root)
		for _, x := range nodes {
			for _, y := range nodes {
				if x == y {
					continue
				}
				a, b := byView[x], byView[y]
				p, ok := computePath(a, b)
				require.True(t, ok)
				want := bruteLCA(a, b)
				require.Equal(t, want, p.SharedAncestor())
				require.Equal(t, a, p.Up[0])
				require.Equal(t, want, p.Down[0])
				require.Equal(t, b, p.Down[len(p.Down)-1])
				require.Equal(t, a.Depth()-want.Depth()+1, len(p.Up))
				require.Equal(t, b.Depth()-want.Depth()+1, len(p.Down))
			}
		}
	}
}

func TestComputePathAncestorAndDescendant(t *testing.T) {
	root := newTestNode("root")
	a := newTestNode("a")
	b := newTestNode("b")
	root.add(a.add(b))
	_, byView := buildArena(root)

	down, ok := computePath(byView[a], byView[b])
	require.True(t, ok)
	require.Equal(t, []*AnalysisNode{byView[a]}, down.Up)
	require.Equal(t, []*AnalysisNode{byView[a], byView[b]}, down.Down)

	up, ok := computePath(byView[b], byView[a])
	require.True(t, ok)
	require.Equal(t, []*AnalysisNode{byView[b], byView[a]}, up.Up)
	require.Equal(t, []*AnalysisNode{byView[a]}, up.Down)
}

func TestComputePathAcrossTreesIsInvalid(t *testing.T) {
	_, left := buildArena(newTestNode("left"))
	r := newTestNode("right")
	_, right := buildArena(r)
	var l *AnalysisNode
	for _, n := range left {
		l = n
	}
	_, ok := computePath(l, right[r])
	require.False(t, ok)
}

func TestRenderPriceRootPathUsesZLevel(t *testing.T) {
	root := newTestNode("root")
	a := newTestNode("a")
	a.z = 6
	a.transforms = true
	root.add(a)
	_, byView := buildArena(root)

	p, ok := newPricedPath(byView[root], byView[a], renderPricer{costs: DefaultPriceTable()})
	require.True(t, ok)
	require.Equal(t, int32(-6), p.Price)
}

func TestRenderPriceTransforms(t *testing.T) {
	// root -> p -> a, root -> q -> b; all transform.
	root := newTestNode("root")
	p := newTestNode("p")
	q := newTestNode("q")
	a := newTestNode("a")
	b := newTestNode("b")
	for _, n := range []*testNode{p, q, a, b} {
		n.transforms = true
	}
	root.add(p.add(a), q.add(b))
	_, byView := buildArena(root)

	costs := DefaultPriceTable()
	path, ok := newPricedPath(byView[a], byView[b], renderPricer{costs: costs})
	require.True(t, ok)
	// up exits a and p, down enters q and b.
	require.Equal(t, 2*costs.UpTransform+2*costs.DownTransform, path.Price)
}

func TestRenderPriceStateChanges(t *testing.T) {
	costs := DefaultPriceTable()
	cases := []struct {
		name  string
		setup func(s, e *testNode)
		want  int32
	}{
		{"none", func(s, e *testNode) {}, 0},
		{"program", func(s, e *testNode) { s.program, e.program = 1, 2 }, costs.Program},
		{"program unset", func(s, e *testNode) { s.program = 1 }, 0},
		{"texture", func(s, e *testNode) { s.texture, e.texture = 1, 2 }, costs.Texture},
		{"blend", func(s, e *testNode) { s.blend, e.blend = On, Off }, costs.Blend},
		{"blend dont care", func(s, e *testNode) { s.blend = On }, 0},
		{"depth", func(s, e *testNode) { s.depth, e.depth = Off, On }, costs.DepthTest},
		{"all", func(s, e *testNode) {
			s.program, e.program = 1, 2
			s.texture, e.texture = 3, 4
			s.blend, e.blend = Off, On
			s.depth, e.depth = On, Off
		}, costs.Program + costs.Texture + costs.Blend + costs.DepthTest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			root := newTestNode("root")
			s := newTestNode("s")
			e := newTestNode("e")
			tc.setup(s, e)
			root.add(s, e)
			_, byView := buildArena(root)
			p, ok := newPricedPath(byView[s], byView[e], renderPricer{costs: costs})
			require.True(t, ok)
			require.Equal(t, tc.want, p.Price)
		})
	}
}

func TestRenderPriceZOrder(t *testing.T) {
	root := newTestNode("root")
	far := newTestNode("far")
	near := newTestNode("near")
	far.z, near.z = 5, 1
	root.add(far, near)
	_, byView := buildArena(root)
	pr := renderPricer{costs: DefaultPriceTable()}

	_, ok := newPricedPath(byView[near], byView[far], pr)
	require.False(t, ok, "drawing the farther node after the nearer one is excluded")

	p, ok := computePath(byView[near], byView[far])
	require.True(t, ok)
	price, penalized := pr.price(p)
	require.True(t, penalized)
	require.Equal(t, ZPenalty, price)

	p, ok = newPricedPath(byView[far], byView[near], pr)
	require.True(t, ok)
	require.Equal(t, int32(0), p.Price)
}

func TestRenderPriceOverwrite(t *testing.T) {
	root := newTestNode("root")
	far := newTestNode("far")
	near := newTestNode("near")
	far.z, near.z = 5, 1
	near.blend, near.depth = Off, On
	root.add(far, near)
	_, byView := buildArena(root)

	costs := DefaultPriceTable()
	p, ok := newPricedPath(byView[far], byView[near], renderPricer{costs: costs})
	require.True(t, ok)
	require.Equal(t, costs.Overwrite, p.Price)
}

func TestInteractionPriceIgnoresRenderState(t *testing.T) {
	root := newTestNode("root")
	s := newTestNode("s")
	e := newTestNode("e")
	s.z, e.z = 1, 5
	s.program, e.program = 1, 2
	s.blend, e.blend = On, Off
	e.transforms = true
	root.add(s, e)
	_, byView := buildArena(root)

	costs := DefaultPriceTable()
	p, ok := newPricedPath(byView[s], byView[e], interactionPricer{costs: costs})
	require.True(t, ok)
	require.Equal(t, costs.DownTransform, p.Price)
}

func TestCostlyPathIsNotMistakenForPenalty(t *testing.T) {
	root := newTestNode("root")
	mid := newTestNode("mid")
	a := newTestNode("a")
	b := newTestNode("b")
	a.z, b.z = 2, 1
	mid.transforms, b.transforms = true, true
	root.add(a, mid.add(b))
	_, byView := buildArena(root)

	costs := DefaultPriceTable()
	costs.DownTransform = ZPenalty - 1
	p, ok := newPricedPath(byView[a], byView[b], renderPricer{costs: costs})
	require.True(t, ok, "a legitimate path above the penalty stays a candidate")
	require.Greater(t, p.Price, ZPenalty)
}
