package analysis

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func renderFirstTour() VariantConfig {
	return VariantConfig{AcceptFirstTour: true, Costs: DefaultPriceTable()}
}

func TestReplayChain(t *testing.T) {
	root := newTestNode("root")
	a := newTestNode("a")
	b := newTestNode("b")
	a.z, b.z = 3, 1
	root.add(a.add(b))

	_, published, err := runTestJob(Render, root, renderFirstTour())
	require.NoError(t, err)
	require.Len(t, published, 1)

	var rec recordingVisitor
	published[0].Replay(&rec)
	require.Equal(t, []string{
		"enter root", "visit root",
		"enter a", "visit a",
		"enter b", "visit b",
		"exit b", "exit a", "exit root",
	}, rec.events)
}

func TestReplayAcrossSubtrees(t *testing.T) {
	root := newTestNode("root")
	p := newTestNode("p")
	q := newTestNode("q")
	a := newTestNode("a")
	b := newTestNode("b")
	p.draws, q.draws = false, false
	a.z, b.z = 2, 1
	root.add(p.add(a), q.add(b))

	_, published, err := runTestJob(Render, root, renderFirstTour())
	require.NoError(t, err)
	require.Len(t, published, 1)

	var rec recordingVisitor
	published[0].Replay(&rec)
	require.Equal(t, []string{
		"enter root", "visit root",
		"enter p", "enter a", "visit a",
		"exit a", "exit p", "enter q", "enter b", "visit b",
		"exit b", "exit q", "exit root",
	}, rec.events)
}

func TestReplayEmpty(t *testing.T) {
	root := newTestNode("root")
	_, published, err := runTestJob(Render, root, renderFirstTour())
	require.NoError(t, err)
	require.Len(t, published, 1)
	require.True(t, published[0].Empty())

	var rec recordingVisitor
	published[0].Replay(&rec)
	require.Equal(t, []string{"enter root", "visit root", "exit root"}, rec.events)

	var none recordingVisitor
	(&Linearization{}).Replay(&none)
	require.Empty(t, none.events)
}

func TestUnclusterIsIdempotent(t *testing.T) {
	root := newTestNode("root")
	x := newTestNode("x")
	y := newTestNode("y")
	z := newTestNode("z")
	x.tag, y.tag = 7, 7
	root.add(x, y, z)

	_, published, err := runTestJob(Render, root, renderFirstTour())
	require.NoError(t, err)
	require.NotEmpty(t, published)
	clustered := published[len(published)-1]
	require.True(t, clustered.HasClusters())

	once := clustered.Uncluster()
	require.False(t, once.HasClusters())
	for _, p := range once.Paths {
		require.False(t, p.Start.IsCluster())
		require.False(t, p.End.IsCluster())
	}
	twice := once.Uncluster()
	require.Same(t, once, twice)
	require.Equal(t, once.Price, twice.Price)
}

func TestUnclusterPreservesGenerationAndRoot(t *testing.T) {
	root := newTestNode("root")
	x := newTestNode("x")
	y := newTestNode("y")
	x.tag, y.tag = 1, 1
	x.interacts, y.interacts = true, true
	root.add(x, y)

	j, published, err := runTestJob(Interaction, root, VariantConfig{Costs: DefaultPriceTable()})
	require.NoError(t, err)
	require.NotEmpty(t, published)
	require.True(t, published[0].HasClusters())
	u := published[0].Uncluster()
	require.Len(t, u.Paths, 2)
	require.Equal(t, published[0].Generation, u.Generation)
	require.Equal(t, j.root, u.Root)
	require.Equal(t, Interaction, u.Variant)
}

func TestEndsAndStateChanges(t *testing.T) {
	root := newTestNode("root")
	a := newTestNode("a")
	b := newTestNode("b")
	c := newTestNode("c")
	a.z, b.z, c.z = 3, 2, 1
	a.program, b.program, c.program = 1, 2, 2
	a.texture, b.texture, c.texture = 5, 5, 6
	root.add(a, b, c)

	_, published, err := runTestJob(Render, root, renderFirstTour())
	require.NoError(t, err)
	lin := published[len(published)-1]

	var names []string
	for _, n := range lin.Ends() {
		names = append(names, n.View().(*testNode).name)
	}
	require.Equal(t, []string{"root", "a", "b", "c"}, names)
	// a->b switches program, b->c switches texture.
	require.Equal(t, 2, lin.StateChanges())
	require.Equal(t, 3, lin.Len())
	require.Nil(t, (&Linearization{}).Ends())
}

func TestVariantString(t *testing.T) {
	require.Equal(t, "render", Render.String())
	require.Equal(t, "interaction", Interaction.String())
	require.Equal(t, "on", On.String())
	require.Equal(t, "off", Off.String())
	require.Equal(t, "dont-care", DontCare.String())
}
