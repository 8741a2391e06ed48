package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cadenza/internal/backend/virtual"
)

func TestBuild_WiresPersistentChainToSink(t *testing.T) {
	c := virtual.New()

	g, err := Build([]NodeSpec{
		{Name: "osc", Factory: &FactorySpec{Kind: "oscillator", Params: map[string]float64{"frequency.value": 440}}, Destination: "amp"},
		{Name: "amp", Factory: &FactorySpec{Kind: "gain"}},
	}, c)
	require.NoError(t, err)

	osc, err := g.Node("osc")
	require.NoError(t, err)
	amp, err := g.Node("amp")
	require.NoError(t, err)

	assert.True(t, c.Connected(osc, amp))
	assert.True(t, c.Connected(amp, c.Destination()))
}

func TestBuild_ResolvesByReferencePath(t *testing.T) {
	c := virtual.New()
	master := c.RegisterNode("master.gain", "gain", nil)

	g, err := Build([]NodeSpec{
		{Name: "master", Ref: "master.gain"},
	}, c)
	require.NoError(t, err)

	got, err := g.Node("master")
	require.NoError(t, err)
	assert.Same(t, master, got)
}

func TestBuild_AcceptsPrebuiltHandle(t *testing.T) {
	c := virtual.New()
	h, err := c.CreateNode("delay", nil)
	require.NoError(t, err)

	g, err := Build([]NodeSpec{
		{Name: "fx", Handle: h},
	}, c)
	require.NoError(t, err)

	got, err := g.Node("fx")
	require.NoError(t, err)
	assert.Same(t, h, got)
}

func TestBuild_SourceConflicts(t *testing.T) {
	c := virtual.New()

	_, err := Build([]NodeSpec{{Name: "bad"}}, c)
	require.Error(t, err)
	assert.True(t, IsConfigError(err))

	h, err2 := c.CreateNode("gain", nil)
	require.NoError(t, err2)
	_, err = Build([]NodeSpec{{Name: "bad", Ref: "x", Handle: h}}, c)
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
}

func TestBuild_CreatedOnPlayRequiresFactory(t *testing.T) {
	c := virtual.New()
	h, err := c.CreateNode("sample", nil)
	require.NoError(t, err)

	_, err = Build([]NodeSpec{{Name: "src", Handle: h, CreatedOnPlay: true}}, c)
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
}

func TestBuild_UnresolvedDestinationIsAllOrNothing(t *testing.T) {
	c := virtual.New()

	_, err := Build([]NodeSpec{
		{Name: "osc", Factory: &FactorySpec{Kind: "oscillator"}, Destination: "ghost"},
	}, c)
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
	assert.Empty(t, c.Ops(), "no backend state created by a failed build")
}

func TestBuild_DuplicateName(t *testing.T) {
	c := virtual.New()

	_, err := Build([]NodeSpec{
		{Name: "amp", Factory: &FactorySpec{Kind: "gain"}},
		{Name: "amp", Factory: &FactorySpec{Kind: "gain"}},
	}, c)
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
}

func TestBuild_CycleDetected(t *testing.T) {
	c := virtual.New()

	_, err := Build([]NodeSpec{
		{Name: "a", Factory: &FactorySpec{Kind: "gain"}, Destination: "b"},
		{Name: "b", Factory: &FactorySpec{Kind: "gain"}, Destination: "a"},
	}, c)
	require.Error(t, err)
	assert.True(t, IsConfigError(err))

	_, err = Build([]NodeSpec{
		{Name: "self", Factory: &FactorySpec{Kind: "gain"}, Destination: "self"},
	}, c)
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
}

func TestBuild_DeferredConnectionIsNotWired(t *testing.T) {
	c := virtual.New()

	g, err := Build([]NodeSpec{
		{Name: "src", Factory: &FactorySpec{Kind: "sample"}, CreatedOnPlay: true, Destination: "amp"},
		{Name: "amp", Factory: &FactorySpec{Kind: "gain"}},
	}, c)
	require.NoError(t, err)

	// The deferred connection exists but has no node yet.
	conn, err := g.Connection("src")
	require.NoError(t, err)
	assert.True(t, conn.CreatedOnPlay())
	assert.Nil(t, conn.Node())

	_, err = g.Node("src")
	assert.True(t, IsNotFound(err))

	// Only the persistent edge amp -> sink exists.
	amp, err := g.Node("amp")
	require.NoError(t, err)
	assert.True(t, c.Connected(amp, c.Destination()))
}

func TestGraph_LookupUnknown(t *testing.T) {
	c := virtual.New()
	g, err := Build(nil, c)
	require.NoError(t, err)

	_, err = g.Connection("nope")
	assert.True(t, IsNotFound(err))
	_, err = g.Node("nope")
	assert.True(t, IsNotFound(err))
}

func TestConnection_MaterializeCreatesFreshNodes(t *testing.T) {
	c := virtual.New()
	g, err := Build([]NodeSpec{
		{Name: "src", Factory: &FactorySpec{Kind: "sample"}, CreatedOnPlay: true},
	}, c)
	require.NoError(t, err)

	conn, err := g.Connection("src")
	require.NoError(t, err)

	n1, err := conn.Materialize(c)
	require.NoError(t, err)
	n2, err := conn.Materialize(c)
	require.NoError(t, err)
	assert.NotSame(t, n1, n2)
}

func TestConnection_QueueIsNeverNil(t *testing.T) {
	c := virtual.New()
	g, err := Build([]NodeSpec{
		{Name: "amp", Factory: &FactorySpec{Kind: "gain"}},
	}, c)
	require.NoError(t, err)

	conn, err := g.Connection("amp")
	require.NoError(t, err)
	require.NotNil(t, conn.Queue())
	assert.True(t, conn.Queue().Empty())
}
