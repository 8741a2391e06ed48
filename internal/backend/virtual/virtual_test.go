package virtual

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cadenza/internal/backend"
)

func TestContext_CreateNode_NamesPerKind(t *testing.T) {
	c := New()

	n1, err := c.CreateNode("oscillator", nil)
	require.NoError(t, err)
	n2, err := c.CreateNode("oscillator", nil)
	require.NoError(t, err)
	g, err := c.CreateNode("gain", map[string]float64{"gain.value": 1})
	require.NoError(t, err)

	assert.Equal(t, "oscillator#1", n1.(*node).Name())
	assert.Equal(t, "oscillator#2", n2.(*node).Name())
	assert.Equal(t, "gain#1", g.(*node).Name())
	assert.Equal(t, "gain", g.Kind())
}

func TestContext_Lookup(t *testing.T) {
	c := New()
	reg := c.RegisterNode("master.gain", "gain", nil)

	got, err := c.Lookup("master.gain")
	require.NoError(t, err)
	assert.Same(t, reg, got)

	_, err = c.Lookup("nope")
	assert.ErrorIs(t, err, ErrUnknownNode)
}

func TestContext_ConnectDisconnect(t *testing.T) {
	c := New()
	src, err := c.CreateNode("oscillator", nil)
	require.NoError(t, err)

	require.NoError(t, c.Connect(src, c.Destination()))
	assert.True(t, c.Connected(src, c.Destination()))

	// Duplicate edge is rejected.
	err = c.Connect(src, c.Destination())
	assert.ErrorIs(t, err, ErrEdgeExists)

	require.NoError(t, c.Disconnect(src, c.Destination()))
	assert.False(t, c.Connected(src, c.Destination()))

	// Double disconnect surfaces as a missing edge.
	err = c.Disconnect(src, c.Destination())
	assert.ErrorIs(t, err, ErrNoSuchEdge)
}

func TestContext_Connect_DestinationHasNoOutput(t *testing.T) {
	c := New()
	n, err := c.CreateNode("gain", nil)
	require.NoError(t, err)

	err = c.Connect(c.Destination(), n)
	assert.Error(t, err)
}

func TestOps_ExecutionOrder(t *testing.T) {
	c := New()
	n, err := c.CreateNode("gain", nil)
	require.NoError(t, err)
	p, err := n.Param("gain.value")
	require.NoError(t, err)

	// Submit out of time order; same-time ops keep submission order.
	require.NoError(t, p.SetValueAtTime(0.5, 2.0))
	require.NoError(t, p.SetValueAtTime(0.1, 1.0))
	require.NoError(t, p.SetValueAtTime(0.9, 1.0))

	ops := c.Ops()
	require.Len(t, ops, 3)
	assert.Equal(t, 0.1, ops[0].Value)
	assert.Equal(t, 0.9, ops[1].Value) // submitted after 0.1, same timestamp
	assert.Equal(t, 0.5, ops[2].Value)
	assert.Greater(t, ops[1].Seq, ops[0].Seq)
}

func TestParam_ExponentialRampToZeroRejected(t *testing.T) {
	c := New()
	n, err := c.CreateNode("gain", nil)
	require.NoError(t, err)
	p, err := n.Param("gain.value")
	require.NoError(t, err)

	err = p.ExponentialRampToValueAtTime(0, 1.0)
	require.Error(t, err)
	assert.Empty(t, c.Ops(), "rejected op must not be recorded")
}

func TestCancelScheduledValues_DropsOnlyPendingParamOps(t *testing.T) {
	c := New()
	n, err := c.CreateNode("gain", nil)
	require.NoError(t, err)
	p, err := n.Param("gain.value")
	require.NoError(t, err)

	require.NoError(t, p.SetValueAtTime(0.2, 0.5))
	require.NoError(t, p.SetValueAtTime(0.8, 2.0))
	require.NoError(t, n.Start(2.5))

	c.Advance(1.0) // the 0.5s set has executed

	require.NoError(t, n.CancelScheduledValues(1.0))

	ops := c.Ops()
	require.Len(t, ops, 2)
	assert.Equal(t, backend.OpSetValue, ops[0].Kind)
	assert.Equal(t, 0.5, ops[0].At)
	assert.Equal(t, backend.OpStart, ops[1].Kind, "start/stop ops are not parameter ops")
}

func TestNotify_FiresInTimeThenRegistrationOrder(t *testing.T) {
	c := New()

	var fired []string
	c.Notify(2.0, func() { fired = append(fired, "late") })
	c.Notify(1.0, func() { fired = append(fired, "early-a") })
	c.Notify(1.0, func() { fired = append(fired, "early-b") })

	c.Advance(1.5)
	assert.Equal(t, []string{"early-a", "early-b"}, fired)

	c.Advance(1.0)
	assert.Equal(t, []string{"early-a", "early-b", "late"}, fired)
}

func TestNotify_PastDueFiresSynchronously(t *testing.T) {
	c := New()
	c.Advance(5)

	fired := false
	c.Notify(3.0, func() { fired = true })
	assert.True(t, fired)
}

func TestNotify_CancelPreventsFiring(t *testing.T) {
	c := New()

	fired := false
	cancel := c.Notify(1.0, func() { fired = true })
	cancel()

	c.Advance(2.0)
	assert.False(t, fired)
}

func TestNotify_CallbackObservesDueTime(t *testing.T) {
	c := New()

	var seen float64
	c.Notify(1.25, func() { seen = c.CurrentTime() })

	c.Advance(3.0)
	assert.Equal(t, 1.25, seen)
	assert.Equal(t, 3.0, c.CurrentTime())
}

func TestNotify_CallbackMayScheduleMore(t *testing.T) {
	c := New()

	var fired []float64
	c.Notify(1.0, func() {
		fired = append(fired, c.CurrentTime())
		c.Notify(2.0, func() { fired = append(fired, c.CurrentTime()) })
	})

	c.Advance(3.0)
	assert.Equal(t, []float64{1.0, 2.0}, fired)
}
