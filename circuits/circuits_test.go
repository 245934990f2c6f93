package circuits

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildAndAccounting(t *testing.T) {
	c := New(3).H(0).CX(0, 1).RY(2, math.Pi/4).CZ(1, 2)
	assert.Equal(t, 4, c.GateCount())
	assert.Equal(t, 2, c.TwoQubitGateCount())

	// H(0) | CX(0,1) | CZ(1,2) are chained on shared qubits; RY(2) fits in
	// parallel with CX.
	assert.Equal(t, 3, c.Depth())

	require.Equal(t, Gate{Kind: GateCX, Q0: 0, Q1: 1}, c.Gates[1])
	require.Equal(t, Gate{Kind: GateRY, Q0: 2, Q1: -1, Angle: math.Pi / 4}, c.Gates[2])
}

func TestCloneIsIndependent(t *testing.T) {
	c := New(2).H(0).CX(0, 1)
	clone := c.Clone()
	require.True(t, c.Equal(clone))

	clone.RZ(1, 0.5)
	assert.Equal(t, 2, c.GateCount())
	assert.Equal(t, 3, clone.GateCount())
	assert.False(t, c.Equal(clone))
}

func TestAppend(t *testing.T) {
	a := New(2).H(0)
	b := New(2).CX(0, 1)
	a.Append(b)
	assert.Equal(t, []Gate{{Kind: GateH, Q0: 0, Q1: -1}, {Kind: GateCX, Q0: 0, Q1: 1}}, a.Gates)

	assert.Panics(t, func() { a.Append(New(3)) })
}

func TestQubitRangeChecks(t *testing.T) {
	c := New(2)
	assert.Panics(t, func() { c.H(2) })
	assert.Panics(t, func() { c.RY(-1, 0.1) })
	assert.Panics(t, func() { c.CX(0, 0) })
	assert.Panics(t, func() { New(0) })
	assert.Panics(t, func() { c.Rotation(GateH, 0, 1.0) })
}

func TestGateKindProperties(t *testing.T) {
	assert.Equal(t, 1, GateRY.NumQubits())
	assert.Equal(t, 2, GateCZ.NumQubits())
	assert.True(t, GateRZ.Parameterized())
	assert.False(t, GateH.Parameterized())
	assert.Equal(t, "CX", GateCX.String())
	assert.Equal(t, "SWAP", GateSwap.String())
}
