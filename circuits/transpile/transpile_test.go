package transpile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gomlx/qugrid/backends/statevector"
	"github.com/gomlx/qugrid/circuits"
	"github.com/gomlx/qugrid/observables"
)

// expectationEquivalence checks the round-trip property: the transpiled
// circuit, executed on a noiseless simulator with the remapped observable,
// matches the logical circuit's expectation value within 1e-6.
func expectationEquivalence(t *testing.T, logical *circuits.Circuit, observable *observables.Observable, device Device) {
	t.Helper()
	sim := statevector.New()
	want, err := sim.Execute(context.Background(), logical, observable, 0)
	require.NoError(t, err)

	result, err := New(device).WithSeed(17).Run(logical)
	require.NoError(t, err)
	got, err := sim.Execute(context.Background(), result.Circuit, result.MapObservable(observable), 0)
	require.NoError(t, err)

	assert.InDelta(t, want.Value, got.Value, 1e-6,
		"device=%q logical=%s transpiled=%s", device.Name, logical, result.Circuit)
}

func TestEquivalenceOnLinearDevice(t *testing.T) {
	// CX(0, 3) spans the whole chain, forcing SWAP routing.
	logical := circuits.New(4).H(0).RY(1, 0.8).CX(0, 3).CZ(1, 2).RX(3, 1.2)
	expectationEquivalence(t, logical, observables.MeanZ(4), Linear(4))
}

func TestEquivalenceWithSpareQubits(t *testing.T) {
	logical := circuits.New(2).H(0).CX(0, 1).RZ(1, 0.4)
	expectationEquivalence(t, logical, observables.New(2).ZZ(0, 1, 1), Linear(5))
}

func TestEquivalenceOnGridDevice(t *testing.T) {
	// 2x2 image circuit on its natively matching grid device.
	logical := circuits.New(4).
		RY(0, 0.3).RY(1, 1.1).RY(2, 2.0).RY(3, 0.6).
		CZ(0, 1).CZ(0, 2).CZ(1, 3).CZ(2, 3)
	expectationEquivalence(t, logical, observables.MeanZ(4), Grid(2, 2))
}

func TestEquivalenceUnderRestrictedNativeSets(t *testing.T) {
	logical := circuits.New(3).H(0).X(1).Z(2).CX(0, 1).Swap(1, 2).RY(2, 0.9)
	observable := observables.MeanZ(3)

	// CZ-based and CX-based devices must both reproduce the statistics.
	expectationEquivalence(t, logical, observable, Linear(3))
	expectationEquivalence(t, logical, observable,
		Linear(3).WithNative(circuits.GateRX, circuits.GateRY, circuits.GateRZ, circuits.GateCX))
	// Rotations restricted to RZ+RX: RY gates must be decomposed too.
	expectationEquivalence(t, logical, observable,
		Linear(3).WithNative(circuits.GateRX, circuits.GateRZ, circuits.GateCZ))
}

func TestNativeOutputOnly(t *testing.T) {
	logical := circuits.New(3).H(0).CX(0, 2).Swap(0, 1)
	device := Linear(3)
	result, err := New(device).Run(logical)
	require.NoError(t, err)
	for _, gate := range result.Circuit.Gates {
		assert.True(t, device.Native[gate.Kind], "gate %s is not native", gate)
	}
}

func TestConnectivityRespected(t *testing.T) {
	logical := circuits.New(4).CX(0, 3).CZ(0, 2)
	device := Linear(4)
	allowed := make(map[[2]int]bool)
	for _, e := range device.Edges {
		allowed[e] = true
		allowed[[2]int{e[1], e[0]}] = true
	}
	result, err := New(device).Run(logical)
	require.NoError(t, err)
	for _, gate := range result.Circuit.Gates {
		if gate.Kind.NumQubits() == 2 {
			assert.True(t, allowed[[2]int{gate.Q0, gate.Q1}], "gate %s violates coupling graph", gate)
		}
	}
}

func TestNoValidMapping(t *testing.T) {
	// Too few physical qubits.
	_, err := New(Linear(2)).Run(circuits.New(3))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoValidMapping)

	// Disconnected coupling graph: two interacting qubits with no path.
	disconnected := Device{
		Name:      "split",
		NumQubits: 4,
		Edges:     [][2]int{{0, 1}, {2, 3}},
		Native:    DefaultNativeGates(),
	}
	_, err = New(disconnected).Run(circuits.New(4).CX(0, 2))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoValidMapping)
}

func TestInexpressibleGate(t *testing.T) {
	// Native set with no two-qubit gate cannot express CX.
	device := Linear(2).WithNative(circuits.GateRX, circuits.GateRY, circuits.GateRZ)
	_, err := New(device).Run(circuits.New(2).CX(0, 1))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoValidMapping)
}

func TestCandidateSearchPrefersLowerScore(t *testing.T) {
	// With many candidates the winner can never be worse than the identity
	// layout, which is always candidate 0.
	logical := circuits.New(4).CX(0, 3).CX(3, 0).CX(0, 3)
	device := Linear(4)

	identityOnly, err := New(device).WithCandidates(1).Run(logical)
	require.NoError(t, err)
	searched, err := New(device).WithCandidates(16).WithSeed(3).Run(logical)
	require.NoError(t, err)
	assert.LessOrEqual(t, searched.Score, identityOnly.Score)
}

func TestInputNeverMutated(t *testing.T) {
	logical := circuits.New(3).H(0).CX(0, 2)
	snapshot := logical.Clone()
	_, err := New(Linear(3)).Run(logical)
	require.NoError(t, err)
	assert.True(t, logical.Equal(snapshot))
}

func TestLayoutsAreConsistent(t *testing.T) {
	logical := circuits.New(4).CX(0, 3)
	result, err := New(Linear(4)).Run(logical)
	require.NoError(t, err)
	require.Len(t, result.InitialLayout, 4)
	require.Len(t, result.FinalLayout, 4)
	// Layouts are injective into physical qubits.
	for _, layout := range [][]int{result.InitialLayout, result.FinalLayout} {
		seen := make(map[int]bool)
		for _, p := range layout {
			require.GreaterOrEqual(t, p, 0)
			require.Less(t, p, 4)
			require.False(t, seen[p])
			seen[p] = true
		}
	}
}

func TestDeviceConstructors(t *testing.T) {
	assert.Len(t, Linear(5).Edges, 4)
	assert.Len(t, Grid(3, 3).Edges, 12)
	assert.Len(t, FullyConnected(4).Edges, 6)
	assert.Panics(t, func() { Grid(0, 3) })
	assert.Panics(t, func() {
		New(Device{Name: "bad", NumQubits: 2, Edges: [][2]int{{0, 5}}})
	})
}
