package statevector

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gomlx/qugrid/backends"
	"github.com/gomlx/qugrid/circuits"
	"github.com/gomlx/qugrid/observables"
)

func execute(t *testing.T, b *Backend, c *circuits.Circuit, o *observables.Observable, shots int) backends.Prediction {
	t.Helper()
	pred, err := b.Execute(context.Background(), c, o, shots)
	require.NoError(t, err)
	return pred
}

func TestSingleQubitGateAlgebra(t *testing.T) {
	b := New()
	z0 := observables.New(1).Z(0, 1)

	// |0⟩: ⟨Z⟩ = +1.
	assert.InDelta(t, 1, execute(t, b, circuits.New(1), z0, 0).Value, 1e-12)

	// X|0⟩ = |1⟩: ⟨Z⟩ = -1.
	assert.InDelta(t, -1, execute(t, b, circuits.New(1).X(0), z0, 0).Value, 1e-12)

	// H|0⟩: ⟨Z⟩ = 0.
	assert.InDelta(t, 0, execute(t, b, circuits.New(1).H(0), z0, 0).Value, 1e-12)

	// RY(π)|0⟩ = |1⟩ up to phase: ⟨Z⟩ = -1.
	assert.InDelta(t, -1, execute(t, b, circuits.New(1).RY(0, math.Pi), z0, 0).Value, 1e-12)

	// RY(θ)|0⟩: ⟨Z⟩ = cos(θ).
	for _, theta := range []float64{0.1, 0.7, 2.5} {
		got := execute(t, b, circuits.New(1).RY(0, theta), z0, 0).Value
		assert.InDelta(t, math.Cos(theta), got, 1e-12, "theta=%v", theta)
	}

	// RX behaves like RY on ⟨Z⟩; RZ and Z leave ⟨Z⟩ of |0⟩ alone.
	assert.InDelta(t, math.Cos(0.9), execute(t, b, circuits.New(1).RX(0, 0.9), z0, 0).Value, 1e-12)
	assert.InDelta(t, 1, execute(t, b, circuits.New(1).RZ(0, 1.1), z0, 0).Value, 1e-12)
	assert.InDelta(t, 1, execute(t, b, circuits.New(1).Z(0), z0, 0).Value, 1e-12)
}

func TestEntanglement(t *testing.T) {
	b := New()
	zz := observables.New(2).ZZ(0, 1, 1)

	// Bell state (|00⟩+|11⟩)/√2: perfectly correlated, ⟨Z⊗Z⟩ = +1 while each
	// individual ⟨Z⟩ = 0.
	bell := circuits.New(2).H(0).CX(0, 1)
	assert.InDelta(t, 1, execute(t, b, bell, zz, 0).Value, 1e-12)
	assert.InDelta(t, 0, execute(t, b, bell, observables.New(2).Z(0, 1), 0).Value, 1e-12)
	assert.InDelta(t, 0, execute(t, b, bell, observables.New(2).Z(1, 1), 0).Value, 1e-12)

	// CZ on |++⟩ then H: maps to the same correlations via the CX identity
	// CX(0,1) = H(1)·CZ(0,1)·H(1).
	viaCZ := circuits.New(2).H(0).H(1).CZ(0, 1).H(1)
	assert.InDelta(t, 1, execute(t, b, viaCZ, zz, 0).Value, 1e-12)

	// SWAP moves the excited qubit.
	swapped := circuits.New(2).X(0).Swap(0, 1)
	assert.InDelta(t, 1, execute(t, b, swapped, observables.New(2).Z(0, 1), 0).Value, 1e-12)
	assert.InDelta(t, -1, execute(t, b, swapped, observables.New(2).Z(1, 1), 0).Value, 1e-12)
}

func TestExactIsDeterministicAndBounded(t *testing.T) {
	b := New()
	c := circuits.New(3).H(0).RY(1, 0.3).CX(0, 2).CZ(1, 2).RX(2, 1.7)
	o := observables.MeanZ(3)

	first := execute(t, b, c, o, 0)
	for i := 0; i < 5; i++ {
		pred := execute(t, b, c, o, 0)
		assert.Equal(t, first.Value, pred.Value)
		assert.True(t, pred.Exact())
	}
	assert.LessOrEqual(t, math.Abs(first.Value), 1.0)
}

func TestShotSampling(t *testing.T) {
	c := circuits.New(1).RY(0, math.Pi/3) // ⟨Z⟩ = cos(π/3) = 0.5
	o := observables.New(1).Z(0, 1)

	pred, err := New().WithSeed(42).Execute(context.Background(), c, o, 4000)
	require.NoError(t, err)
	assert.Equal(t, 4000, pred.Shots)
	assert.Greater(t, pred.StdErr, 0.0)
	// Within 5 standard errors of the exact value.
	assert.InDelta(t, 0.5, pred.Value, 5*pred.StdErr)

	// More shots, tighter estimate.
	tight, err := New().WithSeed(42).Execute(context.Background(), c, o, 40000)
	require.NoError(t, err)
	assert.Less(t, tight.StdErr, pred.StdErr)

	// Same seed, same estimate.
	again, err := New().WithSeed(42).Execute(context.Background(), c, o, 4000)
	require.NoError(t, err)
	assert.Equal(t, pred.Value, again.Value)
}

func TestCircuitTooLarge(t *testing.T) {
	b := New().WithMaxQubits(2)
	c := circuits.New(3)
	_, err := b.Execute(context.Background(), c, observables.MeanZ(3), 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, backends.ErrCircuitTooLarge)
}

func TestObservableQubitCountChecked(t *testing.T) {
	b := New()
	_, err := b.Execute(context.Background(), circuits.New(2), observables.MeanZ(3), 0)
	require.Error(t, err)
}

func TestSubmitAndAwait(t *testing.T) {
	b := New().WithLatency(5 * time.Millisecond)
	c := circuits.New(1).X(0)
	o := observables.New(1).Z(0, 1)

	job, err := b.Submit(context.Background(), c, o, 0)
	require.NoError(t, err)
	pred, err := job.Await(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, -1, pred.Value, 1e-12)
}

func TestSubmitCancellation(t *testing.T) {
	b := New().WithLatency(time.Second)
	job, err := b.Submit(context.Background(), circuits.New(1), observables.MeanZ(1), 0)
	require.NoError(t, err)
	job.Cancel()
	_, err = job.Await(context.Background())
	require.Error(t, err)
}

func TestNewFromConfig(t *testing.T) {
	b, err := NewFromConfig("seed=7,maxqubits=12,latency=1ms")
	require.NoError(t, err)
	assert.Equal(t, 12, b.MaxQubits())

	_, err = NewFromConfig("bogus")
	require.Error(t, err)
	_, err = NewFromConfig("maxqubits=zero")
	require.Error(t, err)
	_, err = NewFromConfig("nope=1")
	require.Error(t, err)
}

func TestRegistryIntegration(t *testing.T) {
	b, err := backends.NewWithConfig("statevector:maxqubits=10")
	require.NoError(t, err)
	assert.Equal(t, Name, b.Name())
	assert.Equal(t, 10, b.MaxQubits())
}
