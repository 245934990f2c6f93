// Package statevector implements a pure-Go, noiseless statevector simulator
// backend: exact complex-amplitude propagation of the gate vocabulary qugrid
// emits, with optional shot sampling to model the statistical noise of
// hardware estimates.
//
// It registers itself under the name "statevector"; import it anonymously to
// make it available through the backends registry:
//
//	import _ "github.com/gomlx/qugrid/backends/statevector"
//
// The constructor config string is a comma-separated key=value list with keys
// "seed" (int, shot-sampling RNG seed), "maxqubits" (int) and "latency"
// (duration, artificial queue latency, mostly for tests). Example:
// "statevector:seed=42,maxqubits=20".
//
// Memory grows as 2^n amplitudes, so the default qubit limit is 24 (256MiB of
// state); this backend targets small pixel grids, not general simulation.
package statevector

import (
	"context"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/gomlx/qugrid/backends"
	"github.com/gomlx/qugrid/circuits"
	"github.com/gomlx/qugrid/observables"
)

// Name this backend is registered under.
const Name = "statevector"

// DefaultMaxQubits bounds circuit size unless overridden with the "maxqubits"
// config key. 24 qubits is 256MiB of complex128 amplitudes.
const DefaultMaxQubits = 24

func init() {
	backends.Register(Name, func(config string) (backends.Backend, error) {
		return NewFromConfig(config)
	})
}

// Backend is the statevector simulator. It is safe for concurrent Execute
// calls; the shot-sampling RNG is the only shared mutable state and is guarded
// internally.
type Backend struct {
	maxQubits int
	latency   time.Duration

	muRand sync.Mutex
	rng    *rand.Rand
}

// New creates a simulator with defaults: 24 qubits max, time-seeded sampling
// RNG, no artificial latency.
func New() *Backend {
	return &Backend{
		maxQubits: DefaultMaxQubits,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// NewFromConfig creates a simulator from the registry config string. See the
// package documentation for the accepted keys.
func NewFromConfig(config string) (*Backend, error) {
	b := New()
	if config == "" {
		return b, nil
	}
	for _, part := range strings.Split(config, ",") {
		key, value, found := strings.Cut(part, "=")
		if !found {
			return nil, errors.Errorf("statevector: config entry %q is not key=value", part)
		}
		switch key {
		case "seed":
			seed, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "statevector: parsing seed %q", value)
			}
			b.WithSeed(seed)
		case "maxqubits":
			n, err := strconv.Atoi(value)
			if err != nil || n <= 0 {
				return nil, errors.Errorf("statevector: invalid maxqubits %q", value)
			}
			b.maxQubits = n
		case "latency":
			d, err := time.ParseDuration(value)
			if err != nil {
				return nil, errors.Wrapf(err, "statevector: parsing latency %q", value)
			}
			b.latency = d
		default:
			return nil, errors.Errorf("statevector: unknown config key %q", key)
		}
	}
	return b, nil
}

// WithSeed makes shot sampling deterministic. It returns the Backend so calls
// can be cascaded.
func (b *Backend) WithSeed(seed int64) *Backend {
	b.muRand.Lock()
	defer b.muRand.Unlock()
	b.rng = rand.New(rand.NewSource(seed))
	return b
}

// WithMaxQubits overrides the qubit limit. It returns the Backend so calls can
// be cascaded.
func (b *Backend) WithMaxQubits(n int) *Backend {
	b.maxQubits = n
	return b
}

// WithLatency adds an artificial delay before each execution completes, to
// exercise timeout and cancellation paths in tests. It returns the Backend so
// calls can be cascaded.
func (b *Backend) WithLatency(d time.Duration) *Backend {
	b.latency = d
	return b
}

// Name implements backends.Backend.
func (b *Backend) Name() string { return Name }

// Description implements backends.Backend.
func (b *Backend) Description() string {
	return "noiseless statevector simulator (exact expectations, optional shot sampling)"
}

// MaxQubits implements backends.Backend.
func (b *Backend) MaxQubits() int { return b.maxQubits }

// Execute implements backends.Backend: propagates the exact statevector and
// returns either the exact expectation value (shots == 0) or a shot-sampled
// estimate with its standard error.
func (b *Backend) Execute(ctx context.Context, circuit *circuits.Circuit, observable *observables.Observable, shots int) (backends.Prediction, error) {
	if circuit.NumQubits > b.maxQubits {
		return backends.Prediction{}, errors.Wrapf(backends.ErrCircuitTooLarge,
			"circuit has %d qubits, simulator limit is %d", circuit.NumQubits, b.maxQubits)
	}
	if observable.NumQubits != circuit.NumQubits {
		return backends.Prediction{}, errors.Errorf(
			"statevector: observable over %d qubits cannot be measured on a %d-qubit circuit",
			observable.NumQubits, circuit.NumQubits)
	}
	if shots < 0 {
		return backends.Prediction{}, errors.Errorf("statevector: negative shots %d", shots)
	}
	if b.latency > 0 {
		select {
		case <-time.After(b.latency):
		case <-ctx.Done():
			return backends.Prediction{}, errors.WithStack(ctx.Err())
		}
	}
	if err := ctx.Err(); err != nil {
		return backends.Prediction{}, errors.WithStack(err)
	}

	state := newState(circuit.NumQubits)
	for _, gate := range circuit.Gates {
		state.apply(gate)
	}
	if shots == 0 {
		return backends.Prediction{Value: state.expectation(observable)}, nil
	}
	value, stderr := b.sample(state, observable, shots)
	return backends.Prediction{Value: value, StdErr: stderr, Shots: shots}, nil
}

// Submit implements backends.Backend: runs the execution on a goroutine and
// returns a Job handle immediately.
func (b *Backend) Submit(ctx context.Context, circuit *circuits.Circuit, observable *observables.Observable, shots int) (*backends.Job, error) {
	jobCtx, cancel := context.WithCancel(ctx)
	job := backends.NewJob(cancel)
	go func() {
		pred, err := b.Execute(jobCtx, circuit, observable, shots)
		job.Finish(pred, err)
		cancel()
	}()
	return job, nil
}
