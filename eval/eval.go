// Package eval implements the forward pass of the classifier: compose the
// image encoding with the trainable ansatz, execute the circuit on a backend,
// and measure the configured observable.
//
// The Evaluator also owns the backend failure policy: transient errors
// (ErrBackendUnavailable, ErrJobTimeout) are retried with bounded exponential
// backoff, fatal errors propagate immediately. When a target device is
// configured, each composed circuit is transpiled before execution and the
// observable follows the routed qubit layout.
//
// Per-sample forward passes of a batch are independent and are dispatched
// concurrently; results are reduced into an index-addressed slice, so the
// reduction is order-independent and deterministic.
package eval

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"

	"github.com/gomlx/qugrid/ansatz"
	"github.com/gomlx/qugrid/backends"
	"github.com/gomlx/qugrid/circuits"
	"github.com/gomlx/qugrid/circuits/transpile"
	"github.com/gomlx/qugrid/datasets"
	"github.com/gomlx/qugrid/encoders"
	"github.com/gomlx/qugrid/observables"
)

// Evaluator composes and executes classifier circuits. Create with New,
// configure with the With* methods (which return the Evaluator so calls can be
// cascaded), then call Forward or ForwardBatch.
type Evaluator struct {
	backend    backends.Backend
	encoder    *encoders.Encoder
	ansatz     *ansatz.Builder
	observable *observables.Observable

	shots       int
	maxRetries  int
	backoff     time.Duration
	parallelism int

	transpiler *transpile.Transpiler
}

// New creates an Evaluator. The encoder, ansatz and observable must agree on
// the qubit count; defaults: exact execution (0 shots), 3 retries with 100ms
// initial backoff, batch parallelism 8.
func New(backend backends.Backend, encoder *encoders.Encoder, builder *ansatz.Builder, observable *observables.Observable) (*Evaluator, error) {
	numQubits := encoder.NumQubits()
	if builder.NumQubits() != numQubits {
		return nil, errors.Errorf("eval: encoder works on %d qubits, ansatz on %d",
			numQubits, builder.NumQubits())
	}
	if observable.NumQubits != numQubits {
		return nil, errors.Errorf("eval: encoder works on %d qubits, observable on %d",
			numQubits, observable.NumQubits)
	}
	return &Evaluator{
		backend:     backend,
		encoder:     encoder,
		ansatz:      builder,
		observable:  observable,
		maxRetries:  3,
		backoff:     100 * time.Millisecond,
		parallelism: 8,
	}, nil
}

// WithShots sets the number of measurement shots per execution. 0 requests
// exact expectation values (simulators only).
func (e *Evaluator) WithShots(shots int) *Evaluator {
	e.shots = shots
	return e
}

// WithRetries sets the bound on retries of one forward execution after
// transient backend errors, and the initial backoff delay (doubled per retry).
func (e *Evaluator) WithRetries(maxRetries int, backoff time.Duration) *Evaluator {
	e.maxRetries = maxRetries
	e.backoff = backoff
	return e
}

// WithParallelism sets how many per-sample forward passes of one batch may run
// concurrently.
func (e *Evaluator) WithParallelism(n int) *Evaluator {
	if n < 1 {
		n = 1
	}
	e.parallelism = n
	return e
}

// WithDevice makes the Evaluator transpile every composed circuit for the
// given device before execution, measuring through the transpiled layout.
func (e *Evaluator) WithDevice(device transpile.Device) *Evaluator {
	e.transpiler = transpile.New(device)
	return e
}

// NumParameters returns the ansatz parameter count, the length of θ expected
// by Forward.
func (e *Evaluator) NumParameters() int { return e.ansatz.NumParameters() }

// Observable returns the configured measurement observable.
func (e *Evaluator) Observable() *observables.Observable { return e.observable }

// Compose builds the full circuit for one image and parameter vector:
// encoding sub-circuit first, trainable sub-circuit after.
func (e *Evaluator) Compose(image []float64, theta []float64) (*circuits.Circuit, error) {
	encoded, err := e.encoder.Encode(image)
	if err != nil {
		return nil, err
	}
	trainable, err := e.ansatz.Build(theta)
	if err != nil {
		return nil, err
	}
	return encoded.Append(trainable), nil
}

// Forward runs one forward pass: Compose, optionally transpile, execute with
// bounded retries, and return the backend's Prediction.
func (e *Evaluator) Forward(ctx context.Context, image []float64, theta []float64) (backends.Prediction, error) {
	circuit, err := e.Compose(image, theta)
	if err != nil {
		return backends.Prediction{}, err
	}
	observable := e.observable
	if e.transpiler != nil {
		result, err := e.transpiler.Run(circuit)
		if err != nil {
			return backends.Prediction{}, err
		}
		circuit = result.Circuit
		observable = result.MapObservable(e.observable)
	}

	backoff := e.backoff
	var lastErr error
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if attempt > 0 {
			klog.V(1).Infof("eval: transient backend error, retry %d/%d in %v: %v",
				attempt, e.maxRetries, backoff, lastErr)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return backends.Prediction{}, errors.WithStack(ctx.Err())
			}
			backoff *= 2
		}
		pred, err := e.backend.Execute(ctx, circuit, observable, e.shots)
		if err == nil {
			return pred, nil
		}
		if !backends.IsRetryable(err) {
			return backends.Prediction{}, err
		}
		lastErr = err
	}
	return backends.Prediction{}, errors.Wrapf(lastErr, "eval: %d retries exhausted", e.maxRetries)
}

// ForwardBatch runs one forward pass per sample, concurrently up to the
// configured parallelism, and returns predictions in sample order. θ and the
// composed circuits are read-only across the concurrent passes; the first
// error cancels the remaining ones.
func (e *Evaluator) ForwardBatch(ctx context.Context, batch []datasets.Sample, theta []float64) ([]backends.Prediction, error) {
	predictions := make([]backends.Prediction, len(batch))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(e.parallelism)
	for i, sample := range batch {
		i, sample := i, sample
		group.Go(func() error {
			pred, err := e.Forward(groupCtx, sample.Pixels, theta)
			if err != nil {
				return errors.Wrapf(err, "sample %d of batch", i)
			}
			predictions[i] = pred
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return predictions, nil
}
