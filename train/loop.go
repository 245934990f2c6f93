// Package train drives the variational training session: mini-batch objective
// evaluations fed to a derivative-free optimizer that proposes successive
// parameter vectors.
//
// The loop is single-threaded and sequential: the search is
// history-dependent, so one objective evaluation fully completes before the
// optimizer proposes the next θ. Concurrency only happens inside one objective
// evaluation, where the evaluator fans per-sample forward passes out (see
// package eval).
//
// Because derivative-free search does not improve monotonically, the loop
// tracks the best-seen (θ, loss) across all iterations and always reports it,
// together with a termination reason and the full loss history, even when the
// session aborts on a backend failure.
package train

import (
	"context"
	"math"
	"math/rand"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/gomlx/qugrid/datasets"
	"github.com/gomlx/qugrid/eval"
	"github.com/gomlx/qugrid/losses"
	"github.com/gomlx/qugrid/optimizers"
)

// ErrTrainingAborted is returned when a backend failure ends the session early.
// The returned State still carries the best-seen parameters and the partial
// loss history.
var ErrTrainingAborted = errors.New("training aborted")

// Reason codes for session termination.
type Reason string

const (
	// ReasonConverged: the optimizer terminated on its own tolerance criterion.
	ReasonConverged Reason = "CONVERGED"

	// ReasonMaxIter: the configured iteration budget was exhausted.
	ReasonMaxIter Reason = "MAX_ITER"

	// ReasonAborted: a non-recoverable failure ended the session.
	ReasonAborted Reason = "ABORTED"
)

// State is a read-only snapshot of the training session, handed to OnStep
// hooks after each iteration and returned by Run on termination. Slices are
// copies; callers cannot perturb the session through it.
type State struct {
	// Theta last evaluated by the objective.
	Theta []float64

	// Iteration counts objective evaluations so far, starting at 1.
	Iteration int

	// Epoch of the mini-batch sequence the last evaluation used.
	Epoch int

	// Loss observed at the last evaluation.
	Loss float64

	// History of losses, one entry per objective evaluation.
	History []float64

	// BestTheta and BestLoss seen across all iterations.
	BestTheta []float64
	BestLoss  float64

	// Reason is set on the final State returned by Run, empty on OnStep
	// snapshots.
	Reason Reason
}

// Loop runs one training session over one dataset. Create with NewLoop,
// configure with the With* methods (which return the Loop so calls can be
// cascaded), then call Run once. A Loop instance is not reusable and not
// thread-safe; concurrent sessions get independent instances.
type Loop struct {
	evaluator *eval.Evaluator
	optimizer optimizers.Optimizer
	dataset   *datasets.Dataset

	batchSize     int
	maxIterations int
	tolerance     float64
	seed          int64
	reshuffle     bool
	initScale     float64

	onStep []func(State)

	batcher   *datasets.Batcher
	iteration int
	epoch     int
	history   []float64
	lastTheta []float64
	bestTheta []float64
	bestLoss  float64
}

// NewLoop creates a training loop with defaults: batch size 8, 100 iterations
// max, tolerance 1e-6, reshuffling each epoch, θ initialized uniformly in
// [-π/4, π/4) from seed 0.
func NewLoop(evaluator *eval.Evaluator, optimizer optimizers.Optimizer, dataset *datasets.Dataset) *Loop {
	return &Loop{
		evaluator:     evaluator,
		optimizer:     optimizer,
		dataset:       dataset,
		batchSize:     8,
		maxIterations: 100,
		tolerance:     1e-6,
		reshuffle:     true,
		initScale:     math.Pi / 4,
		bestLoss:      math.Inf(1),
	}
}

// WithBatchSize sets the mini-batch size. Batches partition the training set
// each epoch; a remainder batch is kept when the size does not divide evenly.
func (l *Loop) WithBatchSize(size int) *Loop {
	l.batchSize = size
	return l
}

// WithMaxIterations bounds the number of objective evaluations.
func (l *Loop) WithMaxIterations(n int) *Loop {
	l.maxIterations = n
	return l
}

// WithTolerance sets the optimizer's convergence tolerance.
func (l *Loop) WithTolerance(tolerance float64) *Loop {
	l.tolerance = tolerance
	return l
}

// WithSeed seeds θ initialization and batch shuffling, making the session
// reproducible (given a deterministic backend).
func (l *Loop) WithSeed(seed int64) *Loop {
	l.seed = seed
	return l
}

// WithReshuffle controls whether the sample order is redrawn at each epoch
// start.
func (l *Loop) WithReshuffle(reshuffle bool) *Loop {
	l.reshuffle = reshuffle
	return l
}

// WithInitialScale sets s so that initial θ entries are drawn uniformly from
// [-s, s).
func (l *Loop) WithInitialScale(scale float64) *Loop {
	l.initScale = scale
	return l
}

// OnStep registers a hook called with a State snapshot after every objective
// evaluation, e.g. for progress reporting. Hooks run on the training
// goroutine; keep them fast.
func (l *Loop) OnStep(hook func(State)) *Loop {
	l.onStep = append(l.onStep, hook)
	return l
}

func (l *Loop) snapshot() State {
	state := State{
		Iteration: l.iteration,
		Epoch:     l.epoch,
		BestLoss:  l.bestLoss,
	}
	if len(l.history) > 0 {
		state.Loss = l.history[len(l.history)-1]
	}
	state.Theta = append([]float64(nil), l.lastTheta...)
	state.BestTheta = append([]float64(nil), l.bestTheta...)
	state.History = append([]float64(nil), l.history...)
	return state
}

// objective evaluates the loss of one candidate θ over the next mini-batch.
// This is the single contract exposed to the optimizer: f(θ) → scalar.
func (l *Loop) objective(ctx context.Context) optimizers.Objective {
	return func(theta []float64) (float64, error) {
		batch := l.batcher.Next()
		l.epoch = l.batcher.Epoch()
		predictions, err := l.evaluator.ForwardBatch(ctx, batch, theta)
		if err != nil {
			return 0, err
		}
		labels := make([]float64, len(batch))
		for i, sample := range batch {
			labels[i] = sample.Label
		}
		loss, err := losses.MeanSquaredError(predictions, labels)
		if err != nil {
			return 0, err
		}

		// Guard against an optimizer overshooting its evaluation budget: the
		// recorded history and the best-seen tracking cover exactly the same
		// evaluations.
		if len(l.history) >= l.maxIterations {
			return loss, nil
		}
		l.iteration++
		l.history = append(l.history, loss)
		l.lastTheta = append(l.lastTheta[:0], theta...)
		if loss < l.bestLoss {
			l.bestLoss = loss
			l.bestTheta = append(l.bestTheta[:0], theta...)
		}
		klog.V(1).Infof("train: iteration=%d epoch=%d loss=%.6f best=%.6f",
			l.iteration, l.epoch, loss, l.bestLoss)
		for _, hook := range l.onStep {
			hook(l.snapshot())
		}
		return loss, nil
	}
}

// Run executes the session: INIT (θ drawn, iteration zero), then repeated
// optimizer-driven iterations of batch forward + batch loss + parameter
// update, until the optimizer converges or the iteration budget runs out.
//
// The returned State always holds the best-seen (θ, loss), the full loss
// history and the termination Reason. On abort it is returned together with an
// error wrapping ErrTrainingAborted (and the underlying cause).
func (l *Loop) Run(ctx context.Context) (State, error) {
	if l.dataset.Len() == 0 {
		return State{Reason: ReasonAborted}, errors.Wrap(ErrTrainingAborted, "empty training dataset")
	}
	if l.maxIterations < 1 {
		return State{Reason: ReasonAborted}, errors.Wrapf(ErrTrainingAborted,
			"iteration budget %d leaves nothing to do", l.maxIterations)
	}

	rng := rand.New(rand.NewSource(l.seed))
	theta := make([]float64, l.evaluator.NumParameters())
	for i := range theta {
		theta[i] = (2*rng.Float64() - 1) * l.initScale
	}
	l.batcher = datasets.NewBatcher(l.dataset, l.batchSize, l.reshuffle, l.seed)
	objective := l.objective(ctx)

	// The initial θ is evaluated first, so the reported best can never be
	// worse than the starting point.
	if _, err := objective(theta); err != nil {
		return l.abort(err)
	}

	converged := false
	if budget := l.maxIterations - 1; budget > 0 {
		result, err := l.optimizer.Minimize(objective, theta, optimizers.Settings{
			Tolerance:      l.tolerance,
			MaxEvaluations: budget,
		})
		if err != nil {
			return l.abort(err)
		}
		converged = result.Converged
	}

	state := l.snapshot()
	if converged {
		state.Reason = ReasonConverged
	} else {
		state.Reason = ReasonMaxIter
	}
	klog.V(1).Infof("train: done reason=%s iterations=%d best=%.6f",
		state.Reason, state.Iteration, state.BestLoss)
	return state, nil
}

func (l *Loop) abort(cause error) (State, error) {
	state := l.snapshot()
	state.Reason = ReasonAborted
	return state, errors.Wrapf(ErrTrainingAborted, "after %d iterations: %v", l.iteration, cause)
}

// Evaluate computes the mean squared error of one θ over a whole dataset,
// typically the held-out test split of a finished session.
func (l *Loop) Evaluate(ctx context.Context, dataset *datasets.Dataset, theta []float64) (float64, error) {
	predictions, err := l.evaluator.ForwardBatch(ctx, dataset.Samples(), theta)
	if err != nil {
		return 0, err
	}
	return losses.MeanSquaredError(predictions, dataset.Labels())
}
