// Package optimizers wraps derivative-free classical minimizers behind a
// single-entry-point strategy interface, keeping the training loop decoupled
// from the specific search algorithm.
//
// The search is inherently sequential and history-dependent: the optimizer
// proposes one candidate θ at a time and observes the scalar objective before
// proposing the next. Implementations here never call the objective
// concurrently.
//
// Both provided implementations are adapters over gonum's optimize package:
// Nelder-Mead simplex (the default) and CMA-ES.
package optimizers

import (
	"math"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
	"gonum.org/v1/gonum/optimize"
)

// Objective is the contract between the training loop and the optimizer:
// f(θ) → scalar loss. An error aborts the whole search immediately (the
// optimizer must not keep probing after the objective failed).
type Objective func(theta []float64) (float64, error)

// Settings configures one minimization run.
type Settings struct {
	// Tolerance is the absolute function-convergence tolerance: the search
	// reports Converged when improvements stay below it.
	Tolerance float64

	// MaxEvaluations bounds the number of objective evaluations. 0 means
	// unbounded (the optimizer's own convergence criteria decide).
	MaxEvaluations int
}

// Result of a minimization run.
type Result struct {
	// Theta is the best parameter vector found.
	Theta []float64

	// Loss is the objective value at Theta.
	Loss float64

	// Converged is true when the optimizer terminated on its own tolerance
	// criterion, false when it ran out of evaluation budget.
	Converged bool

	// Evaluations actually spent.
	Evaluations int
}

// Optimizer is a derivative-free minimization strategy.
type Optimizer interface {
	// Minimize searches for θ minimizing the objective, starting from initial.
	// The initial vector is not mutated.
	Minimize(objective Objective, initial []float64, settings Settings) (Result, error)
}

// KnownOptimizers maps registry names to default constructors, an easy
// starting point analogous to picking a backend by name.
var KnownOptimizers = map[string]func() Optimizer{
	"neldermead": func() Optimizer { return &NelderMead{} },
	"cmaes":      func() Optimizer { return &CMAES{} },
}

// ByName returns an optimizer given its registry name, or panics if it does
// not exist.
func ByName(name string) Optimizer {
	constructor, found := KnownOptimizers[name]
	if !found {
		exceptions.Panicf("unknown optimizer %q, valid values are %v", name, maps.Keys(KnownOptimizers))
	}
	return constructor()
}

// NelderMead is the downhill simplex method, the default derivative-free
// search. The zero value is ready to use.
type NelderMead struct{}

// Minimize implements Optimizer.
func (nm *NelderMead) Minimize(objective Objective, initial []float64, settings Settings) (Result, error) {
	return minimizeWithMethod(&optimize.NelderMead{}, objective, initial, settings)
}

// CMAES is the covariance matrix adaptation evolution strategy, a
// population-based derivative-free search that copes better with noisy
// objectives (e.g. shot-sampled predictions) at the cost of more evaluations.
// The zero value is ready to use.
type CMAES struct{}

// Minimize implements Optimizer.
func (c *CMAES) Minimize(objective Objective, initial []float64, settings Settings) (Result, error) {
	return minimizeWithMethod(&optimize.CmaEsChol{}, objective, initial, settings)
}

// functionConvergeIterations is how many consecutive nearly-equal best values
// the gonum converger requires before declaring function convergence.
const functionConvergeIterations = 15

func minimizeWithMethod(method optimize.Method, objective Objective, initial []float64, settings Settings) (Result, error) {
	if len(initial) == 0 {
		return Result{}, errors.New("optimizers: empty initial parameter vector")
	}
	tolerance := settings.Tolerance
	if tolerance <= 0 {
		tolerance = 1e-8
	}

	// The gonum objective cannot return an error, so the first failure is
	// latched here and surfaced through the Problem.Status hook, which gonum
	// polls to abort the run.
	var evalErr error
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			if evalErr != nil {
				return math.Inf(1)
			}
			value, err := objective(x)
			if err != nil {
				evalErr = err
				return math.Inf(1)
			}
			return value
		},
		Status: func() (optimize.Status, error) {
			if evalErr != nil {
				return optimize.Failure, evalErr
			}
			return optimize.NotTerminated, nil
		},
	}

	gonumSettings := &optimize.Settings{
		FuncEvaluations: settings.MaxEvaluations,
		Converger: &optimize.FunctionConverge{
			Absolute:   tolerance,
			Iterations: functionConvergeIterations,
		},
	}
	start := make([]float64, len(initial))
	copy(start, initial)

	solution, err := optimize.Minimize(problem, start, gonumSettings, method)
	if evalErr != nil {
		return Result{}, evalErr
	}
	if err != nil {
		return Result{}, errors.Wrap(err, "optimizers: minimization failed")
	}

	result := Result{
		Theta:       solution.X,
		Loss:        solution.F,
		Evaluations: solution.Stats.FuncEvaluations,
	}
	switch solution.Status {
	case optimize.FunctionConvergence, optimize.StepConvergence,
		optimize.MethodConverge, optimize.Success:
		result.Converged = true
	}
	return result, nil
}
