// Package backends defines the interface an execution target (a circuit
// simulator or real quantum hardware) needs to implement to be used by qugrid,
// plus the registry through which targets are selected by name.
//
// Simulator backends asked for zero shots return the exact expectation value,
// deterministically. With shots > 0 (always the case on hardware) the returned
// Prediction is a sampled estimate carrying a standard error that shrinks as
// shots grow.
//
// Concrete backends register themselves during package initialization (see
// backends/statevector); select one via New, NewWithConfig or the
// QUGRID_BACKEND environment variable.
package backends

import (
	"context"
	"os"
	"strings"

	"github.com/gomlx/exceptions"
	"golang.org/x/exp/maps"

	"github.com/gomlx/qugrid/circuits"
	"github.com/gomlx/qugrid/observables"
)

// Prediction is one scalar classifier output: the expectation value of the
// configured observable on the circuit's final state.
type Prediction struct {
	// Value of the expectation. Exact for noiseless simulation, a sampled
	// estimate otherwise.
	Value float64

	// StdErr is the standard error of a sampled estimate, 0 for exact values.
	StdErr float64

	// Shots used to produce the estimate, 0 for exact values.
	Shots int
}

// Exact reports whether the prediction is an exact expectation value rather
// than a shot-sampled estimate.
func (p Prediction) Exact() bool { return p.Shots == 0 }

// Backend is the API an execution target implements.
//
// Execute is synchronous; Submit is the asynchronous variant returning a Job
// handle, matching the queue-based nature of hardware access. Both must honor
// the same semantics: shots == 0 requests the exact expectation value (only
// simulators can honor it; hardware backends must reject it), shots > 0
// requests a sampled estimate.
type Backend interface {
	// Name returns the short registry name of the backend, e.g. "statevector".
	Name() string

	// Description is a longer description that can be used to pretty-print.
	Description() string

	// MaxQubits returns the largest circuit the backend accepts. Execute fails
	// with ErrCircuitTooLarge beyond it.
	MaxQubits() int

	// Execute runs the circuit and measures the observable's expectation value.
	// It blocks until the result is available or ctx is done.
	Execute(ctx context.Context, circuit *circuits.Circuit, observable *observables.Observable, shots int) (Prediction, error)

	// Submit enqueues the execution and returns immediately with a Job handle.
	// Await the handle for the result; cancellation is best-effort.
	Submit(ctx context.Context, circuit *circuits.Circuit, observable *observables.Observable, shots int) (*Job, error)
}

// Constructor takes a backend-specific config string (optionally empty) and
// returns a Backend.
type Constructor func(config string) (Backend, error)

var (
	registeredConstructors = make(map[string]Constructor)
	firstRegistered        string
)

// Register a backend constructor under the given name. To be safe, call
// Register during initialization of a package. The first registered backend
// becomes the default.
func Register(name string, constructor Constructor) {
	if len(registeredConstructors) == 0 {
		firstRegistered = name
	}
	registeredConstructors[name] = constructor
}

// DefaultConfig is the backend configuration to use if neither the
// QUGRID_BACKEND environment variable nor an explicit config is given.
var DefaultConfig string

// EnvVarName is the environment variable with the default backend
// configuration, formatted as "<backend_name>:<backend_configuration>".
const EnvVarName = "QUGRID_BACKEND"

// New returns a Backend built from, in order of precedence: the QUGRID_BACKEND
// environment variable, the DefaultConfig variable, or the first registered
// backend with an empty configuration.
func New() (Backend, error) {
	if config, found := os.LookupEnv(EnvVarName); found {
		return NewWithConfig(config)
	}
	return NewWithConfig(DefaultConfig)
}

// NewWithConfig builds a Backend from a configuration string formatted as
// "<backend_name>:<backend_configuration>". An empty name selects the first
// registered backend; the configuration part is passed opaquely to the
// backend's constructor.
//
// It panics if no backend was registered or the name is unknown: both are
// setup errors, typically a missing anonymous import of the backend package.
func NewWithConfig(config string) (Backend, error) {
	if len(registeredConstructors) == 0 {
		exceptions.Panicf("no backends registered with qugrid -- import one, e.g. " +
			`import _ "github.com/gomlx/qugrid/backends/statevector"`)
	}
	backendName := firstRegistered
	backendConfig := config
	if idx := strings.Index(config, ":"); idx != -1 {
		backendName = config[:idx]
		backendConfig = config[idx+1:]
	} else if _, found := registeredConstructors[config]; found {
		backendName = config
		backendConfig = ""
	}
	constructor, found := registeredConstructors[backendName]
	if !found {
		exceptions.Panicf("unknown backend %q in configuration %q, registered backends: %v",
			backendName, config, maps.Keys(registeredConstructors))
	}
	return constructor(backendConfig)
}
