package backends

import "github.com/pkg/errors"

// Backend failure taxonomy. Transient failures (ErrBackendUnavailable,
// ErrJobTimeout) are worth retrying with backoff; fatal ones
// (ErrCircuitTooLarge, ErrShotsRequired) are configuration problems and must be
// propagated immediately. Match with errors.Is -- backends wrap these with
// context.
var (
	// ErrBackendUnavailable indicates the target is temporarily unreachable or
	// its queue rejected the job. Retryable.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrCircuitTooLarge indicates the circuit needs more qubits than the
	// target device has. Fatal.
	ErrCircuitTooLarge = errors.New("circuit exceeds backend qubit count")

	// ErrJobTimeout indicates an execution did not produce a result within the
	// configured deadline. Retryable.
	ErrJobTimeout = errors.New("backend job timed out")

	// ErrShotsRequired indicates an exact (shots == 0) expectation was
	// requested from a backend that can only sample. Fatal.
	ErrShotsRequired = errors.New("backend only supports shot-sampled execution")
)

// IsRetryable reports whether err is a transient backend failure that a caller
// may retry with backoff.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrBackendUnavailable) || errors.Is(err, ErrJobTimeout)
}
