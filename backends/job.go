package backends

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Job is the handle of an asynchronous backend execution. Hardware access is
// queue-based: submission returns quickly, results arrive later. A Job is
// created by the backend (see NewJob), completed exactly once by the backend's
// worker, and awaited by the caller.
type Job struct {
	// ID uniquely identifies the submission, e.g. for log correlation with the
	// provider's own job records.
	ID uuid.UUID

	done   chan struct{}
	cancel context.CancelFunc

	mu     sync.Mutex
	pred   Prediction
	err    error
	closed bool
}

// NewJob creates a pending Job. cancel, if non-nil, is invoked by Job.Cancel
// to signal the backend's worker; cancellation is best-effort since the job
// may already have consumed device time.
func NewJob(cancel context.CancelFunc) *Job {
	return &Job{
		ID:     uuid.New(),
		done:   make(chan struct{}),
		cancel: cancel,
	}
}

// Finish completes the job with a result or an error. Called by the backend
// implementation, exactly once; later calls are ignored.
func (j *Job) Finish(pred Prediction, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return
	}
	j.pred, j.err = pred, err
	j.closed = true
	close(j.done)
}

// Await blocks until the job completes or ctx is done. A context deadline
// surfaces as ErrJobTimeout (retryable); an explicit cancellation surfaces as
// the context's error.
func (j *Job) Await(ctx context.Context) (Prediction, error) {
	select {
	case <-j.done:
		return j.pred, j.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Prediction{}, errors.Wrapf(ErrJobTimeout, "awaiting job %s", j.ID)
		}
		return Prediction{}, errors.WithStack(ctx.Err())
	}
}

// Done returns a channel closed when the job completes, for select-based
// callers.
func (j *Job) Done() <-chan struct{} { return j.done }

// Cancel requests best-effort cancellation of the in-flight job. The job may
// still complete with a result if it already ran.
func (j *Job) Cancel() {
	if j.cancel != nil {
		j.cancel()
	}
}
