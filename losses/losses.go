// Package losses implements the training objective: mean squared error between
// predictions and labels over one mini-batch.
//
// The functions here are pure: no side effects, no backend dependency. Empty
// batches and non-finite values are errors rather than silent NaNs: a NaN
// reaching the optimizer would quietly corrupt its search state.
package losses

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"

	"github.com/gomlx/qugrid/backends"
)

// ErrEmptyBatch is returned when a loss is requested over zero samples.
var ErrEmptyBatch = errors.New("loss over an empty batch")

// MeanSquaredError returns the average of (prediction-label)² over the batch.
//
// It fails with ErrEmptyBatch on an empty batch and with a plain error when
// predictions and labels disagree in length or any value is NaN/Inf.
func MeanSquaredError(predictions []backends.Prediction, labels []float64) (float64, error) {
	if len(predictions) == 0 {
		return 0, errors.WithStack(ErrEmptyBatch)
	}
	if len(predictions) != len(labels) {
		return 0, errors.Errorf("losses: %d predictions vs %d labels", len(predictions), len(labels))
	}
	squared := make([]float64, len(predictions))
	for i, prediction := range predictions {
		diff := prediction.Value - labels[i]
		squared[i] = diff * diff
		if math.IsNaN(squared[i]) || math.IsInf(squared[i], 0) {
			return 0, errors.Errorf("losses: non-finite error at sample %d (prediction=%v, label=%v)",
				i, prediction.Value, labels[i])
		}
	}
	return stat.Mean(squared, nil), nil
}
