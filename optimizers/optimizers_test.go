package optimizers

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bowl is a quadratic with minimum 1.5 at (2, -3).
func bowl(theta []float64) (float64, error) {
	dx, dy := theta[0]-2, theta[1]+3
	return 1.5 + dx*dx + dy*dy, nil
}

func TestNelderMeadConvergesOnQuadratic(t *testing.T) {
	result, err := (&NelderMead{}).Minimize(bowl, []float64{0, 0}, Settings{
		Tolerance:      1e-10,
		MaxEvaluations: 2000,
	})
	require.NoError(t, err)
	assert.True(t, result.Converged)
	assert.InDelta(t, 2, result.Theta[0], 1e-3)
	assert.InDelta(t, -3, result.Theta[1], 1e-3)
	assert.InDelta(t, 1.5, result.Loss, 1e-6)
	assert.Greater(t, result.Evaluations, 0)
}

func TestCMAESConvergesOnQuadratic(t *testing.T) {
	result, err := (&CMAES{}).Minimize(bowl, []float64{0, 0}, Settings{
		Tolerance:      1e-10,
		MaxEvaluations: 5000,
	})
	require.NoError(t, err)
	assert.InDelta(t, 2, result.Theta[0], 1e-2)
	assert.InDelta(t, -3, result.Theta[1], 1e-2)
}

func TestEvaluationBudgetRespected(t *testing.T) {
	evaluations := 0
	counted := func(theta []float64) (float64, error) {
		evaluations++
		return bowl(theta)
	}
	result, err := (&NelderMead{}).Minimize(counted, []float64{10, 10}, Settings{
		Tolerance:      1e-14,
		MaxEvaluations: 20,
	})
	require.NoError(t, err)
	assert.False(t, result.Converged)
	// gonum may finish the in-flight iteration, but stays close to the budget.
	assert.LessOrEqual(t, evaluations, 25)
}

func TestObjectiveErrorAbortsSearch(t *testing.T) {
	boom := errors.New("backend exploded")
	calls := 0
	failing := func(theta []float64) (float64, error) {
		calls++
		if calls >= 3 {
			return 0, boom
		}
		return bowl(theta)
	}
	_, err := (&NelderMead{}).Minimize(failing, []float64{0, 0}, Settings{MaxEvaluations: 100})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	// The search stops promptly rather than burning the whole budget.
	assert.Less(t, calls, 20)
}

func TestEmptyInitialRejected(t *testing.T) {
	_, err := (&NelderMead{}).Minimize(bowl, nil, Settings{})
	require.Error(t, err)
}

func TestInitialNotMutated(t *testing.T) {
	initial := []float64{5, 5}
	_, err := (&NelderMead{}).Minimize(bowl, initial, Settings{MaxEvaluations: 200})
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 5}, initial)
}

func TestByName(t *testing.T) {
	assert.IsType(t, &NelderMead{}, ByName("neldermead"))
	assert.IsType(t, &CMAES{}, ByName("cmaes"))
	assert.Panics(t, func() { ByName("adam") })
}
