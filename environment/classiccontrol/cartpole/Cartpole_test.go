package cartpole

import (
	"math"
	"path/filepath"
	"testing"

	env "github.com/samuelfneumann/goppo/environment"
	ts "github.com/samuelfneumann/goppo/timestep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
)

func newTestCartpole(t *testing.T, cutoff int) *Discrete {
	t.Helper()

	bounds := r1.Interval{Min: -0.05, Max: 0.05}
	s, err := env.NewUniformStarter([]r1.Interval{bounds, bounds, bounds,
		bounds}, 1)
	require.NoError(t, err)
	task := NewBalance(s, cutoff, FailAngle)

	c, step, err := NewDiscrete(task, 0.99)
	require.NoError(t, err)
	require.True(t, step.First())
	require.Equal(t, ObservationDims, step.Observation.Len())

	return c
}

func TestDiscreteSpecs(t *testing.T) {
	c := newTestCartpole(t, 500)

	n, err := env.NumActions(c.ActionSpec())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Equal(t, ObservationDims, c.ObservationSpec().Features())
	assert.Equal(t, 0.99, c.DiscountSpec().LowerBound.AtVec(0))
}

func TestDiscreteStepRewardAndEnd(t *testing.T) {
	c := newTestCartpole(t, 500)

	// Always pushing right eventually drops the pole
	right := mat.NewVecDense(1, []float64{1})
	var (
		step ts.TimeStep
		done bool
		err  error
	)
	steps := 0
	for !done {
		step, done, err = c.Step(right)
		require.NoError(t, err)
		assert.Equal(t, 1.0, step.Reward)
		steps++
		require.Less(t, steps, 500)
	}

	assert.True(t, step.Last())
	assert.True(t, step.TerminalState())
	obs := step.Observation
	assert.True(t, math.Abs(obs.AtVec(2)) > FailAngle ||
		math.Abs(obs.AtVec(0)) > FailPosition)
}

func TestDiscreteStepLimit(t *testing.T) {
	c := newTestCartpole(t, 3)

	// Alternating pushes keep the pole up for three steps
	var step ts.TimeStep
	var done bool
	for i := 0; i < 3; i++ {
		var err error
		step, done, err = c.Step(mat.NewVecDense(1, []float64{float64(i % 2)}))
		require.NoError(t, err)
	}

	assert.True(t, done)
	assert.Equal(t, ts.Timeout, step.EndType())
	assert.False(t, step.TerminalState())
}

func TestDiscreteIllegalAction(t *testing.T) {
	c := newTestCartpole(t, 500)

	for _, a := range []float64{-1, 2, 0.5} {
		_, _, err := c.Step(mat.NewVecDense(1, []float64{a}))
		assert.Error(t, err, "action %v", a)
	}

	_, _, err := c.Step(mat.NewVecDense(2, nil))
	assert.Error(t, err)
}

func TestDiscreteReset(t *testing.T) {
	c := newTestCartpole(t, 500)

	_, _, err := c.Step(mat.NewVecDense(1, []float64{0}))
	require.NoError(t, err)

	step, err := c.Reset()
	require.NoError(t, err)
	assert.True(t, step.First())
	assert.Equal(t, 0, step.Number)
	for i := 0; i < ObservationDims; i++ {
		assert.LessOrEqual(t, math.Abs(step.Observation.AtVec(i)), 0.05)
	}
}

func TestRender(t *testing.T) {
	c := newTestCartpole(t, 500)

	path := filepath.Join(t.TempDir(), "frame.png")
	require.NoError(t, c.Render(path))
	assert.FileExists(t, path)
}

var _ env.Renderer = &Discrete{}
