package lunarlander

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

func newTestLander(t *testing.T, cutoff int, seed uint64) *Discrete {
	t.Helper()

	s, err := NewCentreStarter(seed)
	require.NoError(t, err)

	l, step, err := NewDiscrete(NewLand(s, cutoff), 0.99, seed)
	require.NoError(t, err)
	require.True(t, step.First())
	require.Equal(t, 0, step.Number)
	require.Equal(t, ObservationDims, step.Observation.Len())

	return l
}

func TestDiscreteSpecs(t *testing.T) {
	l := newTestLander(t, 100, 1)

	n, err := env.NumActions(l.ActionSpec())
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	assert.Equal(t, ObservationDims, l.ObservationSpec().Features())
	assert.Equal(t, 0.99, l.DiscountSpec().UpperBound.AtVec(0))
	assert.Equal(t, RestReward, l.task.RewardSpec().UpperBound.AtVec(0))
}

func TestResetObservation(t *testing.T) {
	l := newTestLander(t, 100, 3)
	obs := l.CurrentTimeStep().Observation

	// The lander starts near the top centre, above the landing pad
	assert.InDelta(t, 0, obs.AtVec(0), 0.1)
	assert.Greater(t, obs.AtVec(1), 0.5)
	assert.Equal(t, 0.0, obs.AtVec(6))
	assert.Equal(t, 0.0, obs.AtVec(7))

	assert.Len(t, l.terrain, Chunks)
	for i := Chunks/2 - 1; i <= Chunks/2+1; i++ {
		assert.InDelta(t, l.helipadY, l.terrain[i][1], 1e-9)
	}
}

func TestDiscreteIllegalAction(t *testing.T) {
	l := newTestLander(t, 100, 1)

	for _, a := range []float64{-1, 4, 1.5} {
		_, _, err := l.Step(mat.NewVecDense(1, []float64{a}))
		assert.Error(t, err, "action %v", a)
	}
	_, _, err := l.Step(mat.NewVecDense(2, nil))
	assert.Error(t, err)
}

func TestMainEngineSlowsFall(t *testing.T) {
	free := newTestLander(t, 0, 7)
	thrust := newTestLander(t, 0, 7)

	noop := mat.NewVecDense(1, []float64{0})
	main := mat.NewVecDense(1, []float64{2})
	for i := 0; i < 10; i++ {
		_, _, err := free.Step(noop)
		require.NoError(t, err)
		_, _, err = thrust.Step(main)
		require.NoError(t, err)
	}

	vFree := free.CurrentTimeStep().Observation.AtVec(3)
	vThrust := thrust.CurrentTimeStep().Observation.AtVec(3)
	assert.Greater(t, vThrust, vFree)
}

func TestEpisodeEndsByTermination(t *testing.T) {
	l := newTestLander(t, 0, 11)
	noop := mat.NewVecDense(1, []float64{0})

	var step ts.TimeStep
	var last bool
	var err error
	for i := 0; i < 2000 && !last; i++ {
		step, last, err = l.Step(noop)
		require.NoError(t, err)
	}

	// With no step limit, a free-falling lander must eventually crash
	// or come to rest
	require.True(t, last)
	assert.True(t, step.TerminalState())
	assert.True(t, step.Reward == CrashReward || step.Reward == RestReward,
		"final reward %v", step.Reward)

	_, _, err = l.Step(noop)
	assert.Error(t, err)

	first, err := l.Reset()
	require.NoError(t, err)
	assert.True(t, first.First())
}

func TestEpisodeEndsByStepLimit(t *testing.T) {
	l := newTestLander(t, 5, 2)
	noop := mat.NewVecDense(1, []float64{0})

	for i := 1; i <= 5; i++ {
		step, last, err := l.Step(noop)
		require.NoError(t, err)
		assert.Equal(t, i, step.Number)
		assert.Equal(t, i == 5, last)
		if last {
			assert.Equal(t, ts.Timeout, step.EndType())
			assert.False(t, step.TerminalState())
		}
	}
}

func TestShapingReward(t *testing.T) {
	l := newTestLander(t, 0, 5)
	land := l.task.(*Land)
	require.NotNil(t, land.prevShaping)
	prev := *land.prevShaping

	step, _, err := l.Step(mat.NewVecDense(1, []float64{2}))
	require.NoError(t, err)

	s := step.Observation
	shaping := -100*math.Hypot(s.AtVec(0), s.AtVec(1)) -
		100*math.Hypot(s.AtVec(2), s.AtVec(3)) -
		100*math.Abs(s.AtVec(4)) + 10*s.AtVec(6) + 10*s.AtVec(7)

	// Firing the main engine costs 0.3 fuel
	assert.InDelta(t, shaping-prev-0.3, step.Reward, 1e-9)
}

func TestValidateStart(t *testing.T) {
	bad := [][]r1.Interval{
		{{Min: -1, Max: -1}, {Min: InitialY, Max: InitialY}},
		{{Min: InitialX, Max: InitialX}, {Min: 1, Max: 1}},
	}
	for _, bounds := range bad {
		s, err := env.NewUniformStarter(bounds, 1)
		require.NoError(t, err)
		_, _, err = NewDiscrete(NewLand(s, 10), 0.99, 1)
		assert.Error(t, err)
	}
}

func TestRender(t *testing.T) {
	l := newTestLander(t, 100, 1)
	path := filepath.Join(t.TempDir(), "frame.png")
	require.NoError(t, l.Render(path))
	assert.FileExists(t, path)
}

var _ env.Renderer = &Discrete{}
