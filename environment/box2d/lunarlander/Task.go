package lunarlander

import (
	"math"

	env "github.com/samuelfneumann/goppo/environment"
	ts "github.com/samuelfneumann/goppo/timestep"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
)

const (
	CrashReward float64 = -100
	RestReward  float64 = 100
)

// Task is an environment.Task which needs access to the lander's
// physics to compute rewards and episode ends
type Task interface {
	env.Task
	register(*lunarLander)
	reset()
}

// Land implements the Lunar Lander landing task. The agent is rewarded
// for moving the lander towards the landing pad, slowing down, staying
// upright and touching down on its legs, and is charged for fuel.
// Crashing or flying off screen ends the episode with a reward of -100,
// while coming to rest ends it with a reward of +100.
type Land struct {
	env.Starter
	stepLimit *env.StepLimit

	prevShaping *float64
	env         *lunarLander
}

// NewLand returns a new Land task. An episodeSteps of 0 disables the
// step limit.
func NewLand(s env.Starter, episodeSteps int) *Land {
	return &Land{Starter: s, stepLimit: env.NewStepLimit(episodeSteps)}
}

// NewCentreStarter returns a Starter which always places the lander at
// the top centre of the screen
func NewCentreStarter(seed uint64) (env.Starter, error) {
	return env.NewUniformStarter([]r1.Interval{
		{Min: InitialX, Max: InitialX},
		{Min: InitialY, Max: InitialY},
	}, seed)
}

func (l *Land) register(e *lunarLander) {
	l.env = e
}

func (l *Land) reset() {
	l.prevShaping = nil
}

func (l *Land) crashed(nextState mat.Vector) bool {
	return l.env.gameOver || math.Abs(nextState.AtVec(0)) >= 1.0
}

// GetReward returns the reward for transitioning to nextState
func (l *Land) GetReward(_, _, nextState mat.Vector) float64 {
	s := func(i int) float64 { return nextState.AtVec(i) }

	shaping := -100*math.Hypot(s(0), s(1)) -
		100*math.Hypot(s(2), s(3)) -
		100*math.Abs(s(4)) +
		10*s(6) + 10*s(7)

	reward := 0.0
	if l.prevShaping != nil {
		reward = shaping - *l.prevShaping
	}
	l.prevShaping = &shaping

	reward -= l.env.mPower * 0.30
	reward -= l.env.sPower * 0.03

	if l.crashed(nextState) {
		return CrashReward
	} else if !l.env.lander.IsAwake() {
		return RestReward
	}
	return reward
}

// End ends the episode when the lander crashes, leaves the screen or
// comes to rest. Otherwise, the episode is cut off at the step limit.
func (l *Land) End(t *ts.TimeStep) bool {
	if l.crashed(t.Observation) || !l.env.lander.IsAwake() {
		t.StepType = ts.Last
		t.SetEnd(ts.TerminalStateReached)
		return true
	}
	return l.stepLimit.End(t)
}

// AtGoal returns whether both legs of the lander touch the ground
func (l *Land) AtGoal(state mat.Matrix) bool {
	return state.At(6, 0) == 1 && state.At(7, 0) == 1
}

// RewardSpec returns the reward specification of the task
func (l *Land) RewardSpec() env.Spec {
	shape := mat.NewVecDense(1, nil)
	lowerBound := mat.NewVecDense(1, []float64{CrashReward})
	upperBound := mat.NewVecDense(1, []float64{RestReward})

	return env.NewSpec(shape, env.Reward, lowerBound, upperBound,
		env.Continuous)
}
