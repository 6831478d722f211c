package cartpole

import (
	"math"

	env "github.com/samuelfneumann/goppo/environment"
	ts "github.com/samuelfneumann/goppo/timestep"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
)

const (
	FailAngle    float64 = 12 * 2 * math.Pi / 360
	FailPosition float64 = 2.4
)

// Balance implements the classic control Cartpole Balance task. In this
// Task, the goal of the agent is to balance the pole on the cart in
// an upright position for as long as possible.
//
// The reward is +1 for every timestep, including the one on which the
// pole falls.
//
// Episodes end after a step limit, after the pole has fallen below
// some angle threshold θ, or after the cart leaves the track.
type Balance struct {
	env.Starter
	env.Enders
	failAngle float64
}

// NewBalance creates and returns a new Balance task. An episodeSteps
// of 0 disables the step limit.
func NewBalance(s env.Starter, episodeSteps int, failAngle float64) *Balance {
	legal := []r1.Interval{
		{Min: -FailPosition, Max: FailPosition},
		{Min: -failAngle, Max: failAngle},
	}
	featureIndices := []int{0, 2}
	stateLimiter := env.NewIntervalLimit(legal, featureIndices,
		ts.TerminalStateReached)

	// A pole which falls on the last allowed step ends the episode as
	// a failure rather than a timeout
	enders := env.Enders{stateLimiter, env.NewStepLimit(episodeSteps)}

	return &Balance{s, enders, failAngle}
}

// GetReward returns the reward for an action taken in some state,
// resulting in a transition to the next state nextState.
func (b *Balance) GetReward(_, _, _ mat.Vector) float64 {
	return 1.0
}

// AtGoal returns whether or not the pole is balanced.
func (b *Balance) AtGoal(state mat.Matrix) bool {
	return math.Abs(state.At(2, 0)) <= b.failAngle
}

// Min returns the minimum possible reward that can be received in the
// environment
func (b *Balance) Min() float64 {
	return 1.0
}

// Max returns the maximum possible reward that can be received in the
// environment
func (b *Balance) Max() float64 {
	return 1.0
}

// RewardSpec returns the reward specification for the environment
func (b *Balance) RewardSpec() env.Spec {
	shape := mat.NewVecDense(1, nil)
	lowerBound := mat.NewVecDense(1, []float64{b.Min()})
	upperBound := mat.NewVecDense(1, []float64{b.Max()})

	return env.NewSpec(shape, env.Reward, lowerBound, upperBound,
		env.Continuous)
}
