// Package environment outlines the interfaces and structs needed to implement
// concrete environments
package environment

import (
	"fmt"

	ts "github.com/samuelfneumann/goppo/timestep"
	"gonum.org/v1/gonum/mat"
)

// Starter implements a distribution of starting states and samples starting
// states for environments
type Starter interface {
	Start() *mat.VecDense
}

// Ender determines when episodes should be ended
type Ender interface {
	End(*ts.TimeStep) bool
}

// Task implements the reward scheme and episode termination rules for
// taking actions in some environment
type Task interface {
	Starter
	Ender
	GetReward(state, a, nextState mat.Vector) float64
	AtGoal(state mat.Matrix) bool
	RewardSpec() Spec
}

// Environment implements a simulated environment. The training loop and
// agents only depend on this capability.
type Environment interface {
	Reset() (ts.TimeStep, error)
	Step(action *mat.VecDense) (ts.TimeStep, bool, error)
	ObservationSpec() Spec
	ActionSpec() Spec
	DiscountSpec() Spec
}

// Renderer is implemented by environments which can draw their current
// state as a PNG image
type Renderer interface {
	Render(path string) error
}

// Closer is implemented by environments which hold external resources
type Closer interface {
	Close() error
}

// NumActions returns the number of actions described by a discrete,
// one-dimensional action specification
func NumActions(s Spec) (int, error) {
	if s.Type != Action {
		return 0, fmt.Errorf("numActions: spec type %v is not an action "+
			"spec", s.Type)
	}
	if s.Cardinality != Discrete {
		return 0, fmt.Errorf("numActions: only discrete actions supported")
	}
	if s.LowerBound.Len() != 1 {
		return 0, fmt.Errorf("numActions: expected one action dimension "+
			"but got %v", s.LowerBound.Len())
	}

	n := int(s.UpperBound.AtVec(0)-s.LowerBound.AtVec(0)) + 1
	if n < 1 {
		return 0, fmt.Errorf("numActions: illegal action bounds [%v, %v]",
			s.LowerBound.AtVec(0), s.UpperBound.AtVec(0))
	}
	return n, nil
}
