package lunarlander

import (
	"fmt"

	env "github.com/samuelfneumann/goppo/environment"
	ts "github.com/samuelfneumann/goppo/timestep"
	"gonum.org/v1/gonum/mat"
)

const (
	ActionDims        int = 1
	MinDiscreteAction int = 0
	MaxDiscreteAction int = 3
)

// Discrete implements the Lunar Lander environment with discrete
// actions. Legal actions are in {0, 1, 2, 3}:
//
//	Action		Meaning
//	  0			Do nothing
//	  1			Fire left engine
//	  2			Fire main engine
//	  3			Fire right engine
//
// Illegal actions result in an error.
//
// Discrete implements the environment.Environment interface
type Discrete struct {
	*lunarLander
}

// NewDiscrete returns a new Lunar Lander environment with discrete
// actions
func NewDiscrete(t Task, discount float64, seed uint64) (*Discrete,
	ts.TimeStep, error) {
	l, step, err := newLunarLander(t, discount, seed)
	if err != nil {
		return nil, ts.TimeStep{}, fmt.Errorf("newDiscrete: %v", err)
	}
	return &Discrete{l}, step, nil
}

// ActionSpec returns the action specification of the environment
func (d *Discrete) ActionSpec() env.Spec {
	shape := mat.NewVecDense(ActionDims, nil)
	lowerBound := mat.NewVecDense(ActionDims,
		[]float64{float64(MinDiscreteAction)})
	upperBound := mat.NewVecDense(ActionDims,
		[]float64{float64(MaxDiscreteAction)})

	return env.NewSpec(shape, env.Action, lowerBound, upperBound,
		env.Discrete)
}

// Step takes one environmental step given action a and returns the next
// timestep and whether or not the episode has ended
func (d *Discrete) Step(a *mat.VecDense) (ts.TimeStep, bool, error) {
	if a.Len() != ActionDims {
		return ts.TimeStep{}, true, fmt.Errorf("step: actions should be "+
			"%v-dimensional but got %v", ActionDims, a.Len())
	}

	action := int(a.AtVec(0))
	if float64(action) != a.AtVec(0) || action < MinDiscreteAction ||
		action > MaxDiscreteAction {
		return ts.TimeStep{}, true, fmt.Errorf("step: illegal action %v "+
			"∉ {0, 1, 2, 3}", a.AtVec(0))
	}
	if d.lastStep.Last() {
		return ts.TimeStep{}, true, fmt.Errorf("step: episode has ended, " +
			"reset the environment")
	}

	var e engines
	switch action {
	case 1:
		e.side = -1
	case 2:
		e.main = 1
	case 3:
		e.side = 1
	}

	step, err := d.step(e)
	if err != nil {
		return ts.TimeStep{}, true, err
	}
	return step, step.Last(), nil
}
