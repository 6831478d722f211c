package environment

import (
	"fmt"

	ts "github.com/samuelfneumann/goppo/timestep"
	"gonum.org/v1/gonum/spatial/r1"
)

// Enders ends an episode when any of its Enders does. Enders are
// checked in order, so the first Ender to end the episode determines
// the EndType of the final TimeStep.
type Enders []Ender

// End implements the Ender interface
func (e Enders) End(t *ts.TimeStep) bool {
	for _, ender := range e {
		if ender.End(t) {
			return true
		}
	}
	return false
}

// StepLimit cuts episodes off once they reach a number of steps. The
// final TimeStep of a cut off episode has EndType timestep.Timeout.
type StepLimit struct {
	limit int
}

// NewStepLimit returns a StepLimit of limit steps. A limit of 0 or
// less never ends an episode.
func NewStepLimit(limit int) *StepLimit {
	return &StepLimit{limit}
}

// End marks t as the last step of its episode if the step limit has
// been reached
func (s *StepLimit) End(t *ts.TimeStep) bool {
	if s.limit <= 0 || t.Number < s.limit {
		return false
	}
	t.StepType = ts.Last
	t.SetEnd(ts.Timeout)
	return true
}

// IntervalLimit ends episodes when an observation feature leaves its
// legal interval
type IntervalLimit struct {
	legal   map[int]r1.Interval
	endType ts.EndType
}

// NewIntervalLimit returns an IntervalLimit which ends the episode with
// endType once observation feature indices[i] leaves legal[i].
func NewIntervalLimit(legal []r1.Interval, indices []int,
	endType ts.EndType) *IntervalLimit {
	if len(legal) != len(indices) {
		panic(fmt.Sprintf("newIntervalLimit: %v intervals given for %v "+
			"features", len(legal), len(indices)))
	}

	limits := make(map[int]r1.Interval, len(indices))
	for i, index := range indices {
		limits[index] = legal[i]
	}
	return &IntervalLimit{limits, endType}
}

// End marks t as the last step of its episode if any limited feature
// of its observation is outside its interval
func (i *IntervalLimit) End(t *ts.TimeStep) bool {
	for index, interval := range i.legal {
		x := t.Observation.AtVec(index)
		if x < interval.Min || x > interval.Max {
			t.StepType = ts.Last
			t.SetEnd(i.endType)
			return true
		}
	}
	return false
}
