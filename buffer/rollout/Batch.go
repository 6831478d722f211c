package rollout

import (
	"fmt"
)

// Transition is a single recorded interaction with an environment.
// The log probability is that of the action under the policy which
// selected it.
type Transition struct {
	State    []float64
	Action   int
	LogProb  float64
	Reward   float64
	Terminal bool
}

// clone returns a deep copy of the transition
func (t Transition) clone() Transition {
	t.State = append([]float64(nil), t.State...)
	return t
}

// Batch is an immutable, ordered sequence of transitions. Episode
// boundaries are given by the Terminal flags.
type Batch struct {
	transitions []Transition
	features    int
}

// NewBatch returns a new Batch holding copies of the transitions. All
// states must have the same number of features.
func NewBatch(transitions []Transition) (Batch, error) {
	if len(transitions) == 0 {
		return Batch{}, nil
	}

	features := len(transitions[0].State)
	copied := make([]Transition, len(transitions))
	for i := range transitions {
		if len(transitions[i].State) != features {
			return Batch{}, &Error{
				Op: "newBatch",
				Err: fmt.Errorf("%w: transition %v has %v features but "+
					"expected %v", ErrFeatures, i,
					len(transitions[i].State), features),
			}
		}
		copied[i] = transitions[i].clone()
	}

	return Batch{transitions: copied, features: features}, nil
}

// Concat concatenates batches, in order, into a single batch. This
// allows the data of several collectors to be used in one update.
func Concat(batches ...Batch) (Batch, error) {
	total := 0
	features := 0
	for i, b := range batches {
		if b.Len() == 0 {
			continue
		}
		if features != 0 && b.features != features {
			return Batch{}, &Error{
				Op: "concat",
				Err: fmt.Errorf("%w: batch %v has %v features but "+
					"expected %v", ErrFeatures, i, b.features, features),
			}
		}
		features = b.features
		total += b.Len()
	}

	transitions := make([]Transition, 0, total)
	for _, b := range batches {
		transitions = append(transitions, b.transitions...)
	}

	// Transitions of a Batch are never modified, so they can be shared
	return Batch{transitions: transitions, features: features}, nil
}

// Len returns the number of transitions in the batch
func (b Batch) Len() int {
	return len(b.transitions)
}

// Features returns the number of features of each state
func (b Batch) Features() int {
	return b.features
}

// At returns a copy of the transition at index i
func (b Batch) At(i int) Transition {
	return b.transitions[i].clone()
}

// States returns the states of the batch flattened in row major order
func (b Batch) States() []float64 {
	states := make([]float64, 0, b.Len()*b.features)
	for _, t := range b.transitions {
		states = append(states, t.State...)
	}
	return states
}

// Actions returns the actions of the batch
func (b Batch) Actions() []int {
	actions := make([]int, b.Len())
	for i, t := range b.transitions {
		actions[i] = t.Action
	}
	return actions
}

// LogProbs returns the log probabilities of the actions of the batch
func (b Batch) LogProbs() []float64 {
	logProbs := make([]float64, b.Len())
	for i, t := range b.transitions {
		logProbs[i] = t.LogProb
	}
	return logProbs
}

// Rewards returns the rewards of the batch
func (b Batch) Rewards() []float64 {
	rewards := make([]float64, b.Len())
	for i, t := range b.transitions {
		rewards[i] = t.Reward
	}
	return rewards
}

// Terminals returns the terminal flags of the batch
func (b Batch) Terminals() []bool {
	terminals := make([]bool, b.Len())
	for i, t := range b.transitions {
		terminals[i] = t.Terminal
	}
	return terminals
}
