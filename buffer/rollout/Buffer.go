// Package rollout implements a buffer which stores the transitions
// collected by an on-policy agent between updates.
package rollout

import (
	"fmt"
	"sync"
)

// Buffer stores an ordered sequence of transitions. Transitions are
// recorded in two parts: AppendStep records the state, the action
// taken and its log probability when the action is selected, and
// AppendOutcome records the resulting reward and terminal flag. Until
// its outcome is recorded, a step is pending and is not visible
// through any of the Buffer's accessors, so all exposed sequences
// always have equal length.
//
// All methods are safe for concurrent use.
type Buffer struct {
	mu          sync.Mutex
	transitions []Transition
	pending     *Transition
	features    int
}

// New returns a new, empty Buffer whose states have the given number
// of features. If features is 0, then the number of features is set by
// the first appended state.
func New(features int) *Buffer {
	return &Buffer{features: features}
}

// AppendStep records a state, the action selected in it and the log
// probability of that action. The step remains pending until
// AppendOutcome is called.
func (b *Buffer) AppendStep(state []float64, action int,
	logProb float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pending != nil {
		return &Error{Op: "appendStep", Err: ErrPendingStep}
	}
	if b.features == 0 {
		b.features = len(state)
	}
	if len(state) != b.features || len(state) == 0 {
		return &Error{
			Op: "appendStep",
			Err: fmt.Errorf("%w: got %v but expected %v", ErrFeatures,
				len(state), b.features),
		}
	}

	b.pending = &Transition{
		State:   append([]float64(nil), state...),
		Action:  action,
		LogProb: logProb,
	}
	return nil
}

// AppendOutcome records the reward and terminal flag of the pending
// step, completing its transition.
func (b *Buffer) AppendOutcome(reward float64, terminal bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pending == nil {
		return &Error{Op: "appendOutcome", Err: ErrNoPendingStep}
	}

	b.pending.Reward = reward
	b.pending.Terminal = terminal
	b.transitions = append(b.transitions, *b.pending)
	b.pending = nil
	return nil
}

// Pending returns whether a step is awaiting its outcome
func (b *Buffer) Pending() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pending != nil
}

// Clear removes all transitions, including any pending step
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.transitions = nil
	b.pending = nil
}

// Len returns the number of complete transitions in the buffer
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.transitions)
}

// Features returns the number of features of each state
func (b *Buffer) Features() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.features
}

// Snapshot returns an immutable copy of the complete transitions in
// the buffer
func (b *Buffer) Snapshot() Batch {
	b.mu.Lock()
	defer b.mu.Unlock()

	transitions := make([]Transition, len(b.transitions))
	for i := range b.transitions {
		transitions[i] = b.transitions[i].clone()
	}
	return Batch{transitions: transitions, features: b.features}
}

// States returns a copy of the recorded states
func (b *Buffer) States() [][]float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	states := make([][]float64, len(b.transitions))
	for i := range b.transitions {
		states[i] = append([]float64(nil), b.transitions[i].State...)
	}
	return states
}

// Actions returns a copy of the recorded actions
func (b *Buffer) Actions() []int {
	return b.Snapshot().Actions()
}

// LogProbs returns a copy of the recorded action log probabilities
func (b *Buffer) LogProbs() []float64 {
	return b.Snapshot().LogProbs()
}

// Rewards returns a copy of the recorded rewards
func (b *Buffer) Rewards() []float64 {
	return b.Snapshot().Rewards()
}

// Terminals returns a copy of the recorded terminal flags
func (b *Buffer) Terminals() []bool {
	return b.Snapshot().Terminals()
}
