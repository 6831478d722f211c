// Package agent defines an agent interface
package agent

import (
	"github.com/samuelfneumann/goppo/buffer/rollout"
	"github.com/samuelfneumann/goppo/utils/floatutils"
)

// Actor selects actions in states, recording each selection in a
// rollout buffer. The outcome of each selected action should be
// recorded in the buffer before the next action is selected.
type Actor interface {
	Act(state []float64, buffer *rollout.Buffer) (int, error)
}

// Learner implements an on-policy learning algorithm that defines how
// weights are updated from the data collected in a rollout buffer.
type Learner interface {
	// Update updates the agent's weights using all data in the
	// buffer. The buffer is not cleared. The clip range and step size
	// are used only for this update.
	Update(buffer *rollout.Buffer, clipRange, stepSize float64) (UpdateStats,
		error)
}

// OnPolicyLearner is an agent which learns from the data that it
// collects with its current policy
type OnPolicyLearner interface {
	Actor
	Learner

	// Close releases the resources held by the agent
	Close() error
}

// UpdateStats records the losses of a single update
type UpdateStats struct {
	// Samples is the number of transitions used in the update
	Samples int

	// Losses holds the total loss of each pass over the data
	Losses []float64

	// PolicyLoss and ValueLoss are the components of the loss in the
	// final pass
	PolicyLoss float64
	ValueLoss  float64

	// ClipFraction is the fraction of probability ratios outside the
	// clipping range in the final pass
	ClipFraction float64

	// ApproxKL is an estimate of the KL divergence between the
	// behaviour policy and the policy in the final pass
	ApproxKL float64
}

// Finite returns whether all losses are finite
func (u UpdateStats) Finite() bool {
	return floatutils.IsFinite(u.Losses...) &&
		floatutils.IsFinite(u.PolicyLoss, u.ValueLoss)
}
