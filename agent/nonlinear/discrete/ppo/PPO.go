// Package ppo implements the Proximal Policy Optimization algorithm
// with a clipped surrogate objective for discrete actions. This
// implementation is adapted from:
//
// https://spinningup.openai.com/en/latest/algorithms/ppo.html
// https://arxiv.org/abs/1707.06347
package ppo

import (
	"errors"
	"fmt"
	"sync"

	"github.com/samuelfneumann/goppo/agent"
	"github.com/samuelfneumann/goppo/agent/nonlinear/discrete/actorcritic"
	"github.com/samuelfneumann/goppo/buffer/rollout"
	"github.com/samuelfneumann/goppo/environment"
	"github.com/samuelfneumann/goppo/solver"
	"gonum.org/v1/gonum/stat/distuv"
)

// Epochs is the number of passes over the data in each update
const Epochs = 4

// ErrEmptyBatch is returned when updating with no data
var ErrEmptyBatch = errors.New("ppo: cannot update with an empty batch")

// PPO implements the PPO-Clip algorithm with discounted Monte-Carlo
// returns as targets and the returns minus the state values as
// advantages.
//
// A PPO agent keeps two ActorCritics. The behaviour ActorCritic
// selects actions. The target ActorCritic is optimized on each update
// and then copied into the behaviour ActorCritic. Act and Update may
// be called from different goroutines, but are never run
// concurrently.
type PPO struct {
	mu sync.Mutex

	behaviour *actorcritic.ActorCritic
	target    *actorcritic.ActorCritic
	trainer   *trainer // nil until the first update

	solver *solver.Solver
	gamma  float64
}

// New creates and returns a new PPO agent for the environment.
func New(env environment.Environment, c Config, seed uint64) (*PPO, error) {
	features := env.ObservationSpec().Features()
	actions, err := environment.NumActions(env.ActionSpec())
	if err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}

	p, err := NewWithDims(features, actions, c, seed)
	if err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}
	return p, nil
}

// NewWithDims creates and returns a new PPO agent for states with
// features features and actions discrete actions.
func NewWithDims(features, actions int, c Config, seed uint64) (*PPO,
	error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("newWithDims: %v", err)
	}

	behaviour, err := actorcritic.New(features, actions, 1, c.architecture(),
		seed)
	if err != nil {
		return nil, fmt.Errorf("newWithDims: could not create behaviour: %v",
			err)
	}

	target, err := behaviour.Clone()
	if err != nil {
		return nil, fmt.Errorf("newWithDims: could not create target: %v",
			err)
	}

	return &PPO{
		behaviour: behaviour,
		target:    target,
		solver:    c.Solver,
		gamma:     c.Gamma,
	}, nil
}

// Gamma returns the discount factor of the agent
func (p *PPO) Gamma() float64 {
	return p.gamma
}

// Behaviour returns the ActorCritic which selects actions. Its
// parameters change after each call to Update, so it should not be
// used concurrently with Update. Use Distribution instead.
func (p *PPO) Behaviour() *actorcritic.ActorCritic {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.behaviour
}

// Distribution returns the action distribution of the behaviour policy
// in state. It may be called concurrently with Update.
func (p *PPO) Distribution(state []float64) (distuv.Categorical, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	dist, err := p.behaviour.Distribution(state)
	if err != nil {
		return distuv.Categorical{}, fmt.Errorf("distribution: %v", err)
	}
	return dist, nil
}

// Target returns the ActorCritic which is optimized on each update.
// The returned ActorCritic may change after each call to Update.
func (p *PPO) Target() *actorcritic.ActorCritic {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.target
}

// Act selects an action in state using the behaviour ActorCritic and
// records the state, action and log probability of the action in the
// buffer.
func (p *PPO) Act(state []float64, buffer *rollout.Buffer) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	action, err := p.behaviour.Act(state, buffer)
	if err != nil {
		return 0, fmt.Errorf("act: %v", err)
	}
	return action, nil
}

// Update updates the agent using all completed transitions in the
// buffer, with clipping range clipRange and learning rate stepSize.
// The buffer is not cleared.
func (p *PPO) Update(buffer *rollout.Buffer, clipRange,
	stepSize float64) (agent.UpdateStats, error) {
	return p.UpdateBatch(buffer.Snapshot(), clipRange, stepSize)
}

// UpdateBatch updates the agent using all transitions in the batch,
// with clipping range clipRange and learning rate stepSize.
//
// The target ActorCritic is trained for Epochs passes over the entire
// batch, after which the behaviour ActorCritic is set to a copy of
// the target.
func (p *PPO) UpdateBatch(batch rollout.Batch, clipRange,
	stepSize float64) (agent.UpdateStats, error) {
	if batch.Len() == 0 {
		return agent.UpdateStats{}, ErrEmptyBatch
	}
	if clipRange < 0 {
		return agent.UpdateStats{}, fmt.Errorf("updateBatch: clip range "+
			"must be non-negative but got %v", clipRange)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if batch.Features() != p.behaviour.Features() {
		return agent.UpdateStats{}, fmt.Errorf("updateBatch: expected "+
			"states with %v features but got %v", p.behaviour.Features(),
			batch.Features())
	}

	if err := p.solver.SetStepSize(stepSize); err != nil {
		return agent.UpdateStats{}, fmt.Errorf("updateBatch: %v", err)
	}

	returns, err := DiscountedReturns(batch.Rewards(), batch.Terminals(),
		p.gamma)
	if err != nil {
		return agent.UpdateStats{}, fmt.Errorf("updateBatch: %v", err)
	}
	returns = NormalizeReturns(returns)

	t, err := p.trainerFor(batch.Len())
	if err != nil {
		return agent.UpdateStats{}, fmt.Errorf("updateBatch: %v", err)
	}

	stats, err := t.train(p.solver, Epochs, batch.States(), batch.Actions(),
		batch.LogProbs(), returns, clipRange)
	if err != nil {
		return stats, fmt.Errorf("updateBatch: %v", err)
	}

	if err := p.behaviour.Set(p.target); err != nil {
		return stats, fmt.Errorf("updateBatch: could not synchronize "+
			"behaviour: %v", err)
	}
	return stats, nil
}

// trainerFor returns a trainer for batches of size batch. If the
// current trainer has a different batch size, a new trainer is
// created whose ActorCritic, holding the current target parameters,
// becomes the target.
func (p *PPO) trainerFor(batch int) (*trainer, error) {
	if p.trainer != nil && p.trainer.batchSize == batch {
		return p.trainer, nil
	}

	ac, err := p.target.CloneWithBatch(batch)
	if err != nil {
		return nil, fmt.Errorf("trainerFor: %v", err)
	}
	t, err := newTrainer(ac)
	if err != nil {
		ac.Close()
		return nil, fmt.Errorf("trainerFor: %v", err)
	}

	if p.trainer != nil {
		if err := p.trainer.close(); err != nil {
			return nil, fmt.Errorf("trainerFor: %v", err)
		}
	} else if err := p.target.Close(); err != nil {
		return nil, fmt.Errorf("trainerFor: %v", err)
	}

	p.trainer = t
	p.target = t.ac
	return t, nil
}

// Close releases the resources held by the agent
func (p *PPO) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.behaviour.Close(); err != nil {
		return fmt.Errorf("close: %v", err)
	}
	if p.trainer != nil {
		if err := p.trainer.close(); err != nil {
			return fmt.Errorf("close: %v", err)
		}
		return nil
	}
	return p.target.Close()
}

var _ agent.OnPolicyLearner = &PPO{}
