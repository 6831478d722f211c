package ppo

import (
	"fmt"

	"github.com/samuelfneumann/goppo/agent/nonlinear/discrete/actorcritic"
	"github.com/samuelfneumann/goppo/initwfn"
	"github.com/samuelfneumann/goppo/network"
	"github.com/samuelfneumann/goppo/solver"
)

// Config implements a configuration for a PPO agent with a softmax
// policy. The policy network outputs the logit of each action and
// action probabilities are computed through the softmax function. The
// state value function is a separate network with a single output.
type Config struct {
	// Policy neural net
	PolicyLayers      []int
	PolicyBiases      []bool
	PolicyActivations []*network.Activation

	// State value function neural net
	ValueFnLayers      []int
	ValueFnBiases      []bool
	ValueFnActivations []*network.Activation

	// Weight init function for all neural nets
	InitWFn *initwfn.InitWFn

	// Solver updates the parameters of both neural nets. Its step
	// size is overwritten on each update.
	Solver *solver.Solver

	// Discount factor used to compute returns
	Gamma float64
}

// DefaultConfig returns a Config with two hidden layers of 64 tanh
// units for both the policy and value function, Glorot uniform
// initialization and the Adam solver.
func DefaultConfig(gamma float64) (Config, error) {
	arch := actorcritic.DefaultArchitecture()

	adam, err := solver.NewDefaultAdam(2e-3, 1)
	if err != nil {
		return Config{}, fmt.Errorf("defaultConfig: %v", err)
	}

	return Config{
		PolicyLayers:       arch.PolicyLayers,
		PolicyBiases:       arch.PolicyBiases,
		PolicyActivations:  arch.PolicyActivations,
		ValueFnLayers:      arch.ValueLayers,
		ValueFnBiases:      arch.ValueBiases,
		ValueFnActivations: arch.ValueActivations,
		InitWFn:            arch.Init,
		Solver:             adam,
		Gamma:              gamma,
	}, nil
}

// Validate checks a Config to ensure it is a valid configuration
func (c Config) Validate() error {
	if c.Gamma <= 0 || c.Gamma >= 1 {
		return fmt.Errorf("validate: gamma must be in (0, 1) but got %v",
			c.Gamma)
	}
	if c.Solver == nil || c.Solver.Solver == nil {
		return fmt.Errorf("validate: no solver specified")
	}
	if err := c.architecture().Validate(); err != nil {
		return fmt.Errorf("validate: %v", err)
	}
	return nil
}

// architecture returns the neural net architecture of the Config
func (c Config) architecture() actorcritic.Architecture {
	return actorcritic.Architecture{
		PolicyLayers:      c.PolicyLayers,
		PolicyBiases:      c.PolicyBiases,
		PolicyActivations: c.PolicyActivations,

		ValueLayers:      c.ValueFnLayers,
		ValueBiases:      c.ValueFnBiases,
		ValueActivations: c.ValueFnActivations,

		Init: c.InitWFn,
	}
}
