// Package envconfig creates the environments available to the training
// command from their names
package envconfig

import (
	"fmt"
	"strings"

	env "github.com/samuelfneumann/goppo/environment"
	"github.com/samuelfneumann/goppo/environment/box2d/lunarlander"
	"github.com/samuelfneumann/goppo/environment/classiccontrol/cartpole"
	ts "github.com/samuelfneumann/goppo/timestep"
	"gonum.org/v1/gonum/spatial/r1"
)

// Names of the native environments. All other names are passed on to
// OpenAI Gym, which is only available in binaries built with the gym
// build tag.
const (
	Cartpole    string = "Cartpole"
	LunarLander string = "LunarLander"
)

// GymPrefix may optionally prefix OpenAI Gym environment names
const GymPrefix string = "gym:"

// Config implements a specific configuration of a specific environment
type Config struct {
	Environment   string
	EpisodeCutoff uint
	Discount      float64
}

// NewConfig returns a new environment Config
func NewConfig(envName string, episodeCutoff uint,
	discount float64) Config {
	return Config{
		Environment:   envName,
		EpisodeCutoff: episodeCutoff,
		Discount:      discount,
	}
}

// Create returns the environment described by the Config as well as
// the first timestep of the environment.
func (c Config) Create(seed uint64) (env.Environment, ts.TimeStep, error) {
	if c.Environment == "" {
		return nil, ts.TimeStep{}, fmt.Errorf("create: no environment name")
	}

	var (
		e    env.Environment
		step ts.TimeStep
		err  error
	)
	cutoff := int(c.EpisodeCutoff)
	switch {
	case strings.EqualFold(c.Environment, Cartpole):
		e, step, err = CreateCartpole(cutoff, seed, c.Discount)
	case strings.EqualFold(c.Environment, LunarLander):
		e, step, err = CreateLunarLander(cutoff, seed, c.Discount)
	default:
		name := strings.TrimPrefix(c.Environment, GymPrefix)
		e, step, err = createGym(name, seed, c.Discount)
	}

	if err != nil {
		return nil, ts.TimeStep{}, fmt.Errorf("create: %w", err)
	}
	return e, step, nil
}

// CreateCartpole is a factory for creating the Cartpole environment
// with default physical parameters and the Balance task.
func CreateCartpole(cutoff int, seed uint64,
	discount float64) (*cartpole.Discrete, ts.TimeStep, error) {
	bounds := r1.Interval{Min: -0.05, Max: 0.05}
	s, err := env.NewUniformStarter([]r1.Interval{
		bounds,
		bounds,
		bounds,
		bounds,
	}, seed)
	if err != nil {
		return nil, ts.TimeStep{}, fmt.Errorf("createCartpole: %v", err)
	}

	task := cartpole.NewBalance(s, cutoff, cartpole.FailAngle)
	return cartpole.NewDiscrete(task, discount)
}

// CreateLunarLander is a factory for creating the Lunar Lander
// environment with discrete actions and the Land task. The lander
// always starts at the top centre of the screen.
func CreateLunarLander(cutoff int, seed uint64,
	discount float64) (*lunarlander.Discrete, ts.TimeStep, error) {
	s, err := lunarlander.NewCentreStarter(seed)
	if err != nil {
		return nil, ts.TimeStep{}, fmt.Errorf("createLunarLander: %v", err)
	}

	task := lunarlander.NewLand(s, cutoff)
	return lunarlander.NewDiscrete(task, discount, seed)
}
