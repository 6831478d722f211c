//go:build gym
// +build gym

package envconfig

import (
	env "github.com/samuelfneumann/goppo/environment"
	"github.com/samuelfneumann/goppo/environment/gym"
	ts "github.com/samuelfneumann/goppo/timestep"
)

func createGym(name string, seed uint64,
	discount float64) (env.Environment, ts.TimeStep, error) {
	return gym.New(name, discount, seed)
}
