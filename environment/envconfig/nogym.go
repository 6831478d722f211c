//go:build !gym
// +build !gym

package envconfig

import (
	"errors"
	"fmt"

	env "github.com/samuelfneumann/goppo/environment"
	ts "github.com/samuelfneumann/goppo/timestep"
)

// ErrNoGym is returned when an OpenAI Gym environment is requested from
// a binary built without the gym build tag
var ErrNoGym = errors.New("built without OpenAI Gym support, rebuild " +
	"with -tags gym")

func createGym(name string, _ uint64,
	_ float64) (env.Environment, ts.TimeStep, error) {
	return nil, ts.TimeStep{}, fmt.Errorf("createGym: unknown environment "+
		"%q: %w", name, ErrNoGym)
}
