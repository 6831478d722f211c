// Package experiment implements functionality for running an experiment
package experiment

import (
	"context"

	"github.com/google/uuid"
	"github.com/samuelfneumann/goppo/experiment/trackers"
)

// Experiment runs an agent in an environment. The Run() method runs
// episodes until the episode limit is reached, some other ending
// condition is reached or the context is cancelled. The Save() method
// then saves all tracked data to disk.
//
// In order to save data, Experiments use Trackers. Experiments send
// each TimeStep to Trackers using the Tracker's Track() method. The
// Tracker then determines which data from the TimeStep it caches and
// saves. New Trackers can be registered with an Experiment through
// its Register() method.
type Experiment interface {
	Run(ctx context.Context) (Result, error)

	// Save all tracked data to disk
	Save() error

	// Adds a new Tracker to the experiment
	Register(t trackers.Tracker)
}

// Result summarizes a completed experiment
type Result struct {
	RunID    uuid.UUID
	Episodes int
	Steps    int
	Updates  int

	// Solved is true if training stopped because the average return
	// reached the solved threshold
	Solved bool

	// Returns and Lengths of all completed episodes
	Returns []float64
	Lengths []int
}
