// Package checkpointer implements functionality for periodically
// saving serializable objects, such as the weights of an agent, during
// an experiment
package checkpointer

import (
	"encoding/gob"
	"fmt"
	"os"
)

// Serializable is an object that can be saved/serialized
type Serializable interface {
	gob.GobEncoder
}

// Checkpointer checkpoints/saves serializable objects after updates of
// an agent. The argument to Checkpoint is the number of updates
// performed so far. Checkpoint returns the file written, or "" if no
// checkpoint was due.
type Checkpointer interface {
	Checkpoint(update int) (string, error)
}

// Save gob encodes the object to a new file filename
func Save(filename string, object Serializable) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("save: could not create file: %v", err)
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode(object); err != nil {
		return fmt.Errorf("save: could not encode object: %v", err)
	}
	return file.Close()
}

// Load decodes an object saved with Save from filename into object
func Load(filename string, object gob.GobDecoder) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("load: could not open file: %v", err)
	}
	defer file.Close()

	if err := gob.NewDecoder(file).Decode(object); err != nil {
		return fmt.Errorf("load: could not decode object: %v", err)
	}
	return nil
}
