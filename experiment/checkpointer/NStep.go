package checkpointer

import "fmt"

// nStep implements checkpointing every N updates
type nStep struct {
	interval int

	// object returns the object to save. The object is looked up on
	// each checkpoint since agents may replace the objects they own
	// between updates.
	object func() Serializable

	// filename returns the string filename of the file to save the object
	// in.
	//
	// If each serialized object should be saved in a separate file with
	// each file having an incremented number as a suffix (e.g.
	// file1.bin, file2.bin, ..., fileK.bin), then simply use the
	// static function FilenameEnumerator, which will return a function
	// that will enumerate filenames.
	//
	// Otherwise, if each serialized object should be saved in a
	// separate file, but the filename does not matter, use the
	// static function FileTimer to generate the required naming
	// function. For example:
	//
	// n := NewNStep(10, object, FileTimer("filename", ".bin"))
	filename func() string
}

// NewNStep returns a checkpointer that checkpoints every n updates.
func NewNStep(n int, object func() Serializable,
	filename func() string) (Checkpointer, error) {
	if n < 1 {
		return nil, fmt.Errorf("newNStep: interval must be positive but "+
			"got %v", n)
	}
	return &nStep{
		interval: n,
		object:   object,
		filename: filename,
	}, nil
}

// Checkpoint saves the Checkpointer's tracked object if the number of
// updates is a multiple of the checkpointing interval
func (n *nStep) Checkpoint(update int) (string, error) {
	if update%n.interval != 0 {
		return "", nil
	}
	filename := n.filename()
	if err := Save(filename, n.object()); err != nil {
		return "", fmt.Errorf("checkpoint: %v", err)
	}
	return filename, nil
}
