package rollout

import "errors"

// Error implements errors unique to a rollout buffer
type Error struct {
	Op  string
	Err error
}

// Error satisifes the error interface
func (e *Error) Error() string {
	return e.Op + ": " + e.Err.Error()
}

// Unwrap returns the underlying error so that errors.Is can be used
// with the sentinel errors of this package
func (e *Error) Unwrap() error {
	return e.Err
}

var (
	// ErrPendingStep is returned when a step is appended before the
	// outcome of the previous step was recorded
	ErrPendingStep = errors.New("previous step has no outcome")

	// ErrNoPendingStep is returned when an outcome is appended but no
	// step is waiting for one
	ErrNoPendingStep = errors.New("no step awaiting an outcome")

	// ErrFeatures is returned when a state has the wrong number of
	// features
	ErrFeatures = errors.New("wrong number of state features")
)

// IsPendingStep returns whether or not an error reports that a step
// was appended while another was awaiting its outcome
func IsPendingStep(err error) bool {
	return errors.Is(err, ErrPendingStep)
}

// IsNoPendingStep returns whether or not an error reports that an
// outcome was appended with no step awaiting it
func IsNoPendingStep(err error) bool {
	return errors.Is(err, ErrNoPendingStep)
}
