// Package solver implements functionality to wrap Gorgonia Solvers
// so that they can be JSON serialized into configuration files.
package solver

import (
	"encoding/json"
	"fmt"
	"reflect"

	G "gorgonia.org/gorgonia"
)

// Type describes different types of solvers that are available
type Type string

// Available solver types
const (
	Adam    Type = "Adam"
	Vanilla Type = "Vanilla"
	RMSProp Type = "RMSProp"
)

// Solver wraps Gorgonia Solvers so that they can be JSON marshalled and
// unmarshalled.
//
// The step size of a Solver may be changed between updates with
// SetStepSize. Any state of the wrapped Gorgonia Solver, such as
// Adam's moment estimates, is kept.
type Solver struct {
	G.Solver `json:"-"`
	Type
	Config

	stepSize float64
}

// newSolver returns a new solver with the given type and configuration.
func newSolver(t Type, c Config) (*Solver, error) {
	if !c.ValidType(t) {
		return nil, fmt.Errorf("newSolver: invalid solver type %v for "+
			"configuration %T", t, c)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("newSolver: %v", err)
	}
	solver := Solver{Type: t, Config: c, stepSize: c.InitialStepSize()}
	solver.Solver = solver.Config.Create()

	return &solver, nil
}

// SetStepSize sets the learning rate used by subsequent calls to Step
func (s *Solver) SetStepSize(stepSize float64) error {
	if stepSize < 0 {
		return fmt.Errorf("setStepSize: step size must be non-negative "+
			"but got %v", stepSize)
	}
	if s.Solver == nil {
		return fmt.Errorf("setStepSize: solver has not been created")
	}

	G.WithLearnRate(stepSize)(s.Solver)
	s.stepSize = stepSize
	return nil
}

// StepSize returns the current learning rate of the Solver
func (s *Solver) StepSize() float64 {
	return s.stepSize
}

// UnmarshalJSON implements the json.Unmarshaller interface
func (s *Solver) UnmarshalJSON(data []byte) error {
	config, typeName, err := unmarshalConfig(
		data,
		"Type",
		"Config",
		map[string]reflect.Type{
			string(Vanilla): reflect.TypeOf(VanillaConfig{}),
			string(Adam):    reflect.TypeOf(AdamConfig{}),
			string(RMSProp): reflect.TypeOf(RMSPropConfig{}),
		})
	if err != nil {
		return fmt.Errorf("unmarshalJSON: %v", err)
	}

	if !config.ValidType(typeName) {
		return fmt.Errorf("unmarshalJSON: invalid solver type %v for "+
			"configuration %T", typeName, config)
	}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("unmarshalJSON: %v", err)
	}

	s.Type = typeName
	s.Config = config
	s.Solver = s.Config.Create()
	s.stepSize = s.Config.InitialStepSize()

	return nil
}

// unmarshalConfig uses reflection to unmarshall a Config into its
// concrete type. Both the Config and its Type are returned.
func unmarshalConfig(data []byte, typeJsonField, valueJsonField string,
	customTypes map[string]reflect.Type) (Config, Type, error) {
	m := map[string]interface{}{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, "", err
	}

	typeName, ok := m[typeJsonField].(string)
	if !ok {
		return nil, "", fmt.Errorf("no solver type in field %v",
			typeJsonField)
	}

	ty, found := customTypes[typeName]
	if !found {
		return nil, "", fmt.Errorf("unknown solver type %v", typeName)
	}
	value := reflect.New(ty).Interface()

	valueBytes, err := json.Marshal(m[valueJsonField])
	if err != nil {
		return nil, "", err
	}

	if err = json.Unmarshal(valueBytes, value); err != nil {
		return nil, "", err
	}
	concreteValue := reflect.ValueOf(value).Elem().Interface().(Config)

	return concreteValue, Type(typeName), nil
}

// Config implements a Gorgonia Solver configuration and can be used to
// create Gorgonia Solvers they describe.
type Config interface {
	Create() G.Solver

	// ValidType returns whether a specific Solver type can be created
	// with the Config
	ValidType(Type) bool

	// InitialStepSize returns the learning rate the Solver is created
	// with
	InitialStepSize() float64

	// Validate returns an error if the Config describes an invalid
	// Solver
	Validate() error
}

// validateCommon checks the hyperparameters shared by all solvers
func validateCommon(stepSize float64, batch int) error {
	if stepSize < 0 {
		return fmt.Errorf("step size must be non-negative but got %v",
			stepSize)
	}
	if batch < 1 {
		return fmt.Errorf("batch size must be positive but got %v", batch)
	}
	return nil
}
