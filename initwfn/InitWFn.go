// Package initwfn wraps Gorgonia weight initializers so that the
// initializer of a network can be stored in configuration files and
// checkpoints.
package initwfn

import (
	"encoding/json"
	"fmt"

	G "gorgonia.org/gorgonia"
)

// Type names a weight initialization algorithm
type Type string

const (
	GlorotU Type = "GlorotU"
	GlorotN Type = "GlorotN"
	HeU     Type = "HeU"
	HeN     Type = "HeN"
	Zeroes  Type = "Zeroes"
	Ones    Type = "Ones"
)

// Config describes a weight initializer and can create the Gorgonia
// InitWFn it describes
type Config interface {
	Create() G.InitWFn
	Type() Type
}

// InitWFn wraps a Gorgonia InitWFn together with the Config it was
// created from. It marshals to JSON as {"Type": ..., "Config": ...}.
type InitWFn struct {
	initWFn G.InitWFn
	Type
	Config
}

func newInitWFn(c Config) (*InitWFn, error) {
	return &InitWFn{initWFn: c.Create(), Type: c.Type(), Config: c}, nil
}

// InitWFn returns the wrapped Gorgonia InitWFn
func (i *InitWFn) InitWFn() G.InitWFn {
	return i.initWFn
}

func (i *InitWFn) String() string {
	return fmt.Sprintf("{%v InitWFn: %v}", i.Type, i.Config)
}

// decoders decode the Config of each Type
var decoders = map[Type]func([]byte) (Config, error){
	GlorotU: func(b []byte) (Config, error) {
		gain, err := decodeGain(b)
		return GlorotUConfig{gain}, err
	},
	GlorotN: func(b []byte) (Config, error) {
		gain, err := decodeGain(b)
		return GlorotNConfig{gain}, err
	},
	HeU: func(b []byte) (Config, error) {
		gain, err := decodeGain(b)
		return HeUConfig{gain}, err
	},
	HeN: func(b []byte) (Config, error) {
		gain, err := decodeGain(b)
		return HeNConfig{gain}, err
	},
	Zeroes: func([]byte) (Config, error) { return ZeroesConfig{}, nil },
	Ones:   func([]byte) (Config, error) { return OnesConfig{}, nil },
}

// decodeGain decodes the gain of a variance scaling initializer
func decodeGain(data []byte) (float64, error) {
	var c struct{ Gain float64 }
	if len(data) > 0 {
		if err := json.Unmarshal(data, &c); err != nil {
			return 0, err
		}
	}
	if c.Gain <= 0 {
		return 0, fmt.Errorf("gain must be positive but got %v", c.Gain)
	}
	return c.Gain, nil
}

// UnmarshalJSON implements the json.Unmarshaler interface
func (i *InitWFn) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type   Type
		Config json.RawMessage
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("unmarshalJSON: %v", err)
	}

	decode, ok := decoders[raw.Type]
	if !ok {
		return fmt.Errorf("unmarshalJSON: unknown initializer type %q",
			raw.Type)
	}
	c, err := decode(raw.Config)
	if err != nil {
		return fmt.Errorf("unmarshalJSON: %v: %v", raw.Type, err)
	}

	i.Type = raw.Type
	i.Config = c
	i.initWFn = c.Create()
	return nil
}
