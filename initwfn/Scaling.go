package initwfn

import (
	"fmt"
	"strings"

	G "gorgonia.org/gorgonia"
)

// GlorotUConfig configures Glorot uniform initialization, which draws
// weights uniformly with variance 2 * Gain^2 / (fanIn + fanOut)
type GlorotUConfig struct{ Gain float64 }

// GlorotNConfig configures Glorot normal initialization
type GlorotNConfig struct{ Gain float64 }

// HeUConfig configures He uniform initialization, which draws weights
// uniformly with variance 2 * Gain^2 / fanIn
type HeUConfig struct{ Gain float64 }

// HeNConfig configures He normal initialization
type HeNConfig struct{ Gain float64 }

// NewGlorotU returns a new Glorot uniform weight initializer
func NewGlorotU(gain float64) (*InitWFn, error) {
	return newScaling(GlorotUConfig{gain}, gain)
}

// NewGlorotN returns a new Glorot normal weight initializer
func NewGlorotN(gain float64) (*InitWFn, error) {
	return newScaling(GlorotNConfig{gain}, gain)
}

// NewHeU returns a new He uniform weight initializer
func NewHeU(gain float64) (*InitWFn, error) {
	return newScaling(HeUConfig{gain}, gain)
}

// NewHeN returns a new He normal weight initializer
func NewHeN(gain float64) (*InitWFn, error) {
	return newScaling(HeNConfig{gain}, gain)
}

// newScaling returns an InitWFn whose weight variance is scaled by
// gain
func newScaling(c Config, gain float64) (*InitWFn, error) {
	if gain <= 0 {
		return nil, fmt.Errorf("new%v: gain must be positive but got %v",
			c.Type(), gain)
	}
	return newInitWFn(c)
}

// FromString returns the InitWFn of the given type, ignoring case. The
// gain is ignored by initializers which have none.
func FromString(name string, gain float64) (*InitWFn, error) {
	switch Type(strings.ToLower(name)) {
	case lower(GlorotU):
		return NewGlorotU(gain)
	case lower(GlorotN):
		return NewGlorotN(gain)
	case lower(HeU):
		return NewHeU(gain)
	case lower(HeN):
		return NewHeN(gain)
	case lower(Zeroes):
		return NewZeroes()
	case lower(Ones):
		return NewOnes()
	}
	return nil, fmt.Errorf("fromString: unknown initializer %q", name)
}

func lower(t Type) Type {
	return Type(strings.ToLower(string(t)))
}

// Type returns the type of initialization algorithm described by
// the configuration.
func (g GlorotUConfig) Type() Type { return GlorotU }

// Create returns the weight initialization algorithm as a Gorgonia
// InitWFn
func (g GlorotUConfig) Create() G.InitWFn { return G.GlorotU(g.Gain) }

func (g GlorotNConfig) Type() Type        { return GlorotN }
func (g GlorotNConfig) Create() G.InitWFn { return G.GlorotN(g.Gain) }

func (h HeUConfig) Type() Type        { return HeU }
func (h HeUConfig) Create() G.InitWFn { return G.HeU(h.Gain) }

func (h HeNConfig) Type() Type        { return HeN }
func (h HeNConfig) Create() G.InitWFn { return G.HeN(h.Gain) }
