package initwfn

import G "gorgonia.org/gorgonia"

// ZeroesConfig implements a configuration of an initialization
// algorithm which sets all weights to 0
type ZeroesConfig struct{}

// NewZeroes returns a new weight initializer which initializes all
// weights to 0
func NewZeroes() (*InitWFn, error) {
	return newInitWFn(ZeroesConfig{})
}

// Type returns the type of initialization algorithm described by
// the configuration.
func (z ZeroesConfig) Type() Type {
	return Zeroes
}

// Create returns the weight initialization algorithm as a Gorgonia
// InitWFn
func (z ZeroesConfig) Create() G.InitWFn {
	return G.Zeroes()
}

// OnesConfig implements a configuration of an initialization
// algorithm which sets all weights to 1
type OnesConfig struct{}

// NewOnes returns a new weight initializer which initializes all
// weights to 1
func NewOnes() (*InitWFn, error) {
	return newInitWFn(OnesConfig{})
}

func (o OnesConfig) Type() Type {
	return Ones
}

func (o OnesConfig) Create() G.InitWFn {
	return G.Ones()
}
