package environment

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
	"gonum.org/v1/gonum/stat/distmv"
)

// UniformStarter samples starting states uniformly from a box
type UniformStarter struct {
	seed uint64
	dist *distmv.Uniform
}

// NewUniformStarter returns a UniformStarter which samples feature i
// of each starting state uniformly from bounds[i]
func NewUniformStarter(bounds []r1.Interval,
	seed uint64) (*UniformStarter, error) {
	if len(bounds) == 0 {
		return nil, fmt.Errorf("newUniformStarter: no bounds given")
	}
	for i, b := range bounds {
		if b.Min > b.Max {
			return nil, fmt.Errorf("newUniformStarter: feature %v has "+
				"empty interval [%v, %v]", i, b.Min, b.Max)
		}
	}

	dist := distmv.NewUniform(bounds, rand.NewSource(seed))
	return &UniformStarter{seed, dist}, nil
}

// Start samples a starting state
func (u *UniformStarter) Start() *mat.VecDense {
	return mat.NewVecDense(u.dist.Dim(), u.dist.Rand(nil))
}

// Seed returns the seed of the starter
func (u *UniformStarter) Seed() uint64 {
	return u.seed
}
