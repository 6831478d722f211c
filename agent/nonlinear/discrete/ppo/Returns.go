package ppo

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// normEps is added to the standard deviation of returns when
// normalizing
const normEps = 1e-8

// DiscountedReturns computes the discounted return following each
// transition of a sequence of rewards. The running return is reset at
// each transition that ends an episode, so returns never cross episode
// boundaries. The final transition is bootstrapped with a value of 0
// whether or not it ends an episode.
func DiscountedReturns(rewards []float64, terminals []bool,
	gamma float64) ([]float64, error) {
	if len(rewards) != len(terminals) {
		return nil, fmt.Errorf("discountedReturns: %v rewards but %v "+
			"terminal flags", len(rewards), len(terminals))
	}

	returns := make([]float64, len(rewards))
	running := 0.0
	for t := len(rewards) - 1; t >= 0; t-- {
		if terminals[t] {
			running = rewards[t]
		} else {
			running = rewards[t] + gamma*running
		}
		returns[t] = running
	}
	return returns, nil
}

// NormalizeReturns returns the returns shifted to mean 0 and scaled by
// the inverse of their sample standard deviation. A sequence of fewer
// than two returns has standard deviation 0.
func NormalizeReturns(returns []float64) []float64 {
	if len(returns) == 0 {
		return []float64{}
	}

	mean := stat.Mean(returns, nil)
	std := 0.0
	if len(returns) > 1 {
		std = stat.StdDev(returns, nil)
	}

	normalized := make([]float64, len(returns))
	for i, g := range returns {
		normalized[i] = (g - mean) / (std + normEps)
	}
	return normalized
}
