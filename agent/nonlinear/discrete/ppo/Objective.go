package ppo

import (
	"math"

	"github.com/samuelfneumann/goppo/utils/floatutils"
)

// ClippedObjective returns the clipped surrogate objective of a single
// transition with probability ratio ratio and advantage advantage. The
// objective is the minimum of the unclipped and clipped surrogates, so
// it never exceeds the unclipped surrogate and moving the ratio out of
// [1-clip, 1+clip] in the direction of the advantage never increases
// it.
func ClippedObjective(ratio, advantage, clip float64) float64 {
	clipped := floatutils.Clip(ratio, 1-clip, 1+clip)
	return math.Min(ratio*advantage, clipped*advantage)
}

// clipped returns whether a probability ratio is outside the clipping
// range
func clipped(ratio, clip float64) bool {
	return ratio < 1-clip || ratio > 1+clip
}
