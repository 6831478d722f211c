package ppo

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClippedObjective(t *testing.T) {
	tests := []struct {
		ratio, advantage, clip float64
		want                   float64
	}{
		{1.0, 2.0, 0.2, 2.0},
		{1.5, 1.0, 0.2, 1.2},
		{0.5, 1.0, 0.2, 0.5},
		{0.5, -1.0, 0.2, -0.8},
		{1.5, -1.0, 0.2, -1.5},
		{1.1, 1.0, 0.2, 1.1},
		{1.5, 0.0, 0.2, 0.0},
		{1.5, 1.0, 0.0, 1.0},
	}

	for _, test := range tests {
		name := fmt.Sprintf("r%v_a%v_c%v", test.ratio, test.advantage,
			test.clip)
		t.Run(name, func(t *testing.T) {
			got := ClippedObjective(test.ratio, test.advantage, test.clip)
			assert.InDelta(t, test.want, got, 1e-12)
		})
	}
}

func TestClippedObjectiveBounds(t *testing.T) {
	const clip = 0.2
	for _, advantage := range []float64{-2, -0.5, 0.5, 2} {
		for ratio := 0.0; ratio <= 3.0; ratio += 0.05 {
			obj := ClippedObjective(ratio, advantage, clip)

			// Never above the unclipped surrogate
			assert.LessOrEqual(t, obj, ratio*advantage+1e-12)

			// Moving the ratio past the clipping range in the direction
			// of the advantage gives no further improvement
			if advantage > 0 && ratio > 1+clip {
				assert.InDelta(t, (1+clip)*advantage, obj, 1e-12)
			}
			if advantage < 0 && ratio < 1-clip {
				assert.InDelta(t, (1-clip)*advantage, obj, 1e-12)
			}
		}
	}
}
