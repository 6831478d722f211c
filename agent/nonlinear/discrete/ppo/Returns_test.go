package ppo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
)

func TestDiscountedReturns(t *testing.T) {
	tests := []struct {
		name      string
		rewards   []float64
		terminals []bool
		gamma     float64
		want      []float64
	}{
		{
			name:      "singleEpisode",
			rewards:   []float64{1, 1, 1},
			terminals: []bool{false, false, true},
			gamma:     0.9,
			want:      []float64{2.71, 1.9, 1},
		},
		{
			name:      "resetOnTerminal",
			rewards:   []float64{1, 2, 3, 4},
			terminals: []bool{false, true, false, true},
			gamma:     0.5,
			want:      []float64{2, 2, 5, 4},
		},
		{
			name:      "unfinishedEpisode",
			rewards:   []float64{1, 1, 2, 2},
			terminals: []bool{false, true, false, false},
			gamma:     0.5,
			want:      []float64{1.5, 1, 3, 2},
		},
		{
			name:      "empty",
			rewards:   []float64{},
			terminals: []bool{},
			gamma:     0.99,
			want:      []float64{},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := DiscountedReturns(test.rewards, test.terminals,
				test.gamma)
			require.NoError(t, err)
			assert.InDeltaSlice(t, test.want, got, 1e-12)
		})
	}
}

func TestDiscountedReturnsLengthMismatch(t *testing.T) {
	_, err := DiscountedReturns([]float64{1, 2}, []bool{true}, 0.9)
	assert.Error(t, err)
}

func TestNormalizeReturns(t *testing.T) {
	returns := []float64{2.71, 1.9, 1, 5, -3}
	normalized := NormalizeReturns(returns)

	require.Len(t, normalized, len(returns))
	assert.InDelta(t, 0.0, stat.Mean(normalized, nil), 1e-9)
	assert.InDelta(t, 1.0, stat.StdDev(normalized, nil), 1e-6)

	// The input is not modified
	assert.Equal(t, []float64{2.71, 1.9, 1, 5, -3}, returns)
}

func TestNormalizeReturnsDegenerate(t *testing.T) {
	assert.Equal(t, []float64{0}, NormalizeReturns([]float64{7.5}))
	assert.Equal(t, []float64{0, 0, 0}, NormalizeReturns([]float64{3, 3, 3}))
	assert.Empty(t, NormalizeReturns(nil))
}
