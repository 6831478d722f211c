package rollout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcat(t *testing.T) {
	first, err := NewBatch([]Transition{
		{State: []float64{1, 2}, Action: 0, LogProb: -1, Reward: 1},
		{State: []float64{3, 4}, Action: 1, LogProb: -2, Reward: 2,
			Terminal: true},
	})
	require.NoError(t, err)

	second, err := NewBatch([]Transition{
		{State: []float64{5, 6}, Action: 1, LogProb: -3, Reward: 3},
	})
	require.NoError(t, err)

	b, err := Concat(first, Batch{}, second)
	require.NoError(t, err)

	assert.Equal(t, 3, b.Len())
	assert.Equal(t, 2, b.Features())
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6}, b.States())
	assert.Equal(t, []int{0, 1, 1}, b.Actions())
	assert.Equal(t, []float64{-1, -2, -3}, b.LogProbs())
	assert.Equal(t, []float64{1, 2, 3}, b.Rewards())
	assert.Equal(t, []bool{false, true, false}, b.Terminals())
}

func TestConcatFeatureMismatch(t *testing.T) {
	first, err := NewBatch([]Transition{{State: []float64{1, 2}}})
	require.NoError(t, err)
	second, err := NewBatch([]Transition{{State: []float64{1}}})
	require.NoError(t, err)

	_, err = Concat(first, second)
	assert.ErrorIs(t, err, ErrFeatures)
}

func TestNewBatchFeatureMismatch(t *testing.T) {
	_, err := NewBatch([]Transition{
		{State: []float64{1, 2}},
		{State: []float64{1}},
	})
	assert.ErrorIs(t, err, ErrFeatures)
}
