package floatutils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClip(t *testing.T) {
	tests := []struct {
		value, min, max, want float64
	}{
		{0.5, 0.8, 1.2, 0.8},
		{1.0, 0.8, 1.2, 1.0},
		{1.2, 0.8, 1.2, 1.2},
		{3.0, 0.8, 1.2, 1.2},
	}

	for _, test := range tests {
		assert.Equal(t, test.want, Clip(test.value, test.min, test.max))
	}
}

func TestIsFinite(t *testing.T) {
	assert.True(t, IsFinite(1, -2, 0))
	assert.True(t, IsFinite())
	assert.False(t, IsFinite(1, math.NaN()))
	assert.False(t, IsFinite(math.Inf(-1)))
}
