package trackers

import (
	"path/filepath"
	"testing"

	ts "github.com/samuelfneumann/goppo/timestep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// episode returns the timesteps of an episode with the given rewards,
// including the first timestep
func episode(rewards ...float64) []ts.TimeStep {
	steps := []ts.TimeStep{ts.New(ts.First, 0, 0.99, nil, 0)}
	for i, r := range rewards {
		stepType := ts.Mid
		if i == len(rewards)-1 {
			stepType = ts.Last
		}
		steps = append(steps, ts.New(stepType, r, 0.99, nil, i+1))
	}
	return steps
}

func TestReturn(t *testing.T) {
	r := NewReturn(filepath.Join(t.TempDir(), "returns.bin"))
	_, ok := r.Last()
	assert.False(t, ok)

	for _, steps := range [][]ts.TimeStep{episode(1, 2, 3), episode(-1, 0.5)} {
		for _, step := range steps {
			require.NoError(t, r.Track(step))
		}
	}

	assert.Equal(t, []float64{6, -0.5}, r.Returns())
	last, ok := r.Last()
	assert.True(t, ok)
	assert.Equal(t, -0.5, last)

	require.NoError(t, r.Save())
	data, err := LoadData(r.filename)
	require.NoError(t, err)
	assert.Equal(t, []float64{6, -0.5}, data)
}

func TestReturnNonSequential(t *testing.T) {
	r := NewReturn("")
	require.NoError(t, r.Track(ts.New(ts.First, 0, 1, nil, 0)))
	assert.Error(t, r.Track(ts.New(ts.Mid, 1, 1, nil, 2)))
}

func TestReturnUnfinishedEpisode(t *testing.T) {
	r := NewReturn("")
	steps := episode(1, 1, 1)
	for _, step := range steps[:len(steps)-1] {
		require.NoError(t, r.Track(step))
	}
	assert.Empty(t, r.Returns())
}

func TestEpisodeLength(t *testing.T) {
	e := NewEpisodeLength(filepath.Join(t.TempDir(), "lengths.bin"))
	for _, steps := range [][]ts.TimeStep{episode(1, 2, 3), episode(1)} {
		for _, step := range steps {
			require.NoError(t, e.Track(step))
		}
	}
	assert.Equal(t, []int{3, 1}, e.Lengths())

	require.NoError(t, e.Save())
	data, err := LoadLengths(e.filename)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 1}, data)
}

func TestLoadMissing(t *testing.T) {
	_, err := LoadData(filepath.Join(t.TempDir(), "missing.bin"))
	assert.Error(t, err)
}
