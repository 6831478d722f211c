package rollout

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fill(t *testing.T, b *Buffer, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, b.AppendStep([]float64{float64(i), 1}, i%2,
			-0.5))
		require.NoError(t, b.AppendOutcome(float64(i), i == n-1))
	}
}

func assertEqualLengths(t *testing.T, b *Buffer, want int) {
	t.Helper()
	assert.Equal(t, want, b.Len())
	assert.Len(t, b.States(), want)
	assert.Len(t, b.Actions(), want)
	assert.Len(t, b.LogProbs(), want)
	assert.Len(t, b.Rewards(), want)
	assert.Len(t, b.Terminals(), want)
}

func TestBufferAppend(t *testing.T) {
	b := New(2)
	fill(t, b, 3)

	assertEqualLengths(t, b, 3)
	assert.Equal(t, [][]float64{{0, 1}, {1, 1}, {2, 1}}, b.States())
	assert.Equal(t, []int{0, 1, 0}, b.Actions())
	assert.Equal(t, []float64{-0.5, -0.5, -0.5}, b.LogProbs())
	assert.Equal(t, []float64{0, 1, 2}, b.Rewards())
	assert.Equal(t, []bool{false, false, true}, b.Terminals())
}

func TestBufferPendingStepInvisible(t *testing.T) {
	b := New(2)
	fill(t, b, 2)

	require.NoError(t, b.AppendStep([]float64{9, 9}, 1, -0.1))
	assert.True(t, b.Pending())
	assertEqualLengths(t, b, 2)

	require.NoError(t, b.AppendOutcome(1, false))
	assert.False(t, b.Pending())
	assertEqualLengths(t, b, 3)
}

func TestBufferPendingErrors(t *testing.T) {
	b := New(1)

	err := b.AppendOutcome(1, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoPendingStep))
	assert.True(t, IsNoPendingStep(err))

	require.NoError(t, b.AppendStep([]float64{1}, 0, 0))
	err = b.AppendStep([]float64{2}, 0, 0)
	require.Error(t, err)
	assert.True(t, IsPendingStep(err))
	assertEqualLengths(t, b, 0)
}

func TestBufferFeatures(t *testing.T) {
	b := New(0)
	require.NoError(t, b.AppendStep([]float64{1, 2, 3}, 0, 0))
	require.NoError(t, b.AppendOutcome(0, false))
	assert.Equal(t, 3, b.Features())

	err := b.AppendStep([]float64{1}, 0, 0)
	assert.True(t, errors.Is(err, ErrFeatures))
	assert.False(t, b.Pending())
}

func TestBufferClear(t *testing.T) {
	b := New(2)
	fill(t, b, 4)
	require.NoError(t, b.AppendStep([]float64{1, 1}, 0, 0))

	b.Clear()
	assertEqualLengths(t, b, 0)
	assert.False(t, b.Pending())

	// The buffer is still usable after clearing
	fill(t, b, 1)
	assertEqualLengths(t, b, 1)
}

func TestSnapshotIsImmutable(t *testing.T) {
	b := New(2)
	fill(t, b, 2)

	snap := b.Snapshot()
	b.Clear()
	assert.Equal(t, 2, snap.Len())

	states := snap.States()
	states[0] = 100
	assert.Equal(t, []float64{0, 1, 1, 1}, snap.States())

	tr := snap.At(0)
	tr.State[0] = 100
	assert.Equal(t, 0.0, snap.At(0).State[0])
}

func TestBufferConcurrentCollection(t *testing.T) {
	b := New(1)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				// Concurrent collectors contend for the single pending
				// slot, so some appends are rejected
				if err := b.AppendStep([]float64{1}, 0, 0); err == nil {
					_ = b.AppendOutcome(1, false)
				}
				_ = b.Snapshot()
			}
		}()
	}
	wg.Wait()

	snap := b.Snapshot()
	assert.Equal(t, snap.Len(), len(snap.Rewards()))
	assert.Equal(t, snap.Len(), len(snap.Terminals()))
}
