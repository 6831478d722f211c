package actorcritic

import (
	"bytes"
	"encoding/gob"
	"math"
	"testing"

	"github.com/samuelfneumann/goppo/buffer/rollout"
	"github.com/samuelfneumann/goppo/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

func smallArchitecture() Architecture {
	arch := DefaultArchitecture()
	arch.PolicyLayers = []int{8}
	arch.PolicyBiases = []bool{true}
	arch.PolicyActivations = []*network.Activation{network.TanH()}
	arch.ValueLayers = []int{8}
	arch.ValueBiases = []bool{true}
	arch.ValueActivations = []*network.Activation{network.TanH()}
	return arch
}

func newTestActorCritic(t *testing.T, batch int) *ActorCritic {
	t.Helper()

	ac, err := New(4, 3, batch, smallArchitecture(), 42)
	require.NoError(t, err)
	t.Cleanup(func() { ac.Close() })
	return ac
}

func TestDistributionNormalized(t *testing.T) {
	ac := newTestActorCritic(t, 1)

	states := [][]float64{
		{0, 0, 0, 0},
		{1, -1, 0.5, 2},
		{100, -100, 50, 20},
	}
	for _, state := range states {
		dist, err := ac.Distribution(state)
		require.NoError(t, err)

		probs := make([]float64, ac.Actions())
		for a := range probs {
			probs[a] = dist.Prob(float64(a))
			assert.GreaterOrEqual(t, probs[a], 0.0)
		}
		assert.InDelta(t, 1.0, floats.Sum(probs), 1e-9)
	}
}

func TestSampleInRange(t *testing.T) {
	ac := newTestActorCritic(t, 1)
	state := []float64{0.1, 0.2, 0.3, 0.4}

	dist, err := ac.Distribution(state)
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		a, logProb, err := ac.Sample(state)
		require.NoError(t, err)
		require.GreaterOrEqual(t, a, 0)
		require.Less(t, a, ac.Actions())
		assert.InDelta(t, math.Log(dist.Prob(float64(a))), logProb, 1e-9)
	}
}

func TestSampleShapeErrors(t *testing.T) {
	ac := newTestActorCritic(t, 1)

	_, _, err := ac.Sample([]float64{1, 2})
	assert.Error(t, err)

	batched := newTestActorCritic(t, 2)
	_, _, err = batched.Sample([]float64{1, 2, 3, 4})
	assert.Error(t, err)
}

func TestActAppendsPendingStep(t *testing.T) {
	ac := newTestActorCritic(t, 1)
	buf := rollout.New(ac.Features())
	state := []float64{0.5, 0.5, 0.5, 0.5}

	a, err := ac.Act(state, buf)
	require.NoError(t, err)
	assert.True(t, buf.Pending())
	assert.Equal(t, 0, buf.Len())

	require.NoError(t, buf.AppendOutcome(1, true))
	batch := buf.Snapshot()
	require.Equal(t, 1, batch.Len())
	assert.Equal(t, a, batch.At(0).Action)
	assert.Equal(t, state, batch.At(0).State)

	// The recorded log probability matches a re-evaluation with the
	// same parameters
	logProbs, _, err := ac.Evaluate(batch.States(), batch.Actions())
	require.NoError(t, err)
	assert.InDelta(t, logProbs[0], batch.At(0).LogProb, 1e-12)
}

func TestEvaluate(t *testing.T) {
	single := newTestActorCritic(t, 1)
	batched, err := single.CloneWithBatch(3)
	require.NoError(t, err)
	defer batched.Close()

	states := []float64{
		0, 0, 0, 0,
		1, 2, 3, 4,
		-1, 0.5, 0, 2,
	}
	actions := []int{0, 2, 1}

	logProbs, values, err := batched.Evaluate(states, actions)
	require.NoError(t, err)
	require.Len(t, logProbs, 3)
	require.Len(t, values, 3)

	for i := range actions {
		state := states[i*4 : (i+1)*4]
		dist, err := single.Distribution(state)
		require.NoError(t, err)
		assert.InDelta(t, math.Log(dist.Prob(float64(actions[i]))),
			logProbs[i], 1e-9)
		assert.LessOrEqual(t, logProbs[i], 0.0)

		v, err := single.Values(state)
		require.NoError(t, err)
		assert.InDelta(t, v[0], values[i], 1e-9)
	}
}

func TestEvaluateShapeErrors(t *testing.T) {
	ac := newTestActorCritic(t, 2)
	states := make([]float64, 8)

	_, _, err := ac.Evaluate(states[:4], []int{0, 1})
	assert.Error(t, err)

	_, _, err = ac.Evaluate(states, []int{0})
	assert.Error(t, err)

	_, _, err = ac.Evaluate(states, []int{0, 3})
	assert.Error(t, err)

	_, _, err = ac.Evaluate(states, []int{-1, 0})
	assert.Error(t, err)
}

func TestSetDeepCopies(t *testing.T) {
	src := newTestActorCritic(t, 1)
	dest, err := New(4, 3, 1, smallArchitecture(), 7)
	require.NoError(t, err)
	defer dest.Close()

	state := []float64{0.3, -0.2, 0.9, 1.1}
	srcLogProbs, srcValues, err := src.Evaluate(state, []int{1})
	require.NoError(t, err)

	require.NoError(t, dest.Set(src))
	destLogProbs, destValues, err := dest.Evaluate(state, []int{1})
	require.NoError(t, err)
	assert.Equal(t, srcLogProbs, destLogProbs)
	assert.Equal(t, srcValues, destValues)

	for i, node := range src.Learnables() {
		assert.Equal(t, node.Value().Data(), dest.Learnables()[i].Value().Data())
		assert.NotSame(t, node.Value(), dest.Learnables()[i].Value())
	}
}

func TestSetArchitectureMismatch(t *testing.T) {
	src := newTestActorCritic(t, 1)
	dest, err := New(4, 2, 1, smallArchitecture(), 7)
	require.NoError(t, err)
	defer dest.Close()

	assert.Error(t, dest.Set(src))
}

func TestGob(t *testing.T) {
	src := newTestActorCritic(t, 1)

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(src))

	dest := &ActorCritic{}
	require.NoError(t, gob.NewDecoder(&buf).Decode(dest))
	defer dest.Close()

	state := []float64{1, 0, -1, 0.5}
	srcLogProbs, srcValues, err := src.Evaluate(state, []int{2})
	require.NoError(t, err)
	destLogProbs, destValues, err := dest.Evaluate(state, []int{2})
	require.NoError(t, err)

	assert.InDeltaSlice(t, srcLogProbs, destLogProbs, 1e-12)
	assert.InDeltaSlice(t, srcValues, destValues, 1e-12)
	assert.Equal(t, src.Seed(), dest.Seed())
}

func TestArchitectureValidate(t *testing.T) {
	arch := smallArchitecture()
	arch.ValueBiases = nil
	assert.Error(t, arch.Validate())

	arch = smallArchitecture()
	arch.Init = nil
	assert.Error(t, arch.Validate())

	_, err := New(4, 0, 1, smallArchitecture(), 1)
	assert.Error(t, err)
}

func BenchmarkSample(b *testing.B) {
	ac, err := New(8, 4, 1, DefaultArchitecture(), 1)
	if err != nil {
		b.Fatal(err)
	}
	defer ac.Close()

	state := make([]float64, 8)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := ac.Sample(state); err != nil {
			b.Fatal(err)
		}
	}
}
