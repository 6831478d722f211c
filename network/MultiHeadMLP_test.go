package network

import (
	"bytes"
	"encoding/gob"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	G "gorgonia.org/gorgonia"
)

func newTestMLP(t *testing.T, batch int, init G.InitWFn) *MultiHeadMLP {
	t.Helper()

	net, err := NewMultiHeadMLP(3, batch, 2, G.NewGraph(), []int{4, 4},
		[]bool{true, true}, init, []*Activation{TanH(), ReLU()})
	require.NoError(t, err)
	return net
}

func forward(t *testing.T, net NeuralNet, input []float64) []float64 {
	t.Helper()

	require.NoError(t, net.SetInput(input))
	vm := G.NewTapeMachine(net.Graph())
	defer vm.Close()
	require.NoError(t, vm.RunAll())

	return append([]float64(nil), net.Output().Data().([]float64)...)
}

func TestNewMultiHeadMLPShapes(t *testing.T) {
	net := newTestMLP(t, 5, G.GlorotU(1.0))

	assert.Equal(t, 3, net.Features())
	assert.Equal(t, 2, net.Outputs())
	assert.Equal(t, 5, net.BatchSize())
	assert.Equal(t, []int{5, 2}, []int(net.Prediction().Shape()))

	// 3 layers, each with weights and biases
	assert.Len(t, net.Learnables(), 6)
	assert.Len(t, net.Model(), 6)

	out := forward(t, net, make([]float64, 15))
	assert.Len(t, out, 10)
}

func TestNewMultiHeadMLPErrors(t *testing.T) {
	_, err := NewMultiHeadMLP(3, 1, 2, G.NewGraph(), []int{4},
		[]bool{true, true}, G.Zeroes(), []*Activation{TanH()})
	assert.Error(t, err)

	_, err = NewMultiHeadMLP(3, 1, 2, G.NewGraph(), []int{4},
		[]bool{true}, G.Zeroes(), []*Activation{})
	assert.Error(t, err)

	_, err = NewMultiHeadMLP(0, 1, 2, G.NewGraph(), []int{4},
		[]bool{true}, G.Zeroes(), []*Activation{TanH()})
	assert.Error(t, err)
}

func TestSetInputLength(t *testing.T) {
	net := newTestMLP(t, 2, G.Zeroes())
	assert.Error(t, net.SetInput([]float64{1, 2, 3}))
}

func TestSetAndClone(t *testing.T) {
	src := newTestMLP(t, 1, G.GlorotU(1.0))
	dest := newTestMLP(t, 1, G.GlorotN(1.0))

	input := []float64{0.1, -0.4, 0.7}
	require.NotEqual(t, forward(t, src, input), forward(t, dest, input))

	require.NoError(t, dest.Set(src))
	assert.Equal(t, forward(t, src, input), forward(t, dest, input))

	// The copy is deep
	for i := range src.Learnables() {
		assert.NotSame(t, src.Learnables()[i].Value(),
			dest.Learnables()[i].Value())
	}

	clone, err := src.CloneWithBatch(2)
	require.NoError(t, err)
	assert.Equal(t, 2, clone.BatchSize())
	out := forward(t, clone, append(append([]float64{}, input...), input...))
	want := forward(t, src, input)
	assert.InDeltaSlice(t, append(want, want...), out, 1e-12)
}

func TestSetArchitectureMismatch(t *testing.T) {
	src := newTestMLP(t, 1, G.GlorotU(1.0))
	dest, err := NewMultiHeadMLP(3, 1, 2, G.NewGraph(), []int{4},
		[]bool{true}, G.Zeroes(), []*Activation{TanH()})
	require.NoError(t, err)

	assert.Error(t, dest.Set(src))
}

func TestGob(t *testing.T) {
	src := newTestMLP(t, 1, G.GlorotU(1.0))

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(src))

	dest := &MultiHeadMLP{}
	require.NoError(t, gob.NewDecoder(&buf).Decode(dest))

	input := []float64{0.3, 0.2, -0.1}
	assert.Equal(t, forward(t, src, input), forward(t, dest, input))
}

func TestActivationText(t *testing.T) {
	for _, name := range []string{"relu", "tanh", "identity", "nil"} {
		act, err := ActivationFromString(name)
		require.NoError(t, err)

		text, err := act.MarshalText()
		require.NoError(t, err)
		assert.Equal(t, name, string(text))
	}

	_, err := ActivationFromString("sigmoid")
	assert.Error(t, err)
}
