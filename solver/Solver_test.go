package solver

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// descend takes one gradient step on f(w) = sum(w²) and returns the
// new value of w
func descend(t *testing.T, s *Solver, g *G.ExprGraph, w *G.Node) []float64 {
	t.Helper()

	loss := G.Must(G.Sum(G.Must(G.Square(w))))
	_, err := G.Grad(loss, w)
	require.NoError(t, err)

	vm := G.NewTapeMachine(g, G.BindDualValues(w))
	defer vm.Close()
	require.NoError(t, vm.RunAll())
	require.NoError(t, s.Step([]G.ValueGrad{w}))

	return append([]float64(nil), w.Value().Data().([]float64)...)
}

func TestSetStepSize(t *testing.T) {
	s, err := NewVanilla(0.1, 1, -1)
	require.NoError(t, err)
	assert.Equal(t, 0.1, s.StepSize())

	g := G.NewGraph()
	w := G.NewVector(g, tensor.Float64, G.WithShape(1), G.WithName("w"),
		G.WithValue(tensor.New(tensor.WithBacking([]float64{1.0}))))

	// w ← w - 0.1 * 2w
	got := descend(t, s, g, w)
	assert.InDelta(t, 0.8, got[0], 1e-12)

	require.NoError(t, s.SetStepSize(0.5))
	assert.Equal(t, 0.5, s.StepSize())

	// Rebuild the loss on a fresh graph holding the current value
	g2 := G.NewGraph()
	w2 := G.NewVector(g2, tensor.Float64, G.WithShape(1), G.WithName("w"),
		G.WithValue(tensor.New(tensor.WithBacking(got))))
	got = descend(t, s, g2, w2)
	assert.InDelta(t, 0.0, got[0], 1e-12)
}

func TestSetStepSizeNegative(t *testing.T) {
	s, err := NewDefaultAdam(0.01, 1)
	require.NoError(t, err)
	assert.Error(t, s.SetStepSize(-1))
	assert.Equal(t, 0.01, s.StepSize())
}

func TestUnmarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		s    func() (*Solver, error)
	}{
		{"adam", func() (*Solver, error) { return NewDefaultAdam(2e-3, 1) }},
		{"vanilla", func() (*Solver, error) { return NewVanilla(0.1, 1, 5) }},
		{"rmsprop", func() (*Solver, error) { return NewDefaultRMSProp(1e-3, 1) }},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			s, err := test.s()
			require.NoError(t, err)

			data, err := json.Marshal(s)
			require.NoError(t, err)

			var decoded Solver
			require.NoError(t, json.Unmarshal(data, &decoded))
			assert.Equal(t, s.Type, decoded.Type)
			assert.Equal(t, s.Config, decoded.Config)
			assert.Equal(t, s.StepSize(), decoded.StepSize())
			assert.NotNil(t, decoded.Solver)
		})
	}
}

func TestUnmarshalJSONUnknownType(t *testing.T) {
	var s Solver
	err := json.Unmarshal([]byte(`{"Type": "Momentum", "Config": {}}`), &s)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		s    func() (*Solver, error)
	}{
		{"negativeStep", func() (*Solver, error) { return NewVanilla(-1, 1, -1) }},
		{"batch", func() (*Solver, error) { return NewDefaultAdam(0.1, 0) }},
		{"beta1", func() (*Solver, error) { return NewAdam(0.1, 1e-8, 1, 0.9, 1) }},
		{"beta2", func() (*Solver, error) { return NewAdam(0.1, 1e-8, 0.9, -0.1, 1) }},
		{"epsilon", func() (*Solver, error) { return NewAdam(0.1, 0, 0.9, 0.9, 1) }},
		{"rho", func() (*Solver, error) { return NewRMSProp(0.1, 1e-8, 1.5, 1, -1) }},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := test.s()
			assert.Error(t, err)
		})
	}

	var s Solver
	err := json.Unmarshal([]byte(`{"Type": "Vanilla", `+
		`"Config": {"StepSize": 0.1, "Batch": 0}}`), &s)
	assert.Error(t, err)
}
