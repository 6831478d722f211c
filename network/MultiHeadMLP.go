package network

import (
	"bytes"
	"encoding/gob"
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// MultiHeadMLP implements a multi-layered perceptron with multiple
// output nodes, one for each value that should be predicted.
type MultiHeadMLP struct {
	g          *G.ExprGraph
	layers     []Layer
	input      *G.Node
	numOutputs int
	numInputs  int
	batchSize  int

	// Data needed for gobbing, excluding the final layer
	hiddenSizes []int
	biases      []bool
	activations []*Activation

	learnables G.Nodes
	model      []G.ValueGrad

	prediction *G.Node
	predVal    G.Value
}

// NewMultiHeadMLP creates and returns a new multi-layered perceptron
// that has multiple output nodes, The number of outputs nodes is equal
// to outputs. The graph parameter g is populated with the MLP.
//
// The MLP has number of layers equal to len(hiddenSizes) + 1. A final
// layer is always added such that given any input, the output will
// be outputs. The final layer also contains a bias unit, and bias units
// for each additional hidden layer is specified by biases. The final
// layer will contain no activations, and the activations of additional
// hidden layers is specified by activations. The parameter init
// determines the weight initialization scheme.
//
// The function works such that for index i, hiddenSizes[i] is the
// number of nodes in hidden layer i; biases[i] is true if the
// hidden layer will contain a bias unit and false otherwise; and
// activations[i] is the activation function for hidden layer i.
func NewMultiHeadMLP(features, batch, outputs int, g *G.ExprGraph,
	hiddenSizes []int, biases []bool, init G.InitWFn,
	activations []*Activation) (*MultiHeadMLP, error) {
	if features < 1 || batch < 1 || outputs < 1 {
		return nil, fmt.Errorf("newMultiHeadMLP: features (%v), batch (%v) "+
			"and outputs (%v) must be positive", features, batch, outputs)
	}
	if err := validateArchitecture(hiddenSizes, biases,
		activations); err != nil {
		return nil, fmt.Errorf("newMultiHeadMLP: %v", err)
	}

	// Set up the input node
	input := G.NewMatrix(g, tensor.Float64, G.WithShape(batch, features),
		G.WithName("input"), G.WithInit(G.Zeroes()))

	// Add a final linear layer with no activation so that the output
	// heads are predicted by the network
	sizes := append(append([]int{}, hiddenSizes...), outputs)
	layerBiases := append(append([]bool{}, biases...), true)
	layerActs := append(append([]*Activation{}, activations...), Identity())

	layers := addfcLayers(g, sizes, layerBiases, layerActs, init, features,
		"", "")

	network := &MultiHeadMLP{
		g:           g,
		layers:      layers,
		input:       input,
		numOutputs:  outputs,
		numInputs:   features,
		batchSize:   batch,
		hiddenSizes: append([]int{}, hiddenSizes...),
		biases:      append([]bool{}, biases...),
		activations: append([]*Activation{}, activations...),
	}
	if _, err := network.fwd(input); err != nil {
		return nil, fmt.Errorf("newMultiHeadMLP: could not compute forward "+
			"pass: %v", err)
	}

	return network, nil
}

// NewSingleHeadMLP returns an MLP with a single output node. This
// function is a convenience function for calling NewMultiHeadMLP with
// an output size of 1.
func NewSingleHeadMLP(features, batch int, g *G.ExprGraph, hiddenSizes []int,
	biases []bool, init G.InitWFn,
	activations []*Activation) (*MultiHeadMLP, error) {
	return NewMultiHeadMLP(features, batch, 1, g, hiddenSizes,
		biases, init, activations)
}

// validateArchitecture ensures there is one bias and activation per
// hidden layer
func validateArchitecture(hiddenSizes []int, biases []bool,
	activations []*Activation) error {
	if len(hiddenSizes) != len(activations) {
		msg := "invalid number of activations\n\twant(%d)\n\thave(%d)"
		return fmt.Errorf(msg, len(hiddenSizes), len(activations))
	}
	if len(hiddenSizes) != len(biases) {
		msg := "invalid number of biases\n\twant(%d)\n\thave(%d)"
		return fmt.Errorf(msg, len(hiddenSizes), len(biases))
	}
	for i, size := range hiddenSizes {
		if size < 1 {
			return fmt.Errorf("hidden layer %v has illegal size %v", i, size)
		}
		if activations[i] == nil {
			return fmt.Errorf("hidden layer %v has no activation", i)
		}
	}
	return nil
}

// Graph returns the computational graph of the MultiHeadMLP.
func (e *MultiHeadMLP) Graph() *G.ExprGraph {
	return e.g
}

// Clone clones a MultiHeadMLP
func (e *MultiHeadMLP) Clone() (NeuralNet, error) {
	return e.CloneWithBatch(e.batchSize)
}

// CloneWithBatch clones a MultiHeadMLP to a new computational graph
// with a new input batch size. Weights are copied.
func (e *MultiHeadMLP) CloneWithBatch(batchSize int) (NeuralNet, error) {
	if batchSize < 1 {
		return nil, fmt.Errorf("cloneWithBatch: illegal batch size %v",
			batchSize)
	}
	graph := G.NewGraph()

	input := G.NewMatrix(
		graph,
		tensor.Float64,
		G.WithShape(batchSize, e.numInputs),
		G.WithName("input"),
		G.WithInit(G.Zeroes()),
	)

	// Copy fully connected layers
	l := make([]Layer, len(e.layers))
	for i := range e.layers {
		l[i] = e.layers[i].CloneTo(graph)
	}

	network := &MultiHeadMLP{
		g:           graph,
		layers:      l,
		input:       input,
		numOutputs:  e.numOutputs,
		numInputs:   e.numInputs,
		batchSize:   batchSize,
		hiddenSizes: e.hiddenSizes,
		biases:      e.biases,
		activations: e.activations,
	}
	if _, err := network.fwd(input); err != nil {
		return nil, fmt.Errorf("cloneWithBatch: could not clone: %v", err)
	}

	return network, nil
}

// BatchSize returns the batch size of inputs to the network
func (e *MultiHeadMLP) BatchSize() int {
	return e.batchSize
}

// Features returns the number of features in a single observation
// vector that the network takes as input.
func (e *MultiHeadMLP) Features() int {
	return e.numInputs
}

// Outputs returns the number of outputs from the network
func (e *MultiHeadMLP) Outputs() int {
	return e.numOutputs
}

// SetInput sets the value of the input node before running the forward
// pass.
func (e *MultiHeadMLP) SetInput(input []float64) error {
	if len(input) != e.numInputs*e.batchSize {
		return fmt.Errorf("setInput: invalid number of inputs\n\twant(%v)"+
			"\n\thave(%v)", e.numInputs*e.batchSize, len(input))
	}
	inputTensor := tensor.New(
		tensor.WithBacking(input),
		tensor.WithShape(e.input.Shape()...),
	)
	return G.Let(e.input, inputTensor)
}

// Set sets the weights of a MultiHeadMLP to be a deep copy of the
// weights of another network with the same architecture
func (dest *MultiHeadMLP) Set(source NeuralNet) error {
	sourceNodes := source.Learnables()
	nodes := dest.Learnables()
	if len(sourceNodes) != len(nodes) {
		return fmt.Errorf("set: source has %v learnables but destination "+
			"has %v", len(sourceNodes), len(nodes))
	}

	for i, destLearnable := range nodes {
		if !sourceNodes[i].Shape().Eq(destLearnable.Shape()) {
			return fmt.Errorf("set: learnable %v shape mismatch \n\twant(%v)"+
				"\n\thave(%v)", i, destLearnable.Shape(),
				sourceNodes[i].Shape())
		}

		weights, ok := sourceNodes[i].Value().(*tensor.Dense)
		if !ok {
			return fmt.Errorf("set: learnable %v has no dense value", i)
		}
		if err := G.Let(destLearnable, weights.Clone()); err != nil {
			return fmt.Errorf("set: could not set learnable %v: %v", i, err)
		}
	}
	return nil
}

// Learnables returns the learnable nodes in a MultiHeadMLP
func (e *MultiHeadMLP) Learnables() G.Nodes {
	// Lazy instantiation
	if e.learnables == nil {
		e.learnables = e.computeLearnables()
	}
	return e.learnables
}

// computeLearnables computes all the learnables for the network
func (e *MultiHeadMLP) computeLearnables() G.Nodes {
	learnables := make([]*G.Node, 0, 2*len(e.layers))

	for i := range e.layers {
		learnables = append(learnables, e.layers[i].Weights())
		if bias := e.layers[i].Bias(); bias != nil {
			learnables = append(learnables, bias)
		}
	}
	return G.Nodes(learnables)
}

// Model returns the learnables nodes with their gradients.
func (e *MultiHeadMLP) Model() []G.ValueGrad {
	// Lazy instantiation
	if e.model == nil {
		e.model = make([]G.ValueGrad, 0, 2*len(e.layers))
		for _, node := range e.Learnables() {
			e.model = append(e.model, node)
		}
	}
	return e.model
}

// fwd performs the forward pass of the MultiHeadMLP on the input
// node
func (e *MultiHeadMLP) fwd(input *G.Node) (*G.Node, error) {
	inputShape := input.Shape()[len(input.Shape())-1]
	if inputShape != e.numInputs {
		return nil, fmt.Errorf("fwd: invalid shape for input to neural net:"+
			" \n\twant(%v) \n\thave(%v)", e.numInputs, inputShape)
	}

	pred := input
	var err error
	for i, l := range e.layers {
		if pred, err = l.fwd(pred); err != nil {
			msg := "fwd: could not compute forward pass of layer %v: %v"
			return nil, fmt.Errorf(msg, i, err)
		}
	}

	e.prediction = pred
	G.Read(e.prediction, &e.predVal)

	return pred, nil
}

// Output returns the output of the MultiHeadMLP after a VM has been
// run on its graph. The value has shape (BatchSize(), Outputs()).
func (e *MultiHeadMLP) Output() G.Value {
	return e.predVal
}

// Prediction returns the node of the computational graph the stores
// the output of the MultiHeadMLP
func (e *MultiHeadMLP) Prediction() *G.Node {
	return e.prediction
}

// GobEncode implements the gob.GobEncoder interface. The architecture
// and the weights of the network are encoded.
func (e *MultiHeadMLP) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)

	err := enc.Encode(e.numOutputs)
	if err != nil {
		return nil, fmt.Errorf("gobencode: could not encode number of outputs")
	}

	err = enc.Encode(e.numInputs)
	if err != nil {
		return nil, fmt.Errorf("gobencode: could not encode number of inputs")
	}

	err = enc.Encode(e.BatchSize())
	if err != nil {
		return nil, fmt.Errorf("gobencode: could not encode batch size")
	}

	err = enc.Encode(e.hiddenSizes)
	if err != nil {
		return nil, fmt.Errorf("gobencode: could not encode hidden sizes")
	}

	err = enc.Encode(e.biases)
	if err != nil {
		return nil, fmt.Errorf("gobencode: could not encode biases")
	}

	err = enc.Encode(e.activations)
	if err != nil {
		return nil, fmt.Errorf("gobencode: could not encode activations")
	}

	// Store the weights of each learnable
	for i, learnable := range e.Learnables() {
		weights, ok := learnable.Value().Data().([]float64)
		if !ok {
			return nil, fmt.Errorf("gobencode: learnable %v is not float64", i)
		}
		if err := enc.Encode(weights); err != nil {
			msg := "gobencode: could not encode learnable %v: %v"
			return nil, fmt.Errorf(msg, i, err)
		}
	}

	return buf.Bytes(), nil
}

// GobDecode implements the gob.GobDecoder interface
func (e *MultiHeadMLP) GobDecode(in []byte) error {
	buf := bytes.NewReader(in)
	dec := gob.NewDecoder(buf)

	var numOutputs int
	err := dec.Decode(&numOutputs)
	if err != nil {
		return fmt.Errorf("gobdecode: could not decode number of outputs")
	}

	var numInputs int
	err = dec.Decode(&numInputs)
	if err != nil {
		return fmt.Errorf("gobdecode: could not decode number of inputs")
	}

	var batchSize int
	err = dec.Decode(&batchSize)
	if err != nil {
		return fmt.Errorf("gobdecode: could not decode batch size")
	}

	var hiddenSizes []int
	err = dec.Decode(&hiddenSizes)
	if err != nil {
		return fmt.Errorf("gobdecode: could not decode hidden sizes")
	}

	var biases []bool
	err = dec.Decode(&biases)
	if err != nil {
		return fmt.Errorf("gobdecode: could not decode biases")
	}

	var activations []*Activation
	err = dec.Decode(&activations)
	if err != nil {
		return fmt.Errorf("gobdecode: could not decode activations")
	}

	// Create a new MLP
	g := G.NewGraph()
	newMLP, err := NewMultiHeadMLP(numInputs, batchSize, numOutputs, g,
		hiddenSizes, biases, G.Zeroes(), activations)
	if err != nil {
		return fmt.Errorf("gobdecode: could not construct new MLP: %v", err)
	}

	// Fill the new MLP's learnables with the decoded weights
	for i, learnable := range newMLP.Learnables() {
		var weights []float64
		if err := dec.Decode(&weights); err != nil {
			return fmt.Errorf("gobdecode: could not decode learnable %v: %v",
				i, err)
		}
		if len(weights) != learnable.Shape().TotalSize() {
			return fmt.Errorf("gobdecode: learnable %v has %v weights but "+
				"expected %v", i, len(weights), learnable.Shape().TotalSize())
		}

		t := tensor.New(
			tensor.WithShape(learnable.Shape()...),
			tensor.WithBacking(weights),
		)
		if err := G.Let(learnable, t); err != nil {
			return fmt.Errorf("gobdecode: could not set learnable %v: %v",
				i, err)
		}
	}

	*e = *newMLP
	return nil
}
