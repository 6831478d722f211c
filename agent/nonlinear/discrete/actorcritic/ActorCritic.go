// Package actorcritic implements a function approximator for discrete
// action actor-critic agents. Two independent multi-layered perceptrons
// are used: a policy network predicting the logits of a softmax policy
// and a value network predicting state values.
package actorcritic

import (
	"fmt"
	"math"

	"github.com/samuelfneumann/goppo/buffer/rollout"
	"github.com/samuelfneumann/goppo/initwfn"
	"github.com/samuelfneumann/goppo/network"
	"github.com/samuelfneumann/goppo/utils/op"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Architecture describes the hidden layers of both networks of an
// ActorCritic. For each network, index i of the layers, biases and
// activations describes hidden layer i. A final linear layer is
// always added to each network.
type Architecture struct {
	PolicyLayers      []int
	PolicyBiases      []bool
	PolicyActivations []*network.Activation

	ValueLayers      []int
	ValueBiases      []bool
	ValueActivations []*network.Activation

	Init *initwfn.InitWFn
}

// DefaultArchitecture returns two hidden layers of 64 tanh units with
// biases for both networks, with Glorot uniform initialization.
func DefaultArchitecture() Architecture {
	init, err := initwfn.NewGlorotU(1.0)
	if err != nil {
		panic(fmt.Sprintf("defaultArchitecture: %v", err))
	}

	return Architecture{
		PolicyLayers:      []int{64, 64},
		PolicyBiases:      []bool{true, true},
		PolicyActivations: []*network.Activation{network.TanH(), network.TanH()},

		ValueLayers:      []int{64, 64},
		ValueBiases:      []bool{true, true},
		ValueActivations: []*network.Activation{network.TanH(), network.TanH()},

		Init: init,
	}
}

// Validate checks that an Architecture is legal
func (a Architecture) Validate() error {
	if a.Init == nil || a.Init.InitWFn() == nil {
		return fmt.Errorf("validate: no weight initializer")
	}
	if len(a.PolicyLayers) != len(a.PolicyBiases) ||
		len(a.PolicyLayers) != len(a.PolicyActivations) {
		return fmt.Errorf("validate: policy layers (%v), biases (%v) and "+
			"activations (%v) should have the same length",
			len(a.PolicyLayers), len(a.PolicyBiases),
			len(a.PolicyActivations))
	}
	if len(a.ValueLayers) != len(a.ValueBiases) ||
		len(a.ValueLayers) != len(a.ValueActivations) {
		return fmt.Errorf("validate: value layers (%v), biases (%v) and "+
			"activations (%v) should have the same length",
			len(a.ValueLayers), len(a.ValueBiases),
			len(a.ValueActivations))
	}
	return nil
}

// ActorCritic implements a softmax policy and a state value function
// over continuous observations and discrete actions.
//
// An ActorCritic has a fixed batch size. Single state queries
// (Distribution, Sample, Act) need a batch size of 1 while Evaluate
// takes exactly BatchSize() states. Use CloneWithBatch to change the
// batch size.
//
// An ActorCritic is not safe for concurrent use.
type ActorCritic struct {
	features   int
	numActions int
	batchSize  int
	seed       uint64

	policy *network.MultiHeadMLP
	value  *network.MultiHeadMLP

	actionIndices  *G.Node // one-hot encoding of actions to evaluate
	logProbsAll    *G.Node
	logProbsAllVal G.Value
	logProbs       *G.Node // log probabilities of the encoded actions
	logProbsVal    G.Value

	policyVM G.VM
	valueVM  G.VM

	rng rand.Source
}

// New returns a new ActorCritic for states with features features and
// actions actions. Inputs to the ActorCritic have batch size batch.
// The seed determines the action sampling RNG.
func New(features, actions, batch int, arch Architecture,
	seed uint64) (*ActorCritic, error) {
	if actions < 1 {
		return nil, fmt.Errorf("new: need at least one action but got %v",
			actions)
	}
	if err := arch.Validate(); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}

	policy, err := network.NewMultiHeadMLP(features, batch, actions,
		G.NewGraph(), arch.PolicyLayers, arch.PolicyBiases,
		arch.Init.InitWFn(), arch.PolicyActivations)
	if err != nil {
		return nil, fmt.Errorf("new: could not create policy network: %v",
			err)
	}

	value, err := network.NewSingleHeadMLP(features, batch, G.NewGraph(),
		arch.ValueLayers, arch.ValueBiases, arch.Init.InitWFn(),
		arch.ValueActivations)
	if err != nil {
		return nil, fmt.Errorf("new: could not create value network: %v",
			err)
	}

	return newFromNetworks(policy, value, seed)
}

// newFromNetworks constructs an ActorCritic around existing networks,
// adding the log probability computations to the policy graph.
func newFromNetworks(policy, value *network.MultiHeadMLP,
	seed uint64) (*ActorCritic, error) {
	if policy.Features() != value.Features() {
		return nil, fmt.Errorf("newFromNetworks: policy features (%v) != "+
			"value features (%v)", policy.Features(), value.Features())
	}
	if policy.BatchSize() != value.BatchSize() {
		return nil, fmt.Errorf("newFromNetworks: policy batch (%v) != "+
			"value batch (%v)", policy.BatchSize(), value.BatchSize())
	}
	if value.Outputs() != 1 {
		return nil, fmt.Errorf("newFromNetworks: value network should "+
			"have 1 output but has %v", value.Outputs())
	}

	batch := policy.BatchSize()
	actions := policy.Outputs()

	logits := policy.Prediction()
	logProbsAll, err := op.LogSoftmax(logits)
	if err != nil {
		return nil, fmt.Errorf("newFromNetworks: %v", err)
	}

	// Log probability of actions inputted with SetActions()
	actionIndices := G.NewMatrix(
		policy.Graph(),
		tensor.Float64,
		G.WithShape(batch, actions),
		G.WithName("actionIndices"),
		G.WithInit(G.Zeroes()),
	)
	logProbs := G.Must(G.HadamardProd(actionIndices, logProbsAll))
	logProbs = G.Must(G.Sum(logProbs, 1))

	ac := &ActorCritic{
		features:      policy.Features(),
		numActions:    actions,
		batchSize:     batch,
		seed:          seed,
		policy:        policy,
		value:         value,
		actionIndices: actionIndices,
		logProbsAll:   logProbsAll,
		logProbs:      logProbs,
		rng:           rand.NewSource(seed),
	}
	G.Read(ac.logProbsAll, &ac.logProbsAllVal)
	G.Read(ac.logProbs, &ac.logProbsVal)

	return ac, nil
}

// Features returns the number of features of a single state
func (a *ActorCritic) Features() int {
	return a.features
}

// Actions returns the number of actions
func (a *ActorCritic) Actions() int {
	return a.numActions
}

// BatchSize returns the number of states the ActorCritic takes as input
func (a *ActorCritic) BatchSize() int {
	return a.batchSize
}

// Seed returns the seed of the action sampling RNG
func (a *ActorCritic) Seed() uint64 {
	return a.seed
}

// Policy returns the policy network
func (a *ActorCritic) Policy() *network.MultiHeadMLP {
	return a.policy
}

// Value returns the value network
func (a *ActorCritic) Value() *network.MultiHeadMLP {
	return a.value
}

// LogProbNode returns the node computing the log probabilities of the
// actions set with SetActions in the states set with SetStates. The
// node is in the graph of Policy().
func (a *ActorCritic) LogProbNode() *G.Node {
	return a.logProbs
}

// ValueNode returns the node computing the values of the states set
// with SetStates. The node has shape (BatchSize(), 1) and is in the
// graph of Value().
func (a *ActorCritic) ValueNode() *G.Node {
	return a.value.Prediction()
}

// LogProbVal returns the value of LogProbNode after a VM has been run
// on the policy graph
func (a *ActorCritic) LogProbVal() G.Value {
	return a.logProbsVal
}

// Learnables returns the learnable nodes of the policy followed by
// those of the value network
func (a *ActorCritic) Learnables() G.Nodes {
	learnables := append(G.Nodes{}, a.policy.Learnables()...)
	return append(learnables, a.value.Learnables()...)
}

// Model returns the learnables of the policy followed by those of the
// value network, with their gradients
func (a *ActorCritic) Model() []G.ValueGrad {
	model := append([]G.ValueGrad{}, a.policy.Model()...)
	return append(model, a.value.Model()...)
}

// SetStates sets the input states of both networks. States are
// flattened in row major order.
func (a *ActorCritic) SetStates(states []float64) error {
	if len(states) != a.batchSize*a.features {
		return fmt.Errorf("setStates: expected %v states of %v features "+
			"(%v values) but got %v values", a.batchSize, a.features,
			a.batchSize*a.features, len(states))
	}
	if err := a.policy.SetInput(states); err != nil {
		return fmt.Errorf("setStates: %v", err)
	}
	if err := a.value.SetInput(states); err != nil {
		return fmt.Errorf("setStates: %v", err)
	}
	return nil
}

// SetActions sets the actions whose log probabilities are computed
// by LogProbNode
func (a *ActorCritic) SetActions(actions []int) error {
	if len(actions) != a.batchSize {
		return fmt.Errorf("setActions: expected %v actions but got %v",
			a.batchSize, len(actions))
	}

	actionIndices := make([]float64, a.numActions*a.batchSize)
	for i, action := range actions {
		if action < 0 || action >= a.numActions {
			return fmt.Errorf("setActions: action %v at index %v not in "+
				"[0, %v)", action, i, a.numActions)
		}
		actionIndices[i*a.numActions+action] = 1.0
	}

	actionIndicesTensor := tensor.NewDense(
		tensor.Float64,
		[]int{a.batchSize, a.numActions},
		tensor.WithBacking(actionIndices),
	)
	return G.Let(a.actionIndices, actionIndicesTensor)
}

// forwardVMs returns the VMs computing the forward passes of both
// networks, creating them if needed
func (a *ActorCritic) forwardVMs() (policyVM, valueVM G.VM) {
	if a.policyVM == nil {
		a.policyVM = G.NewTapeMachine(a.policy.Graph())
	}
	if a.valueVM == nil {
		a.valueVM = G.NewTapeMachine(a.value.Graph())
	}
	return a.policyVM, a.valueVM
}

// runPolicy runs the forward pass of the policy network, calling read
// before the VM is reset
func (a *ActorCritic) runPolicy(read func()) error {
	vm, _ := a.forwardVMs()
	defer vm.Reset()

	if err := vm.RunAll(); err != nil {
		return fmt.Errorf("runPolicy: %v", err)
	}
	read()
	return nil
}

// runValue runs the forward pass of the value network, calling read
// before the VM is reset
func (a *ActorCritic) runValue(read func()) error {
	_, vm := a.forwardVMs()
	defer vm.Reset()

	if err := vm.RunAll(); err != nil {
		return fmt.Errorf("runValue: %v", err)
	}
	read()
	return nil
}

// logProbabilities returns the log probabilities of all actions in a
// single state
func (a *ActorCritic) logProbabilities(state []float64) ([]float64, error) {
	if a.batchSize != 1 {
		return nil, fmt.Errorf("logProbabilities: single state queries need "+
			"batch size 1 but batch size is %v", a.batchSize)
	}
	if len(state) != a.features {
		return nil, fmt.Errorf("logProbabilities: expected %v features but "+
			"got %v", a.features, len(state))
	}

	if err := a.policy.SetInput(state); err != nil {
		return nil, fmt.Errorf("logProbabilities: %v", err)
	}
	var logProbs []float64
	err := a.runPolicy(func() {
		logProbs = append(logProbs, a.logProbsAllVal.Data().([]float64)...)
	})
	if err != nil {
		return nil, fmt.Errorf("logProbabilities: %v", err)
	}
	return logProbs, nil
}

// Distribution returns the categorical distribution over actions of
// the policy in the given state. Sampling from the distribution
// advances the ActorCritic's RNG.
func (a *ActorCritic) Distribution(state []float64) (distuv.Categorical,
	error) {
	logProbs, err := a.logProbabilities(state)
	if err != nil {
		return distuv.Categorical{}, fmt.Errorf("distribution: %v", err)
	}

	return distuv.NewCategorical(exp(logProbs), a.rng), nil
}

// Sample samples an action from the policy in the given state. The
// log probability of the sampled action is also returned, computed in
// the same way as by Evaluate.
func (a *ActorCritic) Sample(state []float64) (int, float64, error) {
	logProbs, err := a.logProbabilities(state)
	if err != nil {
		return 0, 0, fmt.Errorf("sample: %v", err)
	}

	dist := distuv.NewCategorical(exp(logProbs), a.rng)
	action := int(dist.Rand())

	return action, logProbs[action], nil
}

// Act samples an action in the given state and appends the state,
// action and log probability of the action to the buffer. The outcome
// of the action should then be appended to the buffer with
// AppendOutcome.
func (a *ActorCritic) Act(state []float64, buffer *rollout.Buffer) (int,
	error) {
	action, logProb, err := a.Sample(state)
	if err != nil {
		return 0, fmt.Errorf("act: %v", err)
	}

	if err := buffer.AppendStep(state, action, logProb); err != nil {
		return 0, fmt.Errorf("act: %v", err)
	}
	return action, nil
}

// Evaluate returns the log probability of each action in its
// corresponding state and the value of each state under the current
// parameters. States are flattened in row major order, and there must
// be exactly BatchSize() states and actions.
func (a *ActorCritic) Evaluate(states []float64, actions []int) (logProbs,
	values []float64, err error) {
	if err := a.SetStates(states); err != nil {
		return nil, nil, fmt.Errorf("evaluate: %v", err)
	}
	if err := a.SetActions(actions); err != nil {
		return nil, nil, fmt.Errorf("evaluate: %v", err)
	}

	err = a.runPolicy(func() {
		logProbs = append(logProbs, a.logProbsVal.Data().([]float64)...)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("evaluate: %v", err)
	}

	err = a.runValue(func() {
		values = append(values, a.value.Output().Data().([]float64)...)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("evaluate: %v", err)
	}

	return logProbs, values, nil
}

// Values returns the value of each state. States are flattened in row
// major order.
func (a *ActorCritic) Values(states []float64) ([]float64, error) {
	if len(states) != a.batchSize*a.features {
		return nil, fmt.Errorf("values: expected %v values but got %v",
			a.batchSize*a.features, len(states))
	}
	if err := a.value.SetInput(states); err != nil {
		return nil, fmt.Errorf("values: %v", err)
	}
	var values []float64
	err := a.runValue(func() {
		values = append(values, a.value.Output().Data().([]float64)...)
	})
	if err != nil {
		return nil, fmt.Errorf("values: %v", err)
	}
	return values, nil
}

// Set sets the parameters of the ActorCritic to be a deep copy of the
// parameters of source, which must have the same architecture. Batch
// sizes may differ.
func (a *ActorCritic) Set(source *ActorCritic) error {
	if a == source {
		return nil
	}
	if a.features != source.features || a.numActions != source.numActions {
		return fmt.Errorf("set: cannot set ActorCritic with %v features "+
			"and %v actions from one with %v features and %v actions",
			a.features, a.numActions, source.features, source.numActions)
	}

	if err := a.policy.Set(source.policy); err != nil {
		return fmt.Errorf("set: could not set policy: %v", err)
	}
	if err := a.value.Set(source.value); err != nil {
		return fmt.Errorf("set: could not set value function: %v", err)
	}
	return nil
}

// Clone returns a deep copy of the ActorCritic
func (a *ActorCritic) Clone() (*ActorCritic, error) {
	return a.CloneWithBatch(a.batchSize)
}

// CloneWithBatch returns a deep copy of the ActorCritic which takes
// batch states as input
func (a *ActorCritic) CloneWithBatch(batch int) (*ActorCritic, error) {
	policy, err := a.policy.CloneWithBatch(batch)
	if err != nil {
		return nil, fmt.Errorf("cloneWithBatch: could not clone policy: %v",
			err)
	}

	value, err := a.value.CloneWithBatch(batch)
	if err != nil {
		return nil, fmt.Errorf("cloneWithBatch: could not clone value "+
			"function: %v", err)
	}

	clone, err := newFromNetworks(policy.(*network.MultiHeadMLP),
		value.(*network.MultiHeadMLP), a.seed)
	if err != nil {
		return nil, fmt.Errorf("cloneWithBatch: %v", err)
	}
	return clone, nil
}

// Close releases the resources of the ActorCritic's VMs
func (a *ActorCritic) Close() error {
	if a.policyVM != nil {
		if err := a.policyVM.Close(); err != nil {
			return fmt.Errorf("close: %v", err)
		}
		a.policyVM = nil
	}
	if a.valueVM != nil {
		if err := a.valueVM.Close(); err != nil {
			return fmt.Errorf("close: %v", err)
		}
		a.valueVM = nil
	}
	return nil
}

// exp returns the elementwise exponential of x
func exp(x []float64) []float64 {
	out := make([]float64, len(x))
	for i := range x {
		out[i] = math.Exp(x[i])
	}
	return out
}
