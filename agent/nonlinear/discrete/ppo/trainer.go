package ppo

import (
	"fmt"

	"github.com/samuelfneumann/goppo/agent"
	"github.com/samuelfneumann/goppo/agent/nonlinear/discrete/actorcritic"
	"github.com/samuelfneumann/goppo/solver"
	"github.com/samuelfneumann/goppo/utils/op"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// trainer adds the clipped surrogate and value function losses to the
// graphs of an ActorCritic with a fixed batch size.
//
// The policy and value function are in separate graphs, each with its
// own VM. The value function VM is run first and the resulting state
// values are used as constants to compute the advantages for the
// policy VM, so no gradient flows from the policy loss into the value
// function.
//
// The losses are built on the LogProbNode and ValueNode of the
// ActorCritic, so the log probabilities and values they use are those
// returned by ActorCritic.Evaluate on the same data.
type trainer struct {
	ac        *actorcritic.ActorCritic
	batchSize int

	// Policy graph
	oldLogProbs   *G.Node
	advantages    *G.Node
	clipMin       *G.Node
	clipMax       *G.Node
	ratio         *G.Node
	ratioVal      G.Value
	policyLoss    *G.Node
	policyLossVal G.Value
	policyVM      G.VM

	// Value function graph
	returns      *G.Node
	valueLoss    *G.Node
	valueLossVal G.Value
	valueVM      G.VM
}

// newTrainer returns a new trainer which optimizes ac. The trainer
// takes ownership of ac.
func newTrainer(ac *actorcritic.ActorCritic) (*trainer, error) {
	batch := ac.BatchSize()
	policyGraph := ac.Policy().Graph()
	valueGraph := ac.Value().Graph()

	// Clipped surrogate objective
	oldLogProbs := G.NewVector(
		policyGraph,
		tensor.Float64,
		G.WithShape(batch),
		G.WithName("oldLogProbs"),
		G.WithInit(G.Zeroes()),
	)
	advantages := G.NewVector(
		policyGraph,
		tensor.Float64,
		G.WithShape(batch),
		G.WithName("advantages"),
		G.WithInit(G.Zeroes()),
	)
	clipMin, clipMax := op.ClipNodes(policyGraph, 1.0, 1.0, "ratio")

	ratio := G.Must(G.Sub(ac.LogProbNode(), oldLogProbs))
	ratio = G.Must(G.Exp(ratio))

	clippedRatio, err := op.Clip(ratio, clipMin, clipMax)
	if err != nil {
		return nil, fmt.Errorf("newTrainer: could not clip ratio: %v", err)
	}
	surrogate := G.Must(G.HadamardProd(ratio, advantages))
	clippedSurrogate := G.Must(G.HadamardProd(clippedRatio, advantages))

	objective, err := op.Min(surrogate, clippedSurrogate)
	if err != nil {
		return nil, fmt.Errorf("newTrainer: could not compute objective: %v",
			err)
	}
	policyLoss := G.Must(G.Mean(objective))
	policyLoss = G.Must(G.Neg(policyLoss))

	if _, err := G.Grad(policyLoss, ac.Policy().Learnables()...); err != nil {
		return nil, fmt.Errorf("newTrainer: could not compute policy "+
			"gradient: %v", err)
	}

	// Mean squared error of the value function
	returns := G.NewMatrix(
		valueGraph,
		tensor.Float64,
		G.WithShape(ac.ValueNode().Shape()...),
		G.WithName("returns"),
		G.WithInit(G.Zeroes()),
	)
	valueLoss := G.Must(G.Sub(ac.ValueNode(), returns))
	valueLoss = G.Must(G.Square(valueLoss))
	valueLoss = G.Must(G.Mean(valueLoss))

	if _, err := G.Grad(valueLoss, ac.Value().Learnables()...); err != nil {
		return nil, fmt.Errorf("newTrainer: could not compute value "+
			"gradient: %v", err)
	}

	t := &trainer{
		ac:          ac,
		batchSize:   batch,
		oldLogProbs: oldLogProbs,
		advantages:  advantages,
		clipMin:     clipMin,
		clipMax:     clipMax,
		ratio:       ratio,
		policyLoss:  policyLoss,
		returns:     returns,
		valueLoss:   valueLoss,
	}
	G.Read(t.ratio, &t.ratioVal)
	G.Read(t.policyLoss, &t.policyLossVal)
	G.Read(t.valueLoss, &t.valueLossVal)

	t.policyVM = G.NewTapeMachine(policyGraph,
		G.BindDualValues(ac.Policy().Learnables()...))
	t.valueVM = G.NewTapeMachine(valueGraph,
		G.BindDualValues(ac.Value().Learnables()...))

	return t, nil
}

// setData sets the constant inputs of the losses for all passes of an
// update
func (t *trainer) setData(states []float64, actions []int,
	oldLogProbs, returns []float64, clip float64) error {
	if err := t.ac.SetStates(states); err != nil {
		return fmt.Errorf("setData: %v", err)
	}
	if err := t.ac.SetActions(actions); err != nil {
		return fmt.Errorf("setData: %v", err)
	}

	oldLogProbsTensor := tensor.NewDense(
		tensor.Float64,
		t.oldLogProbs.Shape(),
		tensor.WithBacking(append([]float64{}, oldLogProbs...)),
	)
	if err := G.Let(t.oldLogProbs, oldLogProbsTensor); err != nil {
		return fmt.Errorf("setData: could not set log probabilities: %v", err)
	}

	returnsTensor := tensor.NewDense(
		tensor.Float64,
		t.returns.Shape(),
		tensor.WithBacking(append([]float64{}, returns...)),
	)
	if err := G.Let(t.returns, returnsTensor); err != nil {
		return fmt.Errorf("setData: could not set returns: %v", err)
	}

	if err := G.Let(t.clipMin, G.NewF64(1-clip)); err != nil {
		return fmt.Errorf("setData: could not set clip range: %v", err)
	}
	if err := G.Let(t.clipMax, G.NewF64(1+clip)); err != nil {
		return fmt.Errorf("setData: could not set clip range: %v", err)
	}
	return nil
}

// passStats holds the losses of a single pass
type passStats struct {
	policyLoss   float64
	valueLoss    float64
	clipFraction float64
	approxKL     float64
}

// step performs a single pass over the data set with setData, taking
// one step with the solver on the parameters of both networks
func (t *trainer) step(s *solver.Solver, oldLogProbs, returns []float64,
	clip float64) (passStats, error) {
	defer t.valueVM.Reset()
	defer t.policyVM.Reset()

	// State values and value function gradients
	if err := t.valueVM.RunAll(); err != nil {
		return passStats{}, fmt.Errorf("step: could not run value "+
			"function: %v", err)
	}
	values := t.ac.Value().Output().Data().([]float64)

	advantages := make([]float64, t.batchSize)
	for i := range advantages {
		advantages[i] = returns[i] - values[i]
	}
	advantagesTensor := tensor.NewDense(
		tensor.Float64,
		t.advantages.Shape(),
		tensor.WithBacking(advantages),
	)
	if err := G.Let(t.advantages, advantagesTensor); err != nil {
		return passStats{}, fmt.Errorf("step: could not set advantages: %v",
			err)
	}

	// Policy gradients
	if err := t.policyVM.RunAll(); err != nil {
		return passStats{}, fmt.Errorf("step: could not run policy: %v", err)
	}

	stats := passStats{
		policyLoss: t.policyLossVal.Data().(float64),
		valueLoss:  t.valueLossVal.Data().(float64),
	}
	ratios := t.ratioVal.Data().([]float64)
	logProbs := t.ac.LogProbVal().Data().([]float64)
	for i, ratio := range ratios {
		if clipped(ratio, clip) {
			stats.clipFraction++
		}
		stats.approxKL += oldLogProbs[i] - logProbs[i]
	}
	stats.clipFraction /= float64(t.batchSize)
	stats.approxKL /= float64(t.batchSize)

	if err := s.Step(t.ac.Model()); err != nil {
		return passStats{}, fmt.Errorf("step: could not step solver: %v", err)
	}
	return stats, nil
}

// train performs epochs passes over the data, returning the losses of
// the update
func (t *trainer) train(s *solver.Solver, epochs int, states []float64,
	actions []int, oldLogProbs, returns []float64,
	clip float64) (agent.UpdateStats, error) {
	if err := t.setData(states, actions, oldLogProbs, returns,
		clip); err != nil {
		return agent.UpdateStats{}, fmt.Errorf("train: %v", err)
	}

	stats := agent.UpdateStats{
		Samples: t.batchSize,
		Losses:  make([]float64, 0, epochs),
	}
	for e := 0; e < epochs; e++ {
		pass, err := t.step(s, oldLogProbs, returns, clip)
		if err != nil {
			return stats, fmt.Errorf("train: pass %v: %v", e, err)
		}

		stats.Losses = append(stats.Losses, pass.policyLoss+pass.valueLoss)
		stats.PolicyLoss = pass.policyLoss
		stats.ValueLoss = pass.valueLoss
		stats.ClipFraction = pass.clipFraction
		stats.ApproxKL = pass.approxKL
	}
	return stats, nil
}

// close releases the resources of the trainer's VMs and ActorCritic
func (t *trainer) close() error {
	if err := t.policyVM.Close(); err != nil {
		return fmt.Errorf("close: %v", err)
	}
	if err := t.valueVM.Close(); err != nil {
		return fmt.Errorf("close: %v", err)
	}
	return t.ac.Close()
}
