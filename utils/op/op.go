// Package op provides extended Gorgonia graph operations.
//
// Adapted from aunum/gold on GitHub
package op

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

// ClipNodes returns scalar nodes holding the lower and upper clipping
// bounds. Their values may be changed between runs of a VM with G.Let.
func ClipNodes(g *G.ExprGraph, min, max float64,
	name string) (minNode, maxNode *G.Node) {
	minNode = G.NewScalar(
		g,
		G.Float64,
		G.WithValue(min),
		G.WithName(name+"Min"),
	)
	maxNode = G.NewScalar(
		g,
		G.Float64,
		G.WithValue(max),
		G.WithName(name+"Max"),
	)
	return minNode, maxNode
}

// Clip clips the value of a node to be within [min, max], where min
// and max are scalar nodes. Values equal to either bound are passed
// through unchanged. The gradient of the output with respect to value
// is 1 inside the bounds and 0 outside.
func Clip(value, minNode, maxNode *G.Node) (retVal *G.Node, err error) {
	if !minNode.IsScalar() || !maxNode.IsScalar() {
		return nil, fmt.Errorf("clip: bounds must be scalar nodes")
	}

	// Check if its below the min value
	minMask, err := G.Lt(value, minNode, true)
	if err != nil {
		return nil, err
	}
	minVal, err := G.HadamardProd(minNode, minMask)
	if err != nil {
		return nil, err
	}

	// Check if its within the bounds
	isMaskGte, err := G.Gte(value, minNode, true)
	if err != nil {
		return nil, err
	}
	isMaskLte, err := G.Lte(value, maxNode, true)
	if err != nil {
		return nil, err
	}
	isMask, err := G.HadamardProd(isMaskGte, isMaskLte)
	if err != nil {
		return nil, err
	}
	isVal, err := G.HadamardProd(value, isMask)
	if err != nil {
		return nil, err
	}

	// Check if its above the max value
	maxMask, err := G.Gt(value, maxNode, true)
	if err != nil {
		return nil, err
	}
	maxVal, err := G.HadamardProd(maxNode, maxMask)
	if err != nil {
		return nil, err
	}
	return G.ReduceAdd(G.Nodes{minVal, isVal, maxVal})
}

// Min returns the min value between the nodes. If values are equal
// the first value is returned
func Min(a *G.Node, b *G.Node) (retVal *G.Node, err error) {
	aMask, err := G.Lte(a, b, true)
	if err != nil {
		return nil, err
	}
	aVal, err := G.HadamardProd(a, aMask)
	if err != nil {
		return nil, err
	}

	bMask, err := G.Lt(b, a, true)
	if err != nil {
		return nil, err
	}
	bVal, err := G.HadamardProd(b, bMask)
	if err != nil {
		return nil, err
	}
	return G.Add(aVal, bVal)
}

// LogSumExp calculates the log of the summation of exponentials of
// all logits along the given axis.
//
// Use this in place of Gorgonia's LogSumExp, which has the final sum
// and log interchanged, which is incorrect.
func LogSumExp(logits *G.Node, along int) *G.Node {
	max := G.Must(G.Max(logits, along))

	exponent := G.Must(G.BroadcastSub(logits, max, nil, []byte{1}))
	exponent = G.Must(G.Exp(exponent))

	sum := G.Must(G.Sum(exponent, along))
	log := G.Must(G.Log(sum))

	return G.Must(G.Add(max, log))
}

// LogSoftmax returns the log of the softmax of a batch of logits. The
// logits must be a matrix with one row per sample.
func LogSoftmax(logits *G.Node) (*G.Node, error) {
	if !logits.IsMatrix() {
		return nil, fmt.Errorf("logSoftmax: logits must be a matrix")
	}
	lse := LogSumExp(logits, 1)
	return G.BroadcastSub(logits, lse, nil, []byte{1})
}
