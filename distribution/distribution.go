// Package distribution provides probability distributions over
// count data, built as Gorgonia graph computations so that
// log-probabilities stay differentiable with respect to the
// distribution parameters.
package distribution

import (
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Distribution is a probability distribution over non-negative
// integer counts, which may hold a batch of distributions
// simultaneously, one per element of its parameter tensors.
type Distribution interface {
	Shape() tensor.Shape

	Mean() *G.Node
	StdDev() *G.Node
	Variance() *G.Node

	// LogProb returns the element-wise log of the probability mass
	// of the node. The shape of the node must be compatible with
	// the shape of the distribution.
	//
	// If the node has one more dimension than the dimensions
	// of the distribution, then the first dimension of the input
	// node is taken to be the batch dimension. Otherwise, the node
	// must have the same shape as the distribution.
	LogProb(*G.Node) (*G.Node, error)

	// Prob returns the element-wise probability mass of the node.
	// The shape of the node is treated as in LogProb.
	Prob(*G.Node) (*G.Node, error)

	// Sample returns a node that generates samples from the
	// distribution each time the node is passed. The leading
	// dimension of the output indexes the samples. This function is
	// not differentiable.
	Sample(samples int) (*G.Node, error)

	// Returns whether the distribution has reparameterized samples
	// or not
	HasRsample() bool
}
