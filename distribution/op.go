package distribution

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

// GammaRand returns a node holding numSamples Gamma(concentration,
// rate) draws per element, with the sample index as the leading
// dimension. Gamma is parameterized by the rate = 1/scale.
func GammaRand(concentration, rate *G.Node, seed uint64,
	numSamples int) (*G.Node, error) {
	if concentration.Dtype() != rate.Dtype() {
		return nil, fmt.Errorf("gammaRand: concentration and rate should "+
			"have same dtype but got %v and %v", concentration.Dtype(),
			rate.Dtype())
	}

	if !concentration.Shape().Eq(rate.Shape()) {
		return nil, fmt.Errorf("gammaRand: concentration and rate should "+
			"have same shape but got %v and %v", concentration.Shape(),
			rate.Shape())
	}

	op, err := newGammaSampleOp(concentration.Dtype(), seed, numSamples,
		concentration.Shape()...)
	if err != nil {
		return nil, fmt.Errorf("gammaRand: %v", err)
	}

	return G.ApplyOp(op, concentration, rate)
}

// PoissonRand returns a node holding one Poisson draw per element of
// the rate node.
func PoissonRand(rate *G.Node, seed uint64) (*G.Node, error) {
	op, err := newPoissonSampleOp(rate.Dtype(), seed, rate.Shape()...)
	if err != nil {
		return nil, fmt.Errorf("poissonRand: %v", err)
	}

	return G.ApplyOp(op, rate)
}

// ZeroInflate returns a node holding the counts with each element
// independently forced to zero with its probability from probs. The
// probs node must either hold a single element or match the trailing
// dimensions of the counts node.
func ZeroInflate(counts, probs *G.Node, seed uint64) (*G.Node, error) {
	if counts.Dtype() != probs.Dtype() {
		return nil, fmt.Errorf("zeroInflate: counts and probs should have "+
			"same dtype but got %v and %v", counts.Dtype(), probs.Dtype())
	}

	countsShape := counts.Shape()
	probsShape := probs.Shape()
	if probsShape.TotalSize() != 1 {
		if probsShape.Dims() > countsShape.Dims() ||
			!probsShape.Eq(countsShape[countsShape.Dims()-probsShape.Dims():]) {
			return nil, fmt.Errorf("zeroInflate: expected probs shape %v to "+
				"match the trailing dimensions of counts shape %v",
				probsShape, countsShape)
		}
	}

	op, err := newZeroInflateOp(counts.Dtype(), seed, countsShape,
		probsShape)
	if err != nil {
		return nil, fmt.Errorf("zeroInflate: %v", err)
	}

	return G.ApplyOp(op, counts, probs)
}
