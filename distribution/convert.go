package distribution

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

// ConvertEps is the default offset used when converting between the
// two negative-binomial parameterizations. It prevents log(0) when a
// parameter is exactly zero. Callers must not rely on exact
// invertibility at the boundary.
const ConvertEps float64 = 1e-6

// ToMeanDispersion converts the (totalCount, logits) parameterization
// of the negative binomial to the (mu, theta) parameterization:
//
//	theta = totalCount
//	mu    = exp(logits) * theta
//
// The eps argument is accepted for symmetry with ToFailuresLogits;
// the forward direction needs no offset.
func ToMeanDispersion(totalCount, logits *G.Node, eps float64) (mu,
	theta *G.Node, err error) {
	if !totalCount.Shape().Eq(logits.Shape()) {
		return nil, nil, fmt.Errorf("toMeanDispersion: expected totalCount "+
			"and logits to have the same shape but got %v and %v",
			totalCount.Shape(), logits.Shape())
	}

	theta = totalCount

	exp, err := G.Exp(logits)
	if err != nil {
		return nil, nil, fmt.Errorf("toMeanDispersion: %v", err)
	}
	mu, err = G.HadamardProd(exp, theta)
	if err != nil {
		return nil, nil, fmt.Errorf("toMeanDispersion: %v", err)
	}

	return mu, theta, nil
}

// ToFailuresLogits converts the (mu, theta) parameterization of the
// negative binomial to the (totalCount, logits) parameterization:
//
//	totalCount = theta
//	logits     = log(mu + eps) - log(theta + eps)
func ToFailuresLogits(mu, theta *G.Node, eps float64) (totalCount,
	logits *G.Node, err error) {
	if !mu.Shape().Eq(theta.Shape()) {
		return nil, nil, fmt.Errorf("toFailuresLogits: expected mu and "+
			"theta to have the same shape but got %v and %v", mu.Shape(),
			theta.Shape())
	}

	epsNode := mu.Graph().Constant(G.NewF64(eps))

	logMu, err := G.Log(G.Must(G.Add(mu, epsNode)))
	if err != nil {
		return nil, nil, fmt.Errorf("toFailuresLogits: %v", err)
	}
	logTheta, err := G.Log(G.Must(G.Add(theta, epsNode)))
	if err != nil {
		return nil, nil, fmt.Errorf("toFailuresLogits: %v", err)
	}

	logits, err = G.Sub(logMu, logTheta)
	if err != nil {
		return nil, nil, fmt.Errorf("toFailuresLogits: %v", err)
	}

	return theta, logits, nil
}

// ProbsToLogits converts a probability tensor to its log-odds
// representation log(p / (1-p)), restricted to the binary case. The
// eps offset keeps the transform finite at the boundaries.
func ProbsToLogits(probs *G.Node, eps float64) (*G.Node, error) {
	g := probs.Graph()
	epsNode := g.Constant(G.NewF64(eps))
	one := g.Constant(G.NewF64(1.0))

	logP, err := G.Log(G.Must(G.Add(probs, epsNode)))
	if err != nil {
		return nil, fmt.Errorf("probsToLogits: %v", err)
	}

	oneMinus, err := G.Sub(one, probs)
	if err != nil {
		return nil, fmt.Errorf("probsToLogits: %v", err)
	}
	logOneMinus, err := G.Log(G.Must(G.Add(oneMinus, epsNode)))
	if err != nil {
		return nil, fmt.Errorf("probsToLogits: %v", err)
	}

	return G.Sub(logP, logOneMinus)
}
