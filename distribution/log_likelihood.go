package distribution

import (
	"fmt"

	scvi "github.com/ebezzi/scvi-tools"
	G "gorgonia.org/gorgonia"
)

// LogNBPositive computes the element-wise log-probability mass of
// value under a negative binomial in mean/dispersion form:
//
//	lgamma(value+theta) - lgamma(theta) - lgamma(value+1)
//	  + theta*log(theta/(theta+mu+eps)) + value*log(mu/(theta+mu+eps))
//
// The eps offset is applied wherever a logarithm argument could
// vanish, so mu or theta being exactly zero yields -Inf or a
// well-defined extreme instead of an error.
//
// The parameters mu and theta must have the same shape. The value
// node must either have that shape too, or carry one extra leading
// batch dimension (dim 0).
func LogNBPositive(value, mu, theta *G.Node, eps float64) (*G.Node, error) {
	if !mu.Shape().Eq(theta.Shape()) {
		return nil, fmt.Errorf("logNBPositive: expected mu and theta to "+
			"have the same shape but got %v and %v", mu.Shape(), theta.Shape())
	}

	g := value.Graph()
	epsNode := g.Constant(G.NewF64(eps))
	one := g.Constant(G.NewF64(1.0))
	batchDim := []byte{0}
	batch := !value.Shape().Eq(mu.Shape())

	// Parameter-shaped terms
	logTheta := G.Must(G.Log(G.Must(G.Add(theta, epsNode))))
	logMu := G.Must(G.Log(G.Must(G.Add(mu, epsNode))))
	logThetaMu := G.Must(G.Log(G.Must(G.Add(G.Must(G.Add(theta, mu)),
		epsNode))))

	thetaTerm := G.Must(G.HadamardProd(theta, G.Must(G.Sub(logTheta,
		logThetaMu))))
	lgTheta, err := scvi.Lgamma(theta)
	if err != nil {
		return nil, fmt.Errorf("logNBPositive: %v", err)
	}

	// Value-shaped terms
	logRatio := G.Must(G.Sub(logMu, logThetaMu))

	var valueTerm, lgValueTheta, lgValuePlusOne *G.Node
	if batch {
		valueTerm = G.Must(G.BroadcastHadamardProd(value, logRatio, nil,
			batchDim))
		lgValueTheta, err = scvi.Lgamma(G.Must(G.BroadcastAdd(value, theta,
			nil, batchDim)))
	} else {
		valueTerm = G.Must(G.HadamardProd(value, logRatio))
		lgValueTheta, err = scvi.Lgamma(G.Must(G.Add(value, theta)))
	}
	if err != nil {
		return nil, fmt.Errorf("logNBPositive: %v", err)
	}

	lgValuePlusOne, err = scvi.Lgamma(G.Must(G.Add(value, one)))
	if err != nil {
		return nil, fmt.Errorf("logNBPositive: %v", err)
	}

	res := G.Must(G.Add(valueTerm, lgValueTheta))
	res = G.Must(G.Sub(res, lgValuePlusOne))
	if batch {
		res = G.Must(G.BroadcastAdd(res, thetaTerm, nil, batchDim))
		res = G.Must(G.BroadcastSub(res, lgTheta, nil, batchDim))
	} else {
		res = G.Must(G.Add(res, thetaTerm))
		res = G.Must(G.Sub(res, lgTheta))
	}

	return res, nil
}

// LogZINBPositive computes the element-wise log-probability mass of
// value under a zero-inflated negative binomial with zero-inflation
// log-odds ziLogits. A value of zero can arise either from the
// structural-zero branch or from the negative-binomial branch
// producing zero; both paths are accounted for:
//
//	value == 0: log(sigmoid(zi) + (1-sigmoid(zi)) * NB(0))
//	value  > 0: log(1-sigmoid(zi)) + logNBPositive(value)
//
// Accumulation stays in log space via softplus, so large negative
// logits are never exponentiated directly. Shapes are treated as in
// LogNBPositive; ziLogits must have the same shape as mu and theta.
func LogZINBPositive(value, mu, theta, ziLogits *G.Node,
	eps float64) (*G.Node, error) {
	if !mu.Shape().Eq(theta.Shape()) {
		return nil, fmt.Errorf("logZINBPositive: expected mu and theta to "+
			"have the same shape but got %v and %v", mu.Shape(),
			theta.Shape())
	}
	if !ziLogits.Shape().Eq(mu.Shape()) {
		return nil, fmt.Errorf("logZINBPositive: expected ziLogits to have "+
			"shape %v but got %v", mu.Shape(), ziLogits.Shape())
	}

	g := value.Graph()
	epsNode := g.Constant(G.NewF64(eps))
	one := g.Constant(G.NewF64(1.0))
	batchDim := []byte{0}
	batch := !value.Shape().Eq(mu.Shape())

	// Parameter-shaped terms
	logTheta := G.Must(G.Log(G.Must(G.Add(theta, epsNode))))
	logMu := G.Must(G.Log(G.Must(G.Add(mu, epsNode))))
	logThetaMu := G.Must(G.Log(G.Must(G.Add(G.Must(G.Add(theta, mu)),
		epsNode))))

	// theta * log(theta / (theta + mu))
	thetaTerm := G.Must(G.HadamardProd(theta, G.Must(G.Sub(logTheta,
		logThetaMu))))

	softplusNeg, err := G.Softplus(G.Must(G.Neg(ziLogits)))
	if err != nil {
		return nil, fmt.Errorf("logZINBPositive: %v", err)
	}

	// log(pi + (1-pi)*(theta/(theta+mu))^theta) in log space
	spZero, err := G.Softplus(G.Must(G.Sub(thetaTerm, ziLogits)))
	if err != nil {
		return nil, fmt.Errorf("logZINBPositive: %v", err)
	}
	caseZero := G.Must(G.Sub(spZero, softplusNeg))

	// Parameter-shaped part of the value > 0 branch:
	// -pi - softplus(-pi) + theta*log(theta/(theta+mu)) - lgamma(theta)
	lgTheta, err := scvi.Lgamma(theta)
	if err != nil {
		return nil, fmt.Errorf("logZINBPositive: %v", err)
	}
	nonZeroParam := G.Must(G.Sub(thetaTerm, ziLogits))
	nonZeroParam = G.Must(G.Sub(nonZeroParam, softplusNeg))
	nonZeroParam = G.Must(G.Sub(nonZeroParam, lgTheta))

	// Value-shaped part of the value > 0 branch
	logRatio := G.Must(G.Sub(logMu, logThetaMu))

	var valueTerm, lgValueTheta *G.Node
	if batch {
		valueTerm = G.Must(G.BroadcastHadamardProd(value, logRatio, nil,
			batchDim))
		lgValueTheta, err = scvi.Lgamma(G.Must(G.BroadcastAdd(value, theta,
			nil, batchDim)))
	} else {
		valueTerm = G.Must(G.HadamardProd(value, logRatio))
		lgValueTheta, err = scvi.Lgamma(G.Must(G.Add(value, theta)))
	}
	if err != nil {
		return nil, fmt.Errorf("logZINBPositive: %v", err)
	}

	lgValuePlusOne, err := scvi.Lgamma(G.Must(G.Add(value, one)))
	if err != nil {
		return nil, fmt.Errorf("logZINBPositive: %v", err)
	}

	caseNonZero := G.Must(G.Add(valueTerm, lgValueTheta))
	caseNonZero = G.Must(G.Sub(caseNonZero, lgValuePlusOne))
	if batch {
		caseNonZero = G.Must(G.BroadcastAdd(caseNonZero, nonZeroParam, nil,
			batchDim))
	} else {
		caseNonZero = G.Must(G.Add(caseNonZero, nonZeroParam))
	}

	// Select between the branches element-wise
	mask := G.Must(G.Lt(value, epsNode, true))
	notMask := G.Must(G.Sub(one, mask))

	var zeroPart *G.Node
	if batch {
		zeroPart = G.Must(G.BroadcastHadamardProd(mask, caseZero, nil,
			batchDim))
	} else {
		zeroPart = G.Must(G.HadamardProd(mask, caseZero))
	}
	nonZeroPart := G.Must(G.HadamardProd(notMask, caseNonZero))

	return G.Add(zeroPart, nonZeroPart)
}
