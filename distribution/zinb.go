package distribution

import (
	"fmt"
	"sync"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// ZINBParams extends NegBinomialParams with a zero-inflation
// parameter. Exactly one of ZILogits and ZIProbs must be supplied;
// the other representation is derived lazily on first access.
// ZIProbs is the probability that an element is a structural zero,
// independent of the negative-binomial count, and must lie in [0, 1).
type ZINBParams struct {
	NegBinomialParams
	ZILogits *G.Node
	ZIProbs  *G.Node
}

// ZeroInflatedNegBinomial is a mixture of a NegBinomial with an extra
// point mass at zero. The zero-inflation parameter must have the same
// shape as the negative-binomial component, except that a scalar is
// accepted when the component has shape (1,).
//
// Shapes of method inputs are treated as for NegBinomial.
type ZeroInflatedNegBinomial struct {
	nb *NegBinomial

	// Lazily derived pair; the one not supplied at construction is
	// computed at most once, on first access. Safe to memoize since
	// parameters are immutable after construction.
	ziLogits    *G.Node
	ziLogitsErr error
	logitsOnce  sync.Once
	ziProbs     *G.Node
	ziProbsErr  error
	probsOnce   sync.Once

	seed         uint64
	validateArgs bool
}

// NewZeroInflatedNegBinomial returns a new ZeroInflatedNegBinomial.
// The negative-binomial component is constructed exactly as in
// NewNegBinomial; a *ConfigurationError is returned when both or
// neither of ZILogits/ZIProbs is given, and, with validateArgs, a
// *DomainError when a bound zero-inflation probability lies outside
// [0, 1).
func NewZeroInflatedNegBinomial(p ZINBParams, seed uint64,
	validateArgs bool) (*ZeroInflatedNegBinomial, error) {
	if (p.ZILogits == nil) == (p.ZIProbs == nil) {
		return nil, configErrorf("newZeroInflatedNegBinomial: exactly one " +
			"of ziLogits and ziProbs must be given")
	}

	nb, err := NewNegBinomial(p.NegBinomialParams, seed, validateArgs)
	if err != nil {
		return nil, err
	}

	zi := p.ZILogits
	ziName := "ziLogits"
	if zi == nil {
		zi = p.ZIProbs
		ziName = "ziProbs"
	}

	if zi.Dtype() != tensor.Float64 {
		return nil, fmt.Errorf("newZeroInflatedNegBinomial: data type %v "+
			"unsupported", zi.Dtype())
	}

	if validateArgs && p.ZIProbs != nil {
		// Check the node as supplied; reshaping a scalar yields a
		// derived node with no bound value to check.
		if err := ziProbsInRange(p.ZIProbs); err != nil {
			return nil, err
		}
	}

	if zi.IsScalar() {
		zi, err = G.Reshape(zi, []int{1})
		if err != nil {
			return nil, fmt.Errorf("newZeroInflatedNegBinomial: could not "+
				"expand %v to shape (1): %v", ziName, err)
		}
	}
	if !zi.Shape().Eq(nb.Shape()) {
		return nil, fmt.Errorf("newZeroInflatedNegBinomial: expected %v to "+
			"have shape %v but got %v", ziName, nb.Shape(), zi.Shape())
	}

	z := &ZeroInflatedNegBinomial{
		nb:           nb,
		seed:         seed,
		validateArgs: validateArgs,
	}
	if p.ZILogits != nil {
		z.ziLogits = zi
	} else {
		z.ziProbs = zi
	}

	return z, nil
}

// NB returns the negative-binomial component of the mixture
func (z *ZeroInflatedNegBinomial) NB() *NegBinomial { return z.nb }

// Shape returns the shape of the distribution(s) stored by the
// receiver
func (z *ZeroInflatedNegBinomial) Shape() tensor.Shape {
	return z.nb.Shape()
}

// ZILogits returns the zero-inflation log-odds, deriving them from
// the probabilities on first access when the receiver was
// constructed with ZIProbs.
func (z *ZeroInflatedNegBinomial) ZILogits() (*G.Node, error) {
	z.logitsOnce.Do(func() {
		if z.ziLogits != nil {
			return
		}
		z.ziLogits, z.ziLogitsErr = ProbsToLogits(z.ziProbs, logProbEps)
	})

	return z.ziLogits, z.ziLogitsErr
}

// ZIProbs returns the zero-inflation probabilities, deriving them
// from the log-odds on first access when the receiver was
// constructed with ZILogits.
func (z *ZeroInflatedNegBinomial) ZIProbs() (*G.Node, error) {
	z.probsOnce.Do(func() {
		if z.ziProbs != nil {
			return
		}
		z.ziProbs, z.ziProbsErr = G.Sigmoid(z.ziLogits)
	})

	return z.ziProbs, z.ziProbsErr
}

// Mean returns the mean (1 - ziProbs) * mu of the distribution(s)
// stored by the receiver
func (z *ZeroInflatedNegBinomial) Mean() *G.Node {
	one := z.nb.mu.Graph().Constant(G.NewF64(1.0))

	probs := G.Must(z.ZIProbs())
	keep := G.Must(G.Sub(one, probs))

	return G.Must(G.HadamardProd(keep, z.nb.Mean()))
}

// Variance returns the variance
// (1 - ziProbs) * mu * (1 + mu*(ziProbs + 1/theta)) of the
// distribution(s) stored by the receiver
func (z *ZeroInflatedNegBinomial) Variance() *G.Node {
	g := z.nb.mu.Graph()
	one := g.Constant(G.NewF64(1.0))
	eps := g.Constant(G.NewF64(logProbEps))

	probs := G.Must(z.ZIProbs())

	invTheta := G.Must(G.Inverse(G.Must(G.Add(z.nb.theta, eps))))
	inner := G.Must(G.Add(probs, invTheta))
	inner = G.Must(G.HadamardProd(z.nb.mu, inner))
	inner = G.Must(G.Add(one, inner))

	keep := G.Must(G.Sub(one, probs))
	variance := G.Must(G.HadamardProd(keep, z.nb.mu))

	return G.Must(G.HadamardProd(variance, inner))
}

// StdDev returns the standard deviation of the distribution(s)
// stored by the receiver
func (z *ZeroInflatedNegBinomial) StdDev() *G.Node {
	return G.Must(G.Sqrt(z.Variance()))
}

// HasRsample returns whether the distribution has reparameterized
// samples, which it does not
func (z *ZeroInflatedNegBinomial) HasRsample() bool { return false }

// Sample returns a node that draws integer-valued counts each time
// it is passed. A base negative-binomial draw is taken as in
// NegBinomial.Sample; independently, per element, a uniform draw is
// compared against ziProbs and the count is forced to exactly zero
// where the uniform draw falls at or below it. No gradient flows
// through this operation.
func (z *ZeroInflatedNegBinomial) Sample(samples int) (*G.Node, error) {
	counts, err := z.nb.Sample(samples)
	if err != nil {
		return nil, fmt.Errorf("sample: %v", err)
	}

	probs, err := z.ZIProbs()
	if err != nil {
		return nil, fmt.Errorf("sample: %v", err)
	}

	return ZeroInflate(counts, probs, z.seed+2)
}

// LogProb returns the element-wise log-probability mass of x under
// the zero-inflated mixture. The shape of x and support validation
// are treated as in NegBinomial.LogProb.
func (z *ZeroInflatedNegBinomial) LogProb(x *G.Node) (*G.Node, error) {
	x, err := z.nb.fixShape(x)
	if err != nil {
		return nil, fmt.Errorf("logProb: %v", err)
	}

	if z.validateArgs {
		if err := validateSupport(x); err != nil {
			return nil, err
		}
	}

	logits, err := z.ZILogits()
	if err != nil {
		return nil, fmt.Errorf("logProb: %v", err)
	}

	return LogZINBPositive(x, z.nb.mu, z.nb.theta, logits, logProbEps)
}

// Prob returns the element-wise probability mass of x. The shape of
// x is treated in the same way as the LogProb() method.
func (z *ZeroInflatedNegBinomial) Prob(x *G.Node) (*G.Node, error) {
	logProb, err := z.LogProb(x)
	if err != nil {
		return nil, fmt.Errorf("prob: %v", err)
	}

	return G.Exp(logProb)
}

// ziProbsInRange returns a *DomainError if any bound element of the
// node lies outside [0, 1). Probability-1 zero-inflation is
// disallowed.
func ziProbsInRange(n *G.Node) error {
	v := n.Value()
	if v == nil {
		return nil
	}

	for _, f := range float64sOf(v) {
		if f < 0 || f >= 1 {
			return domainErrorf("expected ziProbs in [0, 1) but got %v", f)
		}
	}
	return nil
}
