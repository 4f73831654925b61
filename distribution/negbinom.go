package distribution

import (
	"fmt"

	scvi "github.com/ebezzi/scvi-tools"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

const (
	// logProbEps is the offset used for log-stability inside the
	// log-likelihood kernels
	logProbEps float64 = 1e-8

	// latentRateClamp caps the latent Gamma rate before the Poisson
	// draw. Downstream samplers can misbehave on extreme rates; this
	// is a numerical-stability guard, not a modeling assumption.
	latentRateClamp float64 = 1e8
)

// NegBinomialParams selects one of the two parameterizations of the
// negative binomial. Exactly one family must be supplied:
//
//   - Mu and Theta: the mean/dispersion form, where Mu is the
//     expected count and Theta the inverse overdispersion.
//   - TotalCount with one of Probs or Logits: the failures/success
//     form, where TotalCount is the number of failures until the
//     experiment is stopped and Probs (or its log-odds Logits) the
//     success probability.
//
// A nil field means the parameter is absent.
type NegBinomialParams struct {
	TotalCount *G.Node
	Probs      *G.Node
	Logits     *G.Node
	Mu         *G.Node
	Theta      *G.Node
}

// NegBinomial is a negative binomial distribution over non-negative
// integer counts, which may hold a batch of distributions
// simultaneously. Whatever parameterization it is constructed with,
// it is normalized internally to the (mu, theta) form, and the shape
// of the mu tensor constitutes the shape of the distribution.
//
// Any input to any method must have a shape consistent with the shape
// of the distribution: either the exact same shape, or one extra
// leading batch dimension (dim 0). Given a NegBinomial with shape
// (n_1, n_2, ..., n_M), the following are legal shapes for an input:
//
// 1. (n_1, n_2, ..., n_M)
// 2. (a, n_1, n_2, ..., n_M) for ∀a ∈ ℕ-{0}
//
// NegBinomial supports the following data types:
// - tensor.Float64
type NegBinomial struct {
	mu    *G.Node
	theta *G.Node

	seed         uint64
	validateArgs bool
}

// NewNegBinomial returns a new NegBinomial from exactly one of the
// two parameterization families in p. A *ConfigurationError is
// returned when both or neither family is given.
//
// If validateArgs is true, parameters and observed values are checked
// against their mathematical domain whenever their tensors carry a
// bound value, returning a *DomainError on violation. Nodes whose
// values are fed later (e.g. through gorgonia.Let) cannot be checked
// before execution.
func NewNegBinomial(p NegBinomialParams, seed uint64,
	validateArgs bool) (*NegBinomial, error) {
	muStyle := p.Mu != nil || p.Theta != nil
	countStyle := p.TotalCount != nil || p.Probs != nil || p.Logits != nil

	if muStyle == countStyle {
		return nil, configErrorf("newNegBinomial: please use exactly one " +
			"of the two possible parameterizations, mu/theta or " +
			"totalCount with probs or logits")
	}

	var mu, theta *G.Node
	var err error
	if muStyle {
		if p.Mu == nil || p.Theta == nil {
			return nil, configErrorf("newNegBinomial: the mu/theta " +
				"parameterization requires both mu and theta")
		}

		mu, theta, err = checkPair("mu", p.Mu, "theta", p.Theta)
		if err != nil {
			return nil, fmt.Errorf("newNegBinomial: %v", err)
		}
	} else {
		if p.TotalCount == nil {
			return nil, configErrorf("newNegBinomial: the totalCount " +
				"parameterization requires totalCount")
		}
		if (p.Probs == nil) == (p.Logits == nil) {
			return nil, configErrorf("newNegBinomial: the totalCount " +
				"parameterization requires exactly one of probs and logits")
		}

		logits := p.Logits
		if logits == nil {
			logits, err = ProbsToLogits(p.Probs, ConvertEps)
			if err != nil {
				return nil, fmt.Errorf("newNegBinomial: %v", err)
			}
		}

		var totalCount *G.Node
		totalCount, logits, err = checkPair("totalCount", p.TotalCount,
			"logits", logits)
		if err != nil {
			return nil, fmt.Errorf("newNegBinomial: %v", err)
		}

		mu, theta, err = ToMeanDispersion(totalCount, logits, ConvertEps)
		if err != nil {
			return nil, fmt.Errorf("newNegBinomial: %v", err)
		}
	}

	if validateArgs {
		// Derived nodes carry no value until the graph runs; only
		// directly supplied parameters can be checked here.
		for _, check := range []struct {
			name string
			node *G.Node
		}{{"mu", p.Mu}, {"theta", p.Theta}, {"totalCount", p.TotalCount}} {
			if check.node == nil {
				continue
			}
			if err := nonNegative(check.name, check.node); err != nil {
				return nil, err
			}
		}
	}

	return &NegBinomial{
		mu:           mu,
		theta:        theta,
		seed:         seed,
		validateArgs: validateArgs,
	}, nil
}

// Shape returns the shape of the distribution(s) stored by the
// receiver
func (n *NegBinomial) Shape() tensor.Shape {
	return n.mu.Shape()
}

// Mu returns the mean parameter of the distribution(s) stored by the
// receiver
func (n *NegBinomial) Mu() *G.Node { return n.mu }

// Theta returns the inverse-overdispersion parameter of the
// distribution(s) stored by the receiver
func (n *NegBinomial) Theta() *G.Node { return n.theta }

// Mean returns the mean of the distribution(s) stored by the
// receiver
func (n *NegBinomial) Mean() *G.Node { return n.mu }

// Variance returns the variance mu + mu²/theta of the
// distribution(s) stored by the receiver
func (n *NegBinomial) Variance() *G.Node {
	eps := n.mu.Graph().Constant(G.NewF64(logProbEps))

	sq := G.Must(G.Square(n.mu))
	over := G.Must(G.HadamardDiv(sq, G.Must(G.Add(n.theta, eps))))

	return G.Must(G.Add(n.mu, over))
}

// StdDev returns the standard deviation of the distribution(s)
// stored by the receiver
func (n *NegBinomial) StdDev() *G.Node {
	return G.Must(G.Sqrt(n.Variance()))
}

// FailureLogits re-derives the (totalCount, logits) parameterization
// of the receiver up to the conversion eps.
func (n *NegBinomial) FailureLogits() (totalCount, logits *G.Node,
	err error) {
	return ToFailuresLogits(n.mu, n.theta, ConvertEps)
}

// HasRsample returns whether the distribution has reparameterized
// samples, which it does not: the Poisson stage of the compound draw
// is discrete.
func (n *NegBinomial) HasRsample() bool { return false }

// Sample returns a node that draws integer-valued counts each time
// it is passed. The output has shape (samples, distribution shape...).
//
// The draw is a Gamma-Poisson compound: a latent rate is drawn from
// Gamma(concentration=theta, rate=theta/mu), clamped to at most 1e8,
// and the count is drawn from Poisson(rate=latent). No gradient flows
// through this operation.
func (n *NegBinomial) Sample(samples int) (*G.Node, error) {
	rate, err := G.HadamardDiv(n.theta, n.mu)
	if err != nil {
		return nil, fmt.Errorf("sample: %v", err)
	}

	latent, err := GammaRand(n.theta, rate, n.seed, samples)
	if err != nil {
		return nil, fmt.Errorf("sample: %v", err)
	}

	latent, err = scvi.Clamp(latent, 0.0, latentRateClamp, false)
	if err != nil {
		return nil, fmt.Errorf("sample: %v", err)
	}

	counts, err := PoissonRand(latent, n.seed+1)
	if err != nil {
		return nil, fmt.Errorf("sample: %v", err)
	}

	return counts, nil
}

// LogProb returns the element-wise log-probability mass of x. The
// shape of x must match the shape of the distribution, except for
// possibly one extra leading batch dimension.
//
// If the receiver was constructed with validateArgs and x carries a
// bound value, x is checked to lie in the support (non-negative
// integers), returning a *DomainError otherwise.
func (n *NegBinomial) LogProb(x *G.Node) (*G.Node, error) {
	x, err := n.fixShape(x)
	if err != nil {
		return nil, fmt.Errorf("logProb: %v", err)
	}

	if n.validateArgs {
		if err := validateSupport(x); err != nil {
			return nil, err
		}
	}

	return LogNBPositive(x, n.mu, n.theta, logProbEps)
}

// Prob returns the element-wise probability mass of x. The shape of
// x is treated in the same way as the LogProb() method.
func (n *NegBinomial) Prob(x *G.Node) (*G.Node, error) {
	logProb, err := n.LogProb(x)
	if err != nil {
		return nil, fmt.Errorf("prob: %v", err)
	}

	return G.Exp(logProb)
}

// isBatch returns whether x is a batch of samples to calculate some
// method on
func (n *NegBinomial) isBatch(x *G.Node) bool {
	return !x.Shape().Eq(n.mu.Shape())
}

// fixShape adjusts the shape of x so that it can be used in some
// method. It returns an error indicating if x is of an invalid shape
// which could not be adjusted.
func (n *NegBinomial) fixShape(x *G.Node) (*G.Node, error) {
	if x.IsScalar() && n.mu.Shape()[0] == 1 {
		return G.Reshape(x, []int{1})

	} else if len(x.Shape()) == 1 && n.mu.Shape()[0] == 1 &&
		x.Shape()[0] != 1 {
		// When distribution shape was inputted as a scalar, then a
		// vector input x indicates a batch of samples -> reshape
		// so batch dims = 0 and shape of samples = dim 1
		return G.Reshape(x, []int{x.Shape()[0], 1})

	} else if n.isBatch(x) && !tensor.Shape(x.Shape()[1:]).Eq(n.Shape()) {
		msg := "expected shape to match distribution shape %v at all " +
			"dimensions except batch (dim 0) but got x shape %v"
		return nil, fmt.Errorf(msg, n.Shape(), x.Shape())
	}

	return x, nil
}
