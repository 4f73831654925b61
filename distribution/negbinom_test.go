package distribution

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// testNodeID provides unique names for test input nodes: gorgonia
// dedupes unnamed input nodes by type and shape, so unnamed nodes in
// the same graph would alias each other
var testNodeID uint64

// newVector returns a new float64 vector node holding backing
func newVector(g *G.ExprGraph, backing ...float64) *G.Node {
	vT := tensor.NewDense(
		tensor.Float64,
		[]int{len(backing)},
		tensor.WithBacking(backing),
	)

	name := fmt.Sprintf("input-%d", atomic.AddUint64(&testNodeID, 1))

	return G.NewVector(g, vT.Dtype(), G.WithName(name), G.WithValue(vT))
}

// nbLogProb is the closed-form negative-binomial log-probability
// mass in mean/dispersion form, used as the test oracle
func nbLogProb(k, mu, theta float64) float64 {
	lg1, _ := math.Lgamma(k + theta)
	lg2, _ := math.Lgamma(theta)
	lg3, _ := math.Lgamma(k + 1)

	return lg1 - lg2 - lg3 + theta*math.Log(theta/(theta+mu)) +
		k*math.Log(mu/(theta+mu))
}

func TestNegBinomialExclusivity(t *testing.T) {
	g := G.NewGraph()
	mu := newVector(g, 3.0)
	theta := newVector(g, 4.0)
	totalCount := newVector(g, 4.0)
	logits := newVector(g, -0.25)
	probs := newVector(g, 0.4)

	invalid := []NegBinomialParams{
		{},
		{Mu: mu, Theta: theta, TotalCount: totalCount, Logits: logits},
		{Mu: mu},
		{Theta: theta},
		{TotalCount: totalCount},
		{Logits: logits},
		{TotalCount: totalCount, Probs: probs, Logits: logits},
		{Mu: mu, Logits: logits},
	}
	for i, p := range invalid {
		_, err := NewNegBinomial(p, uint64(11), true)
		if err == nil {
			t.Errorf("case %v: expected a configuration error", i)
			continue
		}

		var confErr *ConfigurationError
		if !errors.As(err, &confErr) {
			t.Errorf("case %v: expected a *ConfigurationError but got %T",
				i, err)
		}
	}

	valid := []NegBinomialParams{
		{Mu: mu, Theta: theta},
		{TotalCount: totalCount, Logits: logits},
		{TotalCount: totalCount, Probs: probs},
	}
	for i, p := range valid {
		if _, err := NewNegBinomial(p, uint64(11), true); err != nil {
			t.Errorf("case %v: unexpected error: %v", i, err)
		}
	}
}

// TestNegBinomialFromFailuresLogits checks that constructing from the
// failures/logits parameterization normalizes to the same mu and
// theta as constructing from mean/dispersion directly
func TestNegBinomialFromFailuresLogits(t *testing.T) {
	const threshold float64 = 0.0001
	const tests int = 15
	rand.Seed(time.Now().UnixNano())

	for i := 0; i < tests; i++ {
		mu := 0.5 + rand.Float64()*5
		theta := 0.5 + rand.Float64()*5

		g := G.NewGraph()
		totalCount := newVector(g, theta)
		logits := newVector(g, math.Log(mu/theta))

		n, err := NewNegBinomial(NegBinomialParams{
			TotalCount: totalCount,
			Logits:     logits,
		}, uint64(11), true)
		if err != nil {
			t.Error(err)
		}

		var muVal, thetaVal G.Value
		G.Read(n.Mu(), &muVal)
		G.Read(n.Theta(), &thetaVal)

		vm := G.NewTapeMachine(g)
		vm.RunAll()

		muOut := muVal.Data().([]float64)[0]
		thetaOut := thetaVal.Data().([]float64)[0]
		if math.Abs(muOut-mu) > threshold {
			t.Errorf("expected mu: %v received: %v", mu, muOut)
		}
		if math.Abs(thetaOut-theta) > threshold {
			t.Errorf("expected theta: %v received: %v", theta, thetaOut)
		}

		vm.Reset()
		vm.Close()
	}
}

// TestNegBinomialLogProbZero checks the closed form
// logProb(0) = theta * log(theta / (theta + mu))
func TestNegBinomialLogProbZero(t *testing.T) {
	const threshold float64 = 0.0001
	const mu float64 = 3.0
	const theta float64 = 4.0

	g := G.NewGraph()
	n, err := NewNegBinomial(NegBinomialParams{
		Mu:    newVector(g, mu),
		Theta: newVector(g, theta),
	}, uint64(11), true)
	if err != nil {
		t.Error(err)
	}

	x := newVector(g, 0.0)
	logProb, err := n.LogProb(x)
	if err != nil {
		t.Error(err)
	}
	var logProbVal G.Value
	G.Read(logProb, &logProbVal)

	vm := G.NewTapeMachine(g)
	vm.RunAll()

	expected := theta * math.Log(theta/(theta+mu))
	out := logProbVal.Data().([]float64)[0]
	if math.Abs(out-expected) > threshold {
		t.Errorf("expected: %v received: %v", expected, out)
	}

	vm.Reset()
	vm.Close()
}

// TestNegBinomialLogProb checks the log-probability against the
// closed-form mass function for randomized parameters and counts
func TestNegBinomialLogProb(t *testing.T) {
	const threshold float64 = 0.0001
	const tests int = 30
	rand.Seed(time.Now().UnixNano())

	for i := 0; i < tests; i++ {
		mu := 0.5 + rand.Float64()*10
		theta := 0.5 + rand.Float64()*10
		k := float64(rand.Intn(20))

		g := G.NewGraph()
		n, err := NewNegBinomial(NegBinomialParams{
			Mu:    newVector(g, mu),
			Theta: newVector(g, theta),
		}, uint64(11), true)
		if err != nil {
			t.Error(err)
		}

		logProb, err := n.LogProb(newVector(g, k))
		if err != nil {
			t.Error(err)
		}
		var logProbVal G.Value
		G.Read(logProb, &logProbVal)

		vm := G.NewTapeMachine(g)
		vm.RunAll()

		expected := nbLogProb(k, mu, theta)
		out := logProbVal.Data().([]float64)[0]
		if math.Abs(out-expected) > threshold {
			t.Errorf("expected: %v received: %v for k=%v mu=%v theta=%v",
				expected, out, k, mu, theta)
		}

		vm.Reset()
		vm.Close()
	}
}

// TestNegBinomialNormalization checks that the probability mass sums
// to 1 over the support
func TestNegBinomialNormalization(t *testing.T) {
	const threshold float64 = 0.001
	const support int = 400
	const mu float64 = 3.0
	const theta float64 = 4.0

	g := G.NewGraph()
	n, err := NewNegBinomial(NegBinomialParams{
		Mu:    newVector(g, mu),
		Theta: newVector(g, theta),
	}, uint64(11), true)
	if err != nil {
		t.Error(err)
	}

	backing := make([]float64, support)
	for k := range backing {
		backing[k] = float64(k)
	}
	xT := tensor.NewDense(
		tensor.Float64,
		[]int{support, 1},
		tensor.WithBacking(backing),
	)
	x := G.NewMatrix(g, xT.Dtype(), G.WithName("x"), G.WithValue(xT))

	prob, err := n.Prob(x)
	if err != nil {
		t.Error(err)
	}
	var probVal G.Value
	G.Read(prob, &probVal)

	vm := G.NewTapeMachine(g)
	vm.RunAll()

	sum := 0.0
	for _, p := range probVal.Data().([]float64) {
		sum += p
	}
	if math.Abs(sum-1) > threshold {
		t.Errorf("expected probability mass to sum to 1 but got %v", sum)
	}

	vm.Reset()
	vm.Close()
}

func TestNegBinomialValidation(t *testing.T) {
	var domErr *DomainError

	// Negative parameters are rejected at construction
	g := G.NewGraph()
	_, err := NewNegBinomial(NegBinomialParams{
		Mu:    newVector(g, -1.0),
		Theta: newVector(g, 1.0),
	}, uint64(11), true)
	if !errors.As(err, &domErr) {
		t.Errorf("expected a *DomainError for negative mu but got %v", err)
	}

	g = G.NewGraph()
	n, err := NewNegBinomial(NegBinomialParams{
		Mu:    newVector(g, 3.0),
		Theta: newVector(g, 4.0),
	}, uint64(11), true)
	if err != nil {
		t.Error(err)
	}

	// Values outside the support are rejected
	if _, err := n.LogProb(newVector(g, -1.0)); !errors.As(err, &domErr) {
		t.Errorf("expected a *DomainError for a negative value but got %v",
			err)
	}
	if _, err := n.LogProb(newVector(g, 1.5)); !errors.As(err, &domErr) {
		t.Errorf("expected a *DomainError for a non-integer value but "+
			"got %v", err)
	}

	// With validation off the same values pass through
	g = G.NewGraph()
	n, err = NewNegBinomial(NegBinomialParams{
		Mu:    newVector(g, 3.0),
		Theta: newVector(g, 4.0),
	}, uint64(11), false)
	if err != nil {
		t.Error(err)
	}
	if _, err := n.LogProb(newVector(g, -1.0)); err != nil {
		t.Errorf("expected no error with validateArgs=false but got %v", err)
	}
	if _, err := n.LogProb(newVector(g, 1.5)); err != nil {
		t.Errorf("expected no error with validateArgs=false but got %v", err)
	}
}

// TestNegBinomialSampleSupport checks that samples are non-negative
// integer-valued tensors of the expected shape
func TestNegBinomialSampleSupport(t *testing.T) {
	const samples int = 1000

	g := G.NewGraph()
	n, err := NewNegBinomial(NegBinomialParams{
		Mu:    newVector(g, 2.0, 5.0),
		Theta: newVector(g, 1.0, 1.0),
	}, uint64(time.Now().UnixNano()), true)
	if err != nil {
		t.Error(err)
	}

	s, err := n.Sample(samples)
	if err != nil {
		t.Error(err)
	}
	var sampled G.Value
	G.Read(s, &sampled)

	vm := G.NewTapeMachine(g)
	if err := vm.RunAll(); err != nil {
		t.Error(err)
	}

	if !sampled.Shape().Eq(tensor.Shape{samples, 2}) {
		t.Errorf("expected sample shape %v but got %v",
			tensor.Shape{samples, 2}, sampled.Shape())
	}

	for _, v := range sampled.Data().([]float64) {
		if v < 0 || v != math.Floor(v) {
			t.Errorf("expected non-negative integer counts but got %v", v)
		}
	}

	vm.Reset()
	vm.Close()
}

// TestNegBinomialSampleMoments checks that the empirical mean and
// variance of the Gamma-Poisson compound match mu and mu + mu²/theta
func TestNegBinomialSampleMoments(t *testing.T) {
	const samples int = 100000
	const mu float64 = 10.0
	const theta float64 = 2.0

	g := G.NewGraph()
	n, err := NewNegBinomial(NegBinomialParams{
		Mu:    newVector(g, mu),
		Theta: newVector(g, theta),
	}, uint64(23), true)
	if err != nil {
		t.Error(err)
	}

	s, err := n.Sample(samples)
	if err != nil {
		t.Error(err)
	}
	var sampled G.Value
	G.Read(s, &sampled)

	vm := G.NewTapeMachine(g)
	if err := vm.RunAll(); err != nil {
		t.Error(err)
	}

	mean, variance := moments(sampled.Data().([]float64))

	expectedVar := mu + mu*mu/theta
	if math.Abs(mean-mu) > 0.05*mu {
		t.Errorf("expected mean: %v received: %v", mu, mean)
	}
	if math.Abs(variance-expectedVar) > 0.1*expectedVar {
		t.Errorf("expected variance: %v received: %v", expectedVar, variance)
	}

	vm.Reset()
	vm.Close()
}
