package distribution

import (
	"math"
	"testing"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// moments returns the empirical mean and variance of data
func moments(data []float64) (mean, variance float64) {
	for _, v := range data {
		mean += v
	}
	mean /= float64(len(data))

	for _, v := range data {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(data) - 1)

	return mean, variance
}

func TestGammaRandMoments(t *testing.T) {
	const samples int = 50000
	const concentration float64 = 4.0
	const rate float64 = 2.0

	g := G.NewGraph()
	concT := tensor.NewDense(
		tensor.Float64,
		[]int{1},
		tensor.WithBacking([]float64{concentration}),
	)
	conc := G.NewVector(g, concT.Dtype(), G.WithName("concentration"),
		G.WithValue(concT))

	rateT := tensor.NewDense(
		tensor.Float64,
		[]int{1},
		tensor.WithBacking([]float64{rate}),
	)
	rateNode := G.NewVector(g, rateT.Dtype(), G.WithName("rate"),
		G.WithValue(rateT))

	s, err := GammaRand(conc, rateNode, uint64(11), samples)
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

	expectedMean := concentration / rate
	expectedVar := concentration / (rate * rate)
	if math.Abs(mean-expectedMean) > 0.05*expectedMean {
		t.Errorf("expected mean: %v received: %v", expectedMean, mean)
	}
	if math.Abs(variance-expectedVar) > 0.1*expectedVar {
		t.Errorf("expected variance: %v received: %v", expectedVar, variance)
	}

	vm.Reset()
	vm.Close()
}

func TestPoissonRandMoments(t *testing.T) {
	const samples int = 50000
	const rate float64 = 5.0

	backing := make([]float64, samples)
	for i := range backing {
		backing[i] = rate
	}

	g := G.NewGraph()
	rateT := tensor.NewDense(
		tensor.Float64,
		[]int{samples},
		tensor.WithBacking(backing),
	)
	rateNode := G.NewVector(g, rateT.Dtype(), G.WithValue(rateT))

	s, err := PoissonRand(rateNode, uint64(13))
	if err != nil {
		t.Error(err)
	}
	var sampled G.Value
	G.Read(s, &sampled)

	vm := G.NewTapeMachine(g)
	if err := vm.RunAll(); err != nil {
		t.Error(err)
	}

	data := sampled.Data().([]float64)
	for _, v := range data {
		if v < 0 || v != math.Floor(v) {
			t.Errorf("expected non-negative integer draws but got %v", v)
		}
	}

	mean, variance := moments(data)
	if math.Abs(mean-rate) > 0.05*rate {
		t.Errorf("expected mean: %v received: %v", rate, mean)
	}
	if math.Abs(variance-rate) > 0.1*rate {
		t.Errorf("expected variance: %v received: %v", rate, variance)
	}

	vm.Reset()
	vm.Close()
}

// TestZeroInflateFraction checks that masking a constant counts
// tensor zeroes out approximately the requested fraction of elements
func TestZeroInflateFraction(t *testing.T) {
	const samples int = 20000
	const prob float64 = 0.3
	const threshold float64 = 0.015

	countsBacking := make([]float64, samples)
	for i := range countsBacking {
		countsBacking[i] = 1.0
	}

	g := G.NewGraph()
	countsT := tensor.NewDense(
		tensor.Float64,
		[]int{samples, 1},
		tensor.WithBacking(countsBacking),
	)
	counts := G.NewMatrix(g, countsT.Dtype(), G.WithValue(countsT))

	probsT := tensor.NewDense(
		tensor.Float64,
		[]int{1},
		tensor.WithBacking([]float64{prob}),
	)
	probs := G.NewVector(g, probsT.Dtype(), G.WithValue(probsT))

	masked, err := ZeroInflate(counts, probs, uint64(17))
	if err != nil {
		t.Error(err)
	}
	var maskedVal G.Value
	G.Read(masked, &maskedVal)

	vm := G.NewTapeMachine(g)
	if err := vm.RunAll(); err != nil {
		t.Error(err)
	}

	zeros := 0
	for _, v := range maskedVal.Data().([]float64) {
		if v == 0 {
			zeros++
		} else if v != 1 {
			t.Errorf("expected masked counts to be 0 or 1 but got %v", v)
		}
	}

	fraction := float64(zeros) / float64(samples)
	if math.Abs(fraction-prob) > threshold {
		t.Errorf("expected zero fraction: %v received: %v", prob, fraction)
	}

	vm.Reset()
	vm.Close()
}
