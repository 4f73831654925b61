package scvi

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/chewxy/math32"
	"gonum.org/v1/gonum/mathext"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// randPositiveF64 returns a random float64 slice of length size with
// values in (0, scale]
func randPositiveF64(size int, scale float64) []float64 {
	slice := make([]float64, size)
	for i := range slice {
		slice[i] = (1 - rand.Float64()) * scale
	}

	return slice
}

func TestLgammaF64(t *testing.T) {
	const threshold float64 = 0.000001
	const tests int = 15
	const minSize int = 1
	const maxSize int = 32
	const scale float64 = 25
	rand.Seed(time.Now().UnixNano())

	for i := 0; i < tests; i++ {
		size := minSize + rand.Intn(maxSize-minSize)
		backing := randPositiveF64(size, scale)

		g := G.NewGraph()
		xT := tensor.NewDense(
			tensor.Float64,
			[]int{size},
			tensor.WithBacking(backing),
		)
		x := G.NewVector(g, xT.Dtype(), G.WithValue(xT))

		lg, err := Lgamma(x)
		if err != nil {
			t.Error(err)
		}
		var lgVal G.Value
		G.Read(lg, &lgVal)

		vm := G.NewTapeMachine(g)
		vm.RunAll()

		out := lgVal.Data().([]float64)
		for j := range out {
			expected, _ := math.Lgamma(backing[j])
			if math.Abs(out[j]-expected) > threshold {
				t.Errorf("expected: %v received: %v for x: %v", expected,
					out[j], backing[j])
			}
		}

		vm.Reset()
		vm.Close()
	}
}

func TestLgammaF32(t *testing.T) {
	const threshold float32 = 0.0001

	backing := []float32{0.5, 1.0, 2.5, 7.25, 11.0}

	g := G.NewGraph()
	xT := tensor.NewDense(
		tensor.Float32,
		[]int{len(backing)},
		tensor.WithBacking(backing),
	)
	x := G.NewVector(g, xT.Dtype(), G.WithValue(xT))

	lg, err := Lgamma(x)
	if err != nil {
		t.Error(err)
	}
	var lgVal G.Value
	G.Read(lg, &lgVal)

	vm := G.NewTapeMachine(g)
	vm.RunAll()

	out := lgVal.Data().([]float32)
	for j := range out {
		expected, _ := math.Lgamma(float64(backing[j]))
		if math32.Abs(out[j]-float32(expected)) > threshold {
			t.Errorf("expected: %v received: %v for x: %v", expected,
				out[j], backing[j])
		}
	}

	vm.Reset()
	vm.Close()
}

// TestLgammaGrad checks that the symbolic derivative of the lgamma op
// is the digamma function
func TestLgammaGrad(t *testing.T) {
	const threshold float64 = 0.00001
	const size int = 8
	const scale float64 = 10
	rand.Seed(time.Now().UnixNano())

	backing := randPositiveF64(size, scale)

	g := G.NewGraph()
	xT := tensor.NewDense(
		tensor.Float64,
		[]int{size},
		tensor.WithBacking(backing),
	)
	x := G.NewVector(g, xT.Dtype(), G.WithValue(xT))

	lg, err := Lgamma(x)
	if err != nil {
		t.Error(err)
	}

	cost, err := G.Sum(lg)
	if err != nil {
		t.Error(err)
	}

	grads, err := G.Grad(cost, x)
	if err != nil {
		t.Error(err)
	}
	var gradVal G.Value
	G.Read(grads[0], &gradVal)

	vm := G.NewTapeMachine(g)
	vm.RunAll()

	out := gradVal.Data().([]float64)
	for j := range out {
		expected := mathext.Digamma(backing[j])
		if math.Abs(out[j]-expected) > threshold {
			t.Errorf("expected: %v received: %v for x: %v", expected,
				out[j], backing[j])
		}
	}

	vm.Reset()
	vm.Close()
}
