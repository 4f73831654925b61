package scvi

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"gonum.org/v1/gonum/mathext"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

func TestDigamma(t *testing.T) {
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

		dg, err := Digamma(x)
		if err != nil {
			t.Error(err)
		}
		var dgVal G.Value
		G.Read(dg, &dgVal)

		vm := G.NewTapeMachine(g)
		vm.RunAll()

		out := dgVal.Data().([]float64)
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
}
