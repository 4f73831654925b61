package scvi

import (
	"math"
	"math/rand"
	"testing"
	"time"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

func TestClamp(t *testing.T) {
	const tests int = 15
	const minSize int = 1
	const maxSize int = 32
	const scale float64 = 5
	rand.Seed(time.Now().UnixNano())

	for i := 0; i < tests; i++ {
		min := scale * (rand.Float64() - 1) // Random in [-scale, 0)
		max := scale * rand.Float64()       // Random in [0, scale)

		size := minSize + rand.Intn(maxSize-minSize)
		backing := make([]float64, size)
		for j := range backing {
			backing[j] = (rand.Float64() - 0.5) * 4 * scale
		}

		g := G.NewGraph()
		xT := tensor.NewDense(
			tensor.Float64,
			[]int{size},
			tensor.WithBacking(backing),
		)
		x := G.NewVector(g, xT.Dtype(), G.WithValue(xT))

		clamped, err := Clamp(x, min, max, false)
		if err != nil {
			t.Error(err)
		}
		var clampedVal G.Value
		G.Read(clamped, &clampedVal)

		vm := G.NewTapeMachine(g)
		vm.RunAll()

		out := clampedVal.Data().([]float64)
		for j := range out {
			expected := math.Min(math.Max(backing[j], min), max)
			if out[j] != expected {
				t.Errorf("expected: %v received: %v for x: %v", expected,
					out[j], backing[j])
			}
		}

		vm.Reset()
		vm.Close()
	}
}
