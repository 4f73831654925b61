package distribution

import (
	"fmt"
	"hash"
	"math"

	"golang.org/x/exp/rand"

	"github.com/chewxy/hm"
	scvi "github.com/ebezzi/scvi-tools"
	"gonum.org/v1/gonum/stat/distuv"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// gammaSampleOp draws Gamma(concentration, rate) variates
// element-wise from its two inputs, prepending a sample dimension to
// the output. The op is not differentiable.
type gammaSampleOp struct {
	dt         tensor.Dtype
	shape      tensor.Shape
	source     rand.Source
	numSamples int
}

func newGammaSampleOp(dt tensor.Dtype, seed uint64, numSamples int,
	shape ...int) (*gammaSampleOp, error) {
	if dt != tensor.Float64 && dt != tensor.Float32 {
		return nil, fmt.Errorf("newGammaSampleOp: dtype %v not supported",
			dt)
	}
	if numSamples <= 0 {
		return nil, fmt.Errorf("newGammaSampleOp: expected numSamples > 0 "+
			"but got %v", numSamples)
	}

	return &gammaSampleOp{
		dt:         dt,
		shape:      tensor.Shape(shape),
		source:     rand.NewSource(seed),
		numSamples: numSamples,
	}, nil
}

func (g *gammaSampleOp) Arity() int { return 2 }

func (g *gammaSampleOp) Type() hm.Type {
	in := G.TensorType{
		Dims: g.shape.Dims(),
		Of:   g.dt,
	}
	out := G.TensorType{
		Dims: g.shape.Dims() + 1,
		Of:   g.dt,
	}

	return hm.NewFnType(in, in, out)
}

func (g *gammaSampleOp) InferShape(...G.DimSizer) (tensor.Shape, error) {
	return append(tensor.Shape{g.numSamples}, g.shape...), nil
}

func (g *gammaSampleOp) ReturnsPtr() bool { return false }

func (g *gammaSampleOp) CallsExtern() bool { return false }

func (g *gammaSampleOp) OverwritesInput() int { return -1 }

func (g *gammaSampleOp) String() string {
	return fmt.Sprintf("GammaSample{shape=%v}()", g.shape)
}

func (g *gammaSampleOp) WriteHash(h hash.Hash) {
	fmt.Fprint(h, g.String())
}

func (g *gammaSampleOp) Hashcode() uint32 {
	return scvi.SimpleHash(g)
}

func (g *gammaSampleOp) Do(inputs ...G.Value) (G.Value, error) {
	if err := g.checkInputs(inputs...); err != nil {
		return nil, fmt.Errorf("do: %v", err)
	}

	out := tensor.NewDense(
		g.dt,
		append([]int{g.numSamples}, g.shape...),
	)

	concentration := inputs[0].(tensor.Tensor)
	rate := inputs[1].(tensor.Tensor)

	// Create the distributions and sample
	for i := 0; i < concentration.Size(); i++ {
		coords, err := tensor.Itol(i, concentration.Shape(),
			concentration.Strides())
		if err != nil {
			return nil, fmt.Errorf("do: could not get coords at index %v", i)
		}

		currentConc, err := concentration.At(coords...)
		if err != nil {
			return nil, fmt.Errorf("do: could not get concentration at "+
				"index %v", i)
		}
		currentRate, err := rate.At(coords...)
		if err != nil {
			return nil, fmt.Errorf("do: could not get rate at index %v", i)
		}

		alpha := toF64(currentConc)
		beta := toF64(currentRate)
		dist := distuv.Gamma{
			Alpha: alpha,
			Beta:  beta,
			Src:   g.source,
		}

		outCoords := append([]int{0}, coords...)
		for j := 0; j < g.numSamples; j++ {
			outCoords[0] = j

			// A zero concentration or a vanishing/infinite rate
			// degenerates to a point mass at zero
			var draw float64
			if alpha > 0 && beta > 0 && !math.IsInf(beta, 1) {
				draw = dist.Rand()
			}

			if g.dt == tensor.Float64 {
				out.SetAt(draw, outCoords...)
			} else {
				out.SetAt(float32(draw), outCoords...)
			}
		}
	}

	return out, nil
}

func (g *gammaSampleOp) checkInputs(inputs ...G.Value) error {
	if err := scvi.CheckArity(g, len(inputs)); err != nil {
		return err
	}

	concentration := inputs[0].(tensor.Tensor)
	if concentration == nil {
		return fmt.Errorf("cannot sample from nil concentration")
	} else if concentration.Size() == 0 {
		return fmt.Errorf("cannot sample from empty concentration tensor")
	} else if !concentration.Shape().Eq(g.shape) {
		return fmt.Errorf("expected concentration to have shape %v but "+
			"got %v", g.shape, concentration.Shape())
	} else if !concentration.Dtype().Eq(g.dt) {
		return fmt.Errorf("expected concentration to have dtype %v but "+
			"got %v", g.dt, concentration.Dtype())
	}

	rate := inputs[1].(tensor.Tensor)
	if rate == nil {
		return fmt.Errorf("cannot sample from nil rate")
	} else if rate.Size() == 0 {
		return fmt.Errorf("cannot sample from empty rate tensor")
	} else if !rate.Shape().Eq(g.shape) {
		return fmt.Errorf("expected rate to have shape %v but got %v",
			g.shape, rate.Shape())
	} else if !rate.Dtype().Eq(g.dt) {
		return fmt.Errorf("expected rate to have dtype %v but got %v",
			g.dt, rate.Dtype())
	}

	return nil
}
