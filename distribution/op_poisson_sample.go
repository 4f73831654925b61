package distribution

import (
	"fmt"
	"hash"

	"golang.org/x/exp/rand"

	"github.com/chewxy/hm"
	scvi "github.com/ebezzi/scvi-tools"
	"gonum.org/v1/gonum/stat/distuv"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// poissonSampleOp draws one Poisson variate per element of its input
// rate tensor. The output has the same shape as the input, so a
// leading sample dimension on the rates carries through. The op is
// not differentiable.
type poissonSampleOp struct {
	dt     tensor.Dtype
	shape  tensor.Shape
	source rand.Source
}

func newPoissonSampleOp(dt tensor.Dtype, seed uint64,
	shape ...int) (*poissonSampleOp, error) {
	if dt != tensor.Float64 && dt != tensor.Float32 {
		return nil, fmt.Errorf("newPoissonSampleOp: dtype %v not supported",
			dt)
	}

	return &poissonSampleOp{
		dt:     dt,
		shape:  tensor.Shape(shape),
		source: rand.NewSource(seed),
	}, nil
}

func (p *poissonSampleOp) Arity() int { return 1 }

func (p *poissonSampleOp) Type() hm.Type {
	// All pointwise unary operations have this type:
	// op :: (Arithable a) => a -> a
	a := hm.TypeVariable('a')
	return hm.NewFnType(a, a)
}

func (p *poissonSampleOp) InferShape(...G.DimSizer) (tensor.Shape, error) {
	return p.shape, nil
}

func (p *poissonSampleOp) ReturnsPtr() bool { return false }

func (p *poissonSampleOp) CallsExtern() bool { return false }

func (p *poissonSampleOp) OverwritesInput() int { return -1 }

func (p *poissonSampleOp) String() string {
	return fmt.Sprintf("PoissonSample{shape=%v}()", p.shape)
}

func (p *poissonSampleOp) WriteHash(h hash.Hash) {
	fmt.Fprint(h, p.String())
}

func (p *poissonSampleOp) Hashcode() uint32 {
	return scvi.SimpleHash(p)
}

func (p *poissonSampleOp) Do(inputs ...G.Value) (G.Value, error) {
	if err := p.checkInputs(inputs...); err != nil {
		return nil, fmt.Errorf("do: %v", err)
	}

	rate := inputs[0].(tensor.Tensor)

	out := tensor.NewDense(
		p.dt,
		rate.Shape(),
	)

	for i := 0; i < rate.Size(); i++ {
		coords, err := tensor.Itol(i, rate.Shape(), rate.Strides())
		if err != nil {
			return nil, fmt.Errorf("do: could not get coords at index %v", i)
		}

		currentRate, err := rate.At(coords...)
		if err != nil {
			return nil, fmt.Errorf("do: could not get rate at index %v", i)
		}

		// A vanishing rate degenerates to a point mass at zero
		lambda := toF64(currentRate)
		var draw float64
		if lambda > 0 {
			dist := distuv.Poisson{
				Lambda: lambda,
				Src:    p.source,
			}
			draw = dist.Rand()
		}

		if p.dt == tensor.Float64 {
			out.SetAt(draw, coords...)
		} else {
			out.SetAt(float32(draw), coords...)
		}
	}

	return out, nil
}

func (p *poissonSampleOp) checkInputs(inputs ...G.Value) error {
	if err := scvi.CheckArity(p, len(inputs)); err != nil {
		return err
	}

	rate, ok := inputs[0].(tensor.Tensor)
	if !ok {
		return fmt.Errorf("expected a tensor of rates but got %T", inputs[0])
	} else if rate == nil {
		return fmt.Errorf("cannot sample from nil rate")
	} else if rate.Size() == 0 {
		return fmt.Errorf("cannot sample from empty rate tensor")
	} else if !rate.Shape().Eq(p.shape) {
		return fmt.Errorf("expected rate to have shape %v but got %v",
			p.shape, rate.Shape())
	} else if !rate.Dtype().Eq(p.dt) {
		return fmt.Errorf("expected rate to have dtype %v but got %v",
			p.dt, rate.Dtype())
	}

	return nil
}
