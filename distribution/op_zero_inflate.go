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

// zeroInflateOp forces elements of its first input (counts) to
// exactly zero with the element-wise probability given by its second
// input. The masking is an independent uniform draw per element,
// applied after sampling; it does not modify the count distribution
// itself. The op is not differentiable.
//
// The probability tensor must either hold a single element, or match
// the trailing dimensions of the counts tensor, so a batch of counts
// with a leading sample dimension shares the probabilities across
// the batch.
type zeroInflateOp struct {
	dt          tensor.Dtype
	countsShape tensor.Shape
	probsShape  tensor.Shape
	dist        distuv.Uniform
}

func newZeroInflateOp(dt tensor.Dtype, seed uint64, countsShape,
	probsShape tensor.Shape) (*zeroInflateOp, error) {
	if dt != tensor.Float64 && dt != tensor.Float32 {
		return nil, fmt.Errorf("newZeroInflateOp: dtype %v not supported",
			dt)
	}

	return &zeroInflateOp{
		dt:          dt,
		countsShape: countsShape,
		probsShape:  probsShape,
		dist: distuv.Uniform{
			Min: 0.0,
			Max: 1.0,
			Src: rand.NewSource(seed),
		},
	}, nil
}

func (z *zeroInflateOp) Arity() int { return 2 }

func (z *zeroInflateOp) Type() hm.Type {
	counts := G.TensorType{
		Dims: z.countsShape.Dims(),
		Of:   z.dt,
	}
	probs := G.TensorType{
		Dims: z.probsShape.Dims(),
		Of:   z.dt,
	}

	return hm.NewFnType(counts, probs, counts)
}

func (z *zeroInflateOp) InferShape(...G.DimSizer) (tensor.Shape, error) {
	return z.countsShape, nil
}

func (z *zeroInflateOp) ReturnsPtr() bool { return false }

func (z *zeroInflateOp) CallsExtern() bool { return false }

func (z *zeroInflateOp) OverwritesInput() int { return -1 }

func (z *zeroInflateOp) String() string {
	return fmt.Sprintf("ZeroInflate{shape=%v}()", z.countsShape)
}

func (z *zeroInflateOp) WriteHash(h hash.Hash) {
	fmt.Fprint(h, z.String())
}

func (z *zeroInflateOp) Hashcode() uint32 {
	return scvi.SimpleHash(z)
}

func (z *zeroInflateOp) Do(inputs ...G.Value) (G.Value, error) {
	if err := z.checkInputs(inputs...); err != nil {
		return nil, fmt.Errorf("do: %v", err)
	}

	counts := inputs[0].(tensor.Tensor)
	probs := inputs[1].(tensor.Tensor)

	out := tensor.NewDense(
		z.dt,
		counts.Shape(),
	)

	var scalarProb float64
	if probs.Size() == 1 {
		v, err := probs.At(make([]int, probs.Dims())...)
		if err != nil {
			return nil, fmt.Errorf("do: could not get probability: %v", err)
		}
		scalarProb = toF64(v)
	}

	probDims := probs.Shape().Dims()
	for i := 0; i < counts.Size(); i++ {
		coords, err := tensor.Itol(i, counts.Shape(), counts.Strides())
		if err != nil {
			return nil, fmt.Errorf("do: could not get coords at index %v", i)
		}

		currentCount, err := counts.At(coords...)
		if err != nil {
			return nil, fmt.Errorf("do: could not get count at index %v", i)
		}

		prob := scalarProb
		if probs.Size() != 1 {
			v, err := probs.At(coords[len(coords)-probDims:]...)
			if err != nil {
				return nil, fmt.Errorf("do: could not get probability at "+
					"index %v", i)
			}
			prob = toF64(v)
		}

		val := toF64(currentCount)
		if z.dist.Rand() <= prob {
			val = 0.0
		}

		if z.dt == tensor.Float64 {
			out.SetAt(val, coords...)
		} else {
			out.SetAt(float32(val), coords...)
		}
	}

	return out, nil
}

func (z *zeroInflateOp) checkInputs(inputs ...G.Value) error {
	if err := scvi.CheckArity(z, len(inputs)); err != nil {
		return err
	}

	counts := inputs[0].(tensor.Tensor)
	if counts == nil {
		return fmt.Errorf("cannot mask nil counts")
	} else if counts.Size() == 0 {
		return fmt.Errorf("cannot mask empty counts tensor")
	} else if !counts.Shape().Eq(z.countsShape) {
		return fmt.Errorf("expected counts to have shape %v but got %v",
			z.countsShape, counts.Shape())
	} else if !counts.Dtype().Eq(z.dt) {
		return fmt.Errorf("expected counts to have dtype %v but got %v",
			z.dt, counts.Dtype())
	}

	probs := inputs[1].(tensor.Tensor)
	if probs == nil {
		return fmt.Errorf("cannot mask with nil probabilities")
	} else if probs.Size() == 0 {
		return fmt.Errorf("cannot mask with empty probability tensor")
	} else if !probs.Shape().Eq(z.probsShape) {
		return fmt.Errorf("expected probabilities to have shape %v but "+
			"got %v", z.probsShape, probs.Shape())
	} else if !probs.Dtype().Eq(z.dt) {
		return fmt.Errorf("expected probabilities to have dtype %v but "+
			"got %v", z.dt, probs.Dtype())
	}

	return nil
}
