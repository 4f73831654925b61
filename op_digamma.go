package scvi

import (
	"fmt"
	"hash"

	"github.com/chewxy/hm"
	"gonum.org/v1/gonum/mathext"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// digammaOp is the logarithmic derivative of the gamma function
type digammaOp struct{}

func newDigammaOp() G.Op {
	return &digammaOp{}
}

func (d *digammaOp) Arity() int {
	return 1
}

func (d *digammaOp) Type() hm.Type {
	// All pointwise unary operations have this type:
	// op :: (Arithable a) => a -> a
	a := hm.TypeVariable('a')
	return hm.NewFnType(a, a)
}

func (d *digammaOp) Do(values ...G.Value) (G.Value, error) {
	err := d.checkInputs(values...)
	if err != nil {
		return nil, fmt.Errorf("do: %v", err)
	}

	if values[0] == nil {
		return nil, fmt.Errorf("do: no input")
	}

	return computeDigamma(values[0])
}

func (d *digammaOp) ReturnsPtr() bool { return false }

func (d *digammaOp) CallsExtern() bool { return false }

func (d *digammaOp) OverwritesInput() int { return -1 }

// String returns the string representation of the struct
func (d *digammaOp) String() string {
	return "Digamma"
}

// InferShape returns the output shape as a function of the inputs
func (d *digammaOp) InferShape(inputs ...G.DimSizer) (tensor.Shape, error) {
	err := CheckArity(d, len(inputs))
	if err != nil {
		return nil, fmt.Errorf("inferShape: %v", err)
	}
	if inputs[0] == nil {
		return nil, fmt.Errorf("inferShape: nil input")
	}

	return inputs[0].(tensor.Shape), nil
}

// WriteHash writes the hash of the receiver to a hash struct
func (d *digammaOp) WriteHash(h hash.Hash) { fmt.Fprint(h, "Digamma()") }

// Hashcode returns the hash code of the receiver
func (d *digammaOp) Hashcode() uint32 { return SimpleHash(d) }

// checkInputs returns an error if the input to this Op is invalid
func (d *digammaOp) checkInputs(inputs ...G.Value) error {
	if err := CheckArity(d, len(inputs)); err != nil {
		return err
	}

	_, okF64 := inputs[0].(*G.F64)
	_, okF32 := inputs[0].(*G.F32)
	_, okTensor := inputs[0].(tensor.Tensor)

	if !(okF64 || okF32 || okTensor) {
		return fmt.Errorf("expected input to be a tensor, got %T", inputs[0])
	}

	return nil
}

// computeDigamma computes the element-wise digamma on a value
func computeDigamma(value G.Value) (G.Value, error) {
	switch v := value.(type) {
	case *G.F64:
		return G.NewF64(mathext.Digamma(float64(*v))), nil

	case *G.F32:
		return G.NewF32(float32(mathext.Digamma(float64(*v)))), nil

	case tensor.Tensor:
		if len(v.Shape()) == 0 {
			return nil, fmt.Errorf("do: cannot compute digamma on empty " +
				"tensor")
		}

		out := tensor.NewDense(
			v.Dtype(),
			v.Shape(),
		)

		iter := v.Iterator()
		for !iter.Done() {
			coords := iter.Coord()

			err := digammaTensorAt(v, out, coords)
			if err != nil {
				return nil, fmt.Errorf("do: %v", err)
			}

			_, _, err = iter.NextValid()
			if err != nil {
				return nil, fmt.Errorf("do: could not step iterator")
			}
		}

		return out, nil

	default:
		return nil, fmt.Errorf("do: unable to compute digamma on type %T", v)
	}
}

// digammaTensorAt computes digamma of tensor in at coords, storing the
// result in out at coords
func digammaTensorAt(in tensor.Tensor, out tensor.Tensor, coords []int) error {
	val, err := in.At(coords...)
	if err != nil {
		return fmt.Errorf("digammaTensorAt: could not access element "+
			"at %v", coords)
	}

	if in.Dtype() == tensor.Float64 {
		val = mathext.Digamma(val.(float64))
	} else if in.Dtype() == tensor.Float32 {
		val = float32(mathext.Digamma(float64(val.(float32))))
	} else {
		return fmt.Errorf("digammaTensorAt: invalid data type %v", in.Dtype())
	}

	err = out.SetAt(val, coords...)
	if err != nil {
		return fmt.Errorf("digammaTensorAt: could not set element "+
			"at %v", coords)
	}
	return nil
}
