package distribution

import (
	"fmt"
	"math"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// checkPair verifies that two parameter nodes agree in dtype and
// shape, expanding scalars to shape (1,). Only tensor.Float64 is
// supported at the distribution level.
func checkPair(aName string, a *G.Node, bName string, b *G.Node) (*G.Node,
	*G.Node, error) {
	if a.Dtype() != b.Dtype() {
		return nil, nil, fmt.Errorf("expected %v and %v to have the same "+
			"data type but got %v and %v", aName, bName, a.Dtype(), b.Dtype())
	} else if a.Dtype() != tensor.Float64 {
		return nil, nil, fmt.Errorf("data type %v unsupported", a.Dtype())
	}

	var err error
	if a.IsScalar() {
		a, err = G.Reshape(a, []int{1})
		if err != nil {
			return nil, nil, fmt.Errorf("could not expand %v to shape "+
				"(1): %v", aName, err)
		}
	}
	if b.IsScalar() {
		b, err = G.Reshape(b, []int{1})
		if err != nil {
			return nil, nil, fmt.Errorf("could not expand %v to shape "+
				"(1): %v", bName, err)
		}
	}

	if !a.Shape().Eq(b.Shape()) {
		return nil, nil, fmt.Errorf("expected %v and %v to have the same "+
			"shape but got %v and %v", aName, bName, a.Shape(), b.Shape())
	}

	return a, b, nil
}

// float64sOf returns the elements of a bound value as a float64
// slice. Non-float64 values yield nil.
func float64sOf(v G.Value) []float64 {
	switch data := v.Data().(type) {
	case []float64:
		return data
	case float64:
		return []float64{data}
	}
	return nil
}

// nonNegative returns a *DomainError if any bound element of the node
// is negative. Nodes with no bound value pass silently; they cannot
// be checked before the graph runs.
func nonNegative(name string, n *G.Node) error {
	v := n.Value()
	if v == nil {
		return nil
	}

	for _, f := range float64sOf(v) {
		if f < 0 {
			return domainErrorf("expected %v to be non-negative but got %v",
				name, f)
		}
	}
	return nil
}

// ValidateCounts returns a *DomainError if any element of v lies
// outside the support of a count distribution, i.e. is negative or
// not integer-valued.
func ValidateCounts(v G.Value) error {
	for _, f := range float64sOf(v) {
		if f < 0 {
			return domainErrorf("value %v outside support: negative", f)
		}
		if f != math.Floor(f) {
			return domainErrorf("value %v outside support: not an integer", f)
		}
	}
	return nil
}

// validateSupport checks the bound value of x, if any, against the
// count support.
func validateSupport(x *G.Node) error {
	v := x.Value()
	if v == nil {
		return nil
	}
	return ValidateCounts(v)
}

// toF64 converts a tensor element retrieved through At to float64
func toF64(v interface{}) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case float32:
		return float64(val)
	}
	panic(fmt.Sprintf("toF64: unsupported element type %T", v))
}
