// Package scvi provides extended operations for Gorgonia needed by the
// count-distribution layer, mainly the log-gamma function and its
// derivative, along with elementwise clamping.
package scvi

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

// Lgamma computes the element-wise natural logarithm of the absolute
// value of the gamma function. The operation is differentiable, with
// derivative digamma(x).
func Lgamma(x *G.Node) (*G.Node, error) {
	op := newLgammaOp()

	return G.ApplyOp(op, x)
}

// Digamma computes the element-wise logarithmic derivative of the
// gamma function. This operation is not differentiable.
func Digamma(x *G.Node) (*G.Node, error) {
	op := newDigammaOp()

	return G.ApplyOp(op, x)
}

// Clamp clamps a node's values to be between min and max. This function
// can clamp a tensor storing float64's, float32's, or any integer
// type, but is only differentiable if the tensor stores floating point
// types. If passGradient is true, then the gradient is passed through
// the clamping operation unchanged. Otherwise, the regular clamp
// gradient is used:
//
//         { 1 if min <= x <= max
// grad =  {
//		   { 0 otherwise
func Clamp(x *G.Node, min, max interface{}, passGradient bool) (*G.Node,
	error) {
	op, err := newClampOp(min, max, passGradient)
	if err != nil {
		return nil, fmt.Errorf("clamp: %v", err)
	}

	return G.ApplyOp(op, x)
}
