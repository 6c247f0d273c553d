// Package ops defines the differentiable operations of the autodiff engine.
//
// Each operation implements the Function interface, which provides:
//   - Forward pass: computes the output buffer from the input buffers,
//     saving whatever the backward pass needs into the Context
//   - Backward pass: computes one gradient per input given the output gradient
//
// Supported operations (registered by NewRegistry):
//   - add, sub, mul, pow: exact-shape elementwise arithmetic
//   - sum: total reduction to a one-element tensor
//   - relu, sigmoid, logsoftmax: activations and row-wise normalisation
//   - reshape, pad2d: shape manipulation
//   - dot (alias matmul): 2-D matrix product (d(X@W)/dX = grad@W^T, d(X@W)/dW = X^T@grad)
//   - conv2d, conv2d_im2col: direct grouped/strided and column-transform convolution
//   - max_pool2d, avg_pool2d: non-overlapping window pooling
//
// All numeric work goes through tensor.Backend; operations only orchestrate.
package ops

import "github.com/born-ml/tinyad/internal/tensor"

// Function is a differentiable operation. Implementations are stateless:
// per-invocation state lives in the Context handed to Forward and later to
// Backward.
type Function interface {
	// NumInputs returns the number of tensor operands the operation takes.
	NumInputs() int

	// Forward computes the output buffer. It must not mutate inputs.
	Forward(ctx *Context, inputs ...*tensor.RawTensor) (*tensor.RawTensor, error)

	// Backward computes gradients for inputs given the output gradient.
	// Returns a slice of gradients corresponding to each input, in order.
	//
	// Example for AddOp:
	//   inputs: [a, b]
	//   grad: dL/d(a+b)
	//   returns: [dL/d(a+b), dL/d(a+b)] (gradient flows equally to both inputs)
	Backward(ctx *Context, grad *tensor.RawTensor) ([]*tensor.RawTensor, error)
}
