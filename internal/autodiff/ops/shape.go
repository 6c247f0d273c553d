package ops

import (
	"github.com/pkg/errors"

	"github.com/born-ml/tinyad/internal/tensor"
)

// ReshapeOp changes the shape of a tensor to Params.Shape, which may
// contain a single -1.
//
// Backward pass:
//   - grad_x = reshape(grad, input shape)
type ReshapeOp struct{}

// NumInputs returns 1.
func (ReshapeOp) NumInputs() int { return 1 }

// Forward reshapes x and saves its original shape.
func (ReshapeOp) Forward(ctx *Context, inputs ...*tensor.RawTensor) (*tensor.RawTensor, error) {
	if ctx.Params.Shape == nil {
		return nil, errors.Wrapf(tensor.ErrParameter, "%s: no target shape", OpReshape)
	}
	out, err := ctx.Backend.Reshape(inputs[0], ctx.Params.Shape)
	if err != nil {
		return nil, errors.Wrap(err, OpReshape)
	}
	ctx.SaveShape(inputs[0].Shape())
	return out, nil
}

// Backward reshapes grad back to the saved shape.
func (ReshapeOp) Backward(ctx *Context, grad *tensor.RawTensor) ([]*tensor.RawTensor, error) {
	gradX, err := ctx.Backend.Reshape(grad, ctx.SavedShape())
	if err != nil {
		return nil, errors.Wrap(err, OpReshape)
	}
	return []*tensor.RawTensor{gradX}, nil
}

// Pad2DOp zero-pads the last two axes of a 4-D tensor [N, C, H, W] by
// Params.Padding = (top, bottom, left, right).
//
// Backward is not provided: differentiating through pad2d fails with
// tensor.ErrUnimplementedBackward instead of producing a gradient.
type Pad2DOp struct{}

// NumInputs returns 1.
func (Pad2DOp) NumInputs() int { return 1 }

// Forward pads x with zeros.
func (Pad2DOp) Forward(ctx *Context, inputs ...*tensor.RawTensor) (*tensor.RawTensor, error) {
	p := ctx.Params.Padding
	out, err := ctx.Backend.Pad2D(inputs[0], p[0], p[1], p[2], p[3])
	return out, errors.Wrap(err, OpPad2D)
}

// Backward always fails.
func (Pad2DOp) Backward(_ *Context, _ *tensor.RawTensor) ([]*tensor.RawTensor, error) {
	return nil, errors.Wrap(tensor.ErrUnimplementedBackward, OpPad2D)
}

// DotOp is the 2-D matrix product: (n, k) @ (k, m) -> (n, m).
//
// Backward pass:
//   - d(X@W)/dX = grad @ W^T
//   - d(X@W)/dW = X^T @ grad
type DotOp struct{}

// NumInputs returns 2.
func (DotOp) NumInputs() int { return 2 }

// Forward computes x @ w and saves both operands.
func (DotOp) Forward(ctx *Context, inputs ...*tensor.RawTensor) (*tensor.RawTensor, error) {
	out, err := ctx.Backend.MatMul(inputs[0], inputs[1])
	if err != nil {
		return nil, errors.Wrap(err, OpDot)
	}
	ctx.SaveForBackward(inputs[0], inputs[1])
	return out, nil
}

// Backward returns (grad @ W^T, X^T @ grad).
func (DotOp) Backward(ctx *Context, grad *tensor.RawTensor) ([]*tensor.RawTensor, error) {
	be := ctx.Backend
	saved := ctx.SavedTensors()
	x, w := saved[0], saved[1]

	wT, err := be.Transpose(w)
	if err != nil {
		return nil, errors.Wrap(err, OpDot)
	}
	gradX, err := be.MatMul(grad, wT)
	if err != nil {
		return nil, errors.Wrap(err, OpDot)
	}

	xT, err := be.Transpose(x)
	if err != nil {
		return nil, errors.Wrap(err, OpDot)
	}
	gradW, err := be.MatMul(xT, grad)
	if err != nil {
		return nil, errors.Wrap(err, OpDot)
	}

	return []*tensor.RawTensor{gradX, gradW}, nil
}
