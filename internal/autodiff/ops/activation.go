package ops

import (
	"github.com/pkg/errors"

	"github.com/born-ml/tinyad/internal/tensor"
)

// ReLUOp is the rectified linear unit: output = max(x, 0).
//
// Backward pass:
//   - grad passes through where x >= 0, else 0
//
// The subgradient at x == 0 is taken as 1.
type ReLUOp struct{}

// NumInputs returns 1.
func (ReLUOp) NumInputs() int { return 1 }

// Forward computes max(x, 0) and saves x.
func (ReLUOp) Forward(ctx *Context, inputs ...*tensor.RawTensor) (*tensor.RawTensor, error) {
	ctx.SaveForBackward(inputs[0])
	return ctx.Backend.MaximumScalar(inputs[0], 0), nil
}

// Backward masks grad with x >= 0.
func (ReLUOp) Backward(ctx *Context, grad *tensor.RawTensor) ([]*tensor.RawTensor, error) {
	x := ctx.SavedTensors()[0]
	gradX, err := ctx.Backend.Mul(grad, ctx.Backend.GreaterEqualScalar(x, 0))
	if err != nil {
		return nil, errors.Wrap(err, OpReLU)
	}
	return []*tensor.RawTensor{gradX}, nil
}

// SigmoidOp is the logistic function: output = 1 / (1 + exp(-x)).
//
// Backward pass:
//   - grad_x = grad * out * (1 - out)
type SigmoidOp struct{}

// NumInputs returns 1.
func (SigmoidOp) NumInputs() int { return 1 }

// Forward computes the sigmoid and saves the output.
func (SigmoidOp) Forward(ctx *Context, inputs ...*tensor.RawTensor) (*tensor.RawTensor, error) {
	be := ctx.Backend
	x := inputs[0]

	ones, err := tensor.Ones(x.Shape(), be.Device())
	if err != nil {
		return nil, errors.Wrap(err, OpSigmoid)
	}
	out, err := be.Div(ones, be.AddScalar(be.Exp(be.Neg(x)), 1))
	if err != nil {
		return nil, errors.Wrap(err, OpSigmoid)
	}

	ctx.SaveForBackward(out)
	return out, nil
}

// Backward returns grad * out * (1 - out).
func (SigmoidOp) Backward(ctx *Context, grad *tensor.RawTensor) ([]*tensor.RawTensor, error) {
	be := ctx.Backend
	out := ctx.SavedTensors()[0]

	gradX, err := mulAll(be, grad, out, be.AddScalar(be.Neg(out), 1))
	if err != nil {
		return nil, errors.Wrap(err, OpSigmoid)
	}
	return []*tensor.RawTensor{gradX}, nil
}
