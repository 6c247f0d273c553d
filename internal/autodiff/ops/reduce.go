package ops

import (
	"github.com/pkg/errors"

	"github.com/born-ml/tinyad/internal/tensor"
)

// SumOp reduces the whole tensor to a one-element tensor of shape [1].
//
// Backward pass:
//   - grad_x = ones(N, 1) @ grad(1, 1), reshaped to the input shape,
//     i.e. the scalar gradient replicated over every element
type SumOp struct{}

// NumInputs returns 1.
func (SumOp) NumInputs() int { return 1 }

// Forward sums every element and saves the input shape.
func (SumOp) Forward(ctx *Context, inputs ...*tensor.RawTensor) (*tensor.RawTensor, error) {
	ctx.SaveShape(inputs[0].Shape())
	return ctx.Backend.Sum(inputs[0]), nil
}

// Backward broadcasts grad over the saved input shape.
func (SumOp) Backward(ctx *Context, grad *tensor.RawTensor) ([]*tensor.RawTensor, error) {
	be := ctx.Backend
	shape := ctx.SavedShape()

	ones, err := tensor.Ones(tensor.Shape{shape.NumElements(), 1}, be.Device())
	if err != nil {
		return nil, errors.Wrap(err, OpSum)
	}
	g, err := be.Reshape(grad, tensor.Shape{1, 1})
	if err != nil {
		return nil, errors.Wrap(err, OpSum)
	}
	outer, err := be.MatMul(ones, g)
	if err != nil {
		return nil, errors.Wrap(err, OpSum)
	}
	gradX, err := be.Reshape(outer, shape)
	if err != nil {
		return nil, errors.Wrap(err, OpSum)
	}
	return []*tensor.RawTensor{gradX}, nil
}

// LogSoftmaxOp is the row-wise log-softmax of a 2-D tensor [batch, classes].
//
// Forward (for each row):
//
//	lse(x) = max(x) + log(Σ_j exp(x_j - max(x)))
//	out    = x - lse(x)
//
// The max-shifting ensures numerical stability (prevents overflow).
//
// Backward:
//
//	grad_x = grad - exp(out) * Σ_j grad_j
type LogSoftmaxOp struct{}

// NumInputs returns 1.
func (LogSoftmaxOp) NumInputs() int { return 1 }

// Forward computes x - logsumexp(x) per row and saves the output.
func (LogSoftmaxOp) Forward(ctx *Context, inputs ...*tensor.RawTensor) (*tensor.RawTensor, error) {
	be := ctx.Backend
	x := inputs[0]
	shape := x.Shape()
	if len(shape) != 2 {
		return nil, errors.Wrapf(tensor.ErrShape, "%s: input must be 2D [batch, classes], got %v", OpLogSoftmax, shape)
	}

	rowMax, err := be.MaxLastAxis(x)
	if err != nil {
		return nil, errors.Wrap(err, OpLogSoftmax)
	}
	maxWide, err := be.Expand(rowMax, shape)
	if err != nil {
		return nil, errors.Wrap(err, OpLogSoftmax)
	}
	shifted, err := be.Sub(x, maxWide)
	if err != nil {
		return nil, errors.Wrap(err, OpLogSoftmax)
	}
	sumExp, err := be.SumLastAxis(be.Exp(shifted))
	if err != nil {
		return nil, errors.Wrap(err, OpLogSoftmax)
	}
	lse, err := be.Add(rowMax, be.Log(sumExp))
	if err != nil {
		return nil, errors.Wrap(err, OpLogSoftmax)
	}
	lseWide, err := be.Expand(lse, shape)
	if err != nil {
		return nil, errors.Wrap(err, OpLogSoftmax)
	}
	out, err := be.Sub(x, lseWide)
	if err != nil {
		return nil, errors.Wrap(err, OpLogSoftmax)
	}

	ctx.SaveForBackward(out)
	return out, nil
}

// Backward returns grad - exp(out) * rowsum(grad).
func (LogSoftmaxOp) Backward(ctx *Context, grad *tensor.RawTensor) ([]*tensor.RawTensor, error) {
	be := ctx.Backend
	out := ctx.SavedTensors()[0]

	rowSum, err := be.SumLastAxis(grad)
	if err != nil {
		return nil, errors.Wrap(err, OpLogSoftmax)
	}
	rowSumWide, err := be.Expand(rowSum, out.Shape())
	if err != nil {
		return nil, errors.Wrap(err, OpLogSoftmax)
	}
	scaled, err := be.Mul(be.Exp(out), rowSumWide)
	if err != nil {
		return nil, errors.Wrap(err, OpLogSoftmax)
	}
	gradX, err := be.Sub(grad, scaled)
	if err != nil {
		return nil, errors.Wrap(err, OpLogSoftmax)
	}
	return []*tensor.RawTensor{gradX}, nil
}
