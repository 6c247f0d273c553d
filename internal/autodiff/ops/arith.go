package ops

import (
	"github.com/pkg/errors"

	"github.com/born-ml/tinyad/internal/tensor"
)

// AddOp is element-wise addition: output = a + b. Shapes must match exactly.
//
// Backward pass:
//   - grad_a = grad, grad_b = grad
type AddOp struct{}

// NumInputs returns 2.
func (AddOp) NumInputs() int { return 2 }

// Forward computes a + b.
func (AddOp) Forward(ctx *Context, inputs ...*tensor.RawTensor) (*tensor.RawTensor, error) {
	out, err := ctx.Backend.Add(inputs[0], inputs[1])
	return out, errors.Wrap(err, OpAdd)
}

// Backward passes the gradient through to both operands.
func (AddOp) Backward(_ *Context, grad *tensor.RawTensor) ([]*tensor.RawTensor, error) {
	return []*tensor.RawTensor{grad, grad}, nil
}

// SubOp is element-wise subtraction: output = a - b. Shapes must match exactly.
//
// Backward pass:
//   - grad_a = grad, grad_b = -grad
type SubOp struct{}

// NumInputs returns 2.
func (SubOp) NumInputs() int { return 2 }

// Forward computes a - b.
func (SubOp) Forward(ctx *Context, inputs ...*tensor.RawTensor) (*tensor.RawTensor, error) {
	out, err := ctx.Backend.Sub(inputs[0], inputs[1])
	return out, errors.Wrap(err, OpSub)
}

// Backward returns (grad, -grad).
func (SubOp) Backward(ctx *Context, grad *tensor.RawTensor) ([]*tensor.RawTensor, error) {
	return []*tensor.RawTensor{grad, ctx.Backend.Neg(grad)}, nil
}

// MulOp is element-wise multiplication: output = a * b.
//
// Backward pass:
//   - d(a*b)/da = b, so grad_a = grad * b
//   - d(a*b)/db = a, so grad_b = grad * a
type MulOp struct{}

// NumInputs returns 2.
func (MulOp) NumInputs() int { return 2 }

// Forward computes a * b and saves both operands.
func (MulOp) Forward(ctx *Context, inputs ...*tensor.RawTensor) (*tensor.RawTensor, error) {
	out, err := ctx.Backend.Mul(inputs[0], inputs[1])
	if err != nil {
		return nil, errors.Wrap(err, OpMul)
	}
	ctx.SaveForBackward(inputs[0], inputs[1])
	return out, nil
}

// Backward returns (grad*b, grad*a).
func (MulOp) Backward(ctx *Context, grad *tensor.RawTensor) ([]*tensor.RawTensor, error) {
	saved := ctx.SavedTensors()
	a, b := saved[0], saved[1]

	gradA, err := ctx.Backend.Mul(b, grad)
	if err != nil {
		return nil, errors.Wrap(err, OpMul)
	}
	gradB, err := ctx.Backend.Mul(a, grad)
	if err != nil {
		return nil, errors.Wrap(err, OpMul)
	}
	return []*tensor.RawTensor{gradA, gradB}, nil
}

// PowOp is element-wise exponentiation: output = a ** b.
//
// Backward pass:
//   - grad_a = b * a^(b-1) * grad
//   - grad_b = a^b * ln(a) * grad (finite only for a > 0)
type PowOp struct{}

// NumInputs returns 2.
func (PowOp) NumInputs() int { return 2 }

// Forward computes a ** b and saves both operands.
func (PowOp) Forward(ctx *Context, inputs ...*tensor.RawTensor) (*tensor.RawTensor, error) {
	out, err := ctx.Backend.Pow(inputs[0], inputs[1])
	if err != nil {
		return nil, errors.Wrap(err, OpPow)
	}
	ctx.SaveForBackward(inputs[0], inputs[1])
	return out, nil
}

// Backward returns (b*a^(b-1)*grad, a^b*ln(a)*grad).
func (PowOp) Backward(ctx *Context, grad *tensor.RawTensor) ([]*tensor.RawTensor, error) {
	be := ctx.Backend
	saved := ctx.SavedTensors()
	a, b := saved[0], saved[1]

	// b * a^(b-1)
	aPow, err := be.Pow(a, be.AddScalar(b, -1))
	if err != nil {
		return nil, errors.Wrap(err, OpPow)
	}
	gradA, err := mulAll(be, b, aPow, grad)
	if err != nil {
		return nil, errors.Wrap(err, OpPow)
	}

	// a^b * ln(a)
	out, err := be.Pow(a, b)
	if err != nil {
		return nil, errors.Wrap(err, OpPow)
	}
	gradB, err := mulAll(be, out, be.Log(a), grad)
	if err != nil {
		return nil, errors.Wrap(err, OpPow)
	}

	return []*tensor.RawTensor{gradA, gradB}, nil
}

// mulAll multiplies equally shaped buffers left to right.
func mulAll(be tensor.Backend, first *tensor.RawTensor, rest ...*tensor.RawTensor) (*tensor.RawTensor, error) {
	acc := first
	for _, t := range rest {
		var err error
		if acc, err = be.Mul(acc, t); err != nil {
			return nil, err
		}
	}
	return acc, nil
}
