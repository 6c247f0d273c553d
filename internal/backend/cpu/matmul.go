package cpu

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/tinyad/internal/tensor"
)

// MatMul performs matrix multiplication.
// For 2D tensors: (M, K) @ (K, N) -> (M, N)
// The product is computed by gonum's dense GEMM.
func (cpu *CPUBackend) MatMul(a, b *tensor.RawTensor) (*tensor.RawTensor, error) {
	aShape := a.Shape()
	bShape := b.Shape()

	// Validate dimensions
	if len(aShape) != 2 || len(bShape) != 2 {
		return nil, errors.Wrapf(tensor.ErrShape, "matmul: only 2D tensors supported, got %v and %v", aShape, bShape)
	}

	m, k := aShape[0], aShape[1]
	kAlt, n := bShape[0], bShape[1]

	if k != kAlt {
		return nil, errors.Wrapf(tensor.ErrShape, "matmul: shape mismatch [%d,%d] @ [%d,%d]", m, k, kAlt, n)
	}

	// gonum reads the operand slices in place; they are never written.
	var c mat.Dense
	c.Mul(mat.NewDense(m, k, a.Data()), mat.NewDense(k, n, b.Data()))

	return tensor.FromSlice(c.RawMatrix().Data, tensor.Shape{m, n}, cpu.device)
}

// Transpose returns the transpose of a 2-D tensor.
func (cpu *CPUBackend) Transpose(x *tensor.RawTensor) (*tensor.RawTensor, error) {
	shape := x.Shape()
	if len(shape) != 2 {
		return nil, errors.Wrapf(tensor.ErrShape, "transpose: only 2D tensors supported, got %v", shape)
	}
	rows, cols := shape[0], shape[1]

	t := mat.DenseCopyOf(mat.NewDense(rows, cols, x.Data()).T())
	return tensor.FromSlice(t.RawMatrix().Data, tensor.Shape{cols, rows}, cpu.device)
}
