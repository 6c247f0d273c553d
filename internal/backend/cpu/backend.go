// Package cpu implements the CPU backend on top of gonum.
package cpu

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/born-ml/tinyad/internal/tensor"
)

// CPUBackend implements tensor operations on CPU.
// Elementwise loops and reductions go through gonum/floats, GEMM through gonum/mat.
type CPUBackend struct {
	device tensor.Device
}

// Compile-time check that CPUBackend implements tensor.Backend.
var _ tensor.Backend = (*CPUBackend)(nil)

// New creates a new CPU backend.
func New() *CPUBackend {
	return &CPUBackend{
		device: tensor.CPU,
	}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// Device returns the compute device.
func (cpu *CPUBackend) Device() tensor.Device {
	return cpu.device
}

// binary allocates the result of an exact-shape elementwise operation and
// fills it with apply(dst, a, b).
func (cpu *CPUBackend) binary(name string, a, b *tensor.RawTensor, apply func(dst, s, t []float64)) (*tensor.RawTensor, error) {
	if !a.Shape().Equal(b.Shape()) {
		return nil, errors.Wrapf(tensor.ErrShape, "%s: shapes %v and %v must match exactly", name, a.Shape(), b.Shape())
	}

	result, err := tensor.NewRaw(a.Shape(), cpu.device)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: failed to create result tensor", name)
	}

	apply(result.Data(), a.Data(), b.Data())
	return result, nil
}

// Add performs element-wise addition. Shapes must match exactly.
func (cpu *CPUBackend) Add(a, b *tensor.RawTensor) (*tensor.RawTensor, error) {
	return cpu.binary("add", a, b, func(dst, s, t []float64) {
		floats.AddTo(dst, s, t)
	})
}

// Sub performs element-wise subtraction. Shapes must match exactly.
func (cpu *CPUBackend) Sub(a, b *tensor.RawTensor) (*tensor.RawTensor, error) {
	return cpu.binary("sub", a, b, func(dst, s, t []float64) {
		floats.SubTo(dst, s, t)
	})
}

// Mul performs element-wise multiplication. Shapes must match exactly.
func (cpu *CPUBackend) Mul(a, b *tensor.RawTensor) (*tensor.RawTensor, error) {
	return cpu.binary("mul", a, b, func(dst, s, t []float64) {
		floats.MulTo(dst, s, t)
	})
}

// Div performs element-wise division. Shapes must match exactly.
func (cpu *CPUBackend) Div(a, b *tensor.RawTensor) (*tensor.RawTensor, error) {
	return cpu.binary("div", a, b, func(dst, s, t []float64) {
		floats.DivTo(dst, s, t)
	})
}

// unary allocates a result shaped like x and fills it with apply.
func (cpu *CPUBackend) unary(x *tensor.RawTensor, apply func(dst, src []float64)) *tensor.RawTensor {
	result, err := tensor.NewRaw(x.Shape(), cpu.device)
	if err != nil {
		// x already holds a valid shape, so allocation cannot fail.
		panic(err)
	}
	apply(result.Data(), x.Data())
	return result
}
