package cpu

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/born-ml/tinyad/internal/tensor"
)

// Sum reduces the whole tensor to a one-element tensor of shape [1].
func (cpu *CPUBackend) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	result, err := tensor.NewRaw(tensor.Shape{1}, cpu.device)
	if err != nil {
		panic(err)
	}
	result.Data()[0] = floats.Sum(x.Data())
	return result
}

// SumLastAxis sums each row of a 2-D tensor: [n, m] -> [n, 1].
func (cpu *CPUBackend) SumLastAxis(x *tensor.RawTensor) (*tensor.RawTensor, error) {
	return cpu.reduceRows("sum_last_axis", x, floats.Sum)
}

// MaxLastAxis takes the maximum of each row of a 2-D tensor: [n, m] -> [n, 1].
func (cpu *CPUBackend) MaxLastAxis(x *tensor.RawTensor) (*tensor.RawTensor, error) {
	return cpu.reduceRows("max_last_axis", x, floats.Max)
}

func (cpu *CPUBackend) reduceRows(name string, x *tensor.RawTensor, reduce func([]float64) float64) (*tensor.RawTensor, error) {
	shape := x.Shape()
	if len(shape) != 2 {
		return nil, errors.Wrapf(tensor.ErrShape, "%s: expected 2-D tensor, got %v", name, shape)
	}
	rows, cols := shape[0], shape[1]

	result, err := tensor.NewRaw(tensor.Shape{rows, 1}, cpu.device)
	if err != nil {
		return nil, errors.Wrap(err, name)
	}

	src := x.Data()
	dst := result.Data()
	for r := 0; r < rows; r++ {
		dst[r] = reduce(src[r*cols : (r+1)*cols])
	}
	return result, nil
}

// Expand repeats size-1 axes of x to reach shape. The rank must match and
// every axis of x must either equal the target size or be 1.
//
// Example:
//
//	[3, 1] -> [3, 4]  (each row value repeated 4 times)
func (cpu *CPUBackend) Expand(x *tensor.RawTensor, shape tensor.Shape) (*tensor.RawTensor, error) {
	inShape := x.Shape()
	if len(inShape) != len(shape) {
		return nil, errors.Wrapf(tensor.ErrShape, "expand: rank of %v does not match %v", inShape, shape)
	}
	for i := range shape {
		if inShape[i] != shape[i] && inShape[i] != 1 {
			return nil, errors.Wrapf(tensor.ErrShape, "expand: cannot expand %v to %v (axis %d)", inShape, shape, i)
		}
	}

	result, err := tensor.NewRaw(shape, cpu.device)
	if err != nil {
		return nil, errors.Wrap(err, "expand")
	}

	inStrides := inShape.ComputeStrides()
	for i := range inStrides {
		if inShape[i] == 1 {
			inStrides[i] = 0
		}
	}
	outStrides := shape.ComputeStrides()

	src := x.Data()
	dst := result.Data()
	for i := range dst {
		rem := i
		off := 0
		for d, s := range outStrides {
			off += (rem / s) * inStrides[d]
			rem %= s
		}
		dst[i] = src[off]
	}
	return result, nil
}

// Stack joins equally shaped tensors along a new leading axis.
func (cpu *CPUBackend) Stack(xs []*tensor.RawTensor) (*tensor.RawTensor, error) {
	if len(xs) == 0 {
		return nil, errors.Wrap(tensor.ErrShape, "stack: no tensors")
	}
	inner := xs[0].Shape()
	for i, x := range xs[1:] {
		if !x.Shape().Equal(inner) {
			return nil, errors.Wrapf(tensor.ErrShape, "stack: tensor %d has shape %v, want %v", i+1, x.Shape(), inner)
		}
	}

	result, err := tensor.NewRaw(append(tensor.Shape{len(xs)}, inner...), cpu.device)
	if err != nil {
		return nil, errors.Wrap(err, "stack")
	}

	n := inner.NumElements()
	dst := result.Data()
	for i, x := range xs {
		copy(dst[i*n:(i+1)*n], x.Data())
	}
	return result, nil
}

// MaxAxis0 takes the element-wise maximum over the leading axis.
func (cpu *CPUBackend) MaxAxis0(x *tensor.RawTensor) (*tensor.RawTensor, error) {
	return cpu.reduceAxis0("max_axis0", x, func(dst, layer []float64) {
		for i, v := range layer {
			if v > dst[i] {
				dst[i] = v
			}
		}
	})
}

// MeanAxis0 takes the element-wise mean over the leading axis.
func (cpu *CPUBackend) MeanAxis0(x *tensor.RawTensor) (*tensor.RawTensor, error) {
	result, err := cpu.reduceAxis0("mean_axis0", x, func(dst, layer []float64) {
		floats.Add(dst, layer)
	})
	if err != nil {
		return nil, err
	}
	floats.Scale(1/float64(x.Shape()[0]), result.Data())
	return result, nil
}

// reduceAxis0 seeds the result with the first layer and folds every
// following layer into it.
func (cpu *CPUBackend) reduceAxis0(name string, x *tensor.RawTensor, fold func(dst, layer []float64)) (*tensor.RawTensor, error) {
	shape := x.Shape()
	if len(shape) < 2 {
		return nil, errors.Wrapf(tensor.ErrShape, "%s: expected rank >= 2, got %v", name, shape)
	}

	result, err := tensor.NewRaw(shape[1:], cpu.device)
	if err != nil {
		return nil, errors.Wrap(err, name)
	}

	n := result.NumElements()
	src := x.Data()
	dst := result.Data()
	copy(dst, src[:n])
	for l := 1; l < shape[0]; l++ {
		fold(dst, src[l*n:(l+1)*n])
	}
	return result, nil
}

// ArgMaxAxis0 returns, for every position of the trailing axes, the index
// along the leading axis holding the maximum. Ties resolve to the lowest
// index.
func (cpu *CPUBackend) ArgMaxAxis0(x *tensor.RawTensor) ([]int, error) {
	shape := x.Shape()
	if len(shape) < 2 {
		return nil, errors.Wrapf(tensor.ErrShape, "argmax_axis0: expected rank >= 2, got %v", shape)
	}

	layers := shape[0]
	n := shape[1:].NumElements()
	src := x.Data()
	idx := make([]int, n)
	for i := 0; i < n; i++ {
		best := src[i]
		for l := 1; l < layers; l++ {
			if v := src[l*n+i]; v > best {
				best = v
				idx[i] = l
			}
		}
	}
	return idx, nil
}
