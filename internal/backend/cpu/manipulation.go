package cpu

import (
	"github.com/pkg/errors"

	"github.com/born-ml/tinyad/internal/tensor"
)

// Reshape returns a copy of x with a different shape.
// The target may contain a single -1 that is inferred from the element count.
func (cpu *CPUBackend) Reshape(x *tensor.RawTensor, shape tensor.Shape) (*tensor.RawTensor, error) {
	resolved, err := shape.Resolve(x.NumElements())
	if err != nil {
		return nil, errors.Wrapf(err, "reshape: %v -> %v", x.Shape(), shape)
	}
	return tensor.FromSlice(x.Data(), resolved, cpu.device)
}

// Permute reorders the axes of x: output axis i is input axis axes[i].
//
// Example:
//
//	[N, H, W, C] with axes (0, 3, 1, 2) -> [N, C, H, W]
func (cpu *CPUBackend) Permute(x *tensor.RawTensor, axes ...int) (*tensor.RawTensor, error) {
	shape := x.Shape()
	ndim := len(shape)

	if len(axes) != ndim {
		return nil, errors.Wrapf(tensor.ErrShape, "permute: axes length %d != ndim %d", len(axes), ndim)
	}

	seen := make([]bool, ndim)
	for _, ax := range axes {
		if ax < 0 || ax >= ndim {
			return nil, errors.Wrapf(tensor.ErrShape, "permute: invalid axis %d for %dD tensor", ax, ndim)
		}
		if seen[ax] {
			return nil, errors.Wrapf(tensor.ErrShape, "permute: duplicate axis %d", ax)
		}
		seen[ax] = true
	}

	newShape := make(tensor.Shape, ndim)
	for i, ax := range axes {
		newShape[i] = shape[ax]
	}

	result, err := tensor.NewRaw(newShape, cpu.device)
	if err != nil {
		return nil, errors.Wrap(err, "permute")
	}

	// Walk the output in row-major order and read the matching source element.
	srcStrides := shape.ComputeStrides()
	permStrides := make([]int, ndim)
	for i, ax := range axes {
		permStrides[i] = srcStrides[ax]
	}

	src := x.Data()
	dst := result.Data()
	idx := make([]int, ndim)
	for i := range dst {
		off := 0
		for d := range idx {
			off += idx[d] * permStrides[d]
		}
		dst[i] = src[off]

		for d := ndim - 1; d >= 0; d-- {
			idx[d]++
			if idx[d] < newShape[d] {
				break
			}
			idx[d] = 0
		}
	}
	return result, nil
}

// Pad2D zero-pads the last two axes of a 4-D tensor [N, C, H, W] by
// (top, bottom) rows and (left, right) columns.
func (cpu *CPUBackend) Pad2D(x *tensor.RawTensor, top, bottom, left, right int) (*tensor.RawTensor, error) {
	shape := x.Shape()
	if len(shape) != 4 {
		return nil, errors.Wrapf(tensor.ErrShape, "pad2d: input must be 4D [N,C,H,W], got %v", shape)
	}
	if top < 0 || bottom < 0 || left < 0 || right < 0 {
		return nil, errors.Wrapf(tensor.ErrParameter, "pad2d: negative padding (%d, %d, %d, %d)", top, bottom, left, right)
	}

	N, C, H, W := shape[0], shape[1], shape[2], shape[3]
	padded, err := tensor.NewRaw(tensor.Shape{N, C, H + top + bottom, W + left + right}, cpu.device)
	if err != nil {
		return nil, errors.Wrap(err, "pad2d")
	}

	return cpu.SetSlice(padded, []tensor.Range{
		tensor.All(N),
		tensor.All(C),
		tensor.Span(top, top+H),
		tensor.Span(left, left+W),
	}, x)
}
