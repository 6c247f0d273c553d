package cpu

import (
	"github.com/pkg/errors"

	"github.com/born-ml/tinyad/internal/tensor"
)

// Slice copies the region of x selected by one Range per axis.
//
// Example:
//
//	x: [N, C, H, W]
//	ranges: (All(N), All(C), Strided(0, H, 2), Strided(1, W, 2))
//	output: [N, C, ceil(H/2), ceil((W-1)/2)]
func (cpu *CPUBackend) Slice(x *tensor.RawTensor, ranges []tensor.Range) (*tensor.RawTensor, error) {
	outShape, err := tensor.SliceShape(x.Shape(), ranges)
	if err != nil {
		return nil, err
	}

	result, err := tensor.NewRaw(outShape, cpu.device)
	if err != nil {
		return nil, errors.Wrap(err, "slice")
	}

	src := x.Data()
	dst := result.Data()
	tensor.ForEachSliceOffset(x.Shape(), ranges, func(i, off int) {
		dst[i] = src[off]
	})
	return result, nil
}

// SetSlice returns a copy of dst whose region selected by ranges holds src.
func (cpu *CPUBackend) SetSlice(dst *tensor.RawTensor, ranges []tensor.Range, src *tensor.RawTensor) (*tensor.RawTensor, error) {
	return cpu.writeSlice("set_slice", dst, ranges, src, func(d *float64, v float64) {
		*d = v
	})
}

// AddSlice returns a copy of dst whose region selected by ranges has src
// added to it. Used to accumulate gradient contributions from overlapping
// windows.
func (cpu *CPUBackend) AddSlice(dst *tensor.RawTensor, ranges []tensor.Range, src *tensor.RawTensor) (*tensor.RawTensor, error) {
	return cpu.writeSlice("add_slice", dst, ranges, src, func(d *float64, v float64) {
		*d += v
	})
}

func (cpu *CPUBackend) writeSlice(name string, dst *tensor.RawTensor, ranges []tensor.Range, src *tensor.RawTensor, write func(d *float64, v float64)) (*tensor.RawTensor, error) {
	sliceShape, err := tensor.SliceShape(dst.Shape(), ranges)
	if err != nil {
		return nil, errors.Wrap(err, name)
	}
	if !sliceShape.Equal(src.Shape()) {
		return nil, errors.Wrapf(tensor.ErrShape, "%s: source shape %v does not match slice shape %v", name, src.Shape(), sliceShape)
	}

	result := dst.Clone()
	out := result.Data()
	in := src.Data()
	tensor.ForEachSliceOffset(dst.Shape(), ranges, func(i, off int) {
		write(&out[off], in[i])
	})
	return result, nil
}
