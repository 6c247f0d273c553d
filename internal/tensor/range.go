package tensor

import "github.com/pkg/errors"

// Range selects indices Start, Start+Step, ... below Stop along one axis,
// like the Python slice start:stop:step. A zero Step means 1.
type Range struct {
	Start, Stop, Step int
}

// All selects the whole axis of the given size.
func All(size int) Range {
	return Range{Start: 0, Stop: size, Step: 1}
}

// Span selects [start, stop).
func Span(start, stop int) Range {
	return Range{Start: start, Stop: stop, Step: 1}
}

// Strided selects start, start+step, ... below stop.
func Strided(start, stop, step int) Range {
	return Range{Start: start, Stop: stop, Step: step}
}

// Len returns the number of selected indices.
func (r Range) Len() int {
	step := r.step()
	if r.Stop <= r.Start {
		return 0
	}
	return (r.Stop - r.Start + step - 1) / step
}

func (r Range) step() int {
	if r.Step == 0 {
		return 1
	}
	return r.Step
}

// SliceShape validates ranges against shape and returns the shape of the
// selected region.
func SliceShape(shape Shape, ranges []Range) (Shape, error) {
	if len(ranges) != len(shape) {
		return nil, errors.Wrapf(ErrShape, "slice: %d ranges for rank-%d shape %v", len(ranges), len(shape), shape)
	}
	out := make(Shape, len(shape))
	for i, r := range ranges {
		if r.step() < 0 || r.Start < 0 || r.Stop > shape[i] {
			return nil, errors.Wrapf(ErrShape, "slice: range %d:%d:%d out of bounds for axis %d of %v", r.Start, r.Stop, r.Step, i, shape)
		}
		out[i] = r.Len()
		if out[i] == 0 {
			return nil, errors.Wrapf(ErrShape, "slice: empty range %d:%d on axis %d of %v", r.Start, r.Stop, i, shape)
		}
	}
	return out, nil
}

// ForEachSliceOffset calls fn with (position in the slice, flat offset in
// the source) for every element selected by ranges, in row-major order.
// ranges must already have been validated with SliceShape.
func ForEachSliceOffset(shape Shape, ranges []Range, fn func(i, offset int)) {
	strides := shape.ComputeStrides()
	sliceShape := make(Shape, len(ranges))
	for d, r := range ranges {
		sliceShape[d] = r.Len()
	}
	n := sliceShape.NumElements()
	idx := make([]int, len(ranges))
	for i := 0; i < n; i++ {
		off := 0
		for d, r := range ranges {
			off += (r.Start + idx[d]*r.step()) * strides[d]
		}
		fn(i, off)

		for d := len(idx) - 1; d >= 0; d-- {
			idx[d]++
			if idx[d] < sliceShape[d] {
				break
			}
			idx[d] = 0
		}
	}
}
