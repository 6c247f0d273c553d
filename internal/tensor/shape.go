package tensor

import (
	"fmt"

	"github.com/pkg/errors"
)

// Shape represents the dimensions of a tensor.
type Shape []int

// NumElements returns the total number of elements in the tensor.
func (s Shape) NumElements() int {
	if len(s) == 0 {
		return 1 // Scalar has 1 element
	}
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Validate checks if the shape is valid (all dimensions > 0).
func (s Shape) Validate() error {
	for i, dim := range s {
		if dim <= 0 {
			return errors.Wrapf(ErrShape, "invalid dimension at index %d: %d (must be > 0)", i, dim)
		}
	}
	return nil
}

// Equal checks if two shapes are equal.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	clone := make(Shape, len(s))
	copy(clone, s)
	return clone
}

// ComputeStrides calculates row-major strides for the shape.
// Strides define memory layout: stride[i] = product of all dimensions after i.
func (s Shape) ComputeStrides() []int {
	strides := make([]int, len(s))
	if len(s) == 0 {
		return strides
	}

	strides[len(s)-1] = 1
	for i := len(s) - 2; i >= 0; i-- {
		strides[i] = strides[i+1] * s[i+1]
	}
	return strides
}

// Resolve replaces a single -1 dimension with the size needed to hold
// numElements elements and checks that the element count is preserved.
//
// Examples:
//
//	Shape{2, -1}.Resolve(6)  → Shape{2, 3}
//	Shape{4, 2}.Resolve(6)   → ErrShape
func (s Shape) Resolve(numElements int) (Shape, error) {
	out := s.Clone()
	infer := -1
	known := 1
	for i, dim := range out {
		switch {
		case dim == -1 && infer >= 0:
			return nil, errors.Wrapf(ErrShape, "shape %v has more than one -1 dimension", s)
		case dim == -1:
			infer = i
		case dim <= 0:
			return nil, errors.Wrapf(ErrShape, "shape %v has non-positive dimension %d", s, dim)
		default:
			known *= dim
		}
	}

	if infer >= 0 {
		if known == 0 || numElements%known != 0 {
			return nil, errors.Wrapf(ErrShape, "cannot infer -1 in %v for %d elements", s, numElements)
		}
		out[infer] = numElements / known
	}

	if out.NumElements() != numElements {
		return nil, errors.Wrapf(ErrShape, "cannot reshape %d elements into %v", numElements, s)
	}
	return out, nil
}

// String renders the shape as (d0, d1, ...).
func (s Shape) String() string {
	out := "("
	for i, dim := range s {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprint(dim)
	}
	return out + ")"
}
