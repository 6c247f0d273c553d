package tensor

import (
	"github.com/pkg/errors"
)

// Device represents the compute device for tensor operations.
type Device int

// Supported compute devices.
const (
	CPU Device = iota
	GPU
)

// String returns a human-readable device name.
func (d Device) String() string {
	switch d {
	case CPU:
		return "CPU"
	case GPU:
		return "GPU"
	default:
		return "Unknown"
	}
}

// RawTensor is the numeric buffer behind every tensor: a dense row-major
// float64 array with a shape and the device it lives on.
//
// RawTensor carries no gradient metadata. Backends never mutate their
// operands; every operation allocates a fresh result.
type RawTensor struct {
	data   []float64
	shape  Shape
	stride []int
	device Device
}

// NewRaw creates a zero-filled RawTensor with the given shape.
func NewRaw(shape Shape, device Device) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid shape")
	}

	return &RawTensor{
		data:   make([]float64, shape.NumElements()),
		shape:  shape.Clone(),
		stride: shape.ComputeStrides(),
		device: device,
	}, nil
}

// FromSlice creates a RawTensor from a Go slice.
// The slice is copied into the tensor's memory.
func FromSlice(data []float64, shape Shape, device Device) (*RawTensor, error) {
	if shape.NumElements() != len(data) {
		return nil, errors.Wrapf(ErrShape, "shape %v requires %d elements, but got %d", shape, shape.NumElements(), len(data))
	}

	raw, err := NewRaw(shape, device)
	if err != nil {
		return nil, err
	}
	copy(raw.data, data)
	return raw, nil
}

// Zeros creates a RawTensor filled with zeros.
func Zeros(shape Shape, device Device) (*RawTensor, error) {
	return NewRaw(shape, device)
}

// Ones creates a RawTensor filled with ones.
func Ones(shape Shape, device Device) (*RawTensor, error) {
	return Full(shape, 1, device)
}

// Full creates a RawTensor with every element set to value.
func Full(shape Shape, value float64, device Device) (*RawTensor, error) {
	raw, err := NewRaw(shape, device)
	if err != nil {
		return nil, err
	}
	for i := range raw.data {
		raw.data[i] = value
	}
	return raw, nil
}

// Shape returns the tensor's shape.
func (r *RawTensor) Shape() Shape {
	return r.shape
}

// Strides returns the tensor's memory strides.
func (r *RawTensor) Strides() []int {
	return r.stride
}

// Device returns the tensor's compute device.
func (r *RawTensor) Device() Device {
	return r.device
}

// NumElements returns the total number of elements.
func (r *RawTensor) NumElements() int {
	return r.shape.NumElements()
}

// Data returns the underlying row-major storage.
// WARNING: Direct access to underlying memory. Use with caution.
func (r *RawTensor) Data() []float64 {
	return r.data
}

// At returns the element at the given multi-dimensional index.
func (r *RawTensor) At(idx ...int) float64 {
	return r.data[r.offset(idx)]
}

// Set writes the element at the given multi-dimensional index.
func (r *RawTensor) Set(value float64, idx ...int) {
	r.data[r.offset(idx)] = value
}

func (r *RawTensor) offset(idx []int) int {
	if len(idx) != len(r.shape) {
		panic(errors.Wrapf(ErrShape, "index %v has rank %d, tensor has rank %d", idx, len(idx), len(r.shape)))
	}
	off := 0
	for i, v := range idx {
		if v < 0 || v >= r.shape[i] {
			panic(errors.Wrapf(ErrShape, "index %v out of range for shape %v", idx, r.shape))
		}
		off += v * r.stride[i]
	}
	return off
}

// Clone returns a deep copy of the tensor.
func (r *RawTensor) Clone() *RawTensor {
	data := make([]float64, len(r.data))
	copy(data, r.data)
	return &RawTensor{
		data:   data,
		shape:  r.shape.Clone(),
		stride: append([]int(nil), r.stride...),
		device: r.device,
	}
}

// WithDevice returns a deep copy of the tensor tagged with another device.
// Used by Transferer implementations after moving the data.
func (r *RawTensor) WithDevice(device Device) *RawTensor {
	c := r.Clone()
	c.device = device
	return c
}

// Item returns the single value of a one-element tensor.
func (r *RawTensor) Item() (float64, error) {
	if len(r.data) != 1 {
		return 0, errors.Wrapf(ErrShape, "item: tensor of shape %v has %d elements", r.shape, len(r.data))
	}
	return r.data[0], nil
}
