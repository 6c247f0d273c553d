// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import "github.com/born-ml/tinyad/internal/tensor"

// Shape is a list of dimension sizes, outermost first.
type Shape = tensor.Shape

// Device identifies where a buffer lives.
type Device = tensor.Device

// Supported devices.
const (
	CPU = tensor.CPU
	GPU = tensor.GPU
)

// RawTensor is a dense float64 buffer with a shape and a device tag.
//
// Example:
//
//	raw, _ := tensor.Zeros(tensor.Shape{2, 3}, tensor.CPU)
//	raw.Set(1.5, 0, 2)
//	clone := raw.Clone() // independent copy
type RawTensor = tensor.RawTensor

// Range selects indices start, start+step, ... below stop along one axis.
type Range = tensor.Range

// Errors returned by tensor operations. Returned errors wrap these and
// can be matched with errors.Is.
var (
	ErrShape                 = tensor.ErrShape
	ErrParameter             = tensor.ErrParameter
	ErrUnimplementedBackward = tensor.ErrUnimplementedBackward
	ErrDevice                = tensor.ErrDevice
)

// NewRaw allocates a zero-filled tensor.
func NewRaw(shape Shape, device Device) (*RawTensor, error) {
	return tensor.NewRaw(shape, device)
}

// FromSlice creates a tensor from a copy of data.
func FromSlice(data []float64, shape Shape, device Device) (*RawTensor, error) {
	return tensor.FromSlice(data, shape, device)
}

// Zeros creates a zero-filled tensor.
func Zeros(shape Shape, device Device) (*RawTensor, error) {
	return tensor.Zeros(shape, device)
}

// Ones creates a one-filled tensor.
func Ones(shape Shape, device Device) (*RawTensor, error) {
	return tensor.Ones(shape, device)
}

// Full creates a tensor with every element set to value.
func Full(shape Shape, value float64, device Device) (*RawTensor, error) {
	return tensor.Full(shape, value, device)
}

// All selects a whole axis of the given size.
func All(size int) Range {
	return tensor.All(size)
}

// Span selects [start, stop).
func Span(start, stop int) Range {
	return tensor.Span(start, stop)
}

// Strided selects start, start+step, ... below stop.
func Strided(start, stop, step int) Range {
	return tensor.Strided(start, stop, step)
}
