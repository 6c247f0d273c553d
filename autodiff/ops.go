// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package autodiff

import "github.com/born-ml/tinyad/internal/autodiff/ops"

// Function is a differentiable operation: a forward rule and the matching
// backward rule.
type Function = ops.Function

// Context carries an invocation's parameters and saved tensors from
// Forward to Backward.
type Context = ops.Context

// Params holds the options an operation was applied with.
type Params = ops.Params

// OpOption sets one operation parameter.
type OpOption = ops.Option

// Registry maps operation names to functions.
type Registry = ops.Registry

// Built-in operation names.
const (
	OpAdd          = ops.OpAdd
	OpSub          = ops.OpSub
	OpMul          = ops.OpMul
	OpPow          = ops.OpPow
	OpSum          = ops.OpSum
	OpReLU         = ops.OpReLU
	OpSigmoid      = ops.OpSigmoid
	OpLogSoftmax   = ops.OpLogSoftmax
	OpReshape      = ops.OpReshape
	OpDot          = ops.OpDot
	OpMatMul       = ops.OpMatMul
	OpPad2D        = ops.OpPad2D
	OpConv2D       = ops.OpConv2D
	OpConv2DIm2Col = ops.OpConv2DIm2Col
	OpMaxPool2D    = ops.OpMaxPool2D
	OpAvgPool2D    = ops.OpAvgPool2D
)

// NewRegistry creates a registry holding the built-in operations.
func NewRegistry() *Registry {
	return ops.NewRegistry()
}

// Register adds fn to the default registry under name, replacing any
// existing entry. Graphs created afterwards with the default registry see
// it immediately.
func Register(name string, fn Function) {
	ops.Register(name, fn)
}

// Lookup returns the function registered under name in the default registry.
func Lookup(name string) (Function, bool) {
	return ops.Lookup(name)
}

// WithStride sets the convolution stride per spatial axis.
func WithStride(sy, sx int) OpOption {
	return ops.WithStride(sy, sx)
}

// Stride sets the same convolution stride on both spatial axes.
func Stride(s int) OpOption {
	return ops.Stride(s)
}

// WithGroups sets the number of convolution groups.
func WithGroups(groups int) OpOption {
	return ops.WithGroups(groups)
}

// WithKernelSize sets the pooling window.
func WithKernelSize(py, px int) OpOption {
	return ops.WithKernelSize(py, px)
}

// WithPadding sets zero padding for pad2d.
func WithPadding(top, bottom, left, right int) OpOption {
	return ops.WithPadding(top, bottom, left, right)
}

// WithShape sets the target shape for reshape.
func WithShape(shape ...int) OpOption {
	return ops.WithShape(shape...)
}
