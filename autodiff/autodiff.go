// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autodiff provides reverse-mode automatic differentiation.
//
// A Graph records every operation applied to its tensors. Calling Backward
// on a result walks the recorded operations once, in reverse, and
// accumulates gradients into every tensor that requires them.
//
// Example:
//
//	import (
//	    "github.com/born-ml/tinyad/autodiff"
//	    "github.com/born-ml/tinyad/backend/cpu"
//	    "github.com/born-ml/tinyad/tensor"
//	)
//
//	func main() {
//	    g := autodiff.NewGraph(cpu.New())
//
//	    x, _ := g.FromSlice([]float64{1, 2, 3, 4}, tensor.Shape{1, 1, 2, 2}, true)
//	    p, _ := x.MaxPool2D(autodiff.WithKernelSize(2, 2))
//
//	    _ = p.Backward(nil)
//	    fmt.Println(x.Grad().Data()) // [0 0 0 1]
//	}
package autodiff

import (
	"k8s.io/klog/v2"

	"github.com/born-ml/tinyad/internal/autodiff"
	"github.com/born-ml/tinyad/tensor"
)

// Graph is the arena holding every tensor of one computation.
type Graph = autodiff.Graph

// Tensor is a handle to one node of a Graph.
type Tensor = autodiff.Tensor

// Option configures a Graph.
type Option = autodiff.Option

// NewGraph creates an empty graph computing on backend.
//
// Example:
//
//	g := autodiff.NewGraph(cpu.New(), autodiff.WithRetainGraph())
func NewGraph(backend tensor.Backend, opts ...Option) *Graph {
	return autodiff.NewGraph(backend, opts...)
}

// WithRegistry resolves operation names in r instead of the default registry.
func WithRegistry(r *Registry) Option {
	return autodiff.WithRegistry(r)
}

// WithLogger sets the logger for operation and backward-pass events.
func WithLogger(logger klog.Logger) Option {
	return autodiff.WithLogger(logger)
}

// WithRetainGraph keeps saved contexts after Backward so the graph can be
// differentiated again.
func WithRetainGraph() Option {
	return autodiff.WithRetainGraph()
}

// WithAccelerator sets the transferer used by ToAccelerated and ToHost.
func WithAccelerator(t tensor.Transferer) Option {
	return autodiff.WithAccelerator(t)
}

// Errors returned by graph operations.
var (
	ErrUnknownOp     = autodiff.ErrUnknownOp
	ErrGraphReleased = autodiff.ErrGraphReleased
	ErrNoAccelerator = autodiff.ErrNoAccelerator
)
