package autodiff

import (
	"k8s.io/klog/v2"

	"github.com/born-ml/tinyad/internal/autodiff/ops"
	"github.com/born-ml/tinyad/internal/tensor"
)

// Option configures a Graph.
type Option func(*Graph)

// WithRegistry resolves operation names in r instead of ops.Default().
func WithRegistry(r *ops.Registry) Option {
	return func(g *Graph) {
		g.registry = r
	}
}

// WithLogger sets the logger. Defaults to klog.Background().
func WithLogger(logger klog.Logger) Option {
	return func(g *Graph) {
		g.logger = logger
	}
}

// WithRetainGraph keeps operation contexts alive after backward so the
// graph can be differentiated again; gradients then accumulate across passes.
func WithRetainGraph() Option {
	return func(g *Graph) {
		g.retain = true
	}
}

// WithAccelerator enables ToAccelerated/ToHost through t.
func WithAccelerator(t tensor.Transferer) Option {
	return func(g *Graph) {
		g.accelerator = t
	}
}
