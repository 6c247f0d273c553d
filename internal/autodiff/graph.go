// Package autodiff implements reverse-mode automatic differentiation over
// an arena of tensor nodes.
//
// Architecture:
//   - Graph: owns every node; nodes are addressed by index, so the
//     computation DAG needs no pointers between tensors
//   - Tensor: a handle (graph, index) exposing the operation surface
//   - ops.Registry: resolves operation names to ops.Function
//   - Backward: iterative postorder walk applying each context once
//
// Usage:
//
//	g := autodiff.NewGraph(cpu.New())
//	x, _ := g.FromSlice([]float64{2}, tensor.Shape{1}, true)
//	y, _ := x.Mul(x) // y = x²
//	_ = y.Backward(nil)
//	fmt.Println(x.Grad().Data()) // dy/dx = 2x = [4]
//
// A Graph and its tensors are not safe for concurrent use.
package autodiff

import (
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/born-ml/tinyad/internal/autodiff/ops"
	"github.com/born-ml/tinyad/internal/tensor"
)

type nodeID int

// creator is the operation invocation that produced a node.
type creator struct {
	name   string
	fn     ops.Function
	ctx    *ops.Context
	inputs []nodeID
}

type node struct {
	value        *tensor.RawTensor
	requiresGrad bool
	grad         *tensor.RawTensor // nil until the first committed pass
	creator      *creator          // nil for leaves
}

// Graph is the arena holding every tensor of one computation.
//
// Node ids grow monotonically, so an operation's inputs always have
// smaller ids than its output.
type Graph struct {
	backend     tensor.Backend
	registry    *ops.Registry
	logger      klog.Logger
	retain      bool
	accelerator tensor.Transferer

	nodes []node
}

// NewGraph creates an empty graph computing on backend.
func NewGraph(backend tensor.Backend, opts ...Option) *Graph {
	g := &Graph{
		backend:  backend,
		registry: ops.Default(),
		logger:   klog.Background(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Backend returns the backend operations run on.
func (g *Graph) Backend() tensor.Backend {
	return g.backend
}

// Registry returns the registry operation names are resolved in.
func (g *Graph) Registry() *ops.Registry {
	return g.registry
}

// Len returns the number of tensors in the graph.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Leaf wraps a copy of raw as a leaf tensor.
func (g *Graph) Leaf(raw *tensor.RawTensor, requiresGrad bool) (*Tensor, error) {
	if raw == nil {
		return nil, errors.Wrap(tensor.ErrParameter, "leaf: nil buffer")
	}
	return g.add(node{value: raw.Clone(), requiresGrad: requiresGrad}), nil
}

// FromSlice creates a leaf tensor from a copy of data.
func (g *Graph) FromSlice(data []float64, shape tensor.Shape, requiresGrad bool) (*Tensor, error) {
	raw, err := tensor.FromSlice(data, shape, g.backend.Device())
	if err != nil {
		return nil, err
	}
	return g.add(node{value: raw, requiresGrad: requiresGrad}), nil
}

// Zeros creates a zero-filled leaf tensor.
func (g *Graph) Zeros(shape tensor.Shape, requiresGrad bool) (*Tensor, error) {
	return g.Full(shape, 0, requiresGrad)
}

// Ones creates a one-filled leaf tensor.
func (g *Graph) Ones(shape tensor.Shape, requiresGrad bool) (*Tensor, error) {
	return g.Full(shape, 1, requiresGrad)
}

// Full creates a leaf tensor with every element set to value.
func (g *Graph) Full(shape tensor.Shape, value float64, requiresGrad bool) (*Tensor, error) {
	raw, err := tensor.Full(shape, value, g.backend.Device())
	if err != nil {
		return nil, err
	}
	return g.add(node{value: raw, requiresGrad: requiresGrad}), nil
}

func (g *Graph) add(n node) *Tensor {
	g.nodes = append(g.nodes, n)
	return &Tensor{graph: g, id: nodeID(len(g.nodes) - 1)}
}

// fail logs err at V(2) and returns it.
func (g *Graph) fail(op string, err error) error {
	g.logger.V(2).Info("operation failed", "op", op, "err", err)
	return err
}
