package autodiff

import (
	"github.com/pkg/errors"

	"github.com/born-ml/tinyad/internal/autodiff/ops"
	"github.com/born-ml/tinyad/internal/tensor"
)

// Tensor is a handle to one node of a Graph.
//
// Tensors are immutable values: operations return new tensors and never
// write to their operands. Only the accumulated gradient changes, and only
// through Backward and ZeroGrad.
type Tensor struct {
	graph *Graph
	id    nodeID
}

func (t *Tensor) node() *node {
	return &t.graph.nodes[t.id]
}

// Graph returns the graph the tensor belongs to.
func (t *Tensor) Graph() *Graph {
	return t.graph
}

// Value returns the tensor's buffer. It must not be modified.
func (t *Tensor) Value() *tensor.RawTensor {
	return t.node().value
}

// Shape returns a copy of the tensor's shape.
func (t *Tensor) Shape() tensor.Shape {
	return t.node().value.Shape().Clone()
}

// NumElements returns the total number of elements.
func (t *Tensor) NumElements() int {
	return t.node().value.NumElements()
}

// Data returns a copy of the tensor's values in row-major order.
func (t *Tensor) Data() []float64 {
	return append([]float64(nil), t.node().value.Data()...)
}

// Grad returns the accumulated gradient, or nil when no backward pass has
// reached the tensor. It must not be modified.
func (t *Tensor) Grad() *tensor.RawTensor {
	return t.node().grad
}

// RequiresGrad reports whether gradients are tracked for the tensor.
func (t *Tensor) RequiresGrad() bool {
	return t.node().requiresGrad
}

// IsLeaf reports whether the tensor was not produced by a tracked operation.
func (t *Tensor) IsLeaf() bool {
	return t.node().creator == nil
}

// ZeroGrad clears the accumulated gradient.
func (t *Tensor) ZeroGrad() {
	t.node().grad = nil
}

// Apply runs the operation registered under name with t as the first
// operand followed by others.
//
// When any operand requires grad, the result records the operation as its
// creator; otherwise the result is a plain leaf. A failed operation adds
// nothing to the graph.
func (t *Tensor) Apply(name string, others []*Tensor, opts ...ops.Option) (*Tensor, error) {
	g := t.graph

	fn, ok := g.registry.Get(name)
	if !ok {
		return nil, g.fail(name, errors.Wrapf(ErrUnknownOp, "%q", name))
	}

	operands := append([]*Tensor{t}, others...)
	if len(operands) != fn.NumInputs() {
		return nil, g.fail(name, errors.Wrapf(tensor.ErrParameter, "%s: takes %d operands, got %d", name, fn.NumInputs(), len(operands)))
	}

	values := make([]*tensor.RawTensor, len(operands))
	inputs := make([]nodeID, len(operands))
	requiresGrad := false
	for i, o := range operands {
		if o == nil || o.graph != g {
			return nil, g.fail(name, errors.Wrapf(tensor.ErrParameter, "%s: operand %d does not belong to this graph", name, i))
		}
		n := o.node()
		if n.value.Device() != g.backend.Device() {
			return nil, g.fail(name, errors.Wrapf(tensor.ErrDevice, "%s: operand %d is on %s, backend %s runs on %s",
				name, i, n.value.Device(), g.backend.Name(), g.backend.Device()))
		}
		values[i] = n.value
		inputs[i] = o.id
		requiresGrad = requiresGrad || n.requiresGrad
	}

	ctx := ops.NewContext(g.backend, ops.NewParams(opts...))
	out, err := fn.Forward(ctx, values...)
	if err != nil {
		return nil, g.fail(name, err)
	}

	n := node{value: out, requiresGrad: requiresGrad}
	if requiresGrad {
		n.creator = &creator{name: name, fn: fn, ctx: ctx, inputs: inputs}
	}
	result := g.add(n)

	g.logger.V(5).Info("applied operation", "op", name, "id", result.id, "shape", out.Shape(), "requiresGrad", requiresGrad)
	return result, nil
}

// Add returns t + y. Shapes must match exactly.
func (t *Tensor) Add(y *Tensor) (*Tensor, error) {
	return t.Apply(ops.OpAdd, []*Tensor{y})
}

// Sub returns t - y. Shapes must match exactly.
func (t *Tensor) Sub(y *Tensor) (*Tensor, error) {
	return t.Apply(ops.OpSub, []*Tensor{y})
}

// Mul returns the element-wise product t * y.
func (t *Tensor) Mul(y *Tensor) (*Tensor, error) {
	return t.Apply(ops.OpMul, []*Tensor{y})
}

// Pow returns t ** y element-wise.
func (t *Tensor) Pow(y *Tensor) (*Tensor, error) {
	return t.Apply(ops.OpPow, []*Tensor{y})
}

// Sum reduces t to a one-element tensor of shape [1].
func (t *Tensor) Sum() (*Tensor, error) {
	return t.Apply(ops.OpSum, nil)
}

// ReLU returns max(t, 0).
func (t *Tensor) ReLU() (*Tensor, error) {
	return t.Apply(ops.OpReLU, nil)
}

// Sigmoid returns 1 / (1 + exp(-t)).
func (t *Tensor) Sigmoid() (*Tensor, error) {
	return t.Apply(ops.OpSigmoid, nil)
}

// LogSoftmax returns the row-wise log-softmax of a 2-D tensor.
func (t *Tensor) LogSoftmax() (*Tensor, error) {
	return t.Apply(ops.OpLogSoftmax, nil)
}

// Reshape returns t with a new shape; a single -1 is inferred.
func (t *Tensor) Reshape(shape ...int) (*Tensor, error) {
	return t.Apply(ops.OpReshape, nil, ops.WithShape(shape...))
}

// Dot returns the 2-D matrix product t @ w.
func (t *Tensor) Dot(w *Tensor) (*Tensor, error) {
	return t.Apply(ops.OpDot, []*Tensor{w})
}

// MatMul is Dot.
func (t *Tensor) MatMul(w *Tensor) (*Tensor, error) {
	return t.Apply(ops.OpMatMul, []*Tensor{w})
}

// Pad2D zero-pads the last two axes of a 4-D tensor. The result cannot be
// differentiated: Backward through it fails with tensor.ErrUnimplementedBackward.
func (t *Tensor) Pad2D(top, bottom, left, right int) (*Tensor, error) {
	return t.Apply(ops.OpPad2D, nil, ops.WithPadding(top, bottom, left, right))
}

// Conv2D convolves t [N, C_in, H, W] with w [C_out, C_in/groups, KH, KW].
// Accepts ops.WithStride, ops.Stride and ops.WithGroups.
func (t *Tensor) Conv2D(w *Tensor, opts ...ops.Option) (*Tensor, error) {
	return t.Apply(ops.OpConv2D, []*Tensor{w}, opts...)
}

// Conv2DIm2Col is Conv2D computed as a single GEMM over the im2col
// column matrix. Only stride 1 and one group are supported.
func (t *Tensor) Conv2DIm2Col(w *Tensor) (*Tensor, error) {
	return t.Apply(ops.OpConv2DIm2Col, []*Tensor{w})
}

// MaxPool2D max-pools non-overlapping windows (ops.WithKernelSize, default 2x2).
func (t *Tensor) MaxPool2D(opts ...ops.Option) (*Tensor, error) {
	return t.Apply(ops.OpMaxPool2D, nil, opts...)
}

// AvgPool2D average-pools non-overlapping windows (ops.WithKernelSize, default 2x2).
func (t *Tensor) AvgPool2D(opts ...ops.Option) (*Tensor, error) {
	return t.Apply(ops.OpAvgPool2D, nil, opts...)
}

// Mean returns the mean of all elements as a one-element tensor:
// Sum scaled by a constant 1/N.
func (t *Tensor) Mean() (*Tensor, error) {
	sum, err := t.Sum()
	if err != nil {
		return nil, err
	}
	scale, err := t.graph.Full(tensor.Shape{1}, 1/float64(t.NumElements()), false)
	if err != nil {
		return nil, err
	}
	return sum.Mul(scale)
}

// Div returns t / y, computed as t * y^-1.
func (t *Tensor) Div(y *Tensor) (*Tensor, error) {
	minusOne, err := t.graph.Full(y.Shape(), -1, false)
	if err != nil {
		return nil, err
	}
	inv, err := y.Pow(minusOne)
	if err != nil {
		return nil, err
	}
	return t.Mul(inv)
}

// Sqrt returns t^0.5.
func (t *Tensor) Sqrt() (*Tensor, error) {
	half, err := t.graph.Full(t.Shape(), 0.5, false)
	if err != nil {
		return nil, err
	}
	return t.Pow(half)
}

// ToAccelerated moves the tensor's buffer to the graph's accelerator.
// Graph edges and saved contexts are untouched.
func (t *Tensor) ToAccelerated() error {
	acc := t.graph.accelerator
	if acc == nil {
		return errors.Wrap(ErrNoAccelerator, "to accelerated")
	}
	n := t.node()
	if n.value.Device() == acc.Device() {
		return nil
	}
	moved, err := acc.Upload(n.value)
	if err != nil {
		return errors.Wrap(err, "to accelerated")
	}
	n.value = moved
	return nil
}

// ToHost moves the tensor's buffer back to host memory. A no-op for
// tensors already on the host.
func (t *Tensor) ToHost() error {
	n := t.node()
	if n.value.Device() == tensor.CPU {
		return nil
	}
	acc := t.graph.accelerator
	if acc == nil {
		return errors.Wrap(ErrNoAccelerator, "to host")
	}
	moved, err := acc.Download(n.value)
	if err != nil {
		return errors.Wrap(err, "to host")
	}
	n.value = moved
	return nil
}
