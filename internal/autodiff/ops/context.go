package ops

import "github.com/born-ml/tinyad/internal/tensor"

// Context is the per-invocation record an operation keeps between its
// forward and backward passes.
//
// Saved buffers are snapshots: SaveForBackward stores clones, so later
// changes to the caller's buffers never leak into the gradient.
type Context struct {
	// Backend runs the numeric work of both passes.
	Backend tensor.Backend
	// Params holds the operation's configuration.
	Params Params

	saved    []*tensor.RawTensor
	shape    tensor.Shape
	indices  []int
	released bool
}

// NewContext creates a context for one operation invocation.
func NewContext(backend tensor.Backend, params Params) *Context {
	return &Context{
		Backend: backend,
		Params:  params,
	}
}

// SaveForBackward snapshots buffers needed by the backward pass.
func (c *Context) SaveForBackward(ts ...*tensor.RawTensor) {
	for _, t := range ts {
		c.saved = append(c.saved, t.Clone())
	}
}

// SavedTensors returns the buffers saved by SaveForBackward, in order.
func (c *Context) SavedTensors() []*tensor.RawTensor {
	return c.saved
}

// SaveShape records a shape needed by the backward pass.
func (c *Context) SaveShape(shape tensor.Shape) {
	c.shape = shape.Clone()
}

// SavedShape returns the shape recorded by SaveShape.
func (c *Context) SavedShape() tensor.Shape {
	return c.shape
}

// SaveIndices records integer indices (e.g. argmax positions).
func (c *Context) SaveIndices(indices []int) {
	c.indices = append([]int(nil), indices...)
}

// SavedIndices returns the indices recorded by SaveIndices.
func (c *Context) SavedIndices() []int {
	return c.indices
}

// Release drops everything saved for backward.
func (c *Context) Release() {
	c.saved = nil
	c.shape = nil
	c.indices = nil
	c.released = true
}

// Released reports whether Release has been called.
func (c *Context) Released() bool {
	return c.released
}
