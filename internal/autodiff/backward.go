package autodiff

import (
	"github.com/pkg/errors"

	"github.com/born-ml/tinyad/internal/tensor"
)

// Backward computes the gradient of t with respect to every tensor it was
// computed from and accumulates it into their Grad.
//
// With a nil seed, t must have exactly one element and the seed is ones.
// Otherwise seed must have t's shape.
//
// Algorithm:
//  1. Collect t's ancestors in postorder (each node visited once)
//  2. Walk them in reverse, so a node's gradient is complete before its
//     own backward rule runs
//  3. For each node with a creator, call the rule and accumulate one
//     contribution per input that requires grad
//  4. Commit: add the pass gradients to every visited node's Grad and
//     release the consumed contexts
//
// Gradients are collected in a pass-local table, so a failing rule (e.g.
// pad2d) leaves every Grad unchanged.
func (t *Tensor) Backward(seed *Tensor) error {
	g := t.graph
	root := t.node()

	if !root.requiresGrad {
		return g.fail("backward", errors.Wrap(tensor.ErrParameter, "backward: tensor does not require grad"))
	}

	seedRaw, err := g.seed(root.value, seed)
	if err != nil {
		return g.fail("backward", err)
	}

	order := g.postorder(t.id)
	pass := map[nodeID]*tensor.RawTensor{t.id: seedRaw}
	applied := 0

	for i := len(order) - 1; i >= 0; i-- {
		id := order[i]
		c := g.nodes[id].creator
		grad, ok := pass[id]
		if c == nil || !ok {
			continue
		}
		if c.ctx.Released() {
			return g.fail(c.name, errors.Wrapf(ErrGraphReleased, "backward: context of %s (node %d) was consumed by an earlier pass", c.name, id))
		}

		grads, err := c.fn.Backward(c.ctx, grad)
		if err != nil {
			return g.fail(c.name, errors.Wrapf(err, "backward: node %d", id))
		}
		if len(grads) != len(c.inputs) {
			return g.fail(c.name, errors.Errorf("backward: %s returned %d gradients for %d inputs", c.name, len(grads), len(c.inputs)))
		}
		applied++

		for j, in := range c.inputs {
			if !g.nodes[in].requiresGrad || grads[j] == nil {
				continue
			}
			acc, err := g.accumulate(pass[in], grads[j], g.nodes[in].value.Shape())
			if err != nil {
				return g.fail(c.name, errors.Wrapf(err, "backward: gradient of %s input %d", c.name, j))
			}
			pass[in] = acc
		}
	}

	for _, id := range order {
		n := &g.nodes[id]
		grad, ok := pass[id]
		if !ok {
			continue
		}
		acc, err := g.accumulate(n.grad, grad, n.value.Shape())
		if err != nil {
			return g.fail("backward", err)
		}
		n.grad = acc
	}

	if !g.retain {
		for _, id := range order {
			if c := g.nodes[id].creator; c != nil {
				c.ctx.Release()
			}
		}
	}

	g.logger.V(4).Info("backward pass complete", "root", t.id, "visited", len(order), "applied", applied, "retain", g.retain)
	return nil
}

// seed returns the initial output gradient for value.
func (g *Graph) seed(value *tensor.RawTensor, seed *Tensor) (*tensor.RawTensor, error) {
	if seed == nil {
		if value.NumElements() != 1 {
			return nil, errors.Wrapf(tensor.ErrShape, "backward: output has shape %v; reduce it to a scalar first or pass a seed", value.Shape())
		}
		return tensor.Ones(value.Shape(), g.backend.Device())
	}

	s := seed.Value()
	if !s.Shape().Equal(value.Shape()) {
		return nil, errors.Wrapf(tensor.ErrShape, "backward: seed shape %v does not match output shape %v", s.Shape(), value.Shape())
	}
	return s.Clone(), nil
}

// postorder returns root and every ancestor requiring grad, each exactly
// once, inputs before the nodes computed from them.
func (g *Graph) postorder(root nodeID) []nodeID {
	type frame struct {
		id   nodeID
		next int // next creator input to visit
	}

	visited := map[nodeID]bool{root: true}
	stack := []frame{{id: root}}
	var order []nodeID

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if c := g.nodes[top.id].creator; c != nil && top.next < len(c.inputs) {
			in := c.inputs[top.next]
			top.next++
			if !visited[in] && g.nodes[in].requiresGrad {
				visited[in] = true
				stack = append(stack, frame{id: in})
			}
			continue
		}
		order = append(order, top.id)
		stack = stack[:len(stack)-1]
	}
	return order
}

// accumulate returns acc + contribution, treating a nil acc as zeros.
func (g *Graph) accumulate(acc, contribution *tensor.RawTensor, shape tensor.Shape) (*tensor.RawTensor, error) {
	if !contribution.Shape().Equal(shape) {
		return nil, errors.Wrapf(tensor.ErrShape, "gradient shape %v does not match tensor shape %v", contribution.Shape(), shape)
	}
	if acc == nil {
		zeros, err := tensor.Zeros(shape, g.backend.Device())
		if err != nil {
			return nil, err
		}
		acc = zeros
	}
	return g.backend.Add(acc, contribution)
}
