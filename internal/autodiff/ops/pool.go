package ops

import (
	"github.com/pkg/errors"

	"github.com/born-ml/tinyad/internal/tensor"
)

// poolWindow is the validated layout of one pooling invocation.
type poolWindow struct {
	shape  tensor.Shape // input [N, C, H, W]
	py, px int          // kernel
	my, mx int          // cropped spatial size, multiples of the kernel
}

func newPoolWindow(name string, shape tensor.Shape, p Params) (poolWindow, error) {
	var w poolWindow
	if len(shape) != 4 {
		return w, errors.Wrapf(tensor.ErrShape, "%s: input must be 4D [N,C,H,W], got %v", name, shape)
	}
	py, px, err := p.kernelSize(name)
	if err != nil {
		return w, err
	}
	w = poolWindow{
		shape: shape.Clone(),
		py:    py,
		px:    px,
		my:    (shape[2] / py) * py,
		mx:    (shape[3] / px) * px,
	}
	if w.my == 0 || w.mx == 0 {
		return w, errors.Wrapf(tensor.ErrShape, "%s: kernel %dx%d larger than input %v", name, py, px, shape)
	}
	return w, nil
}

// offset selects the elements at window offset (y, x) of every window,
// i.e. x[:, :, y:my:py, x:mx:px].
func (w poolWindow) offset(y, x int) []tensor.Range {
	return []tensor.Range{
		tensor.All(w.shape[0]),
		tensor.All(w.shape[1]),
		tensor.Strided(y, w.my, w.py),
		tensor.Strided(x, w.mx, w.px),
	}
}

// stackForPool crops x to a multiple of the kernel and stacks the py*px
// strided views, one per window offset, along a new leading axis.
//
// Stack index y*px + x holds offset (y, x); output shape is
// [py*px, N, C, H//py, W//px]. Pooling then reduces over axis 0.
func stackForPool(be tensor.Backend, x *tensor.RawTensor, w poolWindow) (*tensor.RawTensor, error) {
	views := make([]*tensor.RawTensor, 0, w.py*w.px)
	for y := 0; y < w.py; y++ {
		for xx := 0; xx < w.px; xx++ {
			v, err := be.Slice(x, w.offset(y, xx))
			if err != nil {
				return nil, err
			}
			views = append(views, v)
		}
	}
	return be.Stack(views)
}

// unstackForPool writes per-offset gradients back into an input-shaped
// buffer. contribution(k) returns the gradient for stack index k. Cropped
// rows and columns stay zero.
func unstackForPool(be tensor.Backend, w poolWindow, contribution func(k int) (*tensor.RawTensor, error)) (*tensor.RawTensor, error) {
	ret, err := tensor.NewRaw(w.shape, be.Device())
	if err != nil {
		return nil, err
	}
	for y := 0; y < w.py; y++ {
		for xx := 0; xx < w.px; xx++ {
			c, err := contribution(y*w.px + xx)
			if err != nil {
				return nil, err
			}
			if ret, err = be.SetSlice(ret, w.offset(y, xx), c); err != nil {
				return nil, err
			}
		}
	}
	return ret, nil
}

// MaxPool2DOp is non-overlapping max pooling over Params.KernelSize windows
// (default 2x2).
//
// Forward:
//
//	output[n,c,i,j] = max(input[n,c,i*py+y,j*px+x] for y,x in kernel)
//
// Backward:
//   - Gradients flow only to the position that held the max
//   - Ties resolve to the lowest window offset (y*px + x)
//   - All other positions in the window receive zero gradient
//
// Example (2x2 pool):
//
//	Input:  [[1, 3],  Output: [4]  Input Grad: [[0, 0],
//	         [2, 4]]                             [0, grad]]
type MaxPool2DOp struct{}

// NumInputs returns 1.
func (MaxPool2DOp) NumInputs() int { return 1 }

// Forward takes the max over each window and saves the argmax offsets and
// the input shape.
func (MaxPool2DOp) Forward(ctx *Context, inputs ...*tensor.RawTensor) (*tensor.RawTensor, error) {
	be := ctx.Backend
	x := inputs[0]

	w, err := newPoolWindow(OpMaxPool2D, x.Shape(), ctx.Params)
	if err != nil {
		return nil, err
	}
	stack, err := stackForPool(be, x, w)
	if err != nil {
		return nil, errors.Wrap(err, OpMaxPool2D)
	}
	out, err := be.MaxAxis0(stack)
	if err != nil {
		return nil, errors.Wrap(err, OpMaxPool2D)
	}
	idx, err := be.ArgMaxAxis0(stack)
	if err != nil {
		return nil, errors.Wrap(err, OpMaxPool2D)
	}

	ctx.SaveIndices(idx)
	ctx.SaveShape(x.Shape())
	return out, nil
}

// Backward routes grad to the argmax position of each window.
func (MaxPool2DOp) Backward(ctx *Context, grad *tensor.RawTensor) ([]*tensor.RawTensor, error) {
	be := ctx.Backend
	idx := ctx.SavedIndices()

	w, err := newPoolWindow(OpMaxPool2D, ctx.SavedShape(), ctx.Params)
	if err != nil {
		return nil, err
	}

	gradX, err := unstackForPool(be, w, func(k int) (*tensor.RawTensor, error) {
		mask, err := tensor.NewRaw(grad.Shape(), be.Device())
		if err != nil {
			return nil, err
		}
		m := mask.Data()
		for i, v := range idx {
			if v == k {
				m[i] = 1
			}
		}
		return be.Mul(grad, mask)
	})
	if err != nil {
		return nil, errors.Wrap(err, OpMaxPool2D)
	}
	return []*tensor.RawTensor{gradX}, nil
}

// AvgPool2DOp is non-overlapping average pooling over Params.KernelSize
// windows (default 2x2).
//
// Backward:
//   - every position of a window receives grad / (py*px)
type AvgPool2DOp struct{}

// NumInputs returns 1.
func (AvgPool2DOp) NumInputs() int { return 1 }

// Forward takes the mean over each window and saves the input shape.
func (AvgPool2DOp) Forward(ctx *Context, inputs ...*tensor.RawTensor) (*tensor.RawTensor, error) {
	be := ctx.Backend
	x := inputs[0]

	w, err := newPoolWindow(OpAvgPool2D, x.Shape(), ctx.Params)
	if err != nil {
		return nil, err
	}
	stack, err := stackForPool(be, x, w)
	if err != nil {
		return nil, errors.Wrap(err, OpAvgPool2D)
	}
	out, err := be.MeanAxis0(stack)
	if err != nil {
		return nil, errors.Wrap(err, OpAvgPool2D)
	}

	ctx.SaveShape(x.Shape())
	return out, nil
}

// Backward spreads grad evenly over each window.
func (AvgPool2DOp) Backward(ctx *Context, grad *tensor.RawTensor) ([]*tensor.RawTensor, error) {
	be := ctx.Backend

	w, err := newPoolWindow(OpAvgPool2D, ctx.SavedShape(), ctx.Params)
	if err != nil {
		return nil, err
	}

	share := be.MulScalar(grad, 1/float64(w.py*w.px))
	gradX, err := unstackForPool(be, w, func(int) (*tensor.RawTensor, error) {
		return share, nil
	})
	if err != nil {
		return nil, errors.Wrap(err, OpAvgPool2D)
	}
	return []*tensor.RawTensor{gradX}, nil
}
