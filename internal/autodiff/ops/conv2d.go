package ops

import (
	"github.com/pkg/errors"

	"github.com/born-ml/tinyad/internal/tensor"
)

// convGeometry is the validated layout of one conv2d invocation.
type convGeometry struct {
	bs, cin, h, w  int // input [bs, cin, h, w]
	cout, kh, kw   int // kernel [cout, cin/groups, kh, kw]
	sy, sx, groups int
	oy, ox         int // output spatial size
	rcin, rcout    int // channels per group
}

// newConvGeometry validates conv2d operands against params.
//
// Output spatial size: oy = (H - KH)//sy + 1, ox = (W - KW)//sx + 1.
func newConvGeometry(name string, x, w *tensor.RawTensor, p Params) (convGeometry, error) {
	var g convGeometry

	xs, ws := x.Shape(), w.Shape()
	if len(xs) != 4 {
		return g, errors.Wrapf(tensor.ErrShape, "%s: input must be 4D [N,C,H,W], got %v", name, xs)
	}
	if len(ws) != 4 {
		return g, errors.Wrapf(tensor.ErrShape, "%s: kernel must be 4D [C_out,C_in/groups,KH,KW], got %v", name, ws)
	}

	sy, sx, err := p.stride(name)
	if err != nil {
		return g, err
	}
	if p.Groups <= 0 {
		return g, errors.Wrapf(tensor.ErrParameter, "%s: groups must be positive, got %d", name, p.Groups)
	}

	g = convGeometry{
		bs: xs[0], cin: xs[1], h: xs[2], w: xs[3],
		cout: ws[0], kh: ws[2], kw: ws[3],
		sy: sy, sx: sx, groups: p.Groups,
	}

	if g.cin%g.groups != 0 || g.cout%g.groups != 0 {
		return g, errors.Wrapf(tensor.ErrParameter, "%s: channels in=%d out=%d not divisible by groups=%d", name, g.cin, g.cout, g.groups)
	}
	g.rcin, g.rcout = g.cin/g.groups, g.cout/g.groups

	if ws[1] != g.rcin {
		return g, errors.Wrapf(tensor.ErrShape, "%s: kernel has %d input channels, want %d (%d/%d)", name, ws[1], g.rcin, g.cin, g.groups)
	}
	if g.kh > g.h || g.kw > g.w {
		return g, errors.Wrapf(tensor.ErrShape, "%s: kernel %dx%d larger than input %dx%d", name, g.kh, g.kw, g.h, g.w)
	}

	g.oy = (g.h-g.kh)/g.sy + 1
	g.ox = (g.w-g.kw)/g.sx + 1
	return g, nil
}

// field selects the receptive field of output position (y, x) for group gi.
func (g convGeometry) field(gi, y, x int) []tensor.Range {
	return []tensor.Range{
		tensor.All(g.bs),
		tensor.Span(gi*g.rcin, (gi+1)*g.rcin),
		tensor.Span(y*g.sy, y*g.sy+g.kh),
		tensor.Span(x*g.sx, x*g.sx+g.kw),
	}
}

// outPos selects output position (y, x) of group gi.
func (g convGeometry) outPos(gi, y, x int) []tensor.Range {
	return []tensor.Range{
		tensor.All(g.bs),
		tensor.Span(gi*g.rcout, (gi+1)*g.rcout),
		tensor.Span(y, y+1),
		tensor.Span(x, x+1),
	}
}

// kernelGroup selects the output channels of group gi in the kernel.
func (g convGeometry) kernelGroup(gi int) []tensor.Range {
	return []tensor.Range{
		tensor.Span(gi*g.rcout, (gi+1)*g.rcout),
		tensor.All(g.rcin),
		tensor.All(g.kh),
		tensor.All(g.kw),
	}
}

// patchSize is the flattened receptive field length per batch element.
func (g convGeometry) patchSize() int {
	return g.rcin * g.kh * g.kw
}

// Conv2DOp is the direct grouped, strided 2D convolution (no padding).
//
// Shapes:
//   - input:  [N, C_in, H, W]
//   - kernel: [C_out, C_in/groups, KH, KW]
//   - output: [N, C_out, (H-KH)//sy+1, (W-KW)//sx+1]
//
// Forward: for every group and output position (y, x), the receptive field
// is flattened to [N, C_in/groups*KH*KW] and multiplied against the
// group's flattened kernel, one small GEMM per position.
//
// Backward, per group and position:
//   - d_kernel += grad_pos^T @ field
//   - d_input[field] += grad_pos @ kernel_group (summed where fields overlap)
//
// References:
//   - "A guide to convolution arithmetic for deep learning" (Dumoulin & Visin, 2016)
type Conv2DOp struct{}

// NumInputs returns 2 (input, kernel).
func (Conv2DOp) NumInputs() int { return 2 }

// Forward computes the convolution and saves input and kernel.
func (Conv2DOp) Forward(ctx *Context, inputs ...*tensor.RawTensor) (*tensor.RawTensor, error) {
	be := ctx.Backend
	x, w := inputs[0], inputs[1]

	g, err := newConvGeometry(OpConv2D, x, w, ctx.Params)
	if err != nil {
		return nil, err
	}

	out, err := tensor.NewRaw(tensor.Shape{g.bs, g.cout, g.oy, g.ox}, be.Device())
	if err != nil {
		return nil, errors.Wrap(err, OpConv2D)
	}

	for gi := 0; gi < g.groups; gi++ {
		tw, err := flatKernel(be, w, g, gi)
		if err != nil {
			return nil, err
		}
		twT, err := be.Transpose(tw)
		if err != nil {
			return nil, errors.Wrap(err, OpConv2D)
		}

		for y := 0; y < g.oy; y++ {
			for xx := 0; xx < g.ox; xx++ {
				tx, err := flatField(be, x, g, gi, y, xx)
				if err != nil {
					return nil, err
				}
				ret, err := be.MatMul(tx, twT) // [bs, rcout]
				if err != nil {
					return nil, errors.Wrap(err, OpConv2D)
				}
				ret, err = be.Reshape(ret, tensor.Shape{g.bs, g.rcout, 1, 1})
				if err != nil {
					return nil, errors.Wrap(err, OpConv2D)
				}
				if out, err = be.SetSlice(out, g.outPos(gi, y, xx), ret); err != nil {
					return nil, errors.Wrap(err, OpConv2D)
				}
			}
		}
	}

	ctx.SaveForBackward(x, w)
	return out, nil
}

// Backward returns (d_input, d_kernel).
func (Conv2DOp) Backward(ctx *Context, grad *tensor.RawTensor) ([]*tensor.RawTensor, error) {
	be := ctx.Backend
	saved := ctx.SavedTensors()
	x, w := saved[0], saved[1]

	g, err := newConvGeometry(OpConv2D, x, w, ctx.Params)
	if err != nil {
		return nil, err
	}

	dx, err := tensor.NewRaw(x.Shape(), be.Device())
	if err != nil {
		return nil, errors.Wrap(err, OpConv2D)
	}
	dw, err := tensor.NewRaw(w.Shape(), be.Device())
	if err != nil {
		return nil, errors.Wrap(err, OpConv2D)
	}

	for gi := 0; gi < g.groups; gi++ {
		tw, err := flatKernel(be, w, g, gi) // [rcout, patch]
		if err != nil {
			return nil, err
		}
		dtw, err := tensor.NewRaw(tw.Shape(), be.Device())
		if err != nil {
			return nil, errors.Wrap(err, OpConv2D)
		}

		for y := 0; y < g.oy; y++ {
			for xx := 0; xx < g.ox; xx++ {
				gg, err := be.Slice(grad, g.outPos(gi, y, xx))
				if err != nil {
					return nil, errors.Wrap(err, OpConv2D)
				}
				gg, err = be.Reshape(gg, tensor.Shape{g.bs, g.rcout})
				if err != nil {
					return nil, errors.Wrap(err, OpConv2D)
				}

				tx, err := flatField(be, x, g, gi, y, xx)
				if err != nil {
					return nil, err
				}

				// d_kernel contribution: gg^T @ tx
				ggT, err := be.Transpose(gg)
				if err != nil {
					return nil, errors.Wrap(err, OpConv2D)
				}
				step, err := be.MatMul(ggT, tx)
				if err != nil {
					return nil, errors.Wrap(err, OpConv2D)
				}
				if dtw, err = be.Add(dtw, step); err != nil {
					return nil, errors.Wrap(err, OpConv2D)
				}

				// d_input contribution: gg @ tw, accumulated into the field
				dField, err := be.MatMul(gg, tw)
				if err != nil {
					return nil, errors.Wrap(err, OpConv2D)
				}
				dField, err = be.Reshape(dField, tensor.Shape{g.bs, g.rcin, g.kh, g.kw})
				if err != nil {
					return nil, errors.Wrap(err, OpConv2D)
				}
				if dx, err = be.AddSlice(dx, g.field(gi, y, xx), dField); err != nil {
					return nil, errors.Wrap(err, OpConv2D)
				}
			}
		}

		dtw, err = be.Reshape(dtw, tensor.Shape{g.rcout, g.rcin, g.kh, g.kw})
		if err != nil {
			return nil, errors.Wrap(err, OpConv2D)
		}
		if dw, err = be.AddSlice(dw, g.kernelGroup(gi), dtw); err != nil {
			return nil, errors.Wrap(err, OpConv2D)
		}
	}

	return []*tensor.RawTensor{dx, dw}, nil
}

// flatKernel returns the kernel of group gi as [C_out/groups, C_in/groups*KH*KW].
func flatKernel(be tensor.Backend, w *tensor.RawTensor, g convGeometry, gi int) (*tensor.RawTensor, error) {
	tw, err := be.Slice(w, g.kernelGroup(gi))
	if err != nil {
		return nil, errors.Wrap(err, OpConv2D)
	}
	tw, err = be.Reshape(tw, tensor.Shape{g.rcout, g.patchSize()})
	return tw, errors.Wrap(err, OpConv2D)
}

// flatField returns the receptive field of (gi, y, x) as [N, C_in/groups*KH*KW].
func flatField(be tensor.Backend, x *tensor.RawTensor, g convGeometry, gi, y, xx int) (*tensor.RawTensor, error) {
	tx, err := be.Slice(x, g.field(gi, y, xx))
	if err != nil {
		return nil, errors.Wrap(err, OpConv2D)
	}
	tx, err = be.Reshape(tx, tensor.Shape{g.bs, g.patchSize()})
	return tx, errors.Wrap(err, OpConv2D)
}
