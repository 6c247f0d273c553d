package ops

import (
	"github.com/pkg/errors"

	"github.com/born-ml/tinyad/internal/tensor"
)

// Conv2DIm2ColOp is the column-transform convolution: same results as
// Conv2DOp, restricted to stride 1 and a single group.
//
// Algorithm:
//  1. Im2Col: input [N, C_in, H, W] -> cols [N*H_out*W_out, C_in*KH*KW]
//  2. Reshape kernel: [C_out, C_in, KH, KW] -> [C_out, C_in*KH*KW]
//  3. MatMul: cols @ kernel^T -> [N*H_out*W_out, C_out]
//  4. Reshape to [N, H_out, W_out, C_out] and permute to [N, C_out, H_out, W_out]
//
// Backward:
//   - g_rows = grad permuted to [N, H_out, W_out, C_out] and flattened
//   - d_kernel = g_rows^T @ cols
//   - d_input = Col2Im(g_rows @ kernel), summing overlapping fields
type Conv2DIm2ColOp struct{}

// NumInputs returns 2 (input, kernel).
func (Conv2DIm2ColOp) NumInputs() int { return 2 }

// Forward computes the convolution as one GEMM and saves the column matrix
// and kernel.
func (Conv2DIm2ColOp) Forward(ctx *Context, inputs ...*tensor.RawTensor) (*tensor.RawTensor, error) {
	be := ctx.Backend
	x, w := inputs[0], inputs[1]

	g, err := newConvGeometry(OpConv2DIm2Col, x, w, ctx.Params)
	if err != nil {
		return nil, err
	}
	if g.groups != 1 || g.sy != 1 || g.sx != 1 {
		return nil, errors.Wrapf(tensor.ErrParameter, "%s: only groups=1 and stride=1 supported, got groups=%d stride=(%d, %d)",
			OpConv2DIm2Col, g.groups, g.sy, g.sx)
	}

	cols, err := be.Im2Col(x, g.kh, g.kw)
	if err != nil {
		return nil, errors.Wrap(err, OpConv2DIm2Col)
	}
	tw, err := be.Reshape(w, tensor.Shape{g.cout, g.patchSize()})
	if err != nil {
		return nil, errors.Wrap(err, OpConv2DIm2Col)
	}
	twT, err := be.Transpose(tw)
	if err != nil {
		return nil, errors.Wrap(err, OpConv2DIm2Col)
	}
	rows, err := be.MatMul(cols, twT)
	if err != nil {
		return nil, errors.Wrap(err, OpConv2DIm2Col)
	}
	rows, err = be.Reshape(rows, tensor.Shape{g.bs, g.oy, g.ox, g.cout})
	if err != nil {
		return nil, errors.Wrap(err, OpConv2DIm2Col)
	}
	out, err := be.Permute(rows, 0, 3, 1, 2)
	if err != nil {
		return nil, errors.Wrap(err, OpConv2DIm2Col)
	}

	ctx.SaveForBackward(cols, w)
	ctx.SaveShape(x.Shape())
	return out, nil
}

// Backward returns (d_input, d_kernel).
func (Conv2DIm2ColOp) Backward(ctx *Context, grad *tensor.RawTensor) ([]*tensor.RawTensor, error) {
	be := ctx.Backend
	saved := ctx.SavedTensors()
	cols, w := saved[0], saved[1]
	ws := w.Shape()
	cout, kh, kw := ws[0], ws[2], ws[3]

	gRows, err := be.Permute(grad, 0, 2, 3, 1)
	if err != nil {
		return nil, errors.Wrap(err, OpConv2DIm2Col)
	}
	gRows, err = be.Reshape(gRows, tensor.Shape{-1, cout})
	if err != nil {
		return nil, errors.Wrap(err, OpConv2DIm2Col)
	}

	gRowsT, err := be.Transpose(gRows)
	if err != nil {
		return nil, errors.Wrap(err, OpConv2DIm2Col)
	}
	dw, err := be.MatMul(gRowsT, cols)
	if err != nil {
		return nil, errors.Wrap(err, OpConv2DIm2Col)
	}
	dw, err = be.Reshape(dw, ws)
	if err != nil {
		return nil, errors.Wrap(err, OpConv2DIm2Col)
	}

	tw, err := be.Reshape(w, tensor.Shape{cout, -1})
	if err != nil {
		return nil, errors.Wrap(err, OpConv2DIm2Col)
	}
	dCols, err := be.MatMul(gRows, tw)
	if err != nil {
		return nil, errors.Wrap(err, OpConv2DIm2Col)
	}
	dx, err := be.Col2Im(dCols, ctx.SavedShape(), kh, kw)
	if err != nil {
		return nil, errors.Wrap(err, OpConv2DIm2Col)
	}

	return []*tensor.RawTensor{dx, dw}, nil
}
