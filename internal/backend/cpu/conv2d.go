package cpu

import (
	"github.com/pkg/errors"

	"github.com/born-ml/tinyad/internal/tensor"
)

// Im2Col transforms a [N, C, H, W] input into a column matrix for a
// stride-1, unpadded convolution with a KH x KW kernel.
//
// Output: [N * H_out * W_out, C * KH * KW] where H_out = H-KH+1, W_out = W-KW+1.
//
// Each row corresponds to one output position (n, out_h, out_w) in that
// order; each column to one kernel weight (c, kh, kw). The convolution then
// becomes a single matrix multiplication against the kernel reshaped to
// [C_out, C*KH*KW] and transposed.
//
// Reference: "High Performance Convolutional Neural Networks for Document Processing"
// (Chellapilla et al., 2006).
func (cpu *CPUBackend) Im2Col(x *tensor.RawTensor, kh, kw int) (*tensor.RawTensor, error) {
	shape := x.Shape()
	if len(shape) != 4 {
		return nil, errors.Wrapf(tensor.ErrShape, "im2col: input must be 4D [N,C,H,W], got %v", shape)
	}
	N, C, H, W := shape[0], shape[1], shape[2], shape[3]
	HOut, WOut := H-kh+1, W-kw+1
	if kh <= 0 || kw <= 0 || HOut <= 0 || WOut <= 0 {
		return nil, errors.Wrapf(tensor.ErrShape, "im2col: kernel %dx%d does not fit input %v", kh, kw, shape)
	}

	colWidth := C * kh * kw
	cols, err := tensor.NewRaw(tensor.Shape{N * HOut * WOut, colWidth}, cpu.device)
	if err != nil {
		return nil, errors.Wrap(err, "im2col")
	}

	src := x.Data()
	colBuf := cols.Data()
	forEachPatch(N, C, H, W, kh, kw, HOut, WOut, func(bufIdx, inputIdx int) {
		colBuf[bufIdx] = src[inputIdx]
	})
	return cols, nil
}

// Col2Im is the adjoint of Im2Col: it scatters a [N*H_out*W_out, C*KH*KW]
// column matrix back into an image of the given [N, C, H, W] shape,
// summing the contributions of overlapping receptive fields.
func (cpu *CPUBackend) Col2Im(cols *tensor.RawTensor, shape tensor.Shape, kh, kw int) (*tensor.RawTensor, error) {
	if len(shape) != 4 {
		return nil, errors.Wrapf(tensor.ErrShape, "col2im: image shape must be 4D [N,C,H,W], got %v", shape)
	}
	N, C, H, W := shape[0], shape[1], shape[2], shape[3]
	HOut, WOut := H-kh+1, W-kw+1
	if kh <= 0 || kw <= 0 || HOut <= 0 || WOut <= 0 {
		return nil, errors.Wrapf(tensor.ErrShape, "col2im: kernel %dx%d does not fit image %v", kh, kw, shape)
	}

	want := tensor.Shape{N * HOut * WOut, C * kh * kw}
	if !cols.Shape().Equal(want) {
		return nil, errors.Wrapf(tensor.ErrShape, "col2im: columns have shape %v, want %v", cols.Shape(), want)
	}

	img, err := tensor.NewRaw(shape, cpu.device)
	if err != nil {
		return nil, errors.Wrap(err, "col2im")
	}

	colBuf := cols.Data()
	dst := img.Data()
	forEachPatch(N, C, H, W, kh, kw, HOut, WOut, func(bufIdx, inputIdx int) {
		dst[inputIdx] += colBuf[bufIdx]
	})
	return img, nil
}

// forEachPatch visits every (column-matrix index, image index) pair of the
// im2col layout in column-matrix order.
func forEachPatch(N, C, H, W, KH, KW, HOut, WOut int, visit func(bufIdx, inputIdx int)) {
	bufIdx := 0
	for n := 0; n < N; n++ {
		for outH := 0; outH < HOut; outH++ {
			for outW := 0; outW < WOut; outW++ {
				for c := 0; c < C; c++ {
					for kh := 0; kh < KH; kh++ {
						for kw := 0; kw < KW; kw++ {
							h := outH + kh
							w := outW + kw
							visit(bufIdx, n*C*H*W+c*H*W+h*W+w)
							bufIdx++
						}
					}
				}
			}
		}
	}
}
