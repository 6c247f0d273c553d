package ops

import (
	"github.com/pkg/errors"

	"github.com/born-ml/tinyad/internal/tensor"
)

// Params configures an operation invocation. Operations read only the
// fields they use.
type Params struct {
	// Shape is the reshape target; a single -1 is inferred.
	Shape tensor.Shape
	// Stride is (sy, sx) for conv2d.
	Stride [2]int
	// Groups is the conv2d group count.
	Groups int
	// KernelSize is (py, px) for pooling.
	KernelSize [2]int
	// Padding is (top, bottom, left, right) for pad2d.
	Padding [4]int
}

// Option sets one field of Params.
type Option func(*Params)

// NewParams returns Params with defaults (stride 1x1, one group, 2x2
// pooling kernel, no padding) and applies opts in order.
func NewParams(opts ...Option) Params {
	p := Params{
		Stride:     [2]int{1, 1},
		Groups:     1,
		KernelSize: [2]int{2, 2},
	}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// WithStride sets the convolution stride.
func WithStride(sy, sx int) Option {
	return func(p *Params) {
		p.Stride = [2]int{sy, sx}
	}
}

// Stride sets the same convolution stride on both axes.
func Stride(s int) Option {
	return WithStride(s, s)
}

// WithGroups sets the convolution group count.
func WithGroups(groups int) Option {
	return func(p *Params) {
		p.Groups = groups
	}
}

// WithKernelSize sets the pooling window.
func WithKernelSize(py, px int) Option {
	return func(p *Params) {
		p.KernelSize = [2]int{py, px}
	}
}

// WithPadding sets pad2d's (top, bottom, left, right) padding.
func WithPadding(top, bottom, left, right int) Option {
	return func(p *Params) {
		p.Padding = [4]int{top, bottom, left, right}
	}
}

// WithShape sets the reshape target.
func WithShape(shape ...int) Option {
	return func(p *Params) {
		p.Shape = append(tensor.Shape(nil), shape...)
	}
}

func (p Params) stride(name string) (int, int, error) {
	sy, sx := p.Stride[0], p.Stride[1]
	if sy <= 0 || sx <= 0 {
		return 0, 0, errors.Wrapf(tensor.ErrParameter, "%s: stride must be positive, got (%d, %d)", name, sy, sx)
	}
	return sy, sx, nil
}

func (p Params) kernelSize(name string) (int, int, error) {
	py, px := p.KernelSize[0], p.KernelSize[1]
	if py <= 0 || px <= 0 {
		return 0, 0, errors.Wrapf(tensor.ErrParameter, "%s: kernel size must be positive, got (%d, %d)", name, py, px)
	}
	return py, px, nil
}
