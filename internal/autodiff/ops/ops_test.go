package ops

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/tinyad/internal/tensor"
)

func TestAddOp(t *testing.T) {
	x := mustRaw(t, []float64{1, 2, 3, 4}, 2, 2)
	y := mustRaw(t, []float64{5, 6, 7, 8}, 2, 2)

	out, grads := run(t, AddOp{}, newTestContext(), nil, x, y)
	assert.Equal(t, []float64{6, 8, 10, 12}, out.Data())
	assert.Equal(t, []float64{1, 1, 1, 1}, grads[0].Data())
	assert.Equal(t, []float64{1, 1, 1, 1}, grads[1].Data())

	_, err := AddOp{}.Forward(newTestContext(), x, mustRaw(t, []float64{1, 2}, 1, 2))
	assert.True(t, errors.Is(err, tensor.ErrShape))
}

func TestSubOp(t *testing.T) {
	x := mustRaw(t, []float64{1, 2}, 2)
	y := mustRaw(t, []float64{5, 1}, 2)

	out, grads := run(t, SubOp{}, newTestContext(), mustRaw(t, []float64{2, 3}, 2), x, y)
	assert.Equal(t, []float64{-4, 1}, out.Data())
	assert.Equal(t, []float64{2, 3}, grads[0].Data())
	assert.Equal(t, []float64{-2, -3}, grads[1].Data())
}

func TestMulOp(t *testing.T) {
	x := mustRaw(t, []float64{2}, 1, 1)
	y := mustRaw(t, []float64{3}, 1, 1)

	out, grads := run(t, MulOp{}, newTestContext(), nil, x, y)
	assert.Equal(t, []float64{6}, out.Data())
	assert.Equal(t, []float64{3}, grads[0].Data())
	assert.Equal(t, []float64{2}, grads[1].Data())
}

func TestMulOp_SavesSnapshots(t *testing.T) {
	x := mustRaw(t, []float64{2}, 1)
	y := mustRaw(t, []float64{3}, 1)
	ctx := newTestContext()

	_, err := MulOp{}.Forward(ctx, x, y)
	require.NoError(t, err)

	// Later writes to the caller's buffers do not reach the gradient.
	x.Data()[0] = 100
	y.Data()[0] = 100

	grads, err := MulOp{}.Backward(ctx, mustRaw(t, []float64{1}, 1))
	require.NoError(t, err)
	assert.Equal(t, []float64{3}, grads[0].Data())
	assert.Equal(t, []float64{2}, grads[1].Data())
}

func TestPowOp(t *testing.T) {
	x := mustRaw(t, []float64{2, 4}, 2)
	y := mustRaw(t, []float64{3, 0.5}, 2)

	out, grads := run(t, PowOp{}, newTestContext(), nil, x, y)
	assert.InDeltaSlice(t, []float64{8, 2}, out.Data(), 1e-12)
	assert.InDeltaSlice(t, []float64{12, 0.25}, grads[0].Data(), 1e-12)
	assert.InDeltaSlice(t, []float64{8 * math.Ln2, 2 * math.Log(4)}, grads[1].Data(), 1e-12)
}

func TestSumOp(t *testing.T) {
	x := mustRaw(t, []float64{1, 2, 3, 4}, 4)

	out, grads := run(t, SumOp{}, newTestContext(), mustRaw(t, []float64{1}, 1), x)
	assert.Equal(t, tensor.Shape{1}, out.Shape())
	assert.Equal(t, []float64{10}, out.Data())
	assert.Equal(t, []float64{1, 1, 1, 1}, grads[0].Data())
}

// TestSumOp_BroadcastLaw checks that the gradient is the scalar upstream
// value replicated over the input shape.
func TestSumOp_BroadcastLaw(t *testing.T) {
	for _, shape := range []tensor.Shape{{1}, {3}, {2, 3}, {2, 1, 3, 2}} {
		x, err := tensor.Ones(shape, tensor.CPU)
		require.NoError(t, err)

		_, grads := run(t, SumOp{}, newTestContext(), mustRaw(t, []float64{2.5}, 1), x)
		for _, v := range grads[0].Data() {
			assert.Equal(t, 2.5, v)
		}
	}
}

func TestReLUOp(t *testing.T) {
	x := mustRaw(t, []float64{-2, 0, 3}, 3)

	out, grads := run(t, ReLUOp{}, newTestContext(), mustRaw(t, []float64{5, 6, 7}, 3), x)
	assert.Equal(t, []float64{0, 0, 3}, out.Data())
	// x == 0 passes the gradient through.
	assert.Equal(t, []float64{0, 6, 7}, grads[0].Data())
}

func TestSigmoidOp(t *testing.T) {
	x := mustRaw(t, []float64{0, 2, -2}, 3)

	out, grads := run(t, SigmoidOp{}, newTestContext(), nil, x)
	s := 1 / (1 + math.Exp(-2))
	assert.InDeltaSlice(t, []float64{0.5, s, 1 - s}, out.Data(), 1e-12)
	assert.InDeltaSlice(t, []float64{0.25, s * (1 - s), s * (1 - s)}, grads[0].Data(), 1e-12)
}

func TestLogSoftmaxOp(t *testing.T) {
	// The second row would overflow exp without max subtraction.
	x := mustRaw(t, []float64{1, 2, 3, 1000, 1001, 1002}, 2, 3)

	out, err := LogSoftmaxOp{}.Forward(newTestContext(), x)
	require.NoError(t, err)

	want := []float64{1, 2, 3}
	lse := 3 + math.Log(math.Exp(-2)+math.Exp(-1)+1)
	for i := range want {
		want[i] -= lse
	}
	assert.InDeltaSlice(t, append(want, want...), out.Data(), 1e-9)

	for r := 0; r < 2; r++ {
		var total float64
		for c := 0; c < 3; c++ {
			total += math.Exp(out.At(r, c))
		}
		assert.InDelta(t, 1, total, 1e-12)
	}

	_, err = LogSoftmaxOp{}.Forward(newTestContext(), mustRaw(t, []float64{1, 2}, 2))
	assert.True(t, errors.Is(err, tensor.ErrShape))
}

func TestLogSoftmaxOp_BackwardOfRowSum(t *testing.T) {
	// d/dx sum(logsoftmax(x)) = 1 - n*softmax(x)
	x := mustRaw(t, []float64{0.5, -1, 2}, 1, 3)

	out, grads := run(t, LogSoftmaxOp{}, newTestContext(), nil, x)
	for c := 0; c < 3; c++ {
		assert.InDelta(t, 1-3*math.Exp(out.At(0, c)), grads[0].At(0, c), 1e-12)
	}
}

func TestReshapeOp(t *testing.T) {
	x := mustRaw(t, []float64{1, 2, 3, 4, 5, 6}, 2, 3)

	out, grads := run(t, ReshapeOp{}, newTestContext(WithShape(3, -1)), nil, x)
	assert.Equal(t, tensor.Shape{3, 2}, out.Shape())
	assert.Equal(t, x.Data(), out.Data())
	// Gradient comes back in the original shape.
	assert.Equal(t, tensor.Shape{2, 3}, grads[0].Shape())

	_, err := ReshapeOp{}.Forward(newTestContext(WithShape(4, 2)), x)
	assert.True(t, errors.Is(err, tensor.ErrShape))

	_, err = ReshapeOp{}.Forward(newTestContext(), x)
	assert.True(t, errors.Is(err, tensor.ErrParameter))
}

func TestDotOp(t *testing.T) {
	x := mustRaw(t, []float64{1, 2, 3, 4, 5, 6}, 2, 3)
	w := mustRaw(t, []float64{1, 0, 0, 1, 1, 1}, 3, 2)

	out, grads := run(t, DotOp{}, newTestContext(), nil, x, w)
	assert.Equal(t, []float64{4, 5, 10, 11}, out.Data())
	// grad @ W^T with grad all ones: row sums of W.
	assert.Equal(t, []float64{1, 1, 2, 1, 1, 2}, grads[0].Data())
	// X^T @ grad: column sums of X.
	assert.Equal(t, []float64{5, 5, 7, 7, 9, 9}, grads[1].Data())

	_, err := DotOp{}.Forward(newTestContext(), x, x)
	assert.True(t, errors.Is(err, tensor.ErrShape))
}

func TestPad2DOp(t *testing.T) {
	x := mustRaw(t, []float64{1, 2, 3, 4}, 1, 1, 2, 2)
	ctx := newTestContext(WithPadding(0, 1, 1, 0))

	out, err := Pad2DOp{}.Forward(ctx, x)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{1, 1, 3, 3}, out.Shape())
	assert.Equal(t, []float64{0, 1, 2, 0, 3, 4, 0, 0, 0}, out.Data())

	_, err = Pad2DOp{}.Backward(ctx, onesLike(t, out))
	assert.True(t, errors.Is(err, tensor.ErrUnimplementedBackward))

	_, err = Pad2DOp{}.Forward(newTestContext(WithPadding(-1, 0, 0, 0)), x)
	assert.True(t, errors.Is(err, tensor.ErrParameter))
}

func TestMaxPool2DOp(t *testing.T) {
	x := mustRaw(t, []float64{1, 3, 2, 4}, 1, 1, 2, 2)

	out, grads := run(t, MaxPool2DOp{}, newTestContext(WithKernelSize(2, 2)), nil, x)
	assert.Equal(t, tensor.Shape{1, 1, 1, 1}, out.Shape())
	assert.Equal(t, []float64{4}, out.Data())
	assert.Equal(t, []float64{0, 0, 0, 1}, grads[0].Data())
}

func TestMaxPool2DOp_TiesGoToFirstOffset(t *testing.T) {
	x := mustRaw(t, []float64{5, 5, 5, 5}, 1, 1, 2, 2)

	_, grads := run(t, MaxPool2DOp{}, newTestContext(), nil, x)
	assert.Equal(t, []float64{1, 0, 0, 0}, grads[0].Data())
}

func TestAvgPool2DOp(t *testing.T) {
	x := mustRaw(t, []float64{
		1, 2, 3, 4,
		5, 6, 7, 8,
	}, 1, 1, 2, 4)

	out, grads := run(t, AvgPool2DOp{}, newTestContext(), mustRaw(t, []float64{4, 8}, 1, 1, 1, 2), x)
	assert.Equal(t, []float64{3.5, 5.5}, out.Data())
	assert.Equal(t, []float64{
		1, 1, 2, 2,
		1, 1, 2, 2,
	}, grads[0].Data())
}

// TestPool_PartitionLaw checks how each window's gradient is distributed.
func TestPool_PartitionLaw(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	x := randRaw(t, rng, -1, 1, 2, 2, 4, 6)
	grad := randRaw(t, rng, -1, 1, 2, 2, 2, 2)
	py, px := 2, 3

	t.Run("Max", func(t *testing.T) {
		out, grads := run(t, MaxPool2DOp{}, newTestContext(WithKernelSize(py, px)), grad, x)
		dx := grads[0]
		for n := 0; n < 2; n++ {
			for c := 0; c < 2; c++ {
				for i := 0; i < 2; i++ {
					for j := 0; j < 2; j++ {
						var mass float64
						nonzero := 0
						for y := 0; y < py; y++ {
							for xx := 0; xx < px; xx++ {
								v := dx.At(n, c, i*py+y, j*px+xx)
								mass += v
								if v != 0 {
									nonzero++
									assert.Equal(t, out.At(n, c, i, j), x.At(n, c, i*py+y, j*px+xx))
								}
							}
						}
						assert.InDelta(t, grad.At(n, c, i, j), mass, 1e-12)
						assert.Equal(t, 1, nonzero)
					}
				}
			}
		}
	})

	t.Run("Avg", func(t *testing.T) {
		_, grads := run(t, AvgPool2DOp{}, newTestContext(WithKernelSize(py, px)), grad, x)
		dx := grads[0]
		for n := 0; n < 2; n++ {
			for c := 0; c < 2; c++ {
				for h := 0; h < 4; h++ {
					for w := 0; w < 6; w++ {
						want := grad.At(n, c, h/py, w/px) / float64(py*px)
						assert.InDelta(t, want, dx.At(n, c, h, w), 1e-12)
					}
				}
			}
		}
	})
}

func TestPool_CroppedEdgesGetNoGradient(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	x := randRaw(t, rng, -1, 1, 1, 1, 5, 5)

	for _, fn := range []Function{MaxPool2DOp{}, AvgPool2DOp{}} {
		out, grads := run(t, fn, newTestContext(), nil, x)
		assert.Equal(t, tensor.Shape{1, 1, 2, 2}, out.Shape())
		for i := 0; i < 5; i++ {
			assert.Zero(t, grads[0].At(0, 0, 4, i))
			assert.Zero(t, grads[0].At(0, 0, i, 4))
		}
	}
}

func TestPool_Errors(t *testing.T) {
	x := mustRaw(t, []float64{1, 2, 3, 4}, 1, 1, 2, 2)

	for _, fn := range []Function{MaxPool2DOp{}, AvgPool2DOp{}} {
		_, err := fn.Forward(newTestContext(WithKernelSize(3, 3)), x)
		assert.True(t, errors.Is(err, tensor.ErrShape))

		_, err = fn.Forward(newTestContext(WithKernelSize(0, 2)), x)
		assert.True(t, errors.Is(err, tensor.ErrParameter))

		_, err = fn.Forward(newTestContext(), mustRaw(t, []float64{1, 2, 3, 4}, 2, 2))
		assert.True(t, errors.Is(err, tensor.ErrShape))
	}
}

func TestConv2DOp_Ones(t *testing.T) {
	x := onesLike(t, mustRaw(t, make([]float64, 9), 1, 1, 3, 3))
	w := onesLike(t, mustRaw(t, make([]float64, 4), 1, 1, 2, 2))

	for _, fn := range []Function{Conv2DOp{}, Conv2DIm2ColOp{}} {
		out, grads := run(t, fn, newTestContext(), nil, x, w)
		assert.Equal(t, tensor.Shape{1, 1, 2, 2}, out.Shape())
		assert.Equal(t, []float64{4, 4, 4, 4}, out.Data())
		assert.Equal(t, []float64{
			1, 2, 1,
			2, 4, 2,
			1, 2, 1,
		}, grads[0].Data())
		assert.Equal(t, []float64{4, 4, 4, 4}, grads[1].Data())
	}
}

func TestConv2DOp_ShapeLaw(t *testing.T) {
	rng := rand.New(rand.NewSource(11))

	tests := []struct {
		name   string
		x, w   []int
		opts   []Option
		output tensor.Shape
	}{
		{"plain", []int{1, 1, 5, 5}, []int{2, 1, 3, 3}, nil, tensor.Shape{1, 2, 3, 3}},
		{"strided", []int{2, 3, 7, 6}, []int{4, 3, 3, 2}, []Option{WithStride(2, 3)}, tensor.Shape{2, 4, 3, 2}},
		{"grouped", []int{2, 4, 7, 6}, []int{6, 2, 3, 2}, []Option{WithStride(2, 1), WithGroups(2)}, tensor.Shape{2, 6, 3, 5}},
		{"depthwise", []int{1, 3, 4, 4}, []int{3, 1, 2, 2}, []Option{WithGroups(3), Stride(2)}, tensor.Shape{1, 3, 2, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x := randRaw(t, rng, -1, 1, tt.x...)
			w := randRaw(t, rng, -1, 1, tt.w...)
			out, err := Conv2DOp{}.Forward(newTestContext(tt.opts...), x, w)
			require.NoError(t, err)
			assert.Equal(t, tt.output, out.Shape())
		})
	}
}

func TestConv2DOp_Errors(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	x := randRaw(t, rng, -1, 1, 1, 3, 4, 4)

	tests := []struct {
		name string
		w    []int
		opts []Option
		want error
	}{
		{"cin not divisible", []int{2, 1, 2, 2}, []Option{WithGroups(2)}, tensor.ErrParameter},
		{"cout not divisible", []int{2, 1, 2, 2}, []Option{WithGroups(3)}, tensor.ErrParameter},
		{"kernel channels", []int{2, 2, 2, 2}, nil, tensor.ErrShape},
		{"zero stride", []int{2, 3, 2, 2}, []Option{WithStride(0, 1)}, tensor.ErrParameter},
		{"zero groups", []int{2, 3, 2, 2}, []Option{WithGroups(0)}, tensor.ErrParameter},
		{"kernel too large", []int{2, 3, 5, 2}, nil, tensor.ErrShape},
		{"kernel not 4D", []int{2, 12}, nil, tensor.ErrShape},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := randRaw(t, rng, -1, 1, tt.w...)
			_, err := Conv2DOp{}.Forward(newTestContext(tt.opts...), x, w)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestConv2DIm2ColOp_RejectsGroupsAndStride(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	x := randRaw(t, rng, -1, 1, 1, 4, 5, 5)

	_, err := Conv2DIm2ColOp{}.Forward(newTestContext(WithGroups(2)), x, randRaw(t, rng, -1, 1, 2, 2, 2, 2))
	assert.True(t, errors.Is(err, tensor.ErrParameter))

	_, err = Conv2DIm2ColOp{}.Forward(newTestContext(Stride(2)), x, randRaw(t, rng, -1, 1, 2, 4, 2, 2))
	assert.True(t, errors.Is(err, tensor.ErrParameter))
}

// TestConv2D_Im2ColMatchesDirect checks both convolution paths agree on
// forward output and on both gradients.
func TestConv2D_Im2ColMatchesDirect(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	x := randRaw(t, rng, -1, 1, 2, 3, 5, 6)
	w := randRaw(t, rng, -1, 1, 4, 3, 3, 2)
	grad := randRaw(t, rng, -1, 1, 2, 4, 3, 5)

	outDirect, gradsDirect := run(t, Conv2DOp{}, newTestContext(), grad, x, w)
	outCols, gradsCols := run(t, Conv2DIm2ColOp{}, newTestContext(), grad, x, w)

	assert.Equal(t, outDirect.Shape(), outCols.Shape())
	assert.InDeltaSlice(t, outDirect.Data(), outCols.Data(), 1e-9)
	assert.InDeltaSlice(t, gradsDirect[0].Data(), gradsCols[0].Data(), 1e-9)
	assert.InDeltaSlice(t, gradsDirect[1].Data(), gradsCols[1].Data(), 1e-9)
}
