package ops

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/born-ml/tinyad/internal/backend/cpu"
	"github.com/born-ml/tinyad/internal/tensor"
)

func newTestContext(opts ...Option) *Context {
	return NewContext(cpu.New(), NewParams(opts...))
}

func mustRaw(t *testing.T, data []float64, shape ...int) *tensor.RawTensor {
	t.Helper()
	raw, err := tensor.FromSlice(data, tensor.Shape(shape), tensor.CPU)
	require.NoError(t, err)
	return raw
}

func onesLike(t *testing.T, x *tensor.RawTensor) *tensor.RawTensor {
	t.Helper()
	raw, err := tensor.Ones(x.Shape(), tensor.CPU)
	require.NoError(t, err)
	return raw
}

// randRaw fills a tensor with values uniform in [lo, hi).
func randRaw(t *testing.T, rng *rand.Rand, lo, hi float64, shape ...int) *tensor.RawTensor {
	t.Helper()
	data := make([]float64, tensor.Shape(shape).NumElements())
	for i := range data {
		data[i] = lo + (hi-lo)*rng.Float64()
	}
	return mustRaw(t, data, shape...)
}

// run applies fn forward and then backward with grad (ones when nil).
func run(t *testing.T, fn Function, ctx *Context, grad *tensor.RawTensor, inputs ...*tensor.RawTensor) (*tensor.RawTensor, []*tensor.RawTensor) {
	t.Helper()
	out, err := fn.Forward(ctx, inputs...)
	require.NoError(t, err)
	if grad == nil {
		grad = onesLike(t, out)
	}
	grads, err := fn.Backward(ctx, grad)
	require.NoError(t, err)
	require.Len(t, grads, fn.NumInputs())
	for i, g := range grads {
		require.Equal(t, inputs[i].Shape(), g.Shape(), "gradient %d shape", i)
	}
	return out, grads
}
