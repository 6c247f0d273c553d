package autodiff_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/tinyad/internal/autodiff"
	"github.com/born-ml/tinyad/internal/autodiff/ops"
	"github.com/born-ml/tinyad/internal/tensor"
)

// cnnLoss builds conv2d -> sigmoid -> max_pool2d -> reshape -> dot ->
// logsoftmax -> NLL on a fresh graph and returns the loss with the leaves
// it was computed from.
func cnnLoss(t *testing.T, x, w, v []float64, im2col bool) (loss *autodiff.Tensor, leaves []*autodiff.Tensor) {
	t.Helper()
	must := mustOK(t)

	g := newTestGraph()
	xt := mustTensor(t, g, x, true, 2, 1, 6, 6)
	wt := mustTensor(t, g, w, true, 2, 1, 3, 3)
	vt := mustTensor(t, g, v, true, 8, 3)
	onehot := mustTensor(t, g, []float64{0, 1, 0, 0, 0, 1}, false, 2, 3)

	var conv *autodiff.Tensor
	if im2col {
		conv = must(xt.Conv2DIm2Col(wt))
	} else {
		conv = must(xt.Conv2D(wt, ops.Stride(1)))
	}
	act := must(conv.Sigmoid())                             // [2, 2, 4, 4]
	pooled := must(act.MaxPool2D(ops.WithKernelSize(2, 2))) // [2, 2, 2, 2]
	flat := must(pooled.Reshape(2, -1))                     // [2, 8]
	logits := must(flat.Dot(vt))                            // [2, 3]
	logp := must(logits.LogSoftmax())
	nll := must(must(logp.Mul(onehot)).Mean())
	minusOne := must(g.Full(tensor.Shape{1}, -1, false))

	return must(nll.Mul(minusOne)), []*autodiff.Tensor{xt, wt, vt}
}

func TestBackward_MatchesFiniteDifferences(t *testing.T) {
	const (
		eps = 1e-6
		tol = 1e-6
	)

	for _, im2col := range []bool{false, true} {
		rng := rand.New(rand.NewSource(17))
		params := [][]float64{
			randSlice(rng, 2*1*6*6),
			randSlice(rng, 2*1*3*3),
			randSlice(rng, 8*3),
		}
		eval := func() float64 {
			loss, _ := cnnLoss(t, params[0], params[1], params[2], im2col)
			v, err := loss.Value().Item()
			require.NoError(t, err)
			return v
		}

		loss, leaves := cnnLoss(t, params[0], params[1], params[2], im2col)
		require.NoError(t, loss.Backward(nil))

		for i, leaf := range leaves {
			grad := leaf.Grad().Data()
			for j := range params[i] {
				orig := params[i][j]
				params[i][j] = orig + eps
				plus := eval()
				params[i][j] = orig - eps
				minus := eval()
				params[i][j] = orig

				assert.InDelta(t, (plus-minus)/(2*eps), grad[j], tol, "im2col=%v leaf %d element %d", im2col, i, j)
			}
		}
	}
}

func randSlice(rng *rand.Rand, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 2*rng.Float64() - 1
	}
	return out
}
