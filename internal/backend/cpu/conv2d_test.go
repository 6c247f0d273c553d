package cpu

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/tinyad/internal/tensor"
)

// TestIm2Col_Layout checks row/column ordering of the column matrix.
func TestIm2Col_Layout(t *testing.T) {
	backend := New()

	// Input: [1, 1, 3, 3] with values 1..9
	x := mustRaw(t, seq(9), 1, 1, 3, 3)

	cols, err := backend.Im2Col(x, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{4, 4}, cols.Shape())

	// One row per output position, each the flattened 2x2 patch.
	assert.Equal(t, []float64{
		1, 2, 4, 5,
		2, 3, 5, 6,
		4, 5, 7, 8,
		5, 6, 8, 9,
	}, cols.Data())
}

// TestCol2Im_SumsOverlaps checks that col2im accumulates overlapping patches.
func TestCol2Im_SumsOverlaps(t *testing.T) {
	backend := New()

	ones, err := tensor.Ones(tensor.Shape{4, 4}, tensor.CPU)
	require.NoError(t, err)

	img, err := backend.Col2Im(ones, tensor.Shape{1, 1, 3, 3}, 2, 2)
	require.NoError(t, err)

	// Each cell counts how many 2x2 windows cover it.
	assert.Equal(t, []float64{
		1, 2, 1,
		2, 4, 2,
		1, 2, 1,
	}, img.Data())
}

// TestIm2Col_Adjoint checks <im2col(x), c> == <x, col2im(c)> on a
// multi-channel, multi-batch input.
func TestIm2Col_Adjoint(t *testing.T) {
	backend := New()
	shape := tensor.Shape{2, 3, 4, 5}

	x := mustRaw(t, seq(shape.NumElements()), shape...)
	cols, err := backend.Im2Col(x, 2, 3)
	require.NoError(t, err)

	c := make([]float64, cols.NumElements())
	for i := range c {
		c[i] = float64(i%7) - 3
	}
	cRaw := mustRaw(t, c, cols.Shape()...)

	img, err := backend.Col2Im(cRaw, shape, 2, 3)
	require.NoError(t, err)

	var lhs, rhs float64
	for i, v := range cols.Data() {
		lhs += v * c[i]
	}
	for i, v := range x.Data() {
		rhs += v * img.Data()[i]
	}
	assert.InDelta(t, lhs, rhs, 1e-9)
}

func TestIm2Col_Errors(t *testing.T) {
	backend := New()

	_, err := backend.Im2Col(mustRaw(t, seq(4), 2, 2), 1, 1)
	assert.True(t, errors.Is(err, tensor.ErrShape))

	_, err = backend.Im2Col(mustRaw(t, seq(4), 1, 1, 2, 2), 3, 3)
	assert.True(t, errors.Is(err, tensor.ErrShape))

	ones, err := tensor.Ones(tensor.Shape{3, 4}, tensor.CPU)
	require.NoError(t, err)
	_, err = backend.Col2Im(ones, tensor.Shape{1, 1, 3, 3}, 2, 2)
	assert.True(t, errors.Is(err, tensor.ErrShape))
}
