// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package autodiff_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/go-logr/logr/funcr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/tinyad/autodiff"
	"github.com/born-ml/tinyad/backend/cpu"
	"github.com/born-ml/tinyad/tensor"
)

func ExampleGraph() {
	g := autodiff.NewGraph(cpu.New())

	x, _ := g.FromSlice([]float64{1, 3, 2, 4}, tensor.Shape{1, 1, 2, 2}, true)
	p, _ := x.MaxPool2D(autodiff.WithKernelSize(2, 2))

	_ = p.Backward(nil)
	fmt.Println(p.Data())
	fmt.Println(x.Grad().Data())
	// Output:
	// [4]
	// [0 0 0 1]
}

func ExampleTensor_Conv2D() {
	g := autodiff.NewGraph(cpu.New())

	x, _ := g.Ones(tensor.Shape{1, 1, 3, 3}, true)
	w, _ := g.Ones(tensor.Shape{1, 1, 2, 2}, true)
	out, _ := x.Conv2D(w, autodiff.Stride(1))
	loss, _ := out.Sum()

	_ = loss.Backward(nil)
	fmt.Println(out.Shape(), out.Data())
	fmt.Println(x.Grad().Data())
	// Output:
	// (1, 1, 2, 2) [4 4 4 4]
	// [1 2 1 2 4 2 1 2 1]
}

func TestGraph_Logging(t *testing.T) {
	var lines []string
	logger := funcr.New(func(prefix, args string) {
		lines = append(lines, args)
	}, funcr.Options{Verbosity: 5})

	g := autodiff.NewGraph(cpu.New(), autodiff.WithLogger(logger))
	x, err := g.FromSlice([]float64{2}, tensor.Shape{1}, true)
	require.NoError(t, err)
	y, err := x.Mul(x)
	require.NoError(t, err)
	require.NoError(t, y.Backward(nil))

	_, err = x.Apply("softmax", nil)
	require.True(t, errors.Is(err, autodiff.ErrUnknownOp))

	log := strings.Join(lines, "\n")
	assert.Contains(t, log, "applied operation")
	assert.Contains(t, log, "backward pass complete")
	assert.Contains(t, log, "operation failed")
}

func TestRegister_Default(t *testing.T) {
	fn, ok := autodiff.Lookup(autodiff.OpConv2DIm2Col)
	require.True(t, ok)

	autodiff.Register("conv2d_gemm", fn)
	got, ok := autodiff.Lookup("conv2d_gemm")
	require.True(t, ok)
	assert.Equal(t, fn, got)

	// Graphs on the default registry resolve the new name.
	g := autodiff.NewGraph(cpu.New())
	x, err := g.Ones(tensor.Shape{1, 1, 3, 3}, true)
	require.NoError(t, err)
	w, err := g.Ones(tensor.Shape{1, 1, 2, 2}, true)
	require.NoError(t, err)
	out, err := x.Apply("conv2d_gemm", []*autodiff.Tensor{w})
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 4, 4, 4}, out.Data())

	// Fresh registries hold only the built-ins.
	_, ok = autodiff.NewRegistry().Get("conv2d_gemm")
	assert.False(t, ok)
}
