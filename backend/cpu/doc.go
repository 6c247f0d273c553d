// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides a pure Go CPU backend for tensor operations.
//
// # Overview
//
// This package implements tensor.Backend with:
//   - Pure Go implementation (no CGO)
//   - gonum BLAS for matrix products and vector kernels
//   - Im2col/col2im transforms for GEMM convolutions
//   - Exact-shape arithmetic (no broadcasting)
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/tinyad/autodiff"
//	    "github.com/born-ml/tinyad/backend/cpu"
//	    "github.com/born-ml/tinyad/tensor"
//	)
//
//	func main() {
//	    g := autodiff.NewGraph(cpu.New())
//	    x, _ := g.Ones(tensor.Shape{2, 3}, true)
//	}
//
// # Thread Safety
//
// The CPU backend holds no mutable state and is safe for concurrent use.
package cpu
