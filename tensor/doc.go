// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the float64 buffers and backend contract used by
// the autodiff engine.
//
// # Overview
//
// A RawTensor is a dense, row-major, immutable-by-convention float64
// buffer with a Shape and a Device tag. A Backend computes on RawTensors;
// backend/cpu is the reference implementation.
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/tinyad/backend/cpu"
//	    "github.com/born-ml/tinyad/tensor"
//	)
//
//	func main() {
//	    backend := cpu.New()
//
//	    x, _ := tensor.FromSlice([]float64{1, 2, 3, 4}, tensor.Shape{2, 2}, tensor.CPU)
//	    y, _ := tensor.Ones(tensor.Shape{2, 2}, tensor.CPU)
//	    z, _ := backend.Add(x, y) // [2 3 4 5]
//	}
//
// # Shapes
//
// Operations require exact shape agreement; there is no implicit
// broadcasting. Failures wrap ErrShape or ErrParameter and can be matched
// with errors.Is.
package tensor
