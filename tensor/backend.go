// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import "github.com/born-ml/tinyad/internal/tensor"

// Backend defines the primitives an autodiff graph computes with.
//
// Implementations:
//   - backend/cpu: Pure Go, gonum-accelerated inner loops
//
// Backends never mutate their operands. Graphs refuse to hand a backend
// buffers tagged with another device and report ErrDevice instead.
type Backend = tensor.Backend

// Transferer moves buffers between host memory and an accelerator.
// It is the hook a graph uses for ToAccelerated and ToHost.
type Transferer = tensor.Transferer
