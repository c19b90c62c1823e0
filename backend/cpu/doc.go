// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides the pure Go reference backend.
//
// # Overview
//
// This package implements every tensor.Backend kernel on the CPU:
//   - Matrix multiplication through gonum BLAS
//   - Im2col-based convolutions and their gradients
//   - Max pooling with recorded selectors
//   - Elementwise activations
//
// Batch loops are split across goroutines. NewWithWorkers(1) runs every
// kernel on the calling goroutine, which makes results bit-for-bit
// reproducible.
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/layernet/backend/cpu"
//	    "github.com/born-ml/layernet/nn"
//	)
//
//	func main() {
//	    n := nn.New(cpu.New())
//	    _ = n.AddLayer(&nn.InputConfig{NumPlanes: 1, ImageSize: 28})
//	}
//
// # Thread Safety
//
// The CPU backend holds no mutable state; it is safe for concurrent use.
package cpu
