// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor defines the shapes, activation kinds and compute backend
// interface shared by networks and backends.
//
// # Overview
//
// Every layer output is a cube of Planes x ImageSize x ImageSize float32
// values per example, stored row-major in a flat slice:
//
//	shape := tensor.Shape{Planes: 8, ImageSize: 14}
//	shape.CubeSize() // 1568
//
// A Backend runs the numerical kernels (matrix multiply, convolution, max
// pooling, activations) on one device. Kernels complete before they return.
//
//	var b tensor.Backend = cpu.New()
//	fmt.Println(b.Name(), b.Device())
package tensor
