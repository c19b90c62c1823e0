// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import "github.com/born-ml/layernet/internal/tensor"

// Backend runs compute kernels on one device.
type Backend = tensor.Backend

// Device identifies where a backend computes.
type Device = tensor.Device

// Devices.
const (
	CPU    = tensor.CPU
	WebGPU = tensor.WebGPU
)

// Shape is the per-example shape of a layer output.
type Shape = tensor.Shape

// ConvGeometry describes a batched 2D convolution.
type ConvGeometry = tensor.ConvGeometry

// PoolGeometry describes batched non-overlapping max pooling.
type PoolGeometry = tensor.PoolGeometry

// Activation is an elementwise nonlinearity.
type Activation = tensor.Activation

// Activations.
const (
	Linear     = tensor.Linear
	ReLU       = tensor.ReLU
	Tanh       = tensor.Tanh
	ScaledTanh = tensor.ScaledTanh
	Sigmoid    = tensor.Sigmoid
)

// ParseActivation maps a name such as "relu" or "tanh" to its Activation.
// The empty string selects Linear.
func ParseActivation(name string) (Activation, error) {
	return tensor.ParseActivation(name)
}
