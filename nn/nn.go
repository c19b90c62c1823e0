// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/born-ml/layernet/internal/net"
	"github.com/born-ml/layernet/tensor"
)

// Network is an ordered sequence of layers sharing one backend.
type Network = net.Network

// ParameterState ties one weight-bearing layer to its trainer states.
type ParameterState = net.ParameterState

// Errors.
var (
	ErrConfiguration = net.ErrConfiguration
	ErrStructural    = net.ErrStructural
)

// New creates an empty network on backend.
func New(backend tensor.Backend) *Network {
	return net.New(backend)
}

// NewWithInput creates a network whose first layer takes images of
// planes x size x size.
func NewWithInput(backend tensor.Backend, planes, size int) (*Network, error) {
	return net.NewWithInput(backend, planes, size)
}
