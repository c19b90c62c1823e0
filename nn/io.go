// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/born-ml/layernet/internal/netdef"
	"github.com/born-ml/layernet/internal/serialization"
	"github.com/born-ml/layernet/tensor"
)

// Definition is a network description read from YAML.
type Definition = netdef.Definition

// Checkpoint is the content of a weight file.
type Checkpoint = serialization.Checkpoint

// LoadDefinition reads a YAML network description.
//
// Example file:
//
//	input: {planes: 1, size: 28}
//	layers:
//	  - {type: conv, filters: 8, filterSize: 5, padZeros: true, activation: relu}
//	  - {type: pool, size: 2}
//	  - {type: fc, planes: 10}
//	  - {type: softmax}
func LoadDefinition(path string) (*Definition, error) {
	return netdef.Load(path)
}

// Build reads the YAML network description at path and builds it on
// backend.
func Build(path string, backend tensor.Backend) (*Network, error) {
	def, err := netdef.Load(path)
	if err != nil {
		return nil, err
	}
	return def.Build(backend)
}

// SaveWeights writes n's weights to path.
func SaveWeights(path string, n *Network, epoch int) error {
	return serialization.SaveFile(path, n, epoch)
}

// LoadWeights reads a weight file written by SaveWeights into n, which must
// have the same layer structure.
func LoadWeights(path string, n *Network) (*Checkpoint, error) {
	return serialization.LoadFile(path, n)
}
