// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import "github.com/born-ml/layernet/internal/layer"

// Layer is a runtime layer instance.
type Layer = layer.Layer

// Optional layer capabilities.
type (
	Weighted   = layer.Weighted
	LabelLayer = layer.LabelLayer
	LossLayer  = layer.LossLayer
	Inputter   = layer.Inputter
)

// Config describes one layer and builds it.
type Config = layer.Config

// Layer configs.
type (
	InputConfig          = layer.InputConfig
	ConvolutionalConfig  = layer.ConvolutionalConfig
	FullyConnectedConfig = layer.FullyConnectedConfig
	PoolingConfig        = layer.PoolingConfig
	ActivationConfig     = layer.ActivationConfig
	NormalizationConfig  = layer.NormalizationConfig
	DropoutConfig        = layer.DropoutConfig
	SoftMaxConfig        = layer.SoftMaxConfig
	SquareLossConfig     = layer.SquareLossConfig
)
