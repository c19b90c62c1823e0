// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn builds and trains layered neural networks.
//
// # Overview
//
// A Network is an ordered sequence of layers built from Configs. Layer 0 is
// always the input layer; every later layer takes its predecessor's output
// shape as its input shape.
//
//   - Layers: input, convolutional, fully connected, max pooling,
//     activation, normalization, dropout
//   - Loss layers: softmax (cross-entropy over class labels) and square loss
//   - Persistence: YAML network descriptions and binary weight files
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/layernet/backend/cpu"
//	    "github.com/born-ml/layernet/nn"
//	    "github.com/born-ml/layernet/optim"
//	    "github.com/born-ml/layernet/tensor"
//	)
//
//	func main() {
//	    n, _ := nn.NewWithInput(cpu.New(), 1, 28)
//	    _ = n.AddLayer(&nn.ConvolutionalConfig{NumFilters: 8, FilterSize: 5, PadZeros: true, Activation: tensor.ReLU, Biased: true})
//	    _ = n.AddLayer(&nn.PoolingConfig{PoolingSize: 2})
//	    _ = n.AddLayer(&nn.FullyConnectedConfig{NumPlanes: 10, ImageSize: 1, Biased: true})
//	    _ = n.AddLayer(&nn.SoftMaxConfig{})
//
//	    _ = n.SetBatchSize(128)
//	    n.SetTrainer(&optim.SGD{LearningRate: 0.002, Momentum: 0.9})
//
//	    ctx := context.Background()
//	    _ = n.Forward(ctx, images)
//	    _ = n.BackwardFromLabels(ctx, labels)
//	    _ = n.UpdateWeights()
//	}
//
// # Backpropagation
//
// BackwardFromLabels and Backward seed the gradient at the last layer, then
// visit layers N-2 down to 1. Layers whose NeedsBackProp is false are
// skipped, and the input layer is never visited.
//
// # Errors
//
// Configuration problems wrap ErrConfiguration; calls that do not fit the
// network's structure, such as computing a loss without a loss layer, wrap
// ErrStructural. Match them with errors.Is.
package nn
