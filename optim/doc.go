// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides the trainers that update network weights.
//
// # Overview
//
// A Trainer holds hyperparameters only. The network asks it for one State
// per weight and bias buffer of every weight-bearing layer; states carry
// per-buffer history such as momentum and live as long as the network.
//
//   - SGD: stochastic gradient descent with momentum and weight decay
//   - Adam: adaptive moment estimation with bias correction
//
// # Basic Usage
//
//	n.SetTrainer(&optim.SGD{LearningRate: 0.01, Momentum: 0.9})
//	for _, batch := range batches {
//	    _ = n.Forward(ctx, batch.Images)
//	    _ = n.BackwardFromLabels(ctx, batch.Labels)
//	    _ = n.UpdateWeights()
//	}
//
// # SGD
//
// Each step computes
//
//	update = momentum*update - learningRate*(grad + weightDecay*w)
//	w += update
package optim
