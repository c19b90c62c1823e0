// Package optim implements the weight-update rules used to train networks.
//
// This package provides:
//   - Trainer: creates per-buffer update state
//   - State: applies one update to a weight buffer from its gradients
//   - SGD: stochastic gradient descent with momentum and weight decay
//   - Adam: adaptive moment estimation
//
// A network attaches a Trainer once and asks it for one State per weight
// buffer and one per bias buffer. States persist across batches and epochs,
// which is where momentum and moment estimates live.
//
// Example usage:
//
//	n.SetTrainer(&optim.SGD{LearningRate: 0.01, Momentum: 0.9})
//	for batch := range batches {
//	    _ = n.Forward(ctx, batch.Images)
//	    _ = n.BackwardFromLabels(ctx, batch.Labels)
//	    _ = n.UpdateWeights()
//	}
package optim

// Trainer creates update state for weight buffers.
type Trainer interface {
	// NewState returns state for a buffer of n values.
	NewState(n int) State
	String() string
}

// State updates one weight buffer in place from its gradients.
//
// Implementations panic if len(weights) or len(grads) differ from the size
// the state was created for.
type State interface {
	Update(weights, grads []float32)
}
