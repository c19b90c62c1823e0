package optim

import (
	"fmt"

	"gonum.org/v1/gonum/blas/blas32"
)

// SGD implements Stochastic Gradient Descent with optional momentum and
// L2 weight decay.
//
// Update rule:
//
//	lastUpdate = momentum * lastUpdate - lr * (gradient + decay * weight)
//	weight = weight + lastUpdate
//
// With Momentum == 0 this is plain gradient descent.
type SGD struct {
	LearningRate float32
	Momentum     float32
	WeightDecay  float32
}

// NewState returns an SGDState for a buffer of n values.
func (s *SGD) NewState(n int) State {
	return &SGDState{trainer: s, lastUpdate: make([]float32, n)}
}

func (s *SGD) String() string {
	return fmt.Sprintf("SGD{learningRate=%g momentum=%g weightDecay=%g}", s.LearningRate, s.Momentum, s.WeightDecay)
}

// SGDState keeps the previous update of one buffer for momentum.
// It reads the trainer's hyperparameters on every update, so changing the
// learning rate between epochs takes effect immediately.
type SGDState struct {
	trainer    *SGD
	lastUpdate []float32
}

// LastUpdate returns the most recent update applied.
func (s *SGDState) LastUpdate() []float32 { return s.lastUpdate }

// Update applies one SGD step.
func (s *SGDState) Update(weights, grads []float32) {
	n := len(s.lastUpdate)
	if len(weights) != n || len(grads) != n {
		panic(fmt.Sprintf("sgd: state has %d values, got weights=%d grads=%d", n, len(weights), len(grads)))
	}
	if n == 0 {
		return
	}
	last := blas32.Vector{N: n, Inc: 1, Data: s.lastUpdate}
	w := blas32.Vector{N: n, Inc: 1, Data: weights}
	g := blas32.Vector{N: n, Inc: 1, Data: grads}

	lr := s.trainer.LearningRate
	blas32.Scal(s.trainer.Momentum, last)
	blas32.Axpy(-lr, g, last)
	if decay := s.trainer.WeightDecay; decay != 0 {
		blas32.Axpy(-lr*decay, w, last)
	}
	blas32.Axpy(1, last, w)
}
