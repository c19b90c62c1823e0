package optim

import (
	"fmt"
	"math"
)

// Adam implements the Adam (Adaptive Moment Estimation) optimizer.
//
// Update rule:
//
//	m_t = beta1 * m_{t-1} + (1-beta1) * gradient       // First moment
//	v_t = beta2 * v_{t-1} + (1-beta2) * gradient²      // Second moment
//	m_hat = m_t / (1 - beta1^t)                        // Bias correction
//	v_hat = v_t / (1 - beta2^t)                        // Bias correction
//	param = param - lr * m_hat / (sqrt(v_hat) + eps)   // Parameter update
//
// Zero fields take the defaults lr=0.001, betas=(0.9, 0.999), eps=1e-8.
//
// Reference: "Adam: A Method for Stochastic Optimization" (Kingma & Ba, 2014)
type Adam struct {
	LearningRate float32
	Beta1        float32
	Beta2        float32
	Eps          float32
}

func (a *Adam) withDefaults() Adam {
	c := *a
	if c.LearningRate == 0 {
		c.LearningRate = 0.001
	}
	if c.Beta1 == 0 {
		c.Beta1 = 0.9
	}
	if c.Beta2 == 0 {
		c.Beta2 = 0.999
	}
	if c.Eps == 0 {
		c.Eps = 1e-8
	}
	return c
}

// NewState returns an AdamState for a buffer of n values.
func (a *Adam) NewState(n int) State {
	return &AdamState{trainer: a, m: make([]float32, n), v: make([]float32, n)}
}

func (a *Adam) String() string {
	c := a.withDefaults()
	return fmt.Sprintf("Adam{learningRate=%g beta1=%g beta2=%g eps=%g}", c.LearningRate, c.Beta1, c.Beta2, c.Eps)
}

// AdamState holds the moment estimates and timestep of one buffer.
type AdamState struct {
	trainer *Adam
	m, v    []float32
	t       int
}

// Update applies one Adam step.
func (s *AdamState) Update(weights, grads []float32) {
	n := len(s.m)
	if len(weights) != n || len(grads) != n {
		panic(fmt.Sprintf("adam: state has %d values, got weights=%d grads=%d", n, len(weights), len(grads)))
	}
	c := s.trainer.withDefaults()
	s.t++
	biasCorrection1 := float32(1.0 - math.Pow(float64(c.Beta1), float64(s.t)))
	biasCorrection2 := float32(1.0 - math.Pow(float64(c.Beta2), float64(s.t)))

	for i, g := range grads {
		s.m[i] = c.Beta1*s.m[i] + (1-c.Beta1)*g
		s.v[i] = c.Beta2*s.v[i] + (1-c.Beta2)*g*g
		mHat := s.m[i] / biasCorrection1
		vHat := s.v[i] / biasCorrection2
		weights[i] -= c.LearningRate * mHat / (float32(math.Sqrt(float64(vHat))) + c.Eps)
	}
}
