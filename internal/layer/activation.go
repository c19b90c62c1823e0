package layer

import (
	"fmt"

	"github.com/born-ml/layernet/internal/tensor"
)

// ActivationConfig describes a standalone element-wise activation.
type ActivationConfig struct {
	Activation tensor.Activation
}

// Kind returns "activation".
func (c *ActivationConfig) Kind() string { return "activation" }

// Clone returns a copy of the config.
func (c *ActivationConfig) Clone() Config {
	clone := *c
	return &clone
}

// CreateLayer builds an ActivationLayer with the previous layer's shape.
func (c *ActivationConfig) CreateLayer(previous Layer, backend tensor.Backend) (Layer, error) {
	if err := requirePrevious(c.Kind(), previous); err != nil {
		return nil, err
	}
	l := &ActivationLayer{
		base:          newBase(previous.OutputShape()),
		activation:    c.Activation,
		backend:       backend,
		needsBackProp: previous.NeedsBackProp(),
	}
	l.SetBatchSize(1)
	return l, nil
}

// ActivationLayer applies an activation function without weights.
type ActivationLayer struct {
	base
	activation    tensor.Activation
	backend       tensor.Backend
	needsBackProp bool
	gradInput     []float32
}

// NeedsBackProp mirrors the previous layer.
func (l *ActivationLayer) NeedsBackProp() bool { return l.needsBackProp }

// SetBatchSize resizes every per-example buffer.
func (l *ActivationLayer) SetBatchSize(n int) {
	l.resize(n)
	if l.needsBackProp {
		l.gradInput = grow(l.gradInput, l.OutputSize())
	}
}

func (l *ActivationLayer) Forward(input []float32) {
	n := l.OutputSize()
	checkInput("activation forward", input, n)
	l.backend.Activate(l.Output(), input, n, l.activation)
}

func (l *ActivationLayer) Backward(gradOutput []float32) {
	n := l.OutputSize()
	checkInput("activation backward", gradOutput, n)
	l.backend.ActivateBackward(l.gradInput, gradOutput, l.Output(), n, l.activation)
}

func (l *ActivationLayer) GradInput() []float32 {
	if !l.needsBackProp {
		return nil
	}
	return l.gradInput
}

func (l *ActivationLayer) String() string {
	return fmt.Sprintf("ActivationLayer{activation=%s shape=%s}", l.activation, l.shape)
}
