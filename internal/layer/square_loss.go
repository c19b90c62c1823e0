package layer

import (
	"fmt"

	"github.com/born-ml/layernet/internal/tensor"
)

// SquareLossConfig describes a pass-through layer scored with squared error.
type SquareLossConfig struct{}

// Kind returns "squareloss".
func (c *SquareLossConfig) Kind() string { return "squareloss" }

// Clone returns a copy of the config.
func (c *SquareLossConfig) Clone() Config { return &SquareLossConfig{} }

// CreateLayer builds a SquareLossLayer with the previous layer's shape.
func (c *SquareLossConfig) CreateLayer(previous Layer, _ tensor.Backend) (Layer, error) {
	if err := requirePrevious(c.Kind(), previous); err != nil {
		return nil, err
	}
	l := &SquareLossLayer{base: newBase(previous.OutputShape())}
	l.SetBatchSize(1)
	return l, nil
}

// SquareLossLayer outputs its input unchanged.
// Loss is 0.5 * sum((output - expected)^2); its input gradient is output - expected.
type SquareLossLayer struct {
	base
	gradInput []float32
}

func (l *SquareLossLayer) NeedsBackProp() bool { return true }

func (l *SquareLossLayer) SetBatchSize(n int) {
	l.resize(n)
	l.gradInput = grow(l.gradInput, l.OutputSize())
}

func (l *SquareLossLayer) Forward(input []float32) {
	out := l.Output()
	checkInput("squareloss forward", input, len(out))
	copy(out, input)
}

// Backward passes the gradient through unchanged.
func (l *SquareLossLayer) Backward(gradOutput []float32) {
	n := l.OutputSize()
	checkInput("squareloss backward", gradOutput, n)
	copy(l.gradInput[:n], gradOutput[:n])
}

func (l *SquareLossLayer) GradInput() []float32 { return l.gradInput }

func (l *SquareLossLayer) CalcLoss(expected []float32) (float32, error) {
	out := l.Output()
	if len(expected) < len(out) {
		return 0, fmt.Errorf("%w: squareloss: got %d expected values, need %d", ErrConfiguration, len(expected), len(out))
	}
	var loss float64
	for i, v := range out {
		d := float64(v - expected[i])
		loss += d * d
	}
	return float32(0.5 * loss), nil
}

func (l *SquareLossLayer) CalcGradInput(expected []float32) error {
	out := l.Output()
	if len(expected) < len(out) {
		return fmt.Errorf("%w: squareloss: got %d expected values, need %d", ErrConfiguration, len(expected), len(out))
	}
	for i, v := range out {
		l.gradInput[i] = v - expected[i]
	}
	return nil
}

func (l *SquareLossLayer) String() string {
	return fmt.Sprintf("SquareLossLayer{shape=%s}", l.shape)
}
