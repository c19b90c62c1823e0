package layer

import (
	"fmt"
	"math/rand"

	"github.com/born-ml/layernet/internal/tensor"
)

// DropoutConfig describes inverted dropout: in training mode each value is
// zeroed with probability Ratio and survivors are scaled by 1/(1-Ratio).
// Outside training the layer is the identity.
type DropoutConfig struct {
	Ratio float32
	Seed  int64
}

// Kind returns "dropout".
func (c *DropoutConfig) Kind() string { return "dropout" }

// Clone returns a copy of the config.
func (c *DropoutConfig) Clone() Config {
	clone := *c
	return &clone
}

// CreateLayer builds a DropoutLayer with the previous layer's shape.
func (c *DropoutConfig) CreateLayer(previous Layer, _ tensor.Backend) (Layer, error) {
	if err := requirePrevious(c.Kind(), previous); err != nil {
		return nil, err
	}
	if c.Ratio < 0 || c.Ratio >= 1 {
		return nil, configError(c.Kind(), "ratio must be in [0, 1), got %g", c.Ratio)
	}
	l := &DropoutLayer{
		base:          newBase(previous.OutputShape()),
		config:        *c,
		rng:           rand.New(rand.NewSource(c.Seed)), //nolint:gosec // dropout masks are not security-critical
		needsBackProp: previous.NeedsBackProp(),
	}
	l.SetBatchSize(1)
	return l, nil
}

// DropoutLayer randomly masks values during training.
type DropoutLayer struct {
	base
	config        DropoutConfig
	rng           *rand.Rand
	needsBackProp bool

	mask      []float32 // 0 or 1/(1-ratio) per value, valid in training mode
	gradInput []float32
}

func (l *DropoutLayer) NeedsBackProp() bool { return l.needsBackProp }

func (l *DropoutLayer) SetBatchSize(n int) {
	l.resize(n)
	l.mask = grow(l.mask, l.OutputSize())
	if l.needsBackProp {
		l.gradInput = grow(l.gradInput, l.OutputSize())
	}
}

// Forward draws a fresh mask per call in training mode.
func (l *DropoutLayer) Forward(input []float32) {
	out := l.Output()
	checkInput("dropout forward", input, len(out))
	if !l.training {
		copy(out, input)
		return
	}
	keep := 1 / (1 - l.config.Ratio)
	for i := range out {
		if l.rng.Float32() < l.config.Ratio {
			l.mask[i] = 0
		} else {
			l.mask[i] = keep
		}
		out[i] = input[i] * l.mask[i]
	}
}

func (l *DropoutLayer) Backward(gradOutput []float32) {
	n := l.OutputSize()
	checkInput("dropout backward", gradOutput, n)
	if !l.training {
		copy(l.gradInput[:n], gradOutput[:n])
		return
	}
	for i := 0; i < n; i++ {
		l.gradInput[i] = gradOutput[i] * l.mask[i]
	}
}

func (l *DropoutLayer) GradInput() []float32 {
	if !l.needsBackProp {
		return nil
	}
	return l.gradInput
}

func (l *DropoutLayer) String() string {
	return fmt.Sprintf("DropoutLayer{ratio=%g training=%t}", l.config.Ratio, l.training)
}
