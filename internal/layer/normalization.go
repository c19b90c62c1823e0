package layer

import (
	"fmt"

	"github.com/born-ml/layernet/internal/tensor"
)

// NormalizationConfig shifts and scales every input value: (x + Translate) * Scale.
// Typical values come from dataset statistics: Translate = -mean, Scale = 1/stddev.
type NormalizationConfig struct {
	Translate float32
	Scale     float32
}

// Kind returns "normalization".
func (c *NormalizationConfig) Kind() string { return "normalization" }

// Clone returns a copy of the config.
func (c *NormalizationConfig) Clone() Config {
	clone := *c
	return &clone
}

// CreateLayer builds a NormalizationLayer with the previous layer's shape.
func (c *NormalizationConfig) CreateLayer(previous Layer, _ tensor.Backend) (Layer, error) {
	if err := requirePrevious(c.Kind(), previous); err != nil {
		return nil, err
	}
	if c.Scale == 0 {
		return nil, configError(c.Kind(), "scale must be non-zero")
	}
	l := &NormalizationLayer{
		base:          newBase(previous.OutputShape()),
		config:        *c,
		needsBackProp: previous.NeedsBackProp(),
	}
	l.SetBatchSize(1)
	return l, nil
}

// NormalizationLayer applies a fixed affine transform.
type NormalizationLayer struct {
	base
	config        NormalizationConfig
	needsBackProp bool
	gradInput     []float32
}

func (l *NormalizationLayer) NeedsBackProp() bool { return l.needsBackProp }

func (l *NormalizationLayer) SetBatchSize(n int) {
	l.resize(n)
	if l.needsBackProp {
		l.gradInput = grow(l.gradInput, l.OutputSize())
	}
}

func (l *NormalizationLayer) Forward(input []float32) {
	out := l.Output()
	checkInput("normalization forward", input, len(out))
	for i := range out {
		out[i] = (input[i] + l.config.Translate) * l.config.Scale
	}
}

func (l *NormalizationLayer) Backward(gradOutput []float32) {
	n := l.OutputSize()
	checkInput("normalization backward", gradOutput, n)
	for i := 0; i < n; i++ {
		l.gradInput[i] = gradOutput[i] * l.config.Scale
	}
}

func (l *NormalizationLayer) GradInput() []float32 {
	if !l.needsBackProp {
		return nil
	}
	return l.gradInput
}

func (l *NormalizationLayer) String() string {
	return fmt.Sprintf("NormalizationLayer{translate=%g scale=%g}", l.config.Translate, l.config.Scale)
}
