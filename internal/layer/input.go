package layer

import (
	"fmt"

	"github.com/born-ml/layernet/internal/tensor"
)

// InputConfig describes the layer that receives raw images.
type InputConfig struct {
	NumPlanes int
	ImageSize int
}

// Kind returns "input".
func (c *InputConfig) Kind() string { return "input" }

// Clone returns a copy of the config.
func (c *InputConfig) Clone() Config {
	clone := *c
	return &clone
}

// CreateLayer builds an InputLayer. previous must be nil.
func (c *InputConfig) CreateLayer(previous Layer, _ tensor.Backend) (Layer, error) {
	if previous != nil {
		return nil, configError(c.Kind(), "input layer must be the first layer")
	}
	shape := tensor.Shape{Planes: c.NumPlanes, ImageSize: c.ImageSize}
	if err := shape.Validate(); err != nil {
		return nil, configError(c.Kind(), "%v", err)
	}
	return &InputLayer{base: newBase(shape)}, nil
}

// InputLayer copies images into its output so the next layer reads a buffer
// the network owns. It never takes part in backpropagation.
type InputLayer struct {
	base
}

// IsInput reports true.
func (l *InputLayer) IsInput() bool { return true }

// NeedsBackProp reports false.
func (l *InputLayer) NeedsBackProp() bool { return false }

// Forward copies the images.
func (l *InputLayer) Forward(input []float32) {
	n := l.OutputSize()
	checkInput("input forward", input, n)
	copy(l.output[:n], input[:n])
}

// Backward panics; the input layer is never visited by backpropagation.
func (l *InputLayer) Backward([]float32) {
	panic("input layer: backward called")
}

// GradInput returns nil.
func (l *InputLayer) GradInput() []float32 { return nil }

// SetBatchSize resizes the output buffer.
func (l *InputLayer) SetBatchSize(n int) { l.resize(n) }

func (l *InputLayer) String() string {
	return fmt.Sprintf("InputLayer{outputShape=%s}", l.shape)
}
