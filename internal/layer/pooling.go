package layer

import (
	"fmt"

	"github.com/born-ml/layernet/internal/tensor"
)

// PoolingConfig describes non-overlapping max pooling.
//
// With PadZeros a partial window at the right and bottom border still
// produces an output value.
type PoolingConfig struct {
	PoolingSize int
	PadZeros    bool
}

// Kind returns "pool".
func (c *PoolingConfig) Kind() string { return "pool" }

// Clone returns a copy of the config.
func (c *PoolingConfig) Clone() Config {
	clone := *c
	return &clone
}

// CreateLayer builds a PoolingLayer on top of previous.
func (c *PoolingConfig) CreateLayer(previous Layer, backend tensor.Backend) (Layer, error) {
	if err := requirePrevious(c.Kind(), previous); err != nil {
		return nil, err
	}
	if c.PoolingSize <= 0 {
		return nil, configError(c.Kind(), "poolingSize must be positive, got %d", c.PoolingSize)
	}
	geom := tensor.PoolGeometry{
		Batch:    1,
		Planes:   previous.OutputPlanes(),
		InSize:   previous.OutputImageSize(),
		PoolSize: c.PoolingSize,
		PadZeros: c.PadZeros,
	}
	if geom.OutSize() <= 0 {
		return nil, configError(c.Kind(), "pooling size %d larger than image size %d", c.PoolingSize, geom.InSize)
	}

	l := &PoolingLayer{
		base:          newBase(tensor.Shape{Planes: geom.Planes, ImageSize: geom.OutSize()}),
		config:        *c,
		backend:       backend,
		geom:          geom,
		needsBackProp: previous.NeedsBackProp(),
	}
	l.SetBatchSize(1)
	return l, nil
}

// PoolingLayer keeps the per-plane maximum of every window and remembers
// where it came from so gradients can be routed back.
type PoolingLayer struct {
	base
	config        PoolingConfig
	backend       tensor.Backend
	geom          tensor.PoolGeometry
	needsBackProp bool

	selectors []int32
	gradInput []float32
}

// NeedsBackProp mirrors the previous layer.
func (l *PoolingLayer) NeedsBackProp() bool { return l.needsBackProp }

// SetBatchSize resizes every per-example buffer.
func (l *PoolingLayer) SetBatchSize(n int) {
	l.resize(n)
	l.geom.Batch = n
	l.selectors = growInt32(l.selectors, l.OutputSize())
	if l.needsBackProp {
		l.gradInput = grow(l.gradInput, n*l.geom.Planes*l.geom.InSize*l.geom.InSize)
	}
}

// Forward pools the input.
func (l *PoolingLayer) Forward(input []float32) {
	checkInput("pool forward", input, l.batchSize*l.geom.Planes*l.geom.InSize*l.geom.InSize)
	l.backend.MaxPool2D(l.Output(), l.selectors, input, l.geom)
}

// Backward routes gradients to the selected inputs.
func (l *PoolingLayer) Backward(gradOutput []float32) {
	checkInput("pool backward", gradOutput, l.OutputSize())
	l.backend.MaxPool2DBackward(l.gradInput, gradOutput, l.selectors, l.geom)
}

// GradInput returns the input gradient, or nil when not needed.
func (l *PoolingLayer) GradInput() []float32 {
	if !l.needsBackProp {
		return nil
	}
	return l.gradInput
}

func (l *PoolingLayer) String() string {
	return fmt.Sprintf("PoolingLayer{poolingSize=%d padZeros=%t inputImageSize=%d outputShape=%s}",
		l.config.PoolingSize, l.config.PadZeros, l.geom.InSize, l.shape)
}
