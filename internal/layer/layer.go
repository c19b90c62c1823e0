// Package layer defines the layer contract, its optional capabilities, the
// Config factories that build layers, and every concrete layer type.
//
// A Layer is always built by a Config from its predecessor:
//
//	conv, err := (&layer.ConvolutionalConfig{NumFilters: 8, FilterSize: 5}).CreateLayer(input, backend)
//
// Its output shape is fixed at construction. Buffers are host-visible
// []float32 slices owned by the layer and sized for the current batch.
package layer

import (
	"errors"
	"fmt"

	"github.com/born-ml/layernet/internal/tensor"
)

// ErrConfiguration reports a Config that cannot be built on top of its
// predecessor, or parameters of the wrong size.
var ErrConfiguration = errors.New("layer configuration error")

// Layer is one stage of a network pipeline.
//
// Forward consumes the predecessor's output (batchSize*inputCube values) and
// fully overwrites Output. Backward consumes the successor's input gradient
// and must only be called when NeedsBackProp reports true.
type Layer interface {
	Forward(input []float32)
	Backward(gradOutput []float32)
	NeedsBackProp() bool

	// Output returns the current batch's output, batchSize*OutputCubeSize values.
	Output() []float32
	// GradInput returns the gradient with respect to this layer's input, or
	// nil when the layer does not produce one.
	GradInput() []float32

	OutputShape() tensor.Shape
	OutputPlanes() int
	OutputImageSize() int
	OutputCubeSize() int
	// OutputSize is BatchSize * OutputCubeSize.
	OutputSize() int

	BatchSize() int
	SetBatchSize(n int)
	SetTraining(training bool)

	String() string
}

// Weighted is implemented by layers with trainable weights and bias.
type Weighted interface {
	Layer
	Weights() []float32
	Bias() []float32
	WeightGrads() []float32
	BiasGrads() []float32
	InitWeights(weights []float32) error
	InitBias(bias []float32) error
}

// LabelLayer is implemented by final layers that accept integer class labels.
type LabelLayer interface {
	Layer
	CalcLossFromLabels(labels []int) (float32, error)
	CalcGradInputFromLabels(labels []int) error
	CalcNumRight(labels []int) (int, error)
}

// LossLayer is implemented by final layers that accept explicit target values.
type LossLayer interface {
	Layer
	CalcLoss(expected []float32) (float32, error)
	CalcGradInput(expected []float32) error
}

// Inputter marks the layer that receives raw images.
type Inputter interface {
	Layer
	IsInput() bool
}

// Config describes one layer's hyperparameters and builds it.
//
// CreateLayer validates against previous (nil only for an input layer) and
// returns errors wrapping ErrConfiguration. Clone deep-copies hyperparameters.
type Config interface {
	CreateLayer(previous Layer, backend tensor.Backend) (Layer, error)
	Clone() Config
	Kind() string
}

// base carries the state every layer shares.
type base struct {
	shape     tensor.Shape
	batchSize int
	training  bool
	output    []float32
}

func newBase(shape tensor.Shape) base {
	return base{
		shape:     shape,
		batchSize: 1,
		training:  true,
		output:    make([]float32, shape.CubeSize()),
	}
}

func (b *base) Output() []float32         { return b.output[:b.OutputSize()] }
func (b *base) OutputShape() tensor.Shape { return b.shape }
func (b *base) OutputPlanes() int         { return b.shape.Planes }
func (b *base) OutputImageSize() int      { return b.shape.ImageSize }
func (b *base) OutputCubeSize() int       { return b.shape.CubeSize() }
func (b *base) OutputSize() int           { return b.batchSize * b.shape.CubeSize() }
func (b *base) BatchSize() int            { return b.batchSize }
func (b *base) SetTraining(training bool) { b.training = training }

// resize records the batch size and grows the output buffer.
func (b *base) resize(n int) {
	if n < 1 {
		panic(fmt.Sprintf("layer: invalid batch size %d", n))
	}
	b.batchSize = n
	b.output = grow(b.output, n*b.shape.CubeSize())
}

// grow returns buf resliced to n elements, reallocating only when its
// capacity is too small.
func grow(buf []float32, n int) []float32 {
	if cap(buf) >= n {
		return buf[:n]
	}
	return make([]float32, n)
}

func growInt32(buf []int32, n int) []int32 {
	if cap(buf) >= n {
		return buf[:n]
	}
	return make([]int32, n)
}

func checkInput(op string, input []float32, want int) {
	if len(input) < want {
		panic(fmt.Sprintf("%s: input has %d values, need %d", op, len(input), want))
	}
}

func requirePrevious(kind string, previous Layer) error {
	if previous == nil {
		return fmt.Errorf("%w: %s layer needs a previous layer", ErrConfiguration, kind)
	}
	return nil
}

func configError(kind, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrConfiguration, kind, fmt.Sprintf(format, args...))
}

func copyInto(kind, what string, dst, src []float32) error {
	if len(src) != len(dst) {
		return configError(kind, "%s has %d values, need %d", what, len(src), len(dst))
	}
	copy(dst, src)
	return nil
}
