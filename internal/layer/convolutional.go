package layer

import (
	"fmt"

	"github.com/born-ml/layernet/internal/tensor"
)

// ConvolutionalConfig describes a stride-1 convolution over all input planes.
//
// With PadZeros the input is padded by FilterSize/2 on every side, so odd
// filter sizes preserve the image size. InputPlanes, when positive, must match
// the predecessor's plane count.
type ConvolutionalConfig struct {
	NumFilters  int
	FilterSize  int
	PadZeros    bool
	Activation  tensor.Activation
	Biased      bool
	InputPlanes int
}

// Kind returns "conv".
func (c *ConvolutionalConfig) Kind() string { return "conv" }

// Clone returns a copy of the config.
func (c *ConvolutionalConfig) Clone() Config {
	clone := *c
	return &clone
}

// CreateLayer builds a ConvolutionalLayer on top of previous.
func (c *ConvolutionalConfig) CreateLayer(previous Layer, backend tensor.Backend) (Layer, error) {
	if err := requirePrevious(c.Kind(), previous); err != nil {
		return nil, err
	}
	if c.NumFilters <= 0 {
		return nil, configError(c.Kind(), "numFilters must be positive, got %d", c.NumFilters)
	}
	if c.FilterSize <= 0 {
		return nil, configError(c.Kind(), "filterSize must be positive, got %d", c.FilterSize)
	}
	inPlanes := previous.OutputPlanes()
	if c.InputPlanes > 0 && c.InputPlanes != inPlanes {
		return nil, configError(c.Kind(), "expects %d input planes, previous layer outputs %d", c.InputPlanes, inPlanes)
	}

	padding := 0
	if c.PadZeros {
		padding = c.FilterSize / 2
	}
	geom := tensor.ConvGeometry{
		Batch:      1,
		InPlanes:   inPlanes,
		InSize:     previous.OutputImageSize(),
		OutPlanes:  c.NumFilters,
		FilterSize: c.FilterSize,
		Padding:    padding,
	}
	if err := geom.Validate(); err != nil {
		return nil, configError(c.Kind(), "%v", err)
	}

	l := &ConvolutionalLayer{
		base:                  newBase(tensor.Shape{Planes: c.NumFilters, ImageSize: geom.OutSize()}),
		config:                *c,
		backend:               backend,
		geom:                  geom,
		previousNeedsBackProp: previous.NeedsBackProp(),
		weights:               make([]float32, geom.FilterLen()),
		weightGrads:           make([]float32, geom.FilterLen()),
	}
	if c.Biased {
		l.bias = make([]float32, c.NumFilters)
		l.biasGrads = make([]float32, c.NumFilters)
	}
	fanIn := inPlanes * c.FilterSize * c.FilterSize
	xavier(l.weights, fanIn, c.NumFilters*c.FilterSize*c.FilterSize)
	l.SetBatchSize(1)
	return l, nil
}

// ConvolutionalLayer applies NumFilters filters followed by the activation.
//
// Weights are laid out [numFilters, inputPlanes, filterSize, filterSize].
type ConvolutionalLayer struct {
	base
	config  ConvolutionalConfig
	backend tensor.Backend
	geom    tensor.ConvGeometry

	previousNeedsBackProp bool

	weights     []float32
	bias        []float32
	weightGrads []float32
	biasGrads   []float32

	input     []float32 // previous layer's output from the last Forward
	gradPre   []float32 // gradient before the activation
	gradInput []float32
}

// NeedsBackProp reports true.
func (l *ConvolutionalLayer) NeedsBackProp() bool { return true }

// SetBatchSize resizes every per-example buffer.
func (l *ConvolutionalLayer) SetBatchSize(n int) {
	l.resize(n)
	l.geom.Batch = n
	l.gradPre = grow(l.gradPre, l.OutputSize())
	if l.previousNeedsBackProp {
		l.gradInput = grow(l.gradInput, l.geom.InputLen())
	}
}

// Forward computes activation(conv(input, weights) + bias).
func (l *ConvolutionalLayer) Forward(input []float32) {
	checkInput("conv forward", input, l.geom.InputLen())
	l.input = input
	out := l.Output()

	l.backend.Conv2D(out, input, l.weights, l.geom)
	if l.bias != nil {
		area := l.shape.PlaneArea()
		for b := 0; b < l.batchSize; b++ {
			for f, bias := range l.bias {
				plane := out[(b*l.config.NumFilters+f)*area : (b*l.config.NumFilters+f+1)*area]
				for i := range plane {
					plane[i] += bias
				}
			}
		}
	}
	l.backend.Activate(out, out, len(out), l.config.Activation)
}

// Backward computes weight and bias gradients, and the input gradient when
// the previous layer needs it.
func (l *ConvolutionalLayer) Backward(gradOutput []float32) {
	n := l.OutputSize()
	checkInput("conv backward", gradOutput, n)
	l.backend.ActivateBackward(l.gradPre, gradOutput, l.Output(), n, l.config.Activation)

	l.backend.Conv2DFilterBackward(l.weightGrads, l.gradPre, l.input, l.geom)
	if l.biasGrads != nil {
		clear(l.biasGrads)
		area := l.shape.PlaneArea()
		for b := 0; b < l.batchSize; b++ {
			for f := range l.biasGrads {
				var sum float32
				for _, g := range l.gradPre[(b*l.config.NumFilters+f)*area : (b*l.config.NumFilters+f+1)*area] {
					sum += g
				}
				l.biasGrads[f] += sum
			}
		}
	}
	if l.previousNeedsBackProp {
		l.backend.Conv2DInputBackward(l.gradInput, l.gradPre, l.weights, l.geom)
	}
}

// GradInput returns the input gradient, or nil when the previous layer does
// not need one.
func (l *ConvolutionalLayer) GradInput() []float32 {
	if !l.previousNeedsBackProp {
		return nil
	}
	return l.gradInput
}

func (l *ConvolutionalLayer) Weights() []float32     { return l.weights }
func (l *ConvolutionalLayer) Bias() []float32        { return l.bias }
func (l *ConvolutionalLayer) WeightGrads() []float32 { return l.weightGrads }
func (l *ConvolutionalLayer) BiasGrads() []float32   { return l.biasGrads }

// InitWeights overwrites the filters.
func (l *ConvolutionalLayer) InitWeights(weights []float32) error {
	return copyInto(l.config.Kind(), "weights", l.weights, weights)
}

// InitBias overwrites the bias.
func (l *ConvolutionalLayer) InitBias(bias []float32) error {
	return copyInto(l.config.Kind(), "bias", l.bias, bias)
}

func (l *ConvolutionalLayer) String() string {
	return fmt.Sprintf("ConvolutionalLayer{numFilters=%d filterSize=%d padZeros=%t activation=%s biased=%t inputShape=%dx%dx%d outputShape=%s}",
		l.config.NumFilters, l.config.FilterSize, l.config.PadZeros, l.config.Activation, l.config.Biased,
		l.geom.InPlanes, l.geom.InSize, l.geom.InSize, l.shape)
}
