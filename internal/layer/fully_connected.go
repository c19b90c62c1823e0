package layer

import (
	"fmt"

	"github.com/born-ml/layernet/internal/tensor"
)

// FullyConnectedConfig describes a dense layer producing NumPlanes planes of
// ImageSize x ImageSize values.
type FullyConnectedConfig struct {
	NumPlanes  int
	ImageSize  int
	Activation tensor.Activation
	Biased     bool
}

// Kind returns "fc".
func (c *FullyConnectedConfig) Kind() string { return "fc" }

// Clone returns a copy of the config.
func (c *FullyConnectedConfig) Clone() Config {
	clone := *c
	return &clone
}

// CreateLayer builds a FullyConnectedLayer on top of previous.
func (c *FullyConnectedConfig) CreateLayer(previous Layer, backend tensor.Backend) (Layer, error) {
	if err := requirePrevious(c.Kind(), previous); err != nil {
		return nil, err
	}
	shape := tensor.Shape{Planes: c.NumPlanes, ImageSize: c.ImageSize}
	if err := shape.Validate(); err != nil {
		return nil, configError(c.Kind(), "%v", err)
	}
	inCube := previous.OutputCubeSize()
	outCube := shape.CubeSize()

	l := &FullyConnectedLayer{
		base:                  newBase(shape),
		config:                *c,
		backend:               backend,
		inCube:                inCube,
		previousNeedsBackProp: previous.NeedsBackProp(),
		weights:               make([]float32, outCube*inCube),
		weightGrads:           make([]float32, outCube*inCube),
	}
	if c.Biased {
		l.bias = make([]float32, outCube)
		l.biasGrads = make([]float32, outCube)
	}
	xavier(l.weights, inCube, outCube)
	l.SetBatchSize(1)
	return l, nil
}

// FullyConnectedLayer computes activation(input @ W^T + b).
//
// Weights are laid out [outputCube, inputCube].
type FullyConnectedLayer struct {
	base
	config  FullyConnectedConfig
	backend tensor.Backend
	inCube  int

	previousNeedsBackProp bool

	weights     []float32
	bias        []float32
	weightGrads []float32
	biasGrads   []float32

	input     []float32
	gradPre   []float32
	gradInput []float32
}

// NeedsBackProp reports true.
func (l *FullyConnectedLayer) NeedsBackProp() bool { return true }

// SetBatchSize resizes every per-example buffer.
func (l *FullyConnectedLayer) SetBatchSize(n int) {
	l.resize(n)
	l.gradPre = grow(l.gradPre, l.OutputSize())
	if l.previousNeedsBackProp {
		l.gradInput = grow(l.gradInput, n*l.inCube)
	}
}

// Forward computes the dense transform for the whole batch with one GEMM.
func (l *FullyConnectedLayer) Forward(input []float32) {
	batch := l.batchSize
	outCube := l.OutputCubeSize()
	checkInput("fc forward", input, batch*l.inCube)
	l.input = input
	out := l.Output()

	// [batch, in] @ [out, in]^T -> [batch, out]
	l.backend.MatMul(out, input, l.weights, batch, l.inCube, outCube, false, true)
	if l.bias != nil {
		for b := 0; b < batch; b++ {
			row := out[b*outCube : (b+1)*outCube]
			for i, bias := range l.bias {
				row[i] += bias
			}
		}
	}
	l.backend.Activate(out, out, len(out), l.config.Activation)
}

// Backward computes weight and bias gradients, and the input gradient when
// the previous layer needs it.
func (l *FullyConnectedLayer) Backward(gradOutput []float32) {
	batch := l.batchSize
	outCube := l.OutputCubeSize()
	n := l.OutputSize()
	checkInput("fc backward", gradOutput, n)
	l.backend.ActivateBackward(l.gradPre, gradOutput, l.Output(), n, l.config.Activation)

	// [batch, out]^T @ [batch, in] -> [out, in]
	l.backend.MatMul(l.weightGrads, l.gradPre, l.input, outCube, batch, l.inCube, true, false)
	if l.biasGrads != nil {
		clear(l.biasGrads)
		for b := 0; b < batch; b++ {
			for i, g := range l.gradPre[b*outCube : (b+1)*outCube] {
				l.biasGrads[i] += g
			}
		}
	}
	if l.previousNeedsBackProp {
		// [batch, out] @ [out, in] -> [batch, in]
		l.backend.MatMul(l.gradInput, l.gradPre, l.weights, batch, outCube, l.inCube, false, false)
	}
}

// GradInput returns the input gradient, or nil when the previous layer does
// not need one.
func (l *FullyConnectedLayer) GradInput() []float32 {
	if !l.previousNeedsBackProp {
		return nil
	}
	return l.gradInput
}

func (l *FullyConnectedLayer) Weights() []float32     { return l.weights }
func (l *FullyConnectedLayer) Bias() []float32        { return l.bias }
func (l *FullyConnectedLayer) WeightGrads() []float32 { return l.weightGrads }
func (l *FullyConnectedLayer) BiasGrads() []float32   { return l.biasGrads }

// InitWeights overwrites the weight matrix.
func (l *FullyConnectedLayer) InitWeights(weights []float32) error {
	return copyInto(l.config.Kind(), "weights", l.weights, weights)
}

// InitBias overwrites the bias.
func (l *FullyConnectedLayer) InitBias(bias []float32) error {
	return copyInto(l.config.Kind(), "bias", l.bias, bias)
}

func (l *FullyConnectedLayer) String() string {
	return fmt.Sprintf("FullyConnectedLayer{numPlanes=%d imageSize=%d activation=%s biased=%t inputCube=%d}",
		l.config.NumPlanes, l.config.ImageSize, l.config.Activation, l.config.Biased, l.inCube)
}
