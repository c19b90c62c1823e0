package layer

import (
	"fmt"
	"math"

	"github.com/born-ml/layernet/internal/tensor"
)

// minProb keeps -log(p) finite when a probability underflows.
const minProb = 1e-30

// SoftMaxConfig describes a softmax over each example's whole output cube.
type SoftMaxConfig struct{}

// Kind returns "softmax".
func (c *SoftMaxConfig) Kind() string { return "softmax" }

// Clone returns a copy of the config.
func (c *SoftMaxConfig) Clone() Config { return &SoftMaxConfig{} }

// CreateLayer builds a SoftMaxLayer with the previous layer's shape.
func (c *SoftMaxConfig) CreateLayer(previous Layer, _ tensor.Backend) (Layer, error) {
	if err := requirePrevious(c.Kind(), previous); err != nil {
		return nil, err
	}
	l := &SoftMaxLayer{base: newBase(previous.OutputShape())}
	l.SetBatchSize(1)
	return l, nil
}

// SoftMaxLayer turns each example's values into class probabilities and
// scores them against labels or target distributions.
//
// The loss is the sum over the batch of cross-entropy; its gradient with
// respect to the input is probabilities minus targets.
type SoftMaxLayer struct {
	base
	gradInput []float32
}

// NeedsBackProp reports true.
func (l *SoftMaxLayer) NeedsBackProp() bool { return true }

func (l *SoftMaxLayer) SetBatchSize(n int) {
	l.resize(n)
	l.gradInput = grow(l.gradInput, l.OutputSize())
}

// Forward computes a numerically stable softmax per example.
func (l *SoftMaxLayer) Forward(input []float32) {
	cube := l.OutputCubeSize()
	out := l.Output()
	checkInput("softmax forward", input, len(out))
	for b := 0; b < l.batchSize; b++ {
		in := input[b*cube : (b+1)*cube]
		row := out[b*cube : (b+1)*cube]
		maxVal := in[0]
		for _, v := range in[1:] {
			maxVal = max(maxVal, v)
		}
		var sum float64
		for i, v := range in {
			e := math.Exp(float64(v - maxVal))
			row[i] = float32(e)
			sum += e
		}
		for i := range row {
			row[i] = float32(float64(row[i]) / sum)
		}
	}
}

// Backward applies the softmax Jacobian, for use when the layer is not last.
func (l *SoftMaxLayer) Backward(gradOutput []float32) {
	cube := l.OutputCubeSize()
	out := l.Output()
	checkInput("softmax backward", gradOutput, len(out))
	for b := 0; b < l.batchSize; b++ {
		p := out[b*cube : (b+1)*cube]
		g := gradOutput[b*cube : (b+1)*cube]
		var dot float32
		for i := range p {
			dot += p[i] * g[i]
		}
		gi := l.gradInput[b*cube : (b+1)*cube]
		for i := range p {
			gi[i] = p[i] * (g[i] - dot)
		}
	}
}

func (l *SoftMaxLayer) GradInput() []float32 { return l.gradInput }

func (l *SoftMaxLayer) checkLabels(labels []int) error {
	if len(labels) < l.batchSize {
		return fmt.Errorf("%w: softmax: got %d labels for batch size %d", ErrConfiguration, len(labels), l.batchSize)
	}
	cube := l.OutputCubeSize()
	for i, label := range labels[:l.batchSize] {
		if label < 0 || label >= cube {
			return fmt.Errorf("%w: softmax: label %d at %d out of range [0, %d)", ErrConfiguration, label, i, cube)
		}
	}
	return nil
}

// CalcLossFromLabels returns the summed negative log-likelihood of the labels.
func (l *SoftMaxLayer) CalcLossFromLabels(labels []int) (float32, error) {
	if err := l.checkLabels(labels); err != nil {
		return 0, err
	}
	cube := l.OutputCubeSize()
	out := l.Output()
	var loss float64
	for b, label := range labels[:l.batchSize] {
		loss -= math.Log(math.Max(float64(out[b*cube+label]), minProb))
	}
	return float32(loss), nil
}

// CalcGradInputFromLabels sets the input gradient to p - onehot(label).
func (l *SoftMaxLayer) CalcGradInputFromLabels(labels []int) error {
	if err := l.checkLabels(labels); err != nil {
		return err
	}
	cube := l.OutputCubeSize()
	n := l.OutputSize()
	copy(l.gradInput[:n], l.Output())
	for b, label := range labels[:l.batchSize] {
		l.gradInput[b*cube+label]--
	}
	return nil
}

// CalcNumRight counts examples whose highest probability is at the label.
// Ties resolve to the lowest index.
func (l *SoftMaxLayer) CalcNumRight(labels []int) (int, error) {
	if err := l.checkLabels(labels); err != nil {
		return 0, err
	}
	cube := l.OutputCubeSize()
	out := l.Output()
	right := 0
	for b, label := range labels[:l.batchSize] {
		if argmax(out[b*cube:(b+1)*cube]) == label {
			right++
		}
	}
	return right, nil
}

// CalcLoss returns the summed cross-entropy against target distributions.
func (l *SoftMaxLayer) CalcLoss(expected []float32) (float32, error) {
	out := l.Output()
	if len(expected) < len(out) {
		return 0, fmt.Errorf("%w: softmax: got %d expected values, need %d", ErrConfiguration, len(expected), len(out))
	}
	var loss float64
	for i, p := range out {
		if expected[i] != 0 {
			loss -= float64(expected[i]) * math.Log(math.Max(float64(p), minProb))
		}
	}
	return float32(loss), nil
}

// CalcGradInput sets the input gradient to p - expected.
func (l *SoftMaxLayer) CalcGradInput(expected []float32) error {
	out := l.Output()
	if len(expected) < len(out) {
		return fmt.Errorf("%w: softmax: got %d expected values, need %d", ErrConfiguration, len(expected), len(out))
	}
	for i, p := range out {
		l.gradInput[i] = p - expected[i]
	}
	return nil
}

func (l *SoftMaxLayer) String() string {
	return fmt.Sprintf("SoftMaxLayer{classes=%d}", l.OutputCubeSize())
}

// argmax returns the index of the first maximum.
func argmax(values []float32) int {
	best := 0
	for i, v := range values {
		if v > values[best] {
			best = i
		}
	}
	return best
}
