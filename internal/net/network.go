// Package net orchestrates a sequence of layers into a trainable network.
//
// A Network is built by appending layer Configs. Position 0 is always the
// input layer and every later layer is validated against its predecessor's
// output shape when it is added:
//
//	n := net.New(cpu.New())
//	_ = n.AddLayer(&layer.InputConfig{NumPlanes: 1, ImageSize: 28})
//	_ = n.AddLayer(&layer.FullyConnectedConfig{NumPlanes: 10, ImageSize: 1, Biased: true})
//	_ = n.AddLayer(&layer.SoftMaxConfig{})
//
// Forward runs layers 0..N-1 in order. Backward seeds the gradient at the
// last layer and visits N-2 down to 1, skipping layers that report
// NeedsBackProp false. The input layer is never visited.
//
// Every backend kernel completes before it returns, so each layer observes
// its predecessor's finished output without explicit synchronization.
// A Network is not safe for concurrent use.
package net

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/born-ml/layernet/internal/instrument"
	"github.com/born-ml/layernet/internal/layer"
	"github.com/born-ml/layernet/internal/optim"
	"github.com/born-ml/layernet/internal/tensor"
)

// Network is an ordered, 0-indexed sequence of layers sharing one backend.
type Network struct {
	backend tensor.Backend
	layers  []layer.Layer
	configs []layer.Config // clones of the configs the layers were built from

	batchSize int
	training  bool
	forwarded bool // layer outputs match the current layers and batch size

	trainer optim.Trainer
	states  []*ParameterState

	logger *slog.Logger
}

// New creates an empty network on backend with batch size 1 in training mode.
func New(backend tensor.Backend) *Network {
	return &Network{
		backend:   backend,
		batchSize: 1,
		training:  true,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// NewWithInput creates a network whose first layer takes images of
// planes x size x size.
func NewWithInput(backend tensor.Backend, planes, size int) (*Network, error) {
	n := New(backend)
	if err := n.AddLayer(&layer.InputConfig{NumPlanes: planes, ImageSize: size}); err != nil {
		return nil, err
	}
	return n, nil
}

// SetLogger replaces the logger. A nil logger discards.
func (n *Network) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	n.logger = logger
}

// Backend returns the backend every layer dispatches to.
func (n *Network) Backend() tensor.Backend { return n.backend }

// AddLayer builds a layer from cfg on top of the current last layer and
// appends it. On failure the network is unchanged and the error wraps
// ErrConfiguration.
func (n *Network) AddLayer(cfg layer.Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: nil layer config", ErrConfiguration)
	}
	l, err := cfg.CreateLayer(n.LastLayer(), n.backend)
	if err != nil {
		if !errors.Is(err, ErrConfiguration) {
			err = fmt.Errorf("%w: %w", ErrConfiguration, err)
		}
		return fmt.Errorf("add layer %d (%s): %w", len(n.layers), cfg.Kind(), err)
	}
	l.SetBatchSize(n.batchSize)
	l.SetTraining(n.training)

	n.layers = append(n.layers, l)
	n.configs = append(n.configs, cfg.Clone())
	n.forwarded = false
	if n.trainer != nil {
		n.attachState(len(n.layers) - 1)
	}
	n.logger.Debug("layer added", "index", len(n.layers)-1, "kind", cfg.Kind(), "output", l.OutputShape().String())
	return nil
}

// NumLayers returns the number of layers.
func (n *Network) NumLayers() int { return len(n.layers) }

// Layer returns layer i, or nil when i is out of range.
func (n *Network) Layer(i int) layer.Layer {
	if i < 0 || i >= len(n.layers) {
		return nil
	}
	return n.layers[i]
}

// LastLayer returns the final layer, or nil when the network is empty.
func (n *Network) LastLayer() layer.Layer {
	return n.Layer(len(n.layers) - 1)
}

// BatchSize returns the number of examples per Forward call.
func (n *Network) BatchSize() int { return n.batchSize }

// SetBatchSize resizes every layer for batches of size examples.
func (n *Network) SetBatchSize(size int) error {
	if size < 1 {
		return fmt.Errorf("%w: batch size must be >= 1, got %d", ErrConfiguration, size)
	}
	if size != n.batchSize {
		n.forwarded = false
	}
	n.batchSize = size
	for _, l := range n.layers {
		l.SetBatchSize(size)
	}
	return nil
}

// Training reports whether layers are in training mode.
func (n *Network) Training() bool { return n.training }

// SetTraining switches every layer between training and inference behavior.
func (n *Network) SetTraining(training bool) {
	if training != n.training {
		n.forwarded = false
	}
	n.training = training
	for _, l := range n.layers {
		l.SetTraining(training)
	}
}

func (n *Network) requireLayers() error {
	if len(n.layers) == 0 {
		return fmt.Errorf("%w: network has no layers", ErrStructural)
	}
	return nil
}

func (n *Network) requireInput() error {
	if err := n.requireLayers(); err != nil {
		return err
	}
	if _, ok := n.layers[0].(layer.Inputter); !ok {
		return fmt.Errorf("%w: layer 0 is %s, not an input layer", ErrStructural, n.layers[0])
	}
	return nil
}

// Forward runs images through every layer. images must hold
// BatchSize * InputCubeSize values.
func (n *Network) Forward(ctx context.Context, images []float32) error {
	if err := n.requireInput(); err != nil {
		return err
	}
	if want := n.batchSize * n.layers[0].OutputCubeSize(); len(images) != want {
		return fmt.Errorf("%w: forward got %d input values, need %d", ErrStructural, len(images), want)
	}

	timer := instrument.FromContext(ctx)
	input := images
	for i, l := range n.layers {
		done := timer.Time(fmt.Sprintf("layer%d forward", i))
		l.Forward(input)
		done()
		input = l.Output()
	}
	n.forwarded = true
	return nil
}

// requireForwarded rejects backward passes that would read buffers from a
// different batch size, mode or layer list.
func (n *Network) requireForwarded() error {
	if !n.forwarded {
		return fmt.Errorf("%w: backward before forward", ErrStructural)
	}
	return nil
}

func (n *Network) checkLabels(labels []int) error {
	if len(labels) != n.batchSize {
		return fmt.Errorf("%w: got %d labels for batch size %d", ErrStructural, len(labels), n.batchSize)
	}
	return nil
}

func checkExpected(last layer.LossLayer, expected []float32) error {
	if want := last.OutputSize(); len(expected) != want {
		return fmt.Errorf("%w: got %d expected values, need %d", ErrStructural, len(expected), want)
	}
	return nil
}

// BackwardFromLabels seeds the gradient from class labels at the last layer
// and propagates it back to layer 1. It needs a Forward since the last
// AddLayer, batch size change or training mode change.
func (n *Network) BackwardFromLabels(ctx context.Context, labels []int) error {
	if err := n.requireInput(); err != nil {
		return err
	}
	last, ok := n.LastLayer().(layer.LabelLayer)
	if !ok {
		return fmt.Errorf("%w: last layer %s does not accept labels", ErrStructural, n.LastLayer())
	}
	if err := n.checkLabels(labels); err != nil {
		return err
	}
	if err := n.requireForwarded(); err != nil {
		return err
	}

	timer := instrument.FromContext(ctx)
	done := timer.Time(fmt.Sprintf("layer%d backward", len(n.layers)-1))
	err := last.CalcGradInputFromLabels(labels)
	done()
	if err != nil {
		return err
	}
	return n.backpropagate(timer)
}

// Backward seeds the gradient from explicit target values at the last layer
// and propagates it back to layer 1. expected must hold
// BatchSize * OutputCubeSize values.
func (n *Network) Backward(ctx context.Context, expected []float32) error {
	if err := n.requireInput(); err != nil {
		return err
	}
	last, ok := n.LastLayer().(layer.LossLayer)
	if !ok {
		return fmt.Errorf("%w: last layer %s is not a loss layer", ErrStructural, n.LastLayer())
	}
	if err := checkExpected(last, expected); err != nil {
		return err
	}
	if err := n.requireForwarded(); err != nil {
		return err
	}

	timer := instrument.FromContext(ctx)
	done := timer.Time(fmt.Sprintf("layer%d backward", len(n.layers)-1))
	err := last.CalcGradInput(expected)
	done()
	if err != nil {
		return err
	}
	return n.backpropagate(timer)
}

// backpropagate visits layers N-2 down to 1, feeding each the input gradient
// of its successor.
func (n *Network) backpropagate(timer *instrument.Timer) error {
	for i := len(n.layers) - 2; i >= 1; i-- {
		l := n.layers[i]
		if !l.NeedsBackProp() {
			continue
		}
		grad := n.layers[i+1].GradInput()
		if grad == nil {
			return fmt.Errorf("%w: layer %d needs backprop but layer %d produced no input gradient", ErrStructural, i, i+1)
		}
		done := timer.Time(fmt.Sprintf("layer%d backward", i))
		l.Backward(grad)
		done()
	}
	return nil
}

// CalcLoss scores the last output against explicit targets.
func (n *Network) CalcLoss(expected []float32) (float32, error) {
	if err := n.requireLayers(); err != nil {
		return 0, err
	}
	last, ok := n.LastLayer().(layer.LossLayer)
	if !ok {
		return 0, fmt.Errorf("%w: last layer %s is not a loss layer", ErrStructural, n.LastLayer())
	}
	if err := checkExpected(last, expected); err != nil {
		return 0, err
	}
	return last.CalcLoss(expected)
}

// CalcLossFromLabels scores the last output against class labels.
func (n *Network) CalcLossFromLabels(labels []int) (float32, error) {
	if err := n.requireLayers(); err != nil {
		return 0, err
	}
	last, ok := n.LastLayer().(layer.LabelLayer)
	if !ok {
		return 0, fmt.Errorf("%w: last layer %s does not accept labels", ErrStructural, n.LastLayer())
	}
	if err := n.checkLabels(labels); err != nil {
		return 0, err
	}
	return last.CalcLossFromLabels(labels)
}

// CalcNumRight counts correctly classified examples in the last batch.
func (n *Network) CalcNumRight(labels []int) (int, error) {
	if err := n.requireLayers(); err != nil {
		return 0, err
	}
	last, ok := n.LastLayer().(layer.LabelLayer)
	if !ok {
		return 0, fmt.Errorf("%w: last layer %s does not accept labels", ErrStructural, n.LastLayer())
	}
	if err := n.checkLabels(labels); err != nil {
		return 0, err
	}
	return last.CalcNumRight(labels)
}

// Clone builds an independent network with the same configs, batch size,
// training mode and trainer. Weights are freshly initialized and states
// start empty.
func (n *Network) Clone() (*Network, error) {
	clone := New(n.backend)
	clone.logger = n.logger
	clone.batchSize = n.batchSize
	clone.training = n.training
	for _, cfg := range n.configs {
		if err := clone.AddLayer(cfg); err != nil {
			return nil, fmt.Errorf("clone: %w", err)
		}
	}
	if n.trainer != nil {
		clone.SetTrainer(n.trainer)
	}
	return clone, nil
}

// Configs returns clones of the configs the layers were built from.
func (n *Network) Configs() []layer.Config {
	out := make([]layer.Config, len(n.configs))
	for i, cfg := range n.configs {
		out[i] = cfg.Clone()
	}
	return out
}

// InputCubeSize returns the number of values per example the input takes.
func (n *Network) InputCubeSize() (int, error) {
	if err := n.requireLayers(); err != nil {
		return 0, err
	}
	return n.layers[0].OutputCubeSize(), nil
}

// OutputPlanes returns the last layer's plane count.
func (n *Network) OutputPlanes() (int, error) {
	if err := n.requireLayers(); err != nil {
		return 0, err
	}
	return n.LastLayer().OutputPlanes(), nil
}

// OutputImageSize returns the last layer's image size.
func (n *Network) OutputImageSize() (int, error) {
	if err := n.requireLayers(); err != nil {
		return 0, err
	}
	return n.LastLayer().OutputImageSize(), nil
}

// OutputCubeSize returns the number of output values per example.
func (n *Network) OutputCubeSize() (int, error) {
	if err := n.requireLayers(); err != nil {
		return 0, err
	}
	return n.LastLayer().OutputCubeSize(), nil
}

// OutputSize returns BatchSize * OutputCubeSize.
func (n *Network) OutputSize() (int, error) {
	if err := n.requireLayers(); err != nil {
		return 0, err
	}
	return n.LastLayer().OutputSize(), nil
}

// Output returns the last layer's output for the current batch.
func (n *Network) Output() ([]float32, error) {
	if err := n.requireLayers(); err != nil {
		return nil, err
	}
	return n.LastLayer().Output(), nil
}

// LayerOutput returns layer i's output for the current batch.
func (n *Network) LayerOutput(i int) ([]float32, error) {
	l := n.Layer(i)
	if l == nil {
		return nil, fmt.Errorf("%w: layer %d out of range [0, %d)", ErrStructural, i, len(n.layers))
	}
	return l.Output(), nil
}

// InitWeights overwrites layer i's weights and bias. A nil bias leaves the
// bias untouched.
func (n *Network) InitWeights(i int, weights, bias []float32) error {
	l := n.Layer(i)
	if l == nil {
		return fmt.Errorf("%w: layer %d out of range [0, %d)", ErrStructural, i, len(n.layers))
	}
	w, ok := l.(layer.Weighted)
	if !ok {
		return fmt.Errorf("%w: layer %d (%s) has no weights", ErrStructural, i, l)
	}
	if err := w.InitWeights(weights); err != nil {
		return fmt.Errorf("layer %d: %w", i, err)
	}
	if bias != nil {
		if err := w.InitBias(bias); err != nil {
			return fmt.Errorf("layer %d: %w", i, err)
		}
	}
	return nil
}

// String lists the layers, one "layer i:<layer>" line each.
func (n *Network) String() string {
	var sb strings.Builder
	for i, l := range n.layers {
		fmt.Fprintf(&sb, "layer %d:%s\n", i, l)
	}
	return sb.String()
}
