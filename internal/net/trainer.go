package net

import (
	"fmt"

	"github.com/born-ml/layernet/internal/layer"
	"github.com/born-ml/layernet/internal/optim"
)

// ParameterState ties one weight-bearing layer to the trainer state for its
// weights and bias. Handles are created when a trainer is attached and live
// as long as the network.
type ParameterState struct {
	Index   int
	Layer   layer.Weighted
	Weights optim.State
	Bias    optim.State // nil when the layer has no bias
}

// Update applies one training step to the layer's parameters.
func (p *ParameterState) Update() {
	p.Weights.Update(p.Layer.Weights(), p.Layer.WeightGrads())
	if p.Bias != nil {
		p.Bias.Update(p.Layer.Bias(), p.Layer.BiasGrads())
	}
}

// SetTrainer attaches trainer and creates fresh state for every
// weight-bearing layer. Layers added later get state as they are added.
func (n *Network) SetTrainer(trainer optim.Trainer) {
	n.trainer = trainer
	n.states = nil
	if trainer == nil {
		return
	}
	for i := range n.layers {
		n.attachState(i)
	}
	n.logger.Debug("trainer attached", "trainer", trainer.String(), "states", len(n.states))
}

// Trainer returns the attached trainer, or nil.
func (n *Network) Trainer() optim.Trainer { return n.trainer }

// ParameterStates returns the per-layer state handles in layer order.
func (n *Network) ParameterStates() []*ParameterState {
	return n.states
}

func (n *Network) attachState(i int) {
	w, ok := n.layers[i].(layer.Weighted)
	if !ok {
		return
	}
	ps := &ParameterState{
		Index:   i,
		Layer:   w,
		Weights: n.trainer.NewState(len(w.Weights())),
	}
	if w.Bias() != nil {
		ps.Bias = n.trainer.NewState(len(w.Bias()))
	}
	n.states = append(n.states, ps)
}

// UpdateWeights applies the trainer to every weight-bearing layer using the
// gradients of the last backward pass.
func (n *Network) UpdateWeights() error {
	if n.trainer == nil {
		return fmt.Errorf("%w: no trainer attached", ErrStructural)
	}
	for _, ps := range n.states {
		ps.Update()
	}
	return nil
}
