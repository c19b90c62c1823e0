package net

import (
	"fmt"
	"io"

	"github.com/born-ml/layernet/internal/layer"
)

// WriteWeightsAsCode writes the weights of layers 1..N-1 as Go slice
// literals named weights<i>. Layers without weights are skipped.
func (n *Network) WriteWeightsAsCode(w io.Writer) error {
	for i := 1; i < len(n.layers); i++ {
		wl, ok := n.layers[i].(layer.Weighted)
		if !ok {
			continue
		}
		if err := layer.WriteFloatsAsCode(w, fmt.Sprintf("weights%d", i), wl.Weights()); err != nil {
			return err
		}
	}
	return nil
}

// WriteBiasAsCode writes the biases of layers 1..N-1 as Go slice literals
// named bias<i>. Layers without a bias are skipped.
func (n *Network) WriteBiasAsCode(w io.Writer) error {
	for i := 1; i < len(n.layers); i++ {
		wl, ok := n.layers[i].(layer.Weighted)
		if !ok || wl.Bias() == nil {
			continue
		}
		if err := layer.WriteFloatsAsCode(w, fmt.Sprintf("bias%d", i), wl.Bias()); err != nil {
			return err
		}
	}
	return nil
}
