package serialization

import (
	"fmt"
	"time"

	"github.com/born-ml/layernet/internal/layer"
	"github.com/born-ml/layernet/internal/net"
)

// FromNetwork snapshots the weights of every weight-bearing layer of n.
// The slices are copies.
func FromNetwork(n *net.Network, epoch int) *Checkpoint {
	cp := &Checkpoint{Epoch: epoch, CreatedAt: time.Now().UTC().Truncate(time.Second)}
	if t := n.Trainer(); t != nil {
		cp.Trainer = t.String()
	}
	configs := n.Configs()
	for i := 0; i < n.NumLayers(); i++ {
		w, ok := n.Layer(i).(layer.Weighted)
		if !ok {
			continue
		}
		lw := LayerWeights{
			Index:   i,
			Kind:    configs[i].Kind(),
			Weights: append([]float32(nil), w.Weights()...),
		}
		if w.Bias() != nil {
			lw.Bias = append([]float32(nil), w.Bias()...)
		}
		cp.Layers = append(cp.Layers, lw)
	}
	return cp
}

// Apply copies the checkpoint's weights into n. Every entry is checked
// first, so on error n is unchanged.
func Apply(cp *Checkpoint, n *net.Network) error {
	configs := n.Configs()
	for _, lw := range cp.Layers {
		if lw.Index < 0 || lw.Index >= n.NumLayers() {
			return &MismatchError{Index: lw.Index, Details: fmt.Sprintf("network has %d layers", n.NumLayers())}
		}
		if kind := configs[lw.Index].Kind(); kind != lw.Kind {
			return &MismatchError{Index: lw.Index, Details: fmt.Sprintf("kind %q, network has %q", lw.Kind, kind)}
		}
		w, ok := n.Layer(lw.Index).(layer.Weighted)
		if !ok {
			return &MismatchError{Index: lw.Index, Details: "layer has no weights"}
		}
		if len(lw.Weights) != len(w.Weights()) {
			return &MismatchError{Index: lw.Index, Details: fmt.Sprintf("%d weights, network has %d", len(lw.Weights), len(w.Weights()))}
		}
		if len(lw.Bias) != len(w.Bias()) {
			return &MismatchError{Index: lw.Index, Details: fmt.Sprintf("%d bias values, network has %d", len(lw.Bias), len(w.Bias()))}
		}
	}
	for _, lw := range cp.Layers {
		if err := n.InitWeights(lw.Index, lw.Weights, lw.Bias); err != nil {
			return err
		}
	}
	return nil
}

// SaveFile writes n's weights to path.
func SaveFile(path string, n *net.Network, epoch int) error {
	return WriteFile(path, FromNetwork(n, epoch))
}

// LoadFile reads path and applies its weights to n.
func LoadFile(path string, n *net.Network) (*Checkpoint, error) {
	cp, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := Apply(cp, n); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cp, nil
}
