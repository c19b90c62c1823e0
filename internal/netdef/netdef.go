// Package netdef reads network descriptions written in YAML.
//
// A description names the input shape, then lists the layers that follow it
// in order:
//
//	name: mnist-cnn
//	input: {planes: 1, size: 28}
//	layers:
//	  - {type: normalization, translate: -0.13, scale: 3.2}
//	  - {type: conv, filters: 8, filterSize: 5, padZeros: true, activation: relu}
//	  - {type: pool, size: 2}
//	  - {type: fc, planes: 10, size: 1}
//	  - {type: softmax}
//
// conv and fc layers are biased unless "biased: false" is given.
package netdef

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/born-ml/layernet/internal/layer"
	"github.com/born-ml/layernet/internal/net"
	"github.com/born-ml/layernet/internal/tensor"
)

// Definition is a parsed network description.
type Definition struct {
	Name   string      `yaml:"name,omitempty"`
	Input  InputSpec   `yaml:"input"`
	Layers []LayerSpec `yaml:"layers"`
}

// InputSpec is the image shape the network takes.
type InputSpec struct {
	Planes int `yaml:"planes"`
	Size   int `yaml:"size"`
}

// LayerSpec describes one layer. Which fields apply depends on Type.
type LayerSpec struct {
	Type string `yaml:"type"`

	// conv
	Filters     int `yaml:"filters,omitempty"`
	FilterSize  int `yaml:"filterSize,omitempty"`
	InputPlanes int `yaml:"inputPlanes,omitempty"`

	// fc output shape, pool window
	Planes int `yaml:"planes,omitempty"`
	Size   int `yaml:"size,omitempty"`

	// conv, pool
	PadZeros bool `yaml:"padZeros,omitempty"`

	// conv, fc, activation
	Activation string `yaml:"activation,omitempty"`
	Biased     *bool  `yaml:"biased,omitempty"`

	// dropout
	Ratio float32 `yaml:"ratio,omitempty"`
	Seed  int64   `yaml:"seed,omitempty"`

	// normalization
	Translate float32 `yaml:"translate,omitempty"`
	Scale     float32 `yaml:"scale,omitempty"`
}

// Parse decodes a description. Unknown keys are rejected.
func Parse(data []byte) (*Definition, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var def Definition
	if err := dec.Decode(&def); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: netdef: empty description", layer.ErrConfiguration)
		}
		return nil, fmt.Errorf("%w: netdef: %w", layer.ErrConfiguration, err)
	}
	return &def, nil
}

// Load reads and parses the description at path.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("netdef: %w", err)
	}
	def, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// Configs converts the description into layer configs, input first.
func (d *Definition) Configs() ([]layer.Config, error) {
	configs := make([]layer.Config, 0, len(d.Layers)+1)
	configs = append(configs, &layer.InputConfig{NumPlanes: d.Input.Planes, ImageSize: d.Input.Size})
	for i, spec := range d.Layers {
		cfg, err := spec.Config()
		if err != nil {
			return nil, fmt.Errorf("netdef layer %d: %w", i+1, err)
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}

// Config converts one layer spec.
func (s LayerSpec) Config() (layer.Config, error) {
	act, err := tensor.ParseActivation(s.Activation)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", layer.ErrConfiguration, err)
	}
	biased := s.Biased == nil || *s.Biased

	switch s.Type {
	case "conv":
		return &layer.ConvolutionalConfig{
			NumFilters:  s.Filters,
			FilterSize:  s.FilterSize,
			PadZeros:    s.PadZeros,
			Activation:  act,
			Biased:      biased,
			InputPlanes: s.InputPlanes,
		}, nil
	case "fc":
		size := s.Size
		if size == 0 {
			size = 1
		}
		return &layer.FullyConnectedConfig{NumPlanes: s.Planes, ImageSize: size, Activation: act, Biased: biased}, nil
	case "pool":
		return &layer.PoolingConfig{PoolingSize: s.Size, PadZeros: s.PadZeros}, nil
	case "activation":
		return &layer.ActivationConfig{Activation: act}, nil
	case "normalization":
		return &layer.NormalizationConfig{Translate: s.Translate, Scale: s.Scale}, nil
	case "dropout":
		return &layer.DropoutConfig{Ratio: s.Ratio, Seed: s.Seed}, nil
	case "softmax":
		return &layer.SoftMaxConfig{}, nil
	case "squareloss":
		return &layer.SquareLossConfig{}, nil
	case "input":
		return nil, fmt.Errorf("%w: input is given by the input section", layer.ErrConfiguration)
	case "":
		return nil, fmt.Errorf("%w: missing layer type", layer.ErrConfiguration)
	default:
		return nil, fmt.Errorf("%w: unknown layer type %q", layer.ErrConfiguration, s.Type)
	}
}

// Build creates a network on backend from the description.
func (d *Definition) Build(backend tensor.Backend) (*net.Network, error) {
	configs, err := d.Configs()
	if err != nil {
		return nil, err
	}
	n := net.New(backend)
	for _, cfg := range configs {
		if err := n.AddLayer(cfg); err != nil {
			return nil, err
		}
	}
	return n, nil
}

// FromConfigs describes an existing config sequence. The first config must
// be an InputConfig.
func FromConfigs(name string, configs []layer.Config) (*Definition, error) {
	if len(configs) == 0 {
		return nil, fmt.Errorf("%w: no layers", layer.ErrConfiguration)
	}
	in, ok := configs[0].(*layer.InputConfig)
	if !ok {
		return nil, fmt.Errorf("%w: first layer is %s, not input", layer.ErrConfiguration, configs[0].Kind())
	}
	def := &Definition{Name: name, Input: InputSpec{Planes: in.NumPlanes, Size: in.ImageSize}}
	for _, cfg := range configs[1:] {
		spec := LayerSpec{Type: cfg.Kind()}
		switch c := cfg.(type) {
		case *layer.ConvolutionalConfig:
			spec.Filters, spec.FilterSize, spec.InputPlanes = c.NumFilters, c.FilterSize, c.InputPlanes
			spec.PadZeros = c.PadZeros
			spec.Activation = activationName(c.Activation)
			spec.Biased = boolPtr(c.Biased)
		case *layer.FullyConnectedConfig:
			spec.Planes, spec.Size = c.NumPlanes, c.ImageSize
			spec.Activation = activationName(c.Activation)
			spec.Biased = boolPtr(c.Biased)
		case *layer.PoolingConfig:
			spec.Size, spec.PadZeros = c.PoolingSize, c.PadZeros
		case *layer.ActivationConfig:
			spec.Activation = activationName(c.Activation)
		case *layer.NormalizationConfig:
			spec.Translate, spec.Scale = c.Translate, c.Scale
		case *layer.DropoutConfig:
			spec.Ratio, spec.Seed = c.Ratio, c.Seed
		case *layer.SoftMaxConfig, *layer.SquareLossConfig:
		default:
			return nil, fmt.Errorf("%w: cannot describe %s layer", layer.ErrConfiguration, cfg.Kind())
		}
		def.Layers = append(def.Layers, spec)
	}
	return def, nil
}

func boolPtr(b bool) *bool { return &b }

func activationName(a tensor.Activation) string {
	if a == tensor.Linear {
		return ""
	}
	return a.String()
}

// Marshal encodes the description as YAML.
func (d *Definition) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return nil, fmt.Errorf("netdef: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("netdef: %w", err)
	}
	return buf.Bytes(), nil
}
