package netdef

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/layernet/internal/backend/cpu"
	"github.com/born-ml/layernet/internal/layer"
	"github.com/born-ml/layernet/internal/parallel"
	"github.com/born-ml/layernet/internal/tensor"
)

func TestLoad(t *testing.T) {
	def, err := Load("testdata/mnist-cnn.yaml")
	require.NoError(t, err)
	assert.Equal(t, "mnist-cnn", def.Name)
	assert.Equal(t, InputSpec{Planes: 1, Size: 28}, def.Input)
	require.Len(t, def.Layers, 9)

	configs, err := def.Configs()
	require.NoError(t, err)
	require.Len(t, configs, 10)
	assert.Equal(t, &layer.InputConfig{NumPlanes: 1, ImageSize: 28}, configs[0])
	assert.Equal(t, &layer.ConvolutionalConfig{
		NumFilters: 8, FilterSize: 5, PadZeros: true, Activation: tensor.ReLU, Biased: true,
	}, configs[2])
	assert.Equal(t, &layer.FullyConnectedConfig{NumPlanes: 150, ImageSize: 1, Activation: tensor.Tanh, Biased: true}, configs[6])
	assert.Equal(t, &layer.DropoutConfig{Ratio: 0.5, Seed: 7}, configs[7])
	assert.Equal(t, &layer.FullyConnectedConfig{NumPlanes: 10, ImageSize: 1}, configs[8])
	assert.Equal(t, "softmax", configs[9].Kind())
}

func TestBuild(t *testing.T) {
	def, err := Load("testdata/mnist-cnn.yaml")
	require.NoError(t, err)

	n, err := def.Build(cpu.NewWithConfig(parallel.Sequential()))
	require.NoError(t, err)
	assert.Equal(t, 10, n.NumLayers())

	in, err := n.InputCubeSize()
	require.NoError(t, err)
	assert.Equal(t, 784, in)
	out, err := n.OutputCubeSize()
	require.NoError(t, err)
	assert.Equal(t, 10, out)
	// 28 -> pool 2 -> 14 -> pool 3 -> 4
	assert.Equal(t, 4, n.Layer(5).OutputImageSize())
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty", ""},
		{"syntax", "input: [1, 2"},
		{"unknown key", "input: {planes: 1, size: 2}\nlayers:\n  - {type: fc, planes: 2, colour: red}\n"},
		{"unknown top-level key", "input: {planes: 1, size: 2}\nlearningRate: 0.1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.ErrorIs(t, err, layer.ErrConfiguration)
		})
	}
}

func TestConfigs_Errors(t *testing.T) {
	tests := []struct {
		name string
		spec LayerSpec
	}{
		{"missing type", LayerSpec{}},
		{"unknown type", LayerSpec{Type: "lstm"}},
		{"input in layers", LayerSpec{Type: "input"}},
		{"bad activation", LayerSpec{Type: "fc", Planes: 2, Activation: "swish"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := &Definition{Input: InputSpec{Planes: 1, Size: 2}, Layers: []LayerSpec{tt.spec}}
			_, err := def.Configs()
			assert.ErrorIs(t, err, layer.ErrConfiguration)
		})
	}
}

func TestBuild_ShapeError(t *testing.T) {
	def, err := Parse([]byte("input: {planes: 1, size: 4}\nlayers:\n  - {type: conv, filters: 2, filterSize: 7}\n"))
	require.NoError(t, err)
	_, err = def.Build(cpu.NewWithConfig(parallel.Sequential()))
	assert.ErrorIs(t, err, layer.ErrConfiguration)
}

func TestFromConfigs_RoundTrip(t *testing.T) {
	def, err := Load("testdata/mnist-cnn.yaml")
	require.NoError(t, err)
	configs, err := def.Configs()
	require.NoError(t, err)

	described, err := FromConfigs("copy", configs)
	require.NoError(t, err)
	data, err := described.Marshal()
	require.NoError(t, err)

	parsed, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "copy", parsed.Name)
	again, err := parsed.Configs()
	require.NoError(t, err)
	assert.Equal(t, configs, again)

	_, err = FromConfigs("", nil)
	assert.ErrorIs(t, err, layer.ErrConfiguration)
	_, err = FromConfigs("", []layer.Config{&layer.SoftMaxConfig{}})
	assert.ErrorIs(t, err, layer.ErrConfiguration)
}
