package net

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/layernet/internal/backend/cpu"
	"github.com/born-ml/layernet/internal/instrument"
	"github.com/born-ml/layernet/internal/layer"
	"github.com/born-ml/layernet/internal/optim"
	"github.com/born-ml/layernet/internal/parallel"
	"github.com/born-ml/layernet/internal/tensor"
)

func testBackend() tensor.Backend {
	return cpu.NewWithConfig(parallel.Sequential())
}

func build(t *testing.T, cfgs ...layer.Config) *Network {
	t.Helper()
	n := New(testBackend())
	for _, cfg := range cfgs {
		require.NoError(t, n.AddLayer(cfg))
	}
	return n
}

// mnistLike is input 1x28x28 -> fc 10 -> softmax.
func mnistLike(t *testing.T) *Network {
	return build(t,
		&layer.InputConfig{NumPlanes: 1, ImageSize: 28},
		&layer.FullyConnectedConfig{NumPlanes: 10, ImageSize: 1, Biased: true},
		&layer.SoftMaxConfig{},
	)
}

func ramp(n int, scale float32) []float32 {
	s := make([]float32, n)
	for i := range s {
		s[i] = float32(i%17-8) * scale
	}
	return s
}

// recordingConfig builds the inner layer and logs every Backward call. The
// wrapper only carries layer.Layer, so it is reserved for hidden layers.
type recordingConfig struct {
	inner layer.Config
	index int
	log   *[]int
}

func (c *recordingConfig) Kind() string { return c.inner.Kind() }

func (c *recordingConfig) Clone() layer.Config {
	return &recordingConfig{inner: c.inner.Clone(), index: c.index, log: c.log}
}

func (c *recordingConfig) CreateLayer(previous layer.Layer, backend tensor.Backend) (layer.Layer, error) {
	l, err := c.inner.CreateLayer(previous, backend)
	if err != nil {
		return nil, err
	}
	return &recordingLayer{Layer: l, index: c.index, log: c.log}, nil
}

type recordingLayer struct {
	layer.Layer
	index int
	log   *[]int
}

func (l *recordingLayer) Backward(gradOutput []float32) {
	*l.log = append(*l.log, l.index)
	l.Layer.Backward(gradOutput)
}

func TestBackwardFromLabels_VisitOrder(t *testing.T) {
	tests := []struct {
		name string
		cfgs []layer.Config
		want []int
	}{
		{
			name: "skips layers that need no backprop",
			cfgs: []layer.Config{
				&layer.InputConfig{NumPlanes: 1, ImageSize: 4},
				&layer.PoolingConfig{PoolingSize: 2},
				&layer.FullyConnectedConfig{NumPlanes: 6, ImageSize: 1, Activation: tensor.Tanh, Biased: true},
				&layer.ActivationConfig{Activation: tensor.ReLU},
				&layer.FullyConnectedConfig{NumPlanes: 3, ImageSize: 1},
				&layer.SoftMaxConfig{},
			},
			want: []int{4, 3, 2},
		},
		{
			name: "every layer but input",
			cfgs: []layer.Config{
				&layer.InputConfig{NumPlanes: 2, ImageSize: 3},
				&layer.ConvolutionalConfig{NumFilters: 2, FilterSize: 3, PadZeros: true, Activation: tensor.Tanh},
				&layer.NormalizationConfig{Translate: 0, Scale: 0.5},
				&layer.FullyConnectedConfig{NumPlanes: 4, ImageSize: 1},
				&layer.SoftMaxConfig{},
			},
			want: []int{3, 2, 1},
		},
		{
			name: "two layers visit nothing",
			cfgs: []layer.Config{
				&layer.InputConfig{NumPlanes: 3, ImageSize: 1},
				&layer.SoftMaxConfig{},
			},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var visited []int
			n := New(testBackend())
			last := len(tt.cfgs) - 1
			for i, cfg := range tt.cfgs {
				if i > 0 && i < last {
					cfg = &recordingConfig{inner: cfg, index: i, log: &visited}
				}
				require.NoError(t, n.AddLayer(cfg))
			}
			_, ok := n.Layer(0).(layer.Inputter)
			require.True(t, ok)
			_, ok = n.LastLayer().(layer.LabelLayer)
			require.True(t, ok)
			require.NoError(t, n.SetBatchSize(2))

			in, err := n.InputCubeSize()
			require.NoError(t, err)
			require.NoError(t, n.Forward(context.Background(), ramp(2*in, 0.1)))
			require.NoError(t, n.BackwardFromLabels(context.Background(), []int{0, 1}))
			assert.Equal(t, tt.want, visited)
		})
	}
}

func TestForward_TwiceLeavesOnlySecondResult(t *testing.T) {
	n := build(t,
		&layer.InputConfig{NumPlanes: 1, ImageSize: 6},
		&layer.ConvolutionalConfig{NumFilters: 3, FilterSize: 3, Activation: tensor.ReLU, Biased: true},
		&layer.PoolingConfig{PoolingSize: 2},
		&layer.FullyConnectedConfig{NumPlanes: 4, ImageSize: 1, Activation: tensor.Sigmoid, Biased: true},
		&layer.SoftMaxConfig{},
	)
	require.NoError(t, n.SetBatchSize(3))
	a := ramp(3*36, 0.3)
	b := ramp(3*36, -0.7)
	ctx := context.Background()

	require.NoError(t, n.Forward(ctx, b))
	want := make([][]float32, n.NumLayers())
	for i := range want {
		out, err := n.LayerOutput(i)
		require.NoError(t, err)
		want[i] = append([]float32(nil), out...)
	}

	require.NoError(t, n.Forward(ctx, a))
	require.NoError(t, n.Forward(ctx, b))
	for i := range want {
		out, err := n.LayerOutput(i)
		require.NoError(t, err)
		assert.Equal(t, want[i], out, "layer %d", i)
	}
}

func TestCalcLoss_RequiresLossLayer(t *testing.T) {
	n := build(t,
		&layer.InputConfig{NumPlanes: 1, ImageSize: 2},
		&layer.FullyConnectedConfig{NumPlanes: 2, ImageSize: 1},
	)
	require.NoError(t, n.Forward(context.Background(), []float32{1, 2, 3, 4}))

	loss, err := n.CalcLoss([]float32{0, 1})
	assert.ErrorIs(t, err, ErrStructural)
	assert.Zero(t, loss)

	_, err = n.CalcLossFromLabels([]int{1})
	assert.ErrorIs(t, err, ErrStructural)
	_, err = n.CalcNumRight([]int{1})
	assert.ErrorIs(t, err, ErrStructural)
	assert.ErrorIs(t, n.BackwardFromLabels(context.Background(), []int{1}), ErrStructural)
	assert.ErrorIs(t, n.Backward(context.Background(), []float32{0, 1}), ErrStructural)
}

func TestBackward_RequiresForward(t *testing.T) {
	ctx := context.Background()

	t.Run("fresh network", func(t *testing.T) {
		n := mnistLike(t)
		assert.ErrorIs(t, n.BackwardFromLabels(ctx, []int{0}), ErrStructural)
	})

	t.Run("batch size changed since forward", func(t *testing.T) {
		n := mnistLike(t)
		require.NoError(t, n.Forward(ctx, make([]float32, 784)))
		require.NoError(t, n.SetBatchSize(4))
		assert.ErrorIs(t, n.BackwardFromLabels(ctx, []int{0, 1, 2, 3}), ErrStructural)

		require.NoError(t, n.Forward(ctx, make([]float32, 4*784)))
		assert.NoError(t, n.BackwardFromLabels(ctx, []int{0, 1, 2, 3}))
	})

	t.Run("same batch size keeps forward", func(t *testing.T) {
		n := mnistLike(t)
		require.NoError(t, n.Forward(ctx, make([]float32, 784)))
		require.NoError(t, n.SetBatchSize(1))
		assert.NoError(t, n.BackwardFromLabels(ctx, []int{2}))
	})

	t.Run("layer added since forward", func(t *testing.T) {
		n := build(t,
			&layer.InputConfig{NumPlanes: 1, ImageSize: 2},
			&layer.FullyConnectedConfig{NumPlanes: 3, ImageSize: 1},
		)
		require.NoError(t, n.Forward(ctx, []float32{1, 2, 3, 4}))
		require.NoError(t, n.AddLayer(&layer.SquareLossConfig{}))
		assert.ErrorIs(t, n.Backward(ctx, []float32{0, 1, 0}), ErrStructural)
	})

	t.Run("training mode switched since forward", func(t *testing.T) {
		n := mnistLike(t)
		require.NoError(t, n.Forward(ctx, make([]float32, 784)))
		n.SetTraining(false)
		assert.ErrorIs(t, n.BackwardFromLabels(ctx, []int{0}), ErrStructural)
	})
}

func TestLengthChecks_AreStructural(t *testing.T) {
	ctx := context.Background()

	n := mnistLike(t)
	require.NoError(t, n.SetBatchSize(2))
	require.NoError(t, n.Forward(ctx, make([]float32, 2*784)))
	for _, labels := range [][]int{nil, {1}, {1, 2, 3}} {
		_, err := n.CalcLossFromLabels(labels)
		assert.ErrorIs(t, err, ErrStructural, "loss, %d labels", len(labels))
		_, err = n.CalcNumRight(labels)
		assert.ErrorIs(t, err, ErrStructural, "num right, %d labels", len(labels))
		assert.ErrorIs(t, n.BackwardFromLabels(ctx, labels), ErrStructural, "backward, %d labels", len(labels))
	}

	sq := build(t,
		&layer.InputConfig{NumPlanes: 1, ImageSize: 1},
		&layer.FullyConnectedConfig{NumPlanes: 2, ImageSize: 1},
		&layer.SquareLossConfig{},
	)
	require.NoError(t, sq.Forward(ctx, []float32{1}))
	for _, expected := range [][]float32{{0}, {0, 1, 2}} {
		_, err := sq.CalcLoss(expected)
		assert.ErrorIs(t, err, ErrStructural, "loss, %d targets", len(expected))
		assert.ErrorIs(t, sq.Backward(ctx, expected), ErrStructural, "backward, %d targets", len(expected))
	}
	_, err := sq.CalcLoss([]float32{0, 1})
	assert.NoError(t, err)
}

func TestSquareLossHasNoLabels(t *testing.T) {
	n := build(t,
		&layer.InputConfig{NumPlanes: 1, ImageSize: 1},
		&layer.FullyConnectedConfig{NumPlanes: 1, ImageSize: 1},
		&layer.SquareLossConfig{},
	)
	_, err := n.CalcNumRight([]int{0})
	assert.ErrorIs(t, err, ErrStructural)
}

func TestLayer_OutOfRangeIsNil(t *testing.T) {
	n := mnistLike(t)
	for _, i := range []int{-100, -1, 3, 4, 1000} {
		assert.Nil(t, n.Layer(i), "index %d", i)
	}
	for i := 0; i < 3; i++ {
		assert.NotNil(t, n.Layer(i))
	}
	assert.Nil(t, New(testBackend()).Layer(0))
	assert.Nil(t, New(testBackend()).LastLayer())
}

func TestCalcNumRight_ZeroImages(t *testing.T) {
	const batch = 5
	n := mnistLike(t)
	require.NoError(t, n.SetBatchSize(batch))

	require.NoError(t, n.Forward(context.Background(), make([]float32, batch*28*28)))
	labels := make([]int, batch)
	right, err := n.CalcNumRight(labels)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, right, 0)
	assert.LessOrEqual(t, right, batch)

	out, err := n.Output()
	require.NoError(t, err)
	want := 0
	for b := 0; b < batch; b++ {
		row := out[b*10 : (b+1)*10]
		best := 0
		for i, v := range row {
			if v > row[best] {
				best = i
			}
		}
		if best == 0 {
			want++
		}
	}
	assert.Equal(t, want, right)
	// Zero images with zero bias give uniform probabilities; the lowest index wins.
	assert.Equal(t, batch, right)
}

func TestAddLayer_PlaneMismatch(t *testing.T) {
	n := build(t, &layer.InputConfig{NumPlanes: 1, ImageSize: 8})

	err := n.AddLayer(&layer.ConvolutionalConfig{NumFilters: 4, FilterSize: 3, InputPlanes: 3})
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.ErrorIs(t, err, layer.ErrConfiguration)
	assert.Equal(t, 1, n.NumLayers())

	require.NoError(t, n.AddLayer(&layer.ConvolutionalConfig{NumFilters: 4, FilterSize: 3, InputPlanes: 1}))
	assert.Equal(t, 2, n.NumLayers())
}

func TestAddLayer_InputMustBeFirst(t *testing.T) {
	n := New(testBackend())
	assert.ErrorIs(t, n.AddLayer(&layer.SoftMaxConfig{}), ErrConfiguration)
	assert.ErrorIs(t, n.AddLayer(nil), ErrConfiguration)
	assert.Equal(t, 0, n.NumLayers())

	require.NoError(t, n.AddLayer(&layer.InputConfig{NumPlanes: 1, ImageSize: 2}))
	assert.ErrorIs(t, n.AddLayer(&layer.InputConfig{NumPlanes: 1, ImageSize: 2}), ErrConfiguration)
	assert.Equal(t, 1, n.NumLayers())
}

func TestEmptyNetwork(t *testing.T) {
	n := New(testBackend())
	ctx := context.Background()

	assert.ErrorIs(t, n.Forward(ctx, nil), ErrStructural)
	assert.ErrorIs(t, n.BackwardFromLabels(ctx, nil), ErrStructural)
	assert.ErrorIs(t, n.Backward(ctx, nil), ErrStructural)

	for name, fn := range map[string]func() (int, error){
		"InputCubeSize":   n.InputCubeSize,
		"OutputPlanes":    n.OutputPlanes,
		"OutputImageSize": n.OutputImageSize,
		"OutputCubeSize":  n.OutputCubeSize,
		"OutputSize":      n.OutputSize,
	} {
		_, err := fn()
		assert.ErrorIs(t, err, ErrStructural, name)
	}
	_, err := n.Output()
	assert.ErrorIs(t, err, ErrStructural)
	_, err = n.CalcLoss(nil)
	assert.ErrorIs(t, err, ErrStructural)
}

func TestForward_WrongInputSize(t *testing.T) {
	n := mnistLike(t)
	require.NoError(t, n.SetBatchSize(2))
	assert.ErrorIs(t, n.Forward(context.Background(), make([]float32, 784)), ErrStructural)
	assert.ErrorIs(t, n.BackwardFromLabels(context.Background(), []int{1}), ErrStructural)
}

func TestOutputSizes(t *testing.T) {
	n := build(t,
		&layer.InputConfig{NumPlanes: 3, ImageSize: 8},
		&layer.ConvolutionalConfig{NumFilters: 5, FilterSize: 3, PadZeros: true},
		&layer.PoolingConfig{PoolingSize: 2},
	)
	require.NoError(t, n.SetBatchSize(4))

	in, err := n.InputCubeSize()
	require.NoError(t, err)
	assert.Equal(t, 3*8*8, in)
	planes, err := n.OutputPlanes()
	require.NoError(t, err)
	assert.Equal(t, 5, planes)
	size, err := n.OutputImageSize()
	require.NoError(t, err)
	assert.Equal(t, 4, size)
	cube, err := n.OutputCubeSize()
	require.NoError(t, err)
	assert.Equal(t, 80, cube)
	total, err := n.OutputSize()
	require.NoError(t, err)
	assert.Equal(t, 4*80, total)
}

func TestSetBatchSize(t *testing.T) {
	n := mnistLike(t)
	assert.ErrorIs(t, n.SetBatchSize(0), ErrConfiguration)
	assert.Equal(t, 1, n.BatchSize())

	require.NoError(t, n.SetBatchSize(8))
	require.NoError(t, n.SetBatchSize(8))
	for i := 0; i < n.NumLayers(); i++ {
		assert.Equal(t, 8, n.Layer(i).BatchSize())
	}

	// Layers added later pick up the current batch size.
	require.NoError(t, n.AddLayer(&layer.SquareLossConfig{}))
	assert.Equal(t, 8, n.LastLayer().BatchSize())
}

func TestSetTraining(t *testing.T) {
	n := build(t,
		&layer.InputConfig{NumPlanes: 1, ImageSize: 10},
		&layer.DropoutConfig{Ratio: 0.5, Seed: 1},
	)
	images := ramp(100, 1)
	images[0] = 3

	n.SetTraining(false)
	n.SetTraining(false)
	assert.False(t, n.Training())
	require.NoError(t, n.Forward(context.Background(), images))
	out, err := n.Output()
	require.NoError(t, err)
	assert.Equal(t, images, out)
}

func TestClone_Independent(t *testing.T) {
	n := build(t,
		&layer.InputConfig{NumPlanes: 2, ImageSize: 6},
		&layer.ConvolutionalConfig{NumFilters: 3, FilterSize: 3, Activation: tensor.Tanh, Biased: true},
		&layer.PoolingConfig{PoolingSize: 2},
		&layer.FullyConnectedConfig{NumPlanes: 4, ImageSize: 1, Biased: true},
		&layer.SoftMaxConfig{},
	)
	require.NoError(t, n.SetBatchSize(3))
	n.SetTrainer(&optim.SGD{LearningRate: 0.1})

	clone, err := n.Clone()
	require.NoError(t, err)
	require.Equal(t, n.NumLayers(), clone.NumLayers())
	assert.Equal(t, 3, clone.BatchSize())
	assert.Same(t, n.Trainer(), clone.Trainer())
	require.Len(t, clone.ParameterStates(), len(n.ParameterStates()))

	for i := 0; i < n.NumLayers(); i++ {
		assert.Equal(t, n.Layer(i).OutputShape(), clone.Layer(i).OutputShape(), "layer %d", i)
		assert.NotSame(t, &n.Layer(i).Output()[0], &clone.Layer(i).Output()[0], "layer %d output shared", i)
	}
	for i, ps := range n.ParameterStates() {
		assert.NotSame(t, ps.Weights, clone.ParameterStates()[i].Weights)
	}

	orig := n.Layer(1).(layer.Weighted)
	before := append([]float32(nil), orig.Weights()...)
	cw := clone.Layer(1).(layer.Weighted).Weights()
	for i := range cw {
		cw[i] = 42
	}
	assert.Equal(t, before, orig.Weights())
}

func TestClone_UnaffectedByConfigMutation(t *testing.T) {
	cfg := &layer.FullyConnectedConfig{NumPlanes: 4, ImageSize: 1}
	n := build(t, &layer.InputConfig{NumPlanes: 1, ImageSize: 3}, cfg)
	cfg.NumPlanes = 99

	clone, err := n.Clone()
	require.NoError(t, err)
	cube, err := clone.OutputCubeSize()
	require.NoError(t, err)
	assert.Equal(t, 4, cube)
}

func TestBackward_ExplicitTargets(t *testing.T) {
	n := build(t,
		&layer.InputConfig{NumPlanes: 1, ImageSize: 2},
		&layer.FullyConnectedConfig{NumPlanes: 2, ImageSize: 1, Biased: true},
		&layer.SquareLossConfig{},
	)
	require.NoError(t, n.SetBatchSize(2))
	n.SetTrainer(&optim.SGD{LearningRate: 0.05})

	ctx := context.Background()
	images := []float32{1, 0, 0, 1, 0, 1, 1, 0}
	expected := []float32{1, -1, -1, 1}

	require.NoError(t, n.Forward(ctx, images))
	first, err := n.CalcLoss(expected)
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		require.NoError(t, n.Forward(ctx, images))
		require.NoError(t, n.Backward(ctx, expected))
		require.NoError(t, n.UpdateWeights())
	}
	require.NoError(t, n.Forward(ctx, images))
	last, err := n.CalcLoss(expected)
	require.NoError(t, err)
	assert.Less(t, last, first)

	assert.ErrorIs(t, n.Backward(ctx, expected[:3]), ErrStructural)
}

func TestTrainerStates(t *testing.T) {
	n := mnistLike(t)
	assert.ErrorIs(t, n.UpdateWeights(), ErrStructural)

	n.SetTrainer(&optim.SGD{LearningRate: 0.1, Momentum: 0.9})
	states := n.ParameterStates()
	require.Len(t, states, 1)
	assert.Equal(t, 1, states[0].Index)
	assert.NotNil(t, states[0].Bias)

	// States persist across calls and are created for layers added later.
	require.NoError(t, n.AddLayer(&layer.FullyConnectedConfig{NumPlanes: 3, ImageSize: 1}))
	require.Len(t, n.ParameterStates(), 2)
	assert.Same(t, states[0], n.ParameterStates()[0])
	assert.Nil(t, n.ParameterStates()[1].Bias)
}

func TestInitWeights(t *testing.T) {
	n := build(t,
		&layer.InputConfig{NumPlanes: 1, ImageSize: 1},
		&layer.FullyConnectedConfig{NumPlanes: 2, ImageSize: 1, Biased: true},
		&layer.SoftMaxConfig{},
	)
	require.NoError(t, n.InitWeights(1, []float32{2, -2}, []float32{0, 1}))
	require.NoError(t, n.Forward(context.Background(), []float32{1}))
	fc, err := n.LayerOutput(1)
	require.NoError(t, err)
	assert.Equal(t, []float32{2, -1}, fc)

	assert.ErrorIs(t, n.InitWeights(0, nil, nil), ErrStructural)
	assert.ErrorIs(t, n.InitWeights(2, nil, nil), ErrStructural)
	assert.ErrorIs(t, n.InitWeights(7, nil, nil), ErrStructural)
	assert.ErrorIs(t, n.InitWeights(1, []float32{1}, nil), ErrConfiguration)
	_, err = n.LayerOutput(3)
	assert.ErrorIs(t, err, ErrStructural)
}

func TestInstrumentationSpans(t *testing.T) {
	n := mnistLike(t)
	timer := instrument.NewTimer()
	ctx := instrument.WithTimer(context.Background(), timer)

	require.NoError(t, n.Forward(ctx, make([]float32, 784)))
	require.NoError(t, n.BackwardFromLabels(ctx, []int{3}))

	names := map[string]int{}
	for _, s := range timer.Spans() {
		names[s.Name] = s.Count
	}
	assert.Equal(t, map[string]int{
		"layer0 forward":  1,
		"layer1 forward":  1,
		"layer2 forward":  1,
		"layer2 backward": 1,
		"layer1 backward": 1,
	}, names)
}

func TestNewWithInput(t *testing.T) {
	n, err := NewWithInput(testBackend(), 3, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, n.NumLayers())
	in, err := n.InputCubeSize()
	require.NoError(t, err)
	assert.Equal(t, 75, in)

	_, err = NewWithInput(testBackend(), 0, 5)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestStringAndCode(t *testing.T) {
	n := mnistLike(t)
	s := n.String()
	assert.Contains(t, s, "layer 0:InputLayer{outputShape=1x28x28}\n")
	assert.Contains(t, s, "layer 1:FullyConnectedLayer{")
	assert.Contains(t, s, "layer 2:SoftMaxLayer{classes=10}\n")

	var buf bytes.Buffer
	require.NoError(t, n.WriteWeightsAsCode(&buf))
	assert.Contains(t, buf.String(), "weights1 := []float32{")
	assert.NotContains(t, buf.String(), "weights2")

	buf.Reset()
	require.NoError(t, n.WriteBiasAsCode(&buf))
	assert.Contains(t, buf.String(), "bias1 := []float32{")
}
