package cpu

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/layernet/internal/parallel"
	"github.com/born-ml/layernet/internal/tensor"
)

func randomSlice(rng *rand.Rand, n int) []float32 {
	s := make([]float32, n)
	for i := range s {
		s[i] = rng.Float32()*2 - 1
	}
	return s
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// backends returns a sequential and a parallel backend so both code paths run.
func backends() map[string]*CPUBackend {
	return map[string]*CPUBackend{
		"sequential": NewWithConfig(parallel.Sequential()),
		"parallel":   NewWithConfig(parallel.Config{Enabled: true, NumWorkers: 3, MinChunkSize: 1}),
	}
}

func TestBackendIdentity(t *testing.T) {
	b := New()
	assert.Equal(t, "CPU", b.Name())
	assert.Equal(t, tensor.CPU, b.Device())
	b.Release()
}

func naiveMatMul(a, b []float32, m, k, n int, transA, transB bool) []float32 {
	c := make([]float32, m*n)
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			var sum float32
			for p := 0; p < k; p++ {
				av := a[i*k+p]
				if transA {
					av = a[p*m+i]
				}
				bv := b[p*n+j]
				if transB {
					bv = b[j*k+p]
				}
				sum += av * bv
			}
			c[i*n+j] = sum
		}
	}
	return c
}

func TestMatMul(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	m, k, n := 4, 5, 3
	a := randomSlice(rng, m*k)
	b := randomSlice(rng, k*n)

	for _, tc := range []struct {
		name           string
		transA, transB bool
	}{
		{"NN", false, false},
		{"TN", true, false},
		{"NT", false, true},
		{"TT", true, true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c := make([]float32, m*n)
			for i := range c {
				c[i] = 99 // must be overwritten
			}
			New().MatMul(c, a, b, m, k, n, tc.transA, tc.transB)
			assert.InDeltaSlice(t, naiveMatMul(a, b, m, k, n, tc.transA, tc.transB), c, 1e-5)
		})
	}
}

func TestMatMul_Known(t *testing.T) {
	a := []float32{1, 2, 3, 4, 5, 6} // 2x3
	b := []float32{7, 8, 9, 10, 11, 12} // 3x2
	c := make([]float32, 4)
	New().MatMul(c, a, b, 2, 3, 2, false, false)
	assert.Equal(t, []float32{58, 64, 139, 154}, c)
}

func TestMatMul_ShortBufferPanics(t *testing.T) {
	assert.Panics(t, func() {
		New().MatMul(make([]float32, 3), make([]float32, 4), make([]float32, 4), 2, 2, 2, false, false)
	})
}

func naiveConv(input, filters []float32, g tensor.ConvGeometry) []float32 {
	out := g.OutSize()
	k := g.FilterSize
	res := make([]float32, g.OutputLen())
	for b := 0; b < g.Batch; b++ {
		for f := 0; f < g.OutPlanes; f++ {
			for oy := 0; oy < out; oy++ {
				for ox := 0; ox < out; ox++ {
					var sum float32
					for c := 0; c < g.InPlanes; c++ {
						for ky := 0; ky < k; ky++ {
							for kx := 0; kx < k; kx++ {
								y := oy + ky - g.Padding
								x := ox + kx - g.Padding
								if y < 0 || y >= g.InSize || x < 0 || x >= g.InSize {
									continue
								}
								in := input[((b*g.InPlanes+c)*g.InSize+y)*g.InSize+x]
								w := filters[((f*g.InPlanes+c)*k+ky)*k+kx]
								sum += in * w
							}
						}
					}
					res[((b*g.OutPlanes+f)*out+oy)*out+ox] = sum
				}
			}
		}
	}
	return res
}

var convGeometries = []tensor.ConvGeometry{
	{Batch: 1, InPlanes: 1, InSize: 3, OutPlanes: 1, FilterSize: 2},
	{Batch: 3, InPlanes: 2, InSize: 5, OutPlanes: 4, FilterSize: 3, Padding: 1},
	{Batch: 2, InPlanes: 3, InSize: 6, OutPlanes: 2, FilterSize: 5, Padding: 2},
}

func TestConv2D_Basic(t *testing.T) {
	// 1 2 3
	// 4 5 6   conv  [1 0; 0 1]  ->  [6 8; 12 14]
	// 7 8 9
	input := []float32{1, 2, 3, 4, 5, 6, 7, 8, 9}
	filters := []float32{1, 0, 0, 1}
	output := make([]float32, 4)
	g := tensor.ConvGeometry{Batch: 1, InPlanes: 1, InSize: 3, OutPlanes: 1, FilterSize: 2}

	New().Conv2D(output, input, filters, g)
	assert.Equal(t, []float32{6, 8, 12, 14}, output)
}

func TestConv2D_MatchesNaive(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for name, b := range backends() {
		for _, g := range convGeometries {
			input := randomSlice(rng, g.InputLen())
			filters := randomSlice(rng, g.FilterLen())
			output := make([]float32, g.OutputLen())

			b.Conv2D(output, input, filters, g)
			assert.InDeltaSlice(t, naiveConv(input, filters, g), output, 1e-4, "%s %+v", name, g)
		}
	}
}

// Input and filter gradients are the adjoints of the forward map:
// <conv(x, w), y> == <x, dX(y, w)> == <w, dW(y, x)>.
func TestConv2DBackward_Adjoint(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for name, b := range backends() {
		for _, g := range convGeometries {
			x := randomSlice(rng, g.InputLen())
			w := randomSlice(rng, g.FilterLen())
			y := randomSlice(rng, g.OutputLen())

			out := make([]float32, g.OutputLen())
			b.Conv2D(out, x, w, g)
			forward := dot(out, y)

			gradX := make([]float32, g.InputLen())
			for i := range gradX {
				gradX[i] = 42
			}
			b.Conv2DInputBackward(gradX, y, w, g)
			assert.InDelta(t, forward, dot(x, gradX), 1e-3, "%s input %+v", name, g)

			gradW := make([]float32, g.FilterLen())
			for i := range gradW {
				gradW[i] = 42
			}
			b.Conv2DFilterBackward(gradW, y, x, g)
			assert.InDelta(t, forward, dot(w, gradW), 1e-3, "%s filter %+v", name, g)
		}
	}
}

func TestMaxPool2D(t *testing.T) {
	input := []float32{
		1, 2, 3, 4,
		5, 6, 7, 8,
		9, 10, 11, 12,
		13, 14, 15, 16,
	}
	g := tensor.PoolGeometry{Batch: 1, Planes: 1, InSize: 4, PoolSize: 2}
	output := make([]float32, 4)
	selectors := make([]int32, 4)

	b := New()
	b.MaxPool2D(output, selectors, input, g)
	assert.Equal(t, []float32{6, 8, 14, 16}, output)
	assert.Equal(t, []int32{5, 7, 13, 15}, selectors)

	gradIn := make([]float32, 16)
	gradIn[0] = 7 // stale value must be cleared
	b.MaxPool2DBackward(gradIn, []float32{1, 2, 3, 4}, selectors, g)
	want := make([]float32, 16)
	want[5], want[7], want[13], want[15] = 1, 2, 3, 4
	assert.Equal(t, want, gradIn)
}

func TestMaxPool2D_PadZerosAndBatch(t *testing.T) {
	// Two examples, one plane each, 3x3 pooled by 2 with a partial border window.
	input := []float32{
		1, -5, 2,
		-3, -4, 0,
		-7, -8, -9,

		0, 0, 0,
		0, 0, 0,
		0, 0, 5,
	}
	g := tensor.PoolGeometry{Batch: 2, Planes: 1, InSize: 3, PoolSize: 2, PadZeros: true}
	require.Equal(t, 2, g.OutSize())

	output := make([]float32, g.OutputLen())
	selectors := make([]int32, g.OutputLen())
	New().MaxPool2D(output, selectors, input, g)

	assert.Equal(t, []float32{1, 2, -7, -9, 0, 0, 0, 5}, output)
	// Ties keep the first position; selectors index the whole batch.
	assert.Equal(t, []int32{0, 2, 6, 8, 9, 11, 15, 17}, selectors)
}

func TestActivate(t *testing.T) {
	input := []float32{-2, -0.5, 0, 0.5, 2}
	for _, fn := range []tensor.Activation{tensor.Linear, tensor.ReLU, tensor.Tanh, tensor.ScaledTanh, tensor.Sigmoid} {
		out := make([]float32, len(input))
		New().Activate(out, input, len(input), fn)
		for i, x := range input {
			assert.InDelta(t, fn.Apply(x), out[i], 1e-6, fn.String())
		}

		gradOut := []float32{1, 2, 3, 4, 5}
		gradIn := make([]float32, len(input))
		New().ActivateBackward(gradIn, gradOut, out, len(input), fn)
		for i := range gradIn {
			assert.InDelta(t, gradOut[i]*fn.Derivative(out[i]), gradIn[i], 1e-6, fn.String())
		}
	}
}

func TestActivate_InPlaceLarge(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	n := 3*activationChunk + 17
	data := randomSlice(rng, n)
	want := make([]float32, n)
	for i, v := range data {
		want[i] = tensor.ReLU.Apply(v)
	}

	b := NewWithConfig(parallel.Config{Enabled: true, NumWorkers: 4, MinChunkSize: 1})
	b.Activate(data, data, n, tensor.ReLU)
	assert.Equal(t, want, data)
}
