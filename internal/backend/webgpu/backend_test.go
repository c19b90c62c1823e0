//go:build windows

package webgpu

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/layernet/internal/backend/cpu"
	"github.com/born-ml/layernet/internal/tensor"
)

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	if !IsAvailable() {
		t.Skip("WebGPU not available")
	}
	b, err := New()
	require.NoError(t, err)
	t.Cleanup(b.Release)
	return b
}

func randomSlice(rng *rand.Rand, n int) []float32 {
	s := make([]float32, n)
	for i := range s {
		s[i] = rng.Float32()*2 - 1
	}
	return s
}

func TestBackendInfo(t *testing.T) {
	b := newTestBackend(t)
	assert.Equal(t, tensor.WebGPU, b.Device())
	assert.Contains(t, b.Name(), "WebGPU")
}

func TestMatMul_MatchesCPU(t *testing.T) {
	b := newTestBackend(t)
	ref := cpu.New()
	rng := rand.New(rand.NewSource(1))
	m, k, n := 7, 5, 9
	a := randomSlice(rng, m*k)
	bm := randomSlice(rng, k*n)

	for _, tr := range [][2]bool{{false, false}, {true, false}, {false, true}, {true, true}} {
		want := make([]float32, m*n)
		got := make([]float32, m*n)
		ref.MatMul(want, a, bm, m, k, n, tr[0], tr[1])
		b.MatMul(got, a, bm, m, k, n, tr[0], tr[1])
		assert.InDeltaSlice(t, want, got, 1e-4, "trans %v", tr)
	}
}

func TestConv2D_MatchesCPU(t *testing.T) {
	b := newTestBackend(t)
	ref := cpu.New()
	rng := rand.New(rand.NewSource(2))
	g := tensor.ConvGeometry{Batch: 2, InPlanes: 3, InSize: 9, OutPlanes: 4, FilterSize: 3, Padding: 1}

	input := randomSlice(rng, g.InputLen())
	filters := randomSlice(rng, g.FilterLen())
	want := make([]float32, g.OutputLen())
	got := make([]float32, g.OutputLen())
	ref.Conv2D(want, input, filters, g)
	b.Conv2D(got, input, filters, g)
	assert.InDeltaSlice(t, want, got, 1e-4)
}

func TestMaxPool2D_MatchesCPU(t *testing.T) {
	b := newTestBackend(t)
	ref := cpu.New()
	rng := rand.New(rand.NewSource(3))
	g := tensor.PoolGeometry{Batch: 2, Planes: 3, InSize: 7, PoolSize: 2, PadZeros: true}

	input := randomSlice(rng, g.Batch*g.Planes*g.InSize*g.InSize)
	wantOut := make([]float32, g.OutputLen())
	wantSel := make([]int32, g.OutputLen())
	gotOut := make([]float32, g.OutputLen())
	gotSel := make([]int32, g.OutputLen())
	ref.MaxPool2D(wantOut, wantSel, input, g)
	b.MaxPool2D(gotOut, gotSel, input, g)
	assert.Equal(t, wantOut, gotOut)
	assert.Equal(t, wantSel, gotSel)
}

func TestActivate_MatchesCPU(t *testing.T) {
	b := newTestBackend(t)
	ref := cpu.New()
	rng := rand.New(rand.NewSource(4))
	n := 1000
	input := randomSlice(rng, n)
	gradOut := randomSlice(rng, n)

	for _, fn := range []tensor.Activation{tensor.Linear, tensor.ReLU, tensor.Tanh, tensor.ScaledTanh, tensor.Sigmoid} {
		want := make([]float32, n)
		got := make([]float32, n)
		ref.Activate(want, input, n, fn)
		b.Activate(got, input, n, fn)
		assert.InDeltaSlice(t, want, got, 1e-5, fn.String())

		wantGrad := make([]float32, n)
		gotGrad := make([]float32, n)
		ref.ActivateBackward(wantGrad, gradOut, want, n, fn)
		b.ActivateBackward(gotGrad, gradOut, want, n, fn)
		assert.InDeltaSlice(t, wantGrad, gotGrad, 1e-5, fn.String())
	}

	stats := b.PoolStats()
	assert.Positive(t, stats.Hits)
}
