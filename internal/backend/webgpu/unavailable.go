//go:build !windows

// Package webgpu implements the WebGPU backend for the layer kernels.
//
// The go-webgpu binding is only wired on windows builds; elsewhere New
// reports the backend unavailable and callers fall back to the CPU backend.
package webgpu

import (
	"fmt"
	"runtime"

	"github.com/born-ml/layernet/internal/tensor"
)

// Backend is never constructed on this platform.
type Backend struct{}

var _ tensor.Backend = (*Backend)(nil)

// New always fails on this platform.
func New() (*Backend, error) {
	return nil, fmt.Errorf("%w: not supported on %s", ErrUnavailable, runtime.GOOS)
}

// IsAvailable reports false on this platform.
func IsAvailable() bool { return false }

func (b *Backend) Name() string          { return "WebGPU" }
func (b *Backend) Device() tensor.Device { return tensor.WebGPU }
func (b *Backend) Release()              {}

func (b *Backend) MatMul(_, _, _ []float32, _, _, _ int, _, _ bool) {
	panic("webgpu: backend unavailable")
}

func (b *Backend) Conv2D(_, _, _ []float32, _ tensor.ConvGeometry) {
	panic("webgpu: backend unavailable")
}

func (b *Backend) Conv2DInputBackward(_, _, _ []float32, _ tensor.ConvGeometry) {
	panic("webgpu: backend unavailable")
}

func (b *Backend) Conv2DFilterBackward(_, _, _ []float32, _ tensor.ConvGeometry) {
	panic("webgpu: backend unavailable")
}

func (b *Backend) MaxPool2D(_ []float32, _ []int32, _ []float32, _ tensor.PoolGeometry) {
	panic("webgpu: backend unavailable")
}

func (b *Backend) MaxPool2DBackward(_, _ []float32, _ []int32, _ tensor.PoolGeometry) {
	panic("webgpu: backend unavailable")
}

func (b *Backend) Activate(_, _ []float32, _ int, _ tensor.Activation) {
	panic("webgpu: backend unavailable")
}

func (b *Backend) ActivateBackward(_, _, _ []float32, _ int, _ tensor.Activation) {
	panic("webgpu: backend unavailable")
}
