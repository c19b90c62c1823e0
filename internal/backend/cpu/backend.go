// Package cpu implements the reference CPU backend with gonum BLAS integration.
package cpu

import (
	"fmt"

	"github.com/born-ml/layernet/internal/parallel"
	"github.com/born-ml/layernet/internal/tensor"
)

// CPUBackend implements the layer kernels on CPU.
//
// GEMM-shaped work goes through gonum's blas32; batch loops are split across
// workers according to the parallel configuration.
type CPUBackend struct {
	device   tensor.Device
	parallel parallel.Config
}

// New creates a new CPU backend with the default parallel configuration.
func New() *CPUBackend {
	return NewWithConfig(parallel.DefaultConfig())
}

// NewWithConfig creates a CPU backend with an explicit parallel configuration.
func NewWithConfig(cfg parallel.Config) *CPUBackend {
	return &CPUBackend{
		device:   tensor.CPU,
		parallel: cfg,
	}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// Device returns the compute device.
func (cpu *CPUBackend) Device() tensor.Device {
	return cpu.device
}

// Release is a no-op; the CPU backend holds no device resources.
func (cpu *CPUBackend) Release() {}

var _ tensor.Backend = (*CPUBackend)(nil)

func checkLen(op, name string, n, want int) {
	if n < want {
		panic(fmt.Sprintf("%s: %s has %d elements, need %d", op, name, n, want))
	}
}
