// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cpu

import (
	internalcpu "github.com/born-ml/layernet/internal/backend/cpu"
	"github.com/born-ml/layernet/internal/parallel"
	"github.com/born-ml/layernet/tensor"
)

// Backend represents the CPU backend implementation.
type Backend = internalcpu.CPUBackend

// Compile-time check that Backend implements tensor.Backend.
var _ tensor.Backend = (*Backend)(nil)

// New creates a CPU backend using one worker per CPU.
func New() *Backend {
	return internalcpu.New()
}

// NewWithWorkers creates a CPU backend with at most workers goroutines per
// kernel. workers <= 1 runs kernels sequentially.
func NewWithWorkers(workers int) *Backend {
	if workers <= 1 {
		return internalcpu.NewWithConfig(parallel.Sequential())
	}
	cfg := parallel.DefaultConfig()
	cfg.NumWorkers = workers
	return internalcpu.NewWithConfig(cfg)
}
