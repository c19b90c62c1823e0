package cpu

import (
	"github.com/born-ml/layernet/internal/parallel"
	"github.com/born-ml/layernet/internal/tensor"
)

// activationChunk keeps tiny element-wise loops on the caller's goroutine.
const activationChunk = 4096

// Activate computes output[i] = fn(input[i]) for i < n.
func (cpu *CPUBackend) Activate(output, input []float32, n int, fn tensor.Activation) {
	checkLen("activate", "input", len(input), n)
	checkLen("activate", "output", len(output), n)
	if fn == tensor.Linear {
		copy(output[:n], input[:n])
		return
	}
	parallel.ForChunks(n, func(start, end int) {
		for i := start; i < end; i++ {
			output[i] = fn.Apply(input[i])
		}
	}, cpu.elementwise())
}

// ActivateBackward computes gradInput[i] = gradOutput[i] * fn'(output[i]).
func (cpu *CPUBackend) ActivateBackward(gradInput, gradOutput, output []float32, n int, fn tensor.Activation) {
	checkLen("activate_backward", "gradOutput", len(gradOutput), n)
	checkLen("activate_backward", "output", len(output), n)
	checkLen("activate_backward", "gradInput", len(gradInput), n)
	if fn == tensor.Linear {
		copy(gradInput[:n], gradOutput[:n])
		return
	}
	parallel.ForChunks(n, func(start, end int) {
		for i := start; i < end; i++ {
			gradInput[i] = gradOutput[i] * fn.Derivative(output[i])
		}
	}, cpu.elementwise())
}

func (cpu *CPUBackend) elementwise() parallel.Config {
	cfg := cpu.parallel
	cfg.MinChunkSize = max(cfg.MinChunkSize, activationChunk)
	return cfg
}
