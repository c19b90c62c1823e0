//go:build windows

package webgpu

import (
	"fmt"

	"github.com/born-ml/layernet/internal/tensor"
)

func checkLen(op, name string, n, want int) {
	if n < want {
		panic(fmt.Sprintf("webgpu: %s: %s has %d elements, need %d", op, name, n, want))
	}
}

func boolU32(v bool) uint32 {
	if v {
		return 1
	}
	return 0
}

// MatMul computes c = op(a) @ op(b) on the GPU.
func (b *Backend) MatMul(c, a, bm []float32, m, k, n int, transA, transB bool) {
	checkLen("matmul", "a", len(a), m*k)
	checkLen("matmul", "b", len(bm), k*n)
	checkLen("matmul", "c", len(c), m*n)
	if m == 0 || n == 0 {
		return
	}
	if k == 0 {
		clear(c[:m*n])
		return
	}

	bufA := b.uploadFloats(a, m*k)
	defer bufA.buffer.Release()
	bufB := b.uploadFloats(bm, k*n)
	defer bufB.buffer.Release()
	params := b.createUniformBuffer(uint32(m), uint32(k), uint32(n), boolU32(transA), boolU32(transB)) //nolint:gosec // dims fit in u32
	defer params.buffer.Release()
	result := b.acquireResult(m * n)
	defer b.releaseResult(result)

	b.dispatch("matmul", matmulShader, []binding{bufA, bufB, result, params}, groups(n, tileSize), groups(m, tileSize), 1)
	b.readFloats("matmul", c, result)
}

// Conv2D performs a stride-1 zero-padded convolution on the GPU.
func (b *Backend) Conv2D(output, input, filters []float32, g tensor.ConvGeometry) {
	checkLen("conv2d", "input", len(input), g.InputLen())
	checkLen("conv2d", "filters", len(filters), g.FilterLen())
	checkLen("conv2d", "output", len(output), g.OutputLen())
	if g.OutputLen() == 0 {
		return
	}

	bufIn := b.uploadFloats(input, g.InputLen())
	defer bufIn.buffer.Release()
	bufF := b.uploadFloats(filters, g.FilterLen())
	defer bufF.buffer.Release()
	out := g.OutSize()
	//nolint:gosec // geometry dims fit in u32
	params := b.createUniformBuffer(uint32(g.Batch), uint32(g.InPlanes), uint32(g.InSize),
		uint32(g.OutPlanes), uint32(g.FilterSize), uint32(g.Padding), uint32(out))
	defer params.buffer.Release()
	result := b.acquireResult(g.OutputLen())
	defer b.releaseResult(result)

	b.dispatch("conv2d", conv2dShader, []binding{bufIn, bufF, result, params},
		groups(out, convTile), groups(out, convTile), uint32(g.Batch*g.OutPlanes)) //nolint:gosec // positive
	b.readFloats("conv2d", output, result)
}

// Conv2DInputBackward runs on the CPU reference kernel.
func (b *Backend) Conv2DInputBackward(gradInput, gradOutput, filters []float32, g tensor.ConvGeometry) {
	b.fallback.Conv2DInputBackward(gradInput, gradOutput, filters, g)
}

// Conv2DFilterBackward runs on the CPU reference kernel.
func (b *Backend) Conv2DFilterBackward(gradFilters, gradOutput, input []float32, g tensor.ConvGeometry) {
	b.fallback.Conv2DFilterBackward(gradFilters, gradOutput, input, g)
}

// MaxPool2D pools on the GPU and reads back both values and selectors.
func (b *Backend) MaxPool2D(output []float32, selectors []int32, input []float32, g tensor.PoolGeometry) {
	if g.PoolSize <= 0 {
		panic(fmt.Sprintf("webgpu: maxpool2d: invalid pool size %d", g.PoolSize))
	}
	inLen := g.Batch * g.Planes * g.InSize * g.InSize
	total := g.OutputLen()
	checkLen("maxpool2d", "input", len(input), inLen)
	checkLen("maxpool2d", "output", len(output), total)
	checkLen("maxpool2d", "selectors", len(selectors), total)
	if total == 0 {
		return
	}

	bufIn := b.uploadFloats(input, inLen)
	defer bufIn.buffer.Release()
	//nolint:gosec // geometry dims fit in u32
	params := b.createUniformBuffer(uint32(total), uint32(g.InSize), uint32(g.PoolSize), uint32(g.OutSize()))
	defer params.buffer.Release()
	result := b.acquireResult(total)
	defer b.releaseResult(result)
	sel := b.acquireResult(total)
	defer b.releaseResult(sel)

	b.dispatch("maxpool2d", maxPool2dShader, []binding{bufIn, result, sel, params}, groups(total, workgroupSize), 1, 1)
	b.readFloats("maxpool2d", output, result)
	b.readInts("maxpool2d", selectors, sel)
}

// MaxPool2DBackward runs on the CPU reference kernel.
func (b *Backend) MaxPool2DBackward(gradInput, gradOutput []float32, selectors []int32, g tensor.PoolGeometry) {
	b.fallback.MaxPool2DBackward(gradInput, gradOutput, selectors, g)
}

// Activate applies fn element-wise on the GPU.
func (b *Backend) Activate(output, input []float32, n int, fn tensor.Activation) {
	checkLen("activate", "input", len(input), n)
	checkLen("activate", "output", len(output), n)
	if n == 0 {
		return
	}

	bufIn := b.uploadFloats(input, n)
	defer bufIn.buffer.Release()
	params := b.createUniformBuffer(uint32(n), uint32(fn)) //nolint:gosec // small enum and size
	defer params.buffer.Release()
	result := b.acquireResult(n)
	defer b.releaseResult(result)

	b.dispatch("activate", activationShader, []binding{bufIn, result, params}, groups(n, workgroupSize), 1, 1)
	b.readFloats("activate", output, result)
}

// ActivateBackward multiplies gradients by the activation derivative on the GPU.
func (b *Backend) ActivateBackward(gradInput, gradOutput, output []float32, n int, fn tensor.Activation) {
	checkLen("activate_backward", "gradOutput", len(gradOutput), n)
	checkLen("activate_backward", "output", len(output), n)
	checkLen("activate_backward", "gradInput", len(gradInput), n)
	if n == 0 {
		return
	}

	bufGrad := b.uploadFloats(gradOutput, n)
	defer bufGrad.buffer.Release()
	bufOut := b.uploadFloats(output, n)
	defer bufOut.buffer.Release()
	params := b.createUniformBuffer(uint32(n), uint32(fn)) //nolint:gosec // small enum and size
	defer params.buffer.Release()
	result := b.acquireResult(n)
	defer b.releaseResult(result)

	b.dispatch("activate_backward", activationBackwardShader, []binding{bufGrad, bufOut, result, params}, groups(n, workgroupSize), 1, 1)
	b.readFloats("activate_backward", gradInput, result)
}
