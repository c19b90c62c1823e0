//go:build windows

package webgpu

import (
	"encoding/binary"
	"fmt"
	"math"
	"unsafe"

	"github.com/go-webgpu/webgpu/wgpu"
)

const resultUsage = wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst

// binding is one storage or uniform buffer bound to a shader slot.
type binding struct {
	buffer *wgpu.Buffer
	size   uint64
}

// compileShader compiles WGSL shader code into a ShaderModule.
// Results are cached in the Backend's shaders map.
func (b *Backend) compileShader(name, code string) *wgpu.ShaderModule {
	b.mu.RLock()
	if shader, exists := b.shaders[name]; exists {
		b.mu.RUnlock()
		return shader
	}
	b.mu.RUnlock()

	shader := b.device.CreateShaderModuleWGSL(code)

	b.mu.Lock()
	b.shaders[name] = shader
	b.mu.Unlock()

	return shader
}

// getOrCreatePipeline returns a cached ComputePipeline or creates a new one.
func (b *Backend) getOrCreatePipeline(name string, shader *wgpu.ShaderModule) *wgpu.ComputePipeline {
	b.mu.RLock()
	if pipeline, exists := b.pipelines[name]; exists {
		b.mu.RUnlock()
		return pipeline
	}
	b.mu.RUnlock()

	// Auto layout (nil layout).
	pipeline := b.device.CreateComputePipelineSimple(nil, shader, "main")

	b.mu.Lock()
	b.pipelines[name] = pipeline
	b.mu.Unlock()

	return pipeline
}

// createBuffer creates a GPU buffer and uploads initial data.
func (b *Backend) createBuffer(data []byte, usage wgpu.BufferUsage) *wgpu.Buffer {
	size := uint64(len(data))

	buffer := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            usage,
		Size:             size,
		MappedAtCreation: wgpu.True,
	})

	mappedPtr := buffer.GetMappedRange(0, size)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	mappedSlice := unsafe.Slice((*byte)(mappedPtr), size)
	copy(mappedSlice, data)
	buffer.Unmap()

	return buffer
}

// uploadFloats creates a read-only storage buffer holding data[:n].
func (b *Backend) uploadFloats(data []float32, n int) binding {
	//nolint:gosec // unsafe.Slice reinterprets the float32 backing array as bytes
	raw := unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), n*4)
	return binding{buffer: b.createBuffer(raw, wgpu.BufferUsageStorage|wgpu.BufferUsageCopySrc), size: uint64(n * 4)}
}

// createUniformBuffer packs params as consecutive u32 fields, padded to
// the 16-byte alignment uniform buffers require.
func (b *Backend) createUniformBuffer(params ...uint32) binding {
	size := (uint64(len(params)*4) + 15) &^ 15
	data := make([]byte, size)
	for i, p := range params {
		binary.LittleEndian.PutUint32(data[i*4:], p)
	}
	return binding{buffer: b.createBuffer(data, wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst), size: size}
}

// acquireResult takes a writable storage buffer of n 4-byte elements from the pool.
func (b *Backend) acquireResult(n int) binding {
	size := uint64(n * 4)
	return binding{buffer: b.bufferPool.Acquire(size, resultUsage), size: size}
}

func (b *Backend) releaseResult(r binding) {
	b.bufferPool.Release(r.buffer, r.size, resultUsage)
}

// dispatch binds buffers to slots 0..len-1 in order and runs the shader's
// main entry point over the given workgroup grid.
func (b *Backend) dispatch(name, code string, bindings []binding, x, y, z uint32) {
	shader := b.compileShader(name, code)
	pipeline := b.getOrCreatePipeline(name, shader)

	entries := make([]wgpu.BindGroupEntry, len(bindings))
	for i, bd := range bindings {
		entries[i] = wgpu.BufferBindingEntry(uint32(i), bd.buffer, 0, bd.size) //nolint:gosec // slot count is tiny
	}
	bindGroup := b.device.CreateBindGroupSimple(pipeline.GetBindGroupLayout(0), entries)
	defer bindGroup.Release()

	encoder := b.device.CreateCommandEncoder(nil)
	computePass := encoder.BeginComputePass(nil)
	computePass.SetPipeline(pipeline)
	computePass.SetBindGroup(0, bindGroup, nil)
	computePass.DispatchWorkgroups(x, y, z)
	computePass.End()

	cmdBuffer := encoder.Finish(nil)
	b.queue.Submit(cmdBuffer)
}

// readBuffer reads data back from a GPU buffer to CPU memory.
// Uses a staging buffer since storage buffers can't be mapped directly.
// Mapping waits for all previously submitted work on the queue.
func (b *Backend) readBuffer(srcBuffer *wgpu.Buffer, size uint64) ([]byte, error) {
	stagingBuffer := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
		Size:  size,
	})
	defer stagingBuffer.Release()

	encoder := b.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(srcBuffer, 0, stagingBuffer, 0, size)
	cmdBuffer := encoder.Finish(nil)
	b.queue.Submit(cmdBuffer)

	if err := stagingBuffer.MapAsync(b.device, wgpu.MapModeRead, 0, size); err != nil {
		return nil, fmt.Errorf("failed to map staging buffer: %w", err)
	}

	mappedPtr := stagingBuffer.GetMappedRange(0, size)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	mappedSlice := unsafe.Slice((*byte)(mappedPtr), size)
	result := make([]byte, size)
	copy(result, mappedSlice)
	stagingBuffer.Unmap()

	return result, nil
}

// readFloats copies a result buffer into dst.
func (b *Backend) readFloats(op string, dst []float32, r binding) {
	data, err := b.readBuffer(r.buffer, r.size)
	if err != nil {
		panic(fmt.Sprintf("webgpu: %s: %v", op, err))
	}
	for i := range int(r.size / 4) {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
}

// readInts copies an i32 result buffer into dst.
func (b *Backend) readInts(op string, dst []int32, r binding) {
	data, err := b.readBuffer(r.buffer, r.size)
	if err != nil {
		panic(fmt.Sprintf("webgpu: %s: %v", op, err))
	}
	for i := range int(r.size / 4) {
		dst[i] = int32(binary.LittleEndian.Uint32(data[i*4:])) //nolint:gosec // bit-preserving reinterpretation
	}
}

func groups(n, size int) uint32 {
	return uint32((n + size - 1) / size) //nolint:gosec // non-negative workgroup count
}
