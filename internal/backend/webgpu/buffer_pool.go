//go:build windows

package webgpu

import (
	"sync"

	"github.com/go-webgpu/webgpu/wgpu"
)

// maxPooledBuffers bounds how many idle buffers the pool keeps.
const maxPooledBuffers = 64

type pooledBuffer struct {
	buffer *wgpu.Buffer
	size   uint64
	usage  wgpu.BufferUsage
}

// PoolStats summarizes buffer pool activity.
type PoolStats struct {
	Allocated uint64
	Hits      uint64
	Misses    uint64
	Idle      int
}

// BufferPool recycles kernel result buffers between dispatches.
// Layers reuse the same buffer sizes every batch, so after the first
// iteration nearly every acquire is a hit.
type BufferPool struct {
	device *wgpu.Device
	idle   []*pooledBuffer
	mu     sync.Mutex
	stats  PoolStats
}

// NewBufferPool creates a new buffer pool for the given device.
func NewBufferPool(device *wgpu.Device) *BufferPool {
	return &BufferPool{
		device: device,
		idle:   make([]*pooledBuffer, 0, maxPooledBuffers),
	}
}

// Acquire returns an idle buffer of exactly the requested size and usage,
// or creates one.
func (p *BufferPool) Acquire(size uint64, usage wgpu.BufferUsage) *wgpu.Buffer {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, pb := range p.idle {
		if pb.size == size && pb.usage == usage {
			p.idle = append(p.idle[:i], p.idle[i+1:]...)
			p.stats.Hits++
			return pb.buffer
		}
	}

	p.stats.Misses++
	p.stats.Allocated++
	return p.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: usage,
		Size:  size,
	})
}

// Release returns a buffer to the pool, evicting the oldest idle buffer
// when the pool is full.
func (p *BufferPool) Release(buffer *wgpu.Buffer, size uint64, usage wgpu.BufferUsage) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.idle) >= maxPooledBuffers {
		p.idle[0].buffer.Release()
		p.idle = p.idle[1:]
	}
	p.idle = append(p.idle, &pooledBuffer{buffer: buffer, size: size, usage: usage})
}

// Clear releases all pooled buffers.
func (p *BufferPool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, pb := range p.idle {
		pb.buffer.Release()
	}
	p.idle = p.idle[:0]
}

// Stats returns a snapshot of pool activity.
func (p *BufferPool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.stats
	s.Idle = len(p.idle)
	return s
}
