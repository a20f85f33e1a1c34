//go:build windows

package gpuacc

import (
	"sync"

	"github.com/go-webgpu/webgpu/wgpu"
)

const (
	smallThreshold  = 4 * 1024
	mediumThreshold = 1024 * 1024
	maxPoolSize     = 64 // per size class
)

type pooledBuffer struct {
	buffer *wgpu.Buffer
	size   uint64
	usage  wgpu.BufferUsage
}

// BufferPool recycles device buffers released by tensor handles. Buffers are
// grouped into small, medium and large size classes; a request is served by
// the first pooled buffer of its class that is large enough and carries the
// requested usage flags.
type BufferPool struct {
	device  *wgpu.Device
	classes [3][]*pooledBuffer

	mu sync.Mutex

	allocated uint64
	released  uint64
	hits      uint64
	misses    uint64
}

// NewBufferPool creates an empty pool for device.
func NewBufferPool(device *wgpu.Device) *BufferPool {
	return &BufferPool{device: device}
}

// Acquire returns a buffer of at least size bytes with the given usage, and
// its real capacity. The capacity must be passed back to Release.
func (p *BufferPool) Acquire(size uint64, usage wgpu.BufferUsage) (*wgpu.Buffer, uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	c := classOf(size)
	for i, pb := range p.classes[c] {
		if pb.size >= size && pb.usage&usage == usage {
			p.classes[c] = append(p.classes[c][:i], p.classes[c][i+1:]...)
			p.hits++
			return pb.buffer, pb.size
		}
	}

	p.misses++
	p.allocated++
	return p.device.CreateBuffer(&wgpu.BufferDescriptor{Usage: usage, Size: size}), size
}

// Release returns a buffer of the given capacity to the pool, or frees it
// when its class is full.
func (p *BufferPool) Release(buffer *wgpu.Buffer, size uint64, usage wgpu.BufferUsage) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.released++
	c := classOf(size)
	if len(p.classes[c]) >= maxPoolSize {
		buffer.Release()
		return
	}
	p.classes[c] = append(p.classes[c], &pooledBuffer{buffer: buffer, size: size, usage: usage})
}

// Clear frees every pooled buffer.
func (p *BufferPool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for c := range p.classes {
		for _, pb := range p.classes[c] {
			pb.buffer.Release()
		}
		p.classes[c] = nil
	}
}

// PoolStats counts pool traffic.
type PoolStats struct {
	Allocated, Released, Hits, Misses uint64
	Pooled                            int
}

// Stats returns the pool counters.
func (p *BufferPool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := PoolStats{Allocated: p.allocated, Released: p.released, Hits: p.hits, Misses: p.misses}
	for _, c := range p.classes {
		s.Pooled += len(c)
	}
	return s
}

func classOf(size uint64) int {
	switch {
	case size < smallThreshold:
		return 0
	case size < mediumThreshold:
		return 1
	default:
		return 2
	}
}
