//go:build windows

package gpuacc

import (
	"github.com/born-ml/hetero/internal/handle"
	"github.com/born-ml/hetero/internal/tensor"
	"github.com/go-webgpu/webgpu/wgpu"
)

var handleUsage = wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst

// TensorHandle stores a tensor in a device buffer in native order.
type TensorHandle struct {
	info     tensor.Info
	order    tensor.DimOrder
	native   tensor.Shape
	dev      *Device
	buf      *wgpu.Buffer
	size     uint64 // NumBytes rounded up to 4.
	capacity uint64 // Bytes of buf, at least size when served from the pool.
	released bool
}

var _ handle.TensorHandle = (*TensorHandle)(nil)

// NewTensorHandle allocates a device buffer for info from dev's pool.
func NewTensorHandle(dev *Device, info tensor.Info, order tensor.DimOrder) *TensorHandle {
	size := alignedSize(info.NumBytes())
	buf, capacity := dev.Pool().Acquire(size, handleUsage)
	return &TensorHandle{
		info:     info,
		order:    order,
		native:   order.ToNative(info.Shape()),
		dev:      dev,
		buf:      buf,
		size:     size,
		capacity: capacity,
	}
}

// Backend returns GPUAcc.
func (h *TensorHandle) Backend() tensor.BackendID { return tensor.GPUAcc }

// TensorInfo returns the descriptor in declaration order.
func (h *TensorHandle) TensorInfo() tensor.Info { return h.info }

// NativeShape returns the storage shape.
func (h *TensorHandle) NativeShape() tensor.Shape { return h.native.Clone() }

// Order returns the layout rule.
func (h *TensorHandle) Order() tensor.DimOrder { return h.order }

// Release returns the buffer to the pool.
func (h *TensorHandle) Release() {
	if h.released {
		return
	}
	h.released = true
	h.dev.Pool().Release(h.buf, h.capacity, handleUsage)
	h.buf = nil
}

// Released reports whether Release has been called.
func (h *TensorHandle) Released() bool { return h.released }

// Copy sizes must be multiples of 4 bytes.
func alignedSize(n int) uint64 {
	return (uint64(n) + 3) &^ 3
}
