package ref

import (
	"github.com/born-ml/hetero/internal/handle"
	"github.com/born-ml/hetero/internal/tensor"
)

// ConstTensorHandle is the read-only view of a Reference handle. Workloads
// that only read a Reference tensor take it in this form and must not write
// to the returned bytes.
type ConstTensorHandle interface {
	handle.TensorHandle
	ConstData() []byte
}

// TensorHandle stores a tensor in host memory in declaration order.
type TensorHandle struct {
	info tensor.Info
	buf  *tensor.Buffer
}

var (
	_ handle.TensorHandle = (*TensorHandle)(nil)
	_ ConstTensorHandle   = (*TensorHandle)(nil)
)

// NewTensorHandle allocates a zeroed Reference handle.
func NewTensorHandle(info tensor.Info) *TensorHandle {
	return &TensorHandle{info: info, buf: tensor.NewBufferFor(info)}
}

// Backend returns CPURef.
func (h *TensorHandle) Backend() tensor.BackendID { return tensor.CPURef }

// TensorInfo returns the descriptor.
func (h *TensorHandle) TensorInfo() tensor.Info { return h.info }

// NativeShape equals the declared shape.
func (h *TensorHandle) NativeShape() tensor.Shape { return h.info.Shape() }

// Order returns the identity order.
func (h *TensorHandle) Order() tensor.DimOrder { return tensor.IdentityOrder }

// Buffer returns the backing buffer.
func (h *TensorHandle) Buffer() *tensor.Buffer { return h.buf }

// Data returns the writable bytes.
func (h *TensorHandle) Data() []byte { return h.buf.Data() }

// ConstData returns the bytes for reading.
func (h *TensorHandle) ConstData() []byte { return h.buf.Data() }

// Release frees the buffer.
func (h *TensorHandle) Release() { h.buf.Release() }

// Released reports whether the buffer was freed.
func (h *TensorHandle) Released() bool { return h.buf.Released() }
