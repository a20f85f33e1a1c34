package cpuacc

import (
	"github.com/born-ml/hetero/internal/handle"
	"github.com/born-ml/hetero/internal/tensor"
)

// TensorHandle stores a tensor in host memory in the backend's native
// dimension order.
type TensorHandle struct {
	info   tensor.Info
	order  tensor.DimOrder
	native tensor.Shape
	buf    *tensor.Buffer
}

var _ handle.TensorHandle = (*TensorHandle)(nil)

// NewTensorHandle allocates a zeroed handle laid out by order.
func NewTensorHandle(info tensor.Info, order tensor.DimOrder) *TensorHandle {
	native := order.ToNative(info.Shape())
	buf, err := tensor.NewBuffer(native, info.DataType())
	if err != nil {
		// info was validated by NewInfo; a failure here is a bug.
		panic(err)
	}
	return &TensorHandle{info: info, order: order, native: native, buf: buf}
}

// Backend returns CPUAcc.
func (h *TensorHandle) Backend() tensor.BackendID { return tensor.CPUAcc }

// TensorInfo returns the descriptor in declaration order.
func (h *TensorHandle) TensorInfo() tensor.Info { return h.info }

// NativeShape returns the storage shape.
func (h *TensorHandle) NativeShape() tensor.Shape { return h.native.Clone() }

// Order returns the layout rule.
func (h *TensorHandle) Order() tensor.DimOrder { return h.order }

// Buffer returns the native buffer.
func (h *TensorHandle) Buffer() *tensor.Buffer { return h.buf }

// Release frees the buffer.
func (h *TensorHandle) Release() { h.buf.Release() }

// Released reports whether the buffer was freed.
func (h *TensorHandle) Released() bool { return h.buf.Released() }
