// Package handle defines the backend-neutral view of a tensor's storage.
//
// A TensorHandle owns one tensor's memory on one backend, laid out in that
// backend's native dimension order. The layer that created a handle is its
// only owner; workloads and consumers borrow it for the lifetime of the graph.
package handle

import (
	"github.com/born-ml/hetero/internal/tensor"
)

// TensorHandle is implemented once per backend.
type TensorHandle interface {
	// Backend returns the tag of the backend that allocated the handle.
	Backend() tensor.BackendID

	// TensorInfo returns the descriptor in declaration order, regardless of
	// how the backend stores the dimensions.
	TensorInfo() tensor.Info

	// NativeShape returns the shape in the backend's storage order, most
	// significant axis first.
	NativeShape() tensor.Shape

	// Order returns the dimension-order rule the backend applied.
	Order() tensor.DimOrder

	// Release frees the backing memory. Only the owning layer calls it.
	Release()

	// Released reports whether Release has been called.
	Released() bool
}

// Factory allocates tensor handles for one backend.
type Factory interface {
	Backend() tensor.BackendID
	CreateTensorHandle(info tensor.Info) (TensorHandle, error)
}

// PortableShape translates a handle's native shape back to declaration order.
func PortableShape(h TensorHandle) tensor.Shape {
	return h.Order().ToPortable(h.NativeShape())
}
