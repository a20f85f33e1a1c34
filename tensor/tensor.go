// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import "github.com/born-ml/hetero/internal/tensor"

// DType is a constraint for element types with a typed host view.
type DType = tensor.DType

// DataType represents runtime type information for tensors.
type DataType = tensor.DataType

// Supported data types.
const (
	Float32 = tensor.Float32
	Float64 = tensor.Float64
	Int32   = tensor.Int32
	Int64   = tensor.Int64
	Uint8   = tensor.Uint8
	Bool    = tensor.Bool
	Float16 = tensor.Float16
)

// Shape is a list of dimension sizes, outermost first.
type Shape = tensor.Shape

// Info describes a tensor: shape in declaration order and element type.
// Info values are immutable.
type Info = tensor.Info

// BackendID tags the backend that owns a tensor handle.
type BackendID = tensor.BackendID

// Backend tags.
const (
	CPURef = tensor.CPURef
	CPUAcc = tensor.CPUAcc
	GPUAcc = tensor.GPUAcc
)

// DimOrder describes how a backend orders dimensions in native storage.
type DimOrder = tensor.DimOrder

// Common dimension orders.
var (
	IdentityOrder = tensor.IdentityOrder
	ReversedOrder = tensor.ReversedOrder
)

// Buffer is a dense block of host memory holding one tensor.
type Buffer = tensor.Buffer

// NewInfo creates a descriptor, rejecting empty or non-positive shapes.
func NewInfo(shape Shape, dtype DataType) (Info, error) {
	return tensor.NewInfo(shape, dtype)
}

// MustInfo is NewInfo that panics on error.
func MustInfo(shape Shape, dtype DataType) Info {
	return tensor.MustInfo(shape, dtype)
}

// NewBuffer allocates a zeroed host buffer.
func NewBuffer(shape Shape, dtype DataType) (*Buffer, error) {
	return tensor.NewBuffer(shape, dtype)
}

// NewBufferFor allocates a zeroed host buffer matching info.
func NewBufferFor(info Info) *Buffer {
	return tensor.NewBufferFor(info)
}

// BufferFrom copies values into a new host buffer.
//
// Example:
//
//	buf, err := tensor.BufferFrom([]float32{1, 2, 3, 4}, tensor.Shape{2, 2})
func BufferFrom[T DType](values []T, shape Shape) (*Buffer, error) {
	return tensor.BufferFrom(values, shape)
}

// Values returns a typed view of a buffer's elements.
func Values[T DType](b *Buffer) []T {
	return tensor.Values[T](b)
}

// ParseShape parses a dimension list such as "2,3" or "[2,3]".
func ParseShape(text string) (Shape, error) {
	return tensor.ParseShape(text)
}

// ParseDataType parses a type name such as "float32", ignoring case.
func ParseDataType(name string) (DataType, error) {
	return tensor.ParseDataType(name)
}

// ParseBackendID parses a backend name case-insensitively.
func ParseBackendID(name string) (BackendID, error) {
	return tensor.ParseBackendID(name)
}

// ParseDimOrder parses "identity", "reversed" or "reversed>=N".
func ParseDimOrder(text string) (DimOrder, error) {
	return tensor.ParseDimOrder(text)
}
