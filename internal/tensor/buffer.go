package tensor

import (
	"fmt"
	"unsafe"
)

// Buffer is a dense block of host memory holding one tensor's elements in
// row-major order over its shape. Which order that shape is in (declared or
// backend-native) is up to the owner.
//
// A Buffer is allocated once and never resized.
type Buffer struct {
	data  []byte
	shape Shape
	dtype DataType
}

// NewBuffer allocates a zeroed buffer for the given shape and type.
func NewBuffer(shape Shape, dtype DataType) (*Buffer, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	return &Buffer{
		data:  make([]byte, shape.NumElements()*dtype.Size()),
		shape: shape.Clone(),
		dtype: dtype,
	}, nil
}

// NewBufferFor allocates a buffer matching a descriptor.
func NewBufferFor(info Info) *Buffer {
	return &Buffer{
		data:  make([]byte, info.NumBytes()),
		shape: info.Shape(),
		dtype: info.DataType(),
	}
}

// BufferFrom copies a Go slice into a new buffer.
func BufferFrom[T DType](values []T, shape Shape) (*Buffer, error) {
	if shape.NumElements() != len(values) {
		return nil, fmt.Errorf("shape %v requires %d elements, but got %d", shape, shape.NumElements(), len(values))
	}
	buf, err := NewBuffer(shape, DataTypeOf[T]())
	if err != nil {
		return nil, err
	}
	copy(Values[T](buf), values)
	return buf, nil
}

// Shape returns the buffer's shape.
func (b *Buffer) Shape() Shape {
	return b.shape.Clone()
}

// DType returns the buffer's element type.
func (b *Buffer) DType() DataType {
	return b.dtype
}

// NumElements returns the total number of elements.
func (b *Buffer) NumElements() int {
	return b.shape.NumElements()
}

// ByteSize returns the total memory size in bytes.
func (b *Buffer) ByteSize() int {
	return b.NumElements() * b.dtype.Size()
}

// Data returns the raw byte slice.
// WARNING: Direct access to underlying memory. Use with caution.
func (b *Buffer) Data() []byte {
	if b.data == nil {
		panic("buffer used after release")
	}
	return b.data
}

// Release drops the backing memory. The buffer must not be used afterwards.
func (b *Buffer) Release() {
	b.data = nil
}

// Released reports whether Release has been called.
func (b *Buffer) Released() bool {
	return b.data == nil
}

// AsFloat32 interprets the data as []float32.
// Panics if the buffer's dtype is not Float32.
func (b *Buffer) AsFloat32() []float32 {
	return view[float32](b, Float32)
}

// AsFloat64 interprets the data as []float64.
// Panics if the buffer's dtype is not Float64.
func (b *Buffer) AsFloat64() []float64 {
	return view[float64](b, Float64)
}

// AsInt32 interprets the data as []int32.
// Panics if the buffer's dtype is not Int32.
func (b *Buffer) AsInt32() []int32 {
	return view[int32](b, Int32)
}

// AsInt64 interprets the data as []int64.
// Panics if the buffer's dtype is not Int64.
func (b *Buffer) AsInt64() []int64 {
	return view[int64](b, Int64)
}

// AsUint8 interprets the data as []uint8.
// Panics if the buffer's dtype is not Uint8.
func (b *Buffer) AsUint8() []uint8 {
	if b.dtype != Uint8 {
		panic(fmt.Sprintf("buffer dtype is %s, not uint8", b.dtype))
	}
	return b.Data() // Already []byte = []uint8
}

// AsBool interprets the data as []bool.
// Panics if the buffer's dtype is not Bool.
func (b *Buffer) AsBool() []bool {
	return view[bool](b, Bool)
}

// Values returns a typed zero-copy view of the buffer.
func Values[T DType](b *Buffer) []T {
	return view[T](b, DataTypeOf[T]())
}

func view[T any](b *Buffer, want DataType) []T {
	if b.dtype != want {
		panic(fmt.Sprintf("buffer dtype is %s, not %s", b.dtype, want))
	}
	data := b.Data()
	if len(data) == 0 {
		return nil
	}
	//nolint:gosec // unsafe.Slice for zero-copy performance, bounds checked by NumElements()
	return unsafe.Slice((*T)(unsafe.Pointer(&data[0])), b.NumElements())
}
