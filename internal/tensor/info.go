package tensor

import "fmt"

// Info describes a tensor: its shape in declaration order and its element type.
// An Info is immutable once created; Shape returns a copy.
type Info struct {
	shape Shape
	dtype DataType
}

// NewInfo creates a descriptor after validating the shape.
func NewInfo(shape Shape, dtype DataType) (Info, error) {
	if err := shape.Validate(); err != nil {
		return Info{}, fmt.Errorf("invalid tensor info: %w", err)
	}
	return Info{shape: shape.Clone(), dtype: dtype}, nil
}

// MustInfo is NewInfo that panics on an invalid shape. Intended for literals.
func MustInfo(shape Shape, dtype DataType) Info {
	info, err := NewInfo(shape, dtype)
	if err != nil {
		panic(err)
	}
	return info
}

// Shape returns a copy of the declared shape.
func (i Info) Shape() Shape {
	return i.shape.Clone()
}

// DataType returns the element type.
func (i Info) DataType() DataType {
	return i.dtype
}

// Rank returns the number of dimensions.
func (i Info) Rank() int {
	return len(i.shape)
}

// Dim returns dimension d in declaration order.
func (i Info) Dim(d int) int {
	return i.shape[d]
}

// NumElements returns the total number of elements.
func (i Info) NumElements() int {
	return i.shape.NumElements()
}

// NumBytes returns the size of a dense buffer holding the tensor.
func (i Info) NumBytes() int {
	return i.NumElements() * i.dtype.Size()
}

// IsZero reports whether the descriptor was never initialized.
func (i Info) IsZero() bool {
	return i.shape == nil
}

// Equal reports structural equality: same rank, same sizes in declared order
// and same element type.
func (i Info) Equal(other Info) bool {
	return i.dtype == other.dtype && i.shape.Equal(other.shape)
}

// WithShape returns a descriptor with the same element type and a new shape.
func (i Info) WithShape(shape Shape) (Info, error) {
	return NewInfo(shape, i.dtype)
}

// String implements fmt.Stringer.
func (i Info) String() string {
	return fmt.Sprintf("%s%s", i.dtype, i.shape)
}
