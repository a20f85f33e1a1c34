package handle

import (
	"errors"
	"fmt"

	"github.com/born-ml/hetero/internal/tensor"
)

// ErrShapeMismatch reports a handle whose storage does not match the shape a
// caller expected.
var ErrShapeMismatch = errors.New("tensor handle shape mismatch")

// ShapeError describes a failed CompareShape.
type ShapeError struct {
	Backend  tensor.BackendID
	Got      int // Rank or dimension found in the handle.
	Want     int // Rank or dimension expected.
	RankOnly bool
}

// Error implements the error interface.
func (e *ShapeError) Error() string {
	if e.RankOnly {
		return fmt.Sprintf("%s handle: different number of dimensions [%d!=%d]", e.Backend, e.Got, e.Want)
	}
	return fmt.Sprintf("%s handle: different dimension [%d!=%d]", e.Backend, e.Got, e.Want)
}

// Unwrap returns ErrShapeMismatch.
func (e *ShapeError) Unwrap() error {
	return ErrShapeMismatch
}

// CompareShape checks a handle's native shape against an expected shape given
// in declaration order.
//
// Native axes are walked from the last one backward under the handle's order:
// for a reversing backend native axis rank-1-k must equal expected[k]; for an
// identity backend native axis k must equal expected[k]. A rank mismatch is
// reported with both ranks.
func CompareShape(h TensorHandle, expected ...int) error {
	native := h.NativeShape()
	if len(native) != len(expected) {
		return &ShapeError{Backend: h.Backend(), Got: len(native), Want: len(expected), RankOnly: true}
	}

	perm := h.Order().Perm(len(native))
	for k := len(native) - 1; k >= 0; k-- {
		if got, want := native[k], expected[perm[k]]; got != want {
			return &ShapeError{Backend: h.Backend(), Got: got, Want: want}
		}
	}
	return nil
}

// CompareInfo checks that a handle stores exactly the tensor described by info.
func CompareInfo(h TensorHandle, info tensor.Info) error {
	if err := CompareShape(h, info.Shape()...); err != nil {
		return err
	}
	if got := h.TensorInfo().DataType(); got != info.DataType() {
		return fmt.Errorf("%w: %s handle holds %s, want %s", ErrShapeMismatch, h.Backend(), got, info.DataType())
	}
	return nil
}
