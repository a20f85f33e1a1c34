package tensor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/born-ml/hetero/internal/parallel"
)

// DimOrder describes how a backend orders dimensions in native storage
// relative to declaration order.
//
// A reversing order stores the last declared dimension as native axis 0 for
// every rank >= MinRank; lower ranks use identity. Backends carry their own
// DimOrder as configuration so the rule can follow each backend's documented
// layout.
type DimOrder struct {
	Reverse bool
	MinRank int
}

var (
	// IdentityOrder keeps declaration order.
	IdentityOrder = DimOrder{}
	// ReversedOrder reverses dimensions for every rank.
	ReversedOrder = DimOrder{Reverse: true}
)

// Reverses reports whether tensors of the given rank are stored reversed.
func (o DimOrder) Reverses(rank int) bool {
	return o.Reverse && rank > 1 && rank >= o.MinRank
}

// Perm returns the axis permutation for the given rank: native axis k holds
// declared axis Perm(rank)[k].
func (o DimOrder) Perm(rank int) []int {
	perm := make([]int, rank)
	for k := range perm {
		if o.Reverses(rank) {
			perm[k] = rank - 1 - k
		} else {
			perm[k] = k
		}
	}
	return perm
}

// ToNative translates a declared shape to native storage order.
func (o DimOrder) ToNative(portable Shape) Shape {
	perm := o.Perm(len(portable))
	native := make(Shape, len(portable))
	for k, a := range perm {
		native[k] = portable[a]
	}
	return native
}

// ToPortable translates a native shape back to declaration order.
func (o DimOrder) ToPortable(native Shape) Shape {
	perm := o.Perm(len(native))
	portable := make(Shape, len(native))
	for k, a := range perm {
		portable[a] = native[k]
	}
	return portable
}

// PortableToNative copies src, laid out row-major over the declared shape,
// into dst laid out row-major over ToNative(portable).
func (o DimOrder) PortableToNative(dst, src []byte, portable Shape, elemSize int, cfg parallel.Config) {
	Transpose(dst, src, portable, o.Perm(len(portable)), elemSize, cfg)
}

// NativeToPortable is the inverse of PortableToNative.
func (o DimOrder) NativeToPortable(dst, src []byte, portable Shape, elemSize int, cfg parallel.Config) {
	Transpose(dst, src, o.ToNative(portable), InversePerm(o.Perm(len(portable))), elemSize, cfg)
}

// String implements fmt.Stringer. The format is accepted by ParseDimOrder.
func (o DimOrder) String() string {
	switch {
	case !o.Reverse:
		return "identity"
	case o.MinRank > 2:
		return "reversed>=" + strconv.Itoa(o.MinRank)
	default:
		return "reversed"
	}
}

// ParseDimOrder parses "identity", "reversed" or "reversed>=N".
func ParseDimOrder(text string) (DimOrder, error) {
	text = strings.ToLower(strings.TrimSpace(text))
	switch {
	case text == "identity" || text == "":
		return IdentityOrder, nil
	case text == "reversed":
		return ReversedOrder, nil
	case strings.HasPrefix(text, "reversed>="):
		n, err := strconv.Atoi(strings.TrimPrefix(text, "reversed>="))
		if err != nil || n < 0 {
			return DimOrder{}, fmt.Errorf("invalid dimension order %q", text)
		}
		return DimOrder{Reverse: true, MinRank: n}, nil
	default:
		return DimOrder{}, fmt.Errorf("invalid dimension order %q", text)
	}
}

// InversePerm returns the inverse of an axis permutation.
func InversePerm(perm []int) []int {
	inv := make([]int, len(perm))
	for k, a := range perm {
		inv[a] = k
	}
	return inv
}

// Transpose copies src, row-major over srcShape, into dst, row-major over the
// permuted shape dstShape[k] = srcShape[perm[k]]. Elements are moved as
// opaque elemSize-byte cells so no value conversion happens.
func Transpose(dst, src []byte, srcShape Shape, perm []int, elemSize int, cfg parallel.Config) {
	n := srcShape.NumElements()
	if len(perm) != len(srcShape) {
		panic(fmt.Sprintf("transpose: permutation rank %d != shape rank %d", len(perm), len(srcShape)))
	}
	if len(src) < n*elemSize || len(dst) < n*elemSize {
		panic(fmt.Sprintf("transpose: buffers too small for %v (src %d, dst %d bytes)", srcShape, len(src), len(dst)))
	}

	if isIdentityPerm(perm) {
		parallel.ForRange(n, func(start, end int) {
			copy(dst[start*elemSize:end*elemSize], src[start*elemSize:end*elemSize])
		}, cfg)
		return
	}

	rank := len(srcShape)
	dstShape := make(Shape, rank)
	for k, a := range perm {
		dstShape[k] = srcShape[a]
	}
	dstStrides := dstShape.ComputeStrides()

	// step[a] is the distance in dst between neighbours along src axis a.
	step := make([]int, rank)
	for k, a := range perm {
		step[a] = dstStrides[k]
	}

	parallel.ForRange(n, func(start, end int) {
		transposeRange(dst, src, srcShape, step, elemSize, start, end)
	}, cfg)
}

func transposeRange(dst, src []byte, srcShape Shape, step []int, elemSize, start, end int) {
	rank := len(srcShape)
	coord := make([]int, rank)
	rem := start
	for a := rank - 1; a >= 0; a-- {
		coord[a] = rem % srcShape[a]
		rem /= srcShape[a]
	}
	off := 0
	for a, c := range coord {
		off += c * step[a]
	}

	for i := start; i < end; i++ {
		copy(dst[off*elemSize:(off+1)*elemSize], src[i*elemSize:(i+1)*elemSize])

		for a := rank - 1; a >= 0; a-- {
			coord[a]++
			off += step[a]
			if coord[a] < srcShape[a] {
				break
			}
			off -= coord[a] * step[a]
			coord[a] = 0
		}
	}
}

func isIdentityPerm(perm []int) bool {
	for k, a := range perm {
		if k != a {
			return false
		}
	}
	return true
}
