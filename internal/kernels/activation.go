// Package kernels holds the element-wise reference kernels used by Activation
// layers. They operate on flat element slices, so the result does not depend
// on the dimension order a backend stores tensors in.
package kernels

import (
	"fmt"
	"math"
	"strings"

	"github.com/born-ml/hetero/internal/parallel"
	"github.com/born-ml/hetero/internal/tensor"
)

// Func selects an element-wise activation.
type Func int

// Supported activations.
const (
	ReLU Func = iota
	Sigmoid
	Tanh
	Abs
	Sqrt
)

// String returns the activation name.
func (f Func) String() string {
	switch f {
	case ReLU:
		return "relu"
	case Sigmoid:
		return "sigmoid"
	case Tanh:
		return "tanh"
	case Abs:
		return "abs"
	case Sqrt:
		return "sqrt"
	default:
		return "unknown"
	}
}

// ParseFunc resolves an activation name.
func ParseFunc(name string) (Func, error) {
	for f := ReLU; f <= Sqrt; f++ {
		if strings.EqualFold(name, f.String()) {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown activation %q", name)
}

// Supports reports whether the activation has a kernel for the element type.
func Supports(f Func, dtype tensor.DataType) bool {
	if f < ReLU || f > Sqrt {
		return false
	}
	return dtype == tensor.Float32 || dtype == tensor.Float64
}

// Apply computes dst = f(src) element-wise. src and dst must hold the same
// number of elements of the same type; they may be the same buffer.
func Apply(f Func, dst, src *tensor.Buffer, cfg parallel.Config) {
	if src.DType() != dst.DType() || src.NumElements() != dst.NumElements() {
		panic(fmt.Sprintf("%s: buffer mismatch: %s%v -> %s%v", f, src.DType(), src.Shape(), dst.DType(), dst.Shape()))
	}

	switch src.DType() {
	case tensor.Float32:
		in, out := src.AsFloat32(), dst.AsFloat32()
		op := float32Op(f)
		parallel.ForRange(len(in), func(start, end int) {
			for i := start; i < end; i++ {
				out[i] = op(in[i])
			}
		}, cfg)
	case tensor.Float64:
		in, out := src.AsFloat64(), dst.AsFloat64()
		op := float64Op(f)
		parallel.ForRange(len(in), func(start, end int) {
			for i := start; i < end; i++ {
				out[i] = op(in[i])
			}
		}, cfg)
	default:
		panic(fmt.Sprintf("%s: unsupported dtype %s (only float32/float64 supported)", f, src.DType()))
	}
}

func float64Op(f Func) func(float64) float64 {
	switch f {
	case ReLU:
		return func(v float64) float64 { return math.Max(v, 0) }
	case Sigmoid:
		return func(v float64) float64 { return 1 / (1 + math.Exp(-v)) }
	case Tanh:
		return math.Tanh
	case Abs:
		return math.Abs
	case Sqrt:
		return math.Sqrt
	default:
		panic(fmt.Sprintf("unknown activation %d", int(f)))
	}
}

func float32Op(f Func) func(float32) float32 {
	if f == ReLU {
		return func(v float32) float32 { return max(v, 0) }
	}
	op := float64Op(f)
	return func(v float32) float32 { return float32(op(float64(v))) }
}
