// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the tensor metadata shared by every backend.
//
// # Overview
//
// A tensor is described by an Info: a shape in declaration order and an
// element type. Each backend stores tensors in its own native dimension
// order, described by a DimOrder; handles translate between the two.
//
// # Basic Usage
//
//	import "github.com/born-ml/hetero/tensor"
//
//	func main() {
//	    info := tensor.MustInfo(tensor.Shape{2, 3}, tensor.Float32)
//	    buf, _ := tensor.BufferFrom([]float32{1, 2, 3, 4, 5, 6}, info.Shape())
//
//	    order := tensor.ReversedOrder
//	    native := order.ToNative(info.Shape()) // [3, 2]
//	}
//
// # Supported Data Types
//
//   - float16 (storage only), float32, float64
//   - int32, int64
//   - uint8
//   - bool
//
// # Backends
//
//   - CpuRef: reference backend, declaration order, every layer kind
//   - CpuAcc: accelerated host backend, reversed order
//   - GpuAcc: WebGPU backend, reversed order (windows)
package tensor
