// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package ref provides the Reference backend: tensors in host memory in
// declaration order, with a workload for every layer kind.
//
// Example:
//
//	f := ref.NewFactory(backend.Config{})
//	h, _ := f.CreateTensorHandle(tensor.MustInfo(tensor.Shape{2, 3}, tensor.Float32))
package ref

import (
	"github.com/born-ml/hetero/backend"
	internalref "github.com/born-ml/hetero/internal/backend/ref"
)

// Factory creates Reference handles and workloads.
type Factory = internalref.Factory

// TensorHandle is a Reference tensor handle.
type TensorHandle = internalref.TensorHandle

// Compile-time check that Factory implements backend.Factory.
var _ backend.Factory = (*Factory)(nil)

// NewFactory creates a Reference factory.
func NewFactory(cfg backend.Config) *Factory {
	return internalref.NewFactory(cfg)
}
