// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpuacc provides the accelerated CPU backend.
//
// Tensors live in host memory in the backend's native dimension order,
// reversed by default. MemCopy and Activation layers have workloads here;
// place other layers on the Reference backend and connect them through
// MemCopy layers.
//
// Example:
//
//	order := tensor.DimOrder{Reverse: true, MinRank: 3}
//	f := cpuacc.NewFactory(backend.Config{Order: &order})
package cpuacc

import (
	"github.com/born-ml/hetero/backend"
	internalcpuacc "github.com/born-ml/hetero/internal/backend/cpuacc"
)

// Factory creates CpuAcc handles and workloads.
type Factory = internalcpuacc.Factory

// TensorHandle is a CpuAcc tensor handle.
type TensorHandle = internalcpuacc.TensorHandle

// Compile-time check that Factory implements backend.Factory.
var _ backend.Factory = (*Factory)(nil)

// DefaultOrder is the layout used when Config.Order is nil.
var DefaultOrder = internalcpuacc.DefaultOrder

// NewFactory creates a CpuAcc factory.
func NewFactory(cfg backend.Config) *Factory {
	return internalcpuacc.NewFactory(cfg)
}
