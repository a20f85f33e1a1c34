//go:build windows

// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package gpuacc

import (
	"github.com/born-ml/hetero/backend"
	internalgpuacc "github.com/born-ml/hetero/internal/backend/gpuacc"
)

// Device owns the WebGPU objects shared by a factory's handles.
type Device = internalgpuacc.Device

// Factory creates GpuAcc handles and MemCopy workloads.
type Factory = internalgpuacc.Factory

// Compile-time check that Factory implements backend.Factory.
var _ backend.Factory = (*Factory)(nil)

// OpenDevice opens a WebGPU device. Call Release when done.
func OpenDevice() (*Device, error) {
	return internalgpuacc.OpenDevice()
}

// NewFactory creates a factory on dev.
func NewFactory(dev *Device, cfg backend.Config) *Factory {
	return internalgpuacc.NewFactory(dev, cfg)
}
