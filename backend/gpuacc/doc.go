// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package gpuacc provides the WebGPU backend.
//
// Tensors live in device buffers in reversed dimension order. Only MemCopy
// layers have workloads: use it to stage tensors on the GPU between
// Reference layers. The backend is built on windows; elsewhere IsAvailable
// reports false.
//
// Example:
//
//	if gpuacc.IsAvailable() {
//	    dev, err := gpuacc.OpenDevice()
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer dev.Release()
//	    f := gpuacc.NewFactory(dev, backend.Config{})
//	}
package gpuacc

import internalgpuacc "github.com/born-ml/hetero/internal/backend/gpuacc"

// IsAvailable checks if a WebGPU adapter can be opened on this system.
func IsAvailable() bool {
	return internalgpuacc.IsAvailable()
}
