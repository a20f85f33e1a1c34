// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package backend exposes the backend registry and the types shared by all
// backends.
//
// Backends register themselves when their package is linked in. The runtime
// package links every backend, so importing runtime is enough to use them.
package backend

import (
	"github.com/born-ml/hetero/internal/workload"
	"github.com/born-ml/hetero/tensor"
)

// Config is passed to a backend's factory constructor.
type Config = workload.BackendConfig

// Factory creates tensor handles and workloads for one backend.
type Factory = workload.Factory

// Workload performs one layer's operation on one backend.
type Workload = workload.Workload

// QueueDescriptor lists the handles a workload reads and writes.
type QueueDescriptor = workload.QueueDescriptor

// UnsupportedError reports a layer kind a backend cannot run.
type UnsupportedError = workload.UnsupportedError

// Errors returned by factories.
var (
	ErrUnsupportedLayer   = workload.ErrUnsupportedLayer
	ErrBackendUnavailable = workload.ErrBackendUnavailable
)

// Available lists the backends that are linked in and usable on this machine.
func Available() []tensor.BackendID {
	return workload.Available()
}

// NewFactory creates a factory for a registered, available backend.
func NewFactory(b tensor.BackendID, cfg Config) (Factory, error) {
	return workload.NewFactory(b, cfg)
}
