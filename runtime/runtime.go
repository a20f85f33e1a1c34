// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package runtime builds and executes graphs across backends.
//
// # Basic Usage
//
//	g := graph.New()
//	// ... add and connect layers ...
//
//	net := runtime.NewNetwork(g, runtime.DefaultConfig())
//	defer net.Release()
//	if err := net.Build(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	net.BindInput(0, input)
//	net.BindOutput(0, output)
//	if err := net.Execute(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # Configuration
//
// ConfigFromEnv reads process-level overrides:
//   - HETERO_BACKENDS: comma separated list of allowed backends
//   - HETERO_PARALLEL: false disables parallel host loops
//   - HETERO_LAYOUT_<BACKEND>: native order, e.g. HETERO_LAYOUT_CPUACC=reversed>=3
package runtime

import (
	"github.com/born-ml/hetero/graph"
	"github.com/born-ml/hetero/internal/runtime"
)

// Network owns a graph and the workloads built from it.
type Network = runtime.Network

// Config controls how a Network is built and executed.
type Config = runtime.Config

// Errors returned by Network.
var (
	ErrNotBuilt         = runtime.ErrNotBuilt
	ErrUnknownBinding   = runtime.ErrUnknownBinding
	ErrDuplicateBinding = runtime.ErrDuplicateBinding
	ErrBackendDisabled  = runtime.ErrBackendDisabled
	ErrReleased         = runtime.ErrReleased
)

// NewNetwork creates a network that takes ownership of g.
func NewNetwork(g *graph.Graph, cfg Config) *Network {
	return runtime.NewNetwork(g, cfg)
}

// DefaultConfig allows every available backend with default layouts.
func DefaultConfig() Config {
	return runtime.DefaultConfig()
}

// ConfigFromEnv applies environment overrides to DefaultConfig.
func ConfigFromEnv() (Config, error) {
	return runtime.ConfigFromEnv()
}
