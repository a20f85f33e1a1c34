// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package graph provides the layer graph that networks are built from.
//
// A Graph owns its layers in an arena; layers refer to each other by id.
// Each layer has a kind, optionally a backend assignment, and numbered input
// and output slots connected by tensor descriptors.
//
// Example:
//
//	g := graph.New()
//	in, _ := g.AddLayer(graph.Input, "input")
//	toAcc, _ := g.AddLayer(graph.MemCopy, "to_acc", graph.WithBackend(tensor.CPUAcc))
//	relu, _ := g.AddLayer(graph.Activation, "relu",
//	    graph.WithBackend(tensor.CPUAcc), graph.WithActivation(graph.ReLU))
//	back, _ := g.AddLayer(graph.MemCopy, "to_ref")
//	out, _ := g.AddLayer(graph.Output, "output")
//
//	info := tensor.MustInfo(tensor.Shape{2, 3}, tensor.Float32)
//	g.Connect(in, toAcc, info)
//	g.Connect(toAcc, relu, info)
//	g.Connect(relu, back, info)
//	g.Connect(back, out, info)
package graph

import (
	"github.com/born-ml/hetero/internal/graph"
	"github.com/born-ml/hetero/internal/kernels"
	"github.com/born-ml/hetero/tensor"
	"google.golang.org/protobuf/types/known/structpb"
)

// Graph is an arena of layers and the connections between them.
type Graph = graph.Graph

// Layer is one node of a Graph.
type Layer = graph.Layer

// LayerID indexes a layer in its graph.
type LayerID = graph.LayerID

// LayerKind selects what a layer does.
type LayerKind = graph.LayerKind

// Layer kinds.
const (
	Input      = graph.Input
	Output     = graph.Output
	MemCopy    = graph.MemCopy
	Activation = graph.Activation
	Compute    = graph.Compute
)

// LayerState tracks a layer through a build.
type LayerState = graph.LayerState

// Layer states.
const (
	Declared      = graph.Declared
	HandlesBound  = graph.HandlesBound
	WorkloadBuilt = graph.WorkloadBuilt
	Invoked       = graph.Invoked
	Released      = graph.Released
)

// Connection links an output slot to an input slot.
type Connection = graph.Connection

// SlotRef names a slot of a layer.
type SlotRef = graph.SlotRef

// ConnectionError reports a descriptor conflict in Connect.
type ConnectionError = graph.ConnectionError

// Kernel is the operation of a Compute layer.
type Kernel = graph.Kernel

// LayerOption configures a layer at creation.
type LayerOption = graph.LayerOption

// ActivationFunc selects the function of an Activation layer.
type ActivationFunc = kernels.Func

// Activation functions.
const (
	ReLU    = kernels.ReLU
	Sigmoid = kernels.Sigmoid
	Tanh    = kernels.Tanh
	Abs     = kernels.Abs
	Sqrt    = kernels.Sqrt
)

// Errors returned by graph operations.
var (
	ErrDuplicateName      = graph.ErrDuplicateName
	ErrNoFreeSlot         = graph.ErrNoFreeSlot
	ErrSlotOutOfRange     = graph.ErrSlotOutOfRange
	ErrSlotInUse          = graph.ErrSlotInUse
	ErrDescriptorMismatch = graph.ErrDescriptorMismatch
	ErrDanglingSlot       = graph.ErrDanglingSlot
	ErrCycle              = graph.ErrCycle
	ErrMissingBoundary    = graph.ErrMissingBoundary
	ErrMissingKernel      = graph.ErrMissingKernel
	ErrInvalidOption      = graph.ErrInvalidOption
)

// New creates an empty graph.
func New() *Graph {
	return graph.New()
}

// WithBackend assigns the backend a layer executes on.
func WithBackend(b tensor.BackendID) LayerOption {
	return graph.WithBackend(b)
}

// WithBindingID sets the caller-visible id of an Input or Output layer.
func WithBindingID(id int) LayerOption {
	return graph.WithBindingID(id)
}

// WithActivation selects the function of an Activation layer.
func WithActivation(fn ActivationFunc) LayerOption {
	return graph.WithActivation(fn)
}

// WithKernel attaches the operation of a Compute layer and its arity.
func WithKernel(k Kernel, numInputs, numOutputs int) LayerOption {
	return graph.WithKernel(k, numInputs, numOutputs)
}

// Snapshot describes the graph as a protobuf Struct.
func Snapshot(g *Graph) (*structpb.Struct, error) {
	return graph.Snapshot(g)
}

// MarshalSnapshot encodes Snapshot(g) deterministically.
func MarshalSnapshot(g *Graph) ([]byte, error) {
	return graph.MarshalSnapshot(g)
}

// UnmarshalSnapshot rebuilds a graph from MarshalSnapshot output. Graphs with
// Compute layers cannot be restored; their kernels are not serialized.
func UnmarshalSnapshot(data []byte) (*Graph, error) {
	return graph.UnmarshalSnapshot(data)
}
