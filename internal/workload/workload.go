// Package workload defines executable units bound to tensor handles and the
// per-backend factories that create them from graph layers.
package workload

import (
	"fmt"

	"github.com/born-ml/hetero/internal/graph"
	"github.com/born-ml/hetero/internal/handle"
	"github.com/born-ml/hetero/internal/tensor"
)

// Workload performs one layer's operation on one backend.
//
// Execute may be called any number of times once the workload is built. A
// single Workload must not be executed concurrently with itself, and a
// consumer must not run before the producers of its inputs have finished.
type Workload interface {
	Execute()
	Backend() tensor.BackendID
	Name() string
	Queue() QueueDescriptor
}

// Bindable is implemented by workloads that exchange data with the caller:
// Input workloads read from the bound buffer, Output workloads write to it.
type Bindable interface {
	BindingID() int
	Bind(buf *tensor.Buffer) error
}

// QueueDescriptor lists the handles a workload reads and writes. The handles
// are borrowed from the layers that own them.
type QueueDescriptor struct {
	Inputs  []handle.TensorHandle
	Outputs []handle.TensorHandle
}

// Validate checks the descriptor holds exactly numIn inputs and numOut
// outputs, none of them nil.
func (q QueueDescriptor) Validate(name string, numIn, numOut int) error {
	if len(q.Inputs) != numIn || len(q.Outputs) != numOut {
		return fmt.Errorf("%w: %s wants %d inputs and %d outputs, got %d and %d",
			ErrQueueArity, name, numIn, numOut, len(q.Inputs), len(q.Outputs))
	}
	for i, h := range q.Inputs {
		if h == nil {
			return fmt.Errorf("%w: %s input %d", ErrHandlesNotAllocated, name, i)
		}
	}
	for i, h := range q.Outputs {
		if h == nil {
			return fmt.Errorf("%w: %s output %d", ErrHandlesNotAllocated, name, i)
		}
	}
	return nil
}

// MakeQueueDescriptor collects a layer's handles: for every input slot the
// producer's output handle, for every output slot the layer's own handle.
// Every handle must already be allocated.
func MakeQueueDescriptor(l *graph.Layer, g *graph.Graph) (QueueDescriptor, error) {
	desc := QueueDescriptor{
		Inputs:  make([]handle.TensorHandle, l.NumInputs()),
		Outputs: make([]handle.TensorHandle, l.NumOutputs()),
	}
	for i := range desc.Inputs {
		h := l.InputHandle(g, i)
		if h == nil || h.Released() {
			return QueueDescriptor{}, fmt.Errorf("%w: %s input %d", ErrHandlesNotAllocated, l, i)
		}
		desc.Inputs[i] = h
	}
	for i := range desc.Outputs {
		h := l.OutputHandle(i)
		if h == nil || h.Released() {
			return QueueDescriptor{}, fmt.Errorf("%w: %s output %d", ErrHandlesNotAllocated, l, i)
		}
		desc.Outputs[i] = h
	}
	return desc, nil
}

// Base carries the fields every workload shares. Backends embed it.
type Base struct {
	desc    QueueDescriptor
	backend tensor.BackendID
	name    string
}

// NewBase creates the shared part of a workload.
func NewBase(desc QueueDescriptor, backend tensor.BackendID, name string) Base {
	return Base{desc: desc, backend: backend, name: name}
}

// Queue returns the workload's descriptor.
func (b *Base) Queue() QueueDescriptor { return b.desc }

// Backend returns the backend the workload runs on.
func (b *Base) Backend() tensor.BackendID { return b.backend }

// Name returns the operation name, e.g. "CpuAccCopyFromReference".
func (b *Base) Name() string { return b.name }

// CheckLive panics if any handle in the descriptor has been released.
// Workloads call it at the top of Execute.
func (b *Base) CheckLive() {
	for i, h := range b.desc.Inputs {
		if h.Released() {
			panic(fmt.Sprintf("%s: input %d used after release", b.name, i))
		}
	}
	for i, h := range b.desc.Outputs {
		if h.Released() {
			panic(fmt.Sprintf("%s: output %d used after release", b.name, i))
		}
	}
}
