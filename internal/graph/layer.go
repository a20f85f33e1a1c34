package graph

import (
	"fmt"

	"github.com/born-ml/hetero/internal/handle"
	"github.com/born-ml/hetero/internal/kernels"
	"github.com/born-ml/hetero/internal/tensor"
	"k8s.io/klog/v2"
)

// LayerID indexes a layer in its graph's arena.
type LayerID int

// SlotRef names one slot of one layer.
type SlotRef struct {
	Layer LayerID
	Slot  int
}

// InputSlot is the consumer side of a connection.
type InputSlot struct {
	info      tensor.Info
	producer  SlotRef
	conn      ConnectionID
	connected bool
}

// OutputSlot is the producer side of zero or more connections. It owns the
// tensor handle all consumers read from.
type OutputSlot struct {
	info      tensor.Info
	consumers []SlotRef
	handle    handle.TensorHandle
}

// Layer is a node of a Graph. It is created by Graph.AddLayer and lives as
// long as the graph.
type Layer struct {
	owner *Graph
	id    LayerID
	name  string
	kind  LayerKind

	backend  tensor.BackendID
	assigned bool

	bindingID  int
	activation kernels.Func
	kernel     Kernel

	inputs  []InputSlot
	outputs []OutputSlot
	state   LayerState
}

// LayerOption configures a layer at creation.
type LayerOption func(*Layer)

// WithBackend assigns the backend the layer will execute on.
func WithBackend(b tensor.BackendID) LayerOption {
	return func(l *Layer) {
		l.backend = b
		l.assigned = true
	}
}

// WithBindingID sets the caller-visible id of an Input or Output layer.
func WithBindingID(id int) LayerOption {
	return func(l *Layer) { l.bindingID = id }
}

// WithActivation selects the function of an Activation layer. Default ReLU.
func WithActivation(fn kernels.Func) LayerOption {
	return func(l *Layer) { l.activation = fn }
}

// WithKernel attaches the operation of a Compute layer and its arity.
func WithKernel(k Kernel, numInputs, numOutputs int) LayerOption {
	return func(l *Layer) {
		l.kernel = k
		l.inputs = make([]InputSlot, numInputs)
		l.outputs = make([]OutputSlot, numOutputs)
	}
}

// ID returns the layer's arena index.
func (l *Layer) ID() LayerID { return l.id }

// Name returns the unique layer name.
func (l *Layer) Name() string { return l.name }

// Kind returns the layer variant.
func (l *Layer) Kind() LayerKind { return l.kind }

// BindingID returns the caller-visible id of an Input or Output layer.
func (l *Layer) BindingID() int { return l.bindingID }

// ActivationFunc returns the function of an Activation layer.
func (l *Layer) ActivationFunc() kernels.Func { return l.activation }

// Kernel returns the operation of a Compute layer.
func (l *Layer) Kernel() Kernel { return l.kernel }

// NumInputs returns the number of input slots.
func (l *Layer) NumInputs() int { return len(l.inputs) }

// NumOutputs returns the number of output slots.
func (l *Layer) NumOutputs() int { return len(l.outputs) }

// State returns the layer's build state.
func (l *Layer) State() LayerState { return l.state }

// Backend returns the assigned backend and whether one has been assigned.
func (l *Layer) Backend() (tensor.BackendID, bool) {
	return l.backend, l.assigned
}

// SetBackend assigns the layer to a backend. Only allowed before handles exist.
func (l *Layer) SetBackend(b tensor.BackendID) error {
	if l.state != Declared {
		return fmt.Errorf("%w: cannot reassign %q in state %s", ErrInvalidState, l.name, l.state)
	}
	l.backend = b
	l.assigned = true
	return nil
}

// String implements fmt.Stringer.
func (l *Layer) String() string {
	return fmt.Sprintf("%s(%s)", l.kind, l.name)
}

// InputInfo returns the descriptor on input slot i.
func (l *Layer) InputInfo(i int) (tensor.Info, bool) {
	if i < 0 || i >= len(l.inputs) || l.inputs[i].info.IsZero() {
		return tensor.Info{}, false
	}
	return l.inputs[i].info, true
}

// OutputInfo returns the descriptor on output slot i.
func (l *Layer) OutputInfo(i int) (tensor.Info, bool) {
	if i < 0 || i >= len(l.outputs) || l.outputs[i].info.IsZero() {
		return tensor.Info{}, false
	}
	return l.outputs[i].info, true
}

// Producer returns the output slot feeding input slot i.
func (l *Layer) Producer(i int) (SlotRef, bool) {
	if i < 0 || i >= len(l.inputs) || !l.inputs[i].connected {
		return SlotRef{}, false
	}
	return l.inputs[i].producer, true
}

// InputConnection returns the connection feeding input slot i.
func (l *Layer) InputConnection(i int) (ConnectionID, bool) {
	if i < 0 || i >= len(l.inputs) || !l.inputs[i].connected {
		return 0, false
	}
	return l.inputs[i].conn, true
}

// Consumers returns the input slots fed by output slot i.
func (l *Layer) Consumers(i int) []SlotRef {
	if i < 0 || i >= len(l.outputs) {
		return nil
	}
	return append([]SlotRef(nil), l.outputs[i].consumers...)
}

// DeclareInput sets the descriptor expected on an input slot before it is
// connected. Connect later fails if it carries a different descriptor.
func (l *Layer) DeclareInput(i int, info tensor.Info) error {
	if i < 0 || i >= len(l.inputs) {
		return fmt.Errorf("%w: %s input %d", ErrSlotOutOfRange, l, i)
	}
	if err := l.checkDeclared(l.inputs[i].info, info, l.name); err != nil {
		return err
	}
	l.inputs[i].info = info
	return nil
}

// DeclareOutput sets the descriptor produced on an output slot.
func (l *Layer) DeclareOutput(i int, info tensor.Info) error {
	if i < 0 || i >= len(l.outputs) {
		return fmt.Errorf("%w: %s output %d", ErrSlotOutOfRange, l, i)
	}
	if err := l.checkDeclared(l.outputs[i].info, info, l.name); err != nil {
		return err
	}
	l.outputs[i].info = info
	return nil
}

func (l *Layer) checkDeclared(declared, requested tensor.Info, other string) error {
	if declared.IsZero() || declared.Equal(requested) {
		return nil
	}
	return &ConnectionError{Producer: l.name, Consumer: other, Declared: declared, Requested: requested}
}

// OutputHandle returns the handle owned by output slot i, or nil before
// CreateTensorHandles.
func (l *Layer) OutputHandle(i int) handle.TensorHandle {
	if i < 0 || i >= len(l.outputs) {
		return nil
	}
	return l.outputs[i].handle
}

// InputHandle returns the handle feeding input slot i: the producer's output
// handle, borrowed.
func (l *Layer) InputHandle(g *Graph, i int) handle.TensorHandle {
	ref, ok := l.Producer(i)
	if !ok {
		return nil
	}
	return g.Layer(ref.Layer).OutputHandle(ref.Slot)
}

// CreateTensorHandles allocates one handle per output slot from factory,
// using the slot's descriptor. Handles from an earlier call are released
// and replaced, so a slot never owns two live buffers. If any allocation
// fails the layer keeps its previous handles.
func (l *Layer) CreateTensorHandles(g *Graph, factory handle.Factory) error {
	if g != l.owner {
		return fmt.Errorf("%w: %s", ErrForeignLayer, l)
	}
	if g.released || l.state == Released {
		return fmt.Errorf("%w: %s", ErrReleased, l)
	}
	if l.assigned && l.backend != factory.Backend() {
		return fmt.Errorf("%w: %s assigned to %s, factory is %s", ErrBackendMismatch, l, l.backend, factory.Backend())
	}

	created := make([]handle.TensorHandle, len(l.outputs))
	for i := range l.outputs {
		info := l.outputs[i].info
		if info.IsZero() {
			releaseAll(created)
			return fmt.Errorf("%w: %s output %d", ErrDanglingSlot, l, i)
		}
		h, err := factory.CreateTensorHandle(info)
		if err != nil {
			releaseAll(created)
			return fmt.Errorf("create tensor handle for %s output %d: %w", l, i, err)
		}
		created[i] = h
	}

	l.ReleaseTensorHandles()
	for i, h := range created {
		l.outputs[i].handle = h
	}
	l.backend = factory.Backend()
	l.assigned = true
	l.state = HandlesBound

	klog.V(4).InfoS("Created tensor handles", "layer", l.name, "kind", l.kind, "backend", l.backend, "count", len(created))
	return nil
}

// ReleaseTensorHandles frees every handle the layer owns.
func (l *Layer) ReleaseTensorHandles() {
	for i := range l.outputs {
		if h := l.outputs[i].handle; h != nil {
			h.Release()
			l.outputs[i].handle = nil
		}
	}
}

// HasHandles reports whether every output slot owns a live handle.
func (l *Layer) HasHandles() bool {
	for i := range l.outputs {
		if h := l.outputs[i].handle; h == nil || h.Released() {
			return false
		}
	}
	return true
}

func releaseAll(handles []handle.TensorHandle) {
	for _, h := range handles {
		if h != nil {
			h.Release()
		}
	}
}
