// Package graph holds the backend-agnostic computation graph: an arena of
// layers addressed by LayerID plus the connections between their slots.
//
// Graph construction, connection and tensor handle creation are
// single-threaded; a Graph must not be mutated concurrently.
package graph

import (
	"fmt"

	"github.com/born-ml/hetero/internal/tensor"
)

// ConnectionID indexes a connection in its graph.
type ConnectionID int

// Connection is a directed edge from an output slot to an input slot.
type Connection struct {
	ID   ConnectionID
	From SlotRef
	To   SlotRef
	Info tensor.Info
}

// Graph owns its layers and connections.
type Graph struct {
	layers   []*Layer
	byName   map[string]LayerID
	conns    []Connection
	released bool
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{byName: make(map[string]LayerID)}
}

// AddLayer creates a layer of the given kind. Names are unique per graph.
func (g *Graph) AddLayer(kind LayerKind, name string, opts ...LayerOption) (*Layer, error) {
	if g.released {
		return nil, ErrReleased
	}
	if _, exists := g.byName[name]; exists {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}

	numIn, numOut := kind.slots()
	l := &Layer{
		owner:   g,
		id:      LayerID(len(g.layers)),
		name:    name,
		kind:    kind,
		inputs:  make([]InputSlot, numIn),
		outputs: make([]OutputSlot, numOut),
	}
	for _, opt := range opts {
		opt(l)
	}
	if kind == Compute && l.kernel == nil {
		return nil, fmt.Errorf("%w: %q", ErrMissingKernel, name)
	}
	if kind != Compute && (l.kernel != nil || len(l.inputs) != numIn || len(l.outputs) != numOut) {
		return nil, fmt.Errorf("%w: %s layer %q cannot take a kernel", ErrInvalidOption, kind, name)
	}

	g.layers = append(g.layers, l)
	g.byName[name] = l.id
	return l, nil
}

// Layer returns the layer with the given id.
func (g *Graph) Layer(id LayerID) *Layer {
	return g.layers[id]
}

// LayerByName looks a layer up by name.
func (g *Graph) LayerByName(name string) (*Layer, bool) {
	id, ok := g.byName[name]
	if !ok {
		return nil, false
	}
	return g.layers[id], true
}

// Layers returns all layers in insertion order.
func (g *Graph) Layers() []*Layer {
	return append([]*Layer(nil), g.layers...)
}

// NumLayers returns the number of layers.
func (g *Graph) NumLayers() int {
	return len(g.layers)
}

// Connections returns all connections in creation order.
func (g *Graph) Connections() []Connection {
	return append([]Connection(nil), g.conns...)
}

// Connect links the first unused output of producer to the first unused
// input of consumer with a connection carrying info.
func (g *Graph) Connect(producer, consumer *Layer, info tensor.Info) (Connection, error) {
	out := -1
	for i := range producer.outputs {
		if len(producer.outputs[i].consumers) == 0 {
			out = i
			break
		}
	}
	if out < 0 {
		return Connection{}, fmt.Errorf("%w: %s has no unused output", ErrNoFreeSlot, producer)
	}
	in := -1
	for i := range consumer.inputs {
		if !consumer.inputs[i].connected {
			in = i
			break
		}
	}
	if in < 0 {
		return Connection{}, fmt.Errorf("%w: %s has no unused input", ErrNoFreeSlot, consumer)
	}
	return g.ConnectSlots(producer, out, consumer, in, info)
}

// ConnectSlots links a specific output slot to a specific input slot. An
// output slot may feed several inputs as long as every connection carries
// the same descriptor. On error the graph is unchanged.
func (g *Graph) ConnectSlots(producer *Layer, out int, consumer *Layer, in int, info tensor.Info) (Connection, error) {
	if g.released {
		return Connection{}, ErrReleased
	}
	if producer.owner != g || consumer.owner != g {
		return Connection{}, ErrForeignLayer
	}
	if out < 0 || out >= len(producer.outputs) {
		return Connection{}, fmt.Errorf("%w: %s output %d", ErrSlotOutOfRange, producer, out)
	}
	if in < 0 || in >= len(consumer.inputs) {
		return Connection{}, fmt.Errorf("%w: %s input %d", ErrSlotOutOfRange, consumer, in)
	}
	if consumer.inputs[in].connected {
		return Connection{}, fmt.Errorf("%w: %s input %d", ErrSlotInUse, consumer, in)
	}
	if info.IsZero() {
		return Connection{}, fmt.Errorf("%w: empty descriptor", ErrDescriptorMismatch)
	}

	mismatch := func(declared tensor.Info) error {
		if declared.IsZero() || declared.Equal(info) {
			return nil
		}
		return &ConnectionError{Producer: producer.name, Consumer: consumer.name, Declared: declared, Requested: info}
	}
	if err := mismatch(producer.outputs[out].info); err != nil {
		return Connection{}, err
	}
	if err := mismatch(consumer.inputs[in].info); err != nil {
		return Connection{}, err
	}
	// Descriptor-preserving layers must carry the same tensor on both sides.
	if producer.kind.preservesDescriptor() {
		if err := mismatch(producer.inputs[0].info); err != nil {
			return Connection{}, err
		}
	}
	if consumer.kind.preservesDescriptor() {
		if err := mismatch(consumer.outputs[0].info); err != nil {
			return Connection{}, err
		}
	}

	c := Connection{
		ID:   ConnectionID(len(g.conns)),
		From: SlotRef{Layer: producer.id, Slot: out},
		To:   SlotRef{Layer: consumer.id, Slot: in},
		Info: info,
	}
	g.conns = append(g.conns, c)

	producer.outputs[out].info = info
	producer.outputs[out].consumers = append(producer.outputs[out].consumers, c.To)
	consumer.inputs[in] = InputSlot{info: info, producer: c.From, conn: c.ID, connected: true}
	if consumer.kind.preservesDescriptor() {
		consumer.outputs[0].info = info
	}
	return c, nil
}

// TopologicalOrder returns the layers so that every producer precedes its
// consumers. Ties keep insertion order.
func (g *Graph) TopologicalOrder() ([]*Layer, error) {
	levels, err := g.Levels()
	if err != nil {
		return nil, err
	}
	order := make([]*Layer, 0, len(g.layers))
	for _, level := range levels {
		order = append(order, level...)
	}
	return order, nil
}

// Levels groups layers into dependency levels: every layer's producers are
// in strictly earlier levels, so layers of one level are independent.
func (g *Graph) Levels() ([][]*Layer, error) {
	inDegree := make([]int, len(g.layers))
	for _, c := range g.conns {
		inDegree[c.To.Layer]++
	}

	var current []*Layer
	for _, l := range g.layers {
		if inDegree[l.id] == 0 {
			current = append(current, l)
		}
	}

	var levels [][]*Layer
	visited := 0
	for len(current) > 0 {
		levels = append(levels, current)
		visited += len(current)

		var next []*Layer
		for _, l := range current {
			for _, out := range l.outputs {
				for _, ref := range out.consumers {
					inDegree[ref.Layer]--
					if inDegree[ref.Layer] == 0 {
						next = append(next, g.layers[ref.Layer])
					}
				}
			}
		}
		current = next
	}

	if visited != len(g.layers) {
		return nil, fmt.Errorf("%w: %d of %d layers unreachable in dependency order", ErrCycle, len(g.layers)-visited, len(g.layers))
	}
	return levels, nil
}

// Validate checks the graph is ready to build: every input slot connected,
// no cycles, and every edge between layers assigned to different backends
// ending in a MemCopy layer.
func (g *Graph) Validate() error {
	if g.released {
		return ErrReleased
	}
	for _, l := range g.layers {
		for i := range l.inputs {
			if !l.inputs[i].connected {
				return fmt.Errorf("%w: %s input %d is not connected", ErrDanglingSlot, l, i)
			}
		}
	}
	if _, err := g.Levels(); err != nil {
		return err
	}
	for _, c := range g.conns {
		from, to := g.layers[c.From.Layer], g.layers[c.To.Layer]
		if !from.assigned || !to.assigned || from.backend == to.backend {
			continue
		}
		// The consumer reads the producer's handle, so only a MemCopy
		// consumer may sit on a different backend.
		if to.kind != MemCopy {
			return fmt.Errorf("%w: %s on %s -> %s on %s", ErrMissingBoundary, from, from.backend, to, to.backend)
		}
	}
	return nil
}

// Release frees every tensor handle and marks all layers Released. The graph
// cannot be used afterwards.
func (g *Graph) Release() {
	for _, l := range g.layers {
		l.ReleaseTensorHandles()
		l.state = Released
	}
	g.released = true
}
