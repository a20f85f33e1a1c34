package graph

import (
	"fmt"

	"github.com/born-ml/hetero/internal/kernels"
	"github.com/born-ml/hetero/internal/tensor"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Snapshot encodes the layer arena and its connections as a protobuf Struct.
// Tensor handles and workloads are not part of a snapshot.
func Snapshot(g *Graph) (*structpb.Struct, error) {
	layers := make([]any, 0, len(g.layers))
	for _, l := range g.layers {
		entry := map[string]any{
			"id":    int(l.id),
			"name":  l.name,
			"kind":  l.kind.String(),
			"state": l.state.String(),
		}
		if l.assigned {
			entry["backend"] = l.backend.String()
		}
		switch l.kind {
		case Input, Output:
			entry["binding_id"] = l.bindingID
		case Activation:
			entry["activation"] = l.activation.String()
		case Compute:
			entry["kernel"] = l.kernel.Name()
			entry["num_inputs"] = len(l.inputs)
			entry["num_outputs"] = len(l.outputs)
		}
		layers = append(layers, entry)
	}

	conns := make([]any, 0, len(g.conns))
	for _, c := range g.conns {
		dims := make([]any, 0, c.Info.Rank())
		for _, d := range c.Info.Shape() {
			dims = append(dims, d)
		}
		conns = append(conns, map[string]any{
			"from":      int(c.From.Layer),
			"from_slot": c.From.Slot,
			"to":        int(c.To.Layer),
			"to_slot":   c.To.Slot,
			"shape":     dims,
			"dtype":     c.Info.DataType().String(),
		})
	}

	s, err := structpb.NewStruct(map[string]any{
		"layers":      layers,
		"connections": conns,
	})
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	return s, nil
}

// MarshalSnapshot serializes Snapshot(g) deterministically.
func MarshalSnapshot(g *Graph) ([]byte, error) {
	s, err := Snapshot(g)
	if err != nil {
		return nil, err
	}
	return proto.MarshalOptions{Deterministic: true}.Marshal(s)
}

// UnmarshalSnapshot rebuilds a graph from MarshalSnapshot output. Compute
// layers cannot be restored because their kernels are not serializable.
func UnmarshalSnapshot(data []byte) (*Graph, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	m := s.AsMap()

	g := New()
	layers, _ := m["layers"].([]any)
	for _, raw := range layers {
		entry, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("unmarshal snapshot: malformed layer entry")
		}
		name, _ := entry["name"].(string)
		kindName, _ := entry["kind"].(string)
		kind, err := parseKind(kindName)
		if err != nil {
			return nil, err
		}
		if kind == Compute {
			return nil, fmt.Errorf("unmarshal snapshot: %w: %q", ErrMissingKernel, name)
		}

		var opts []LayerOption
		if b, ok := entry["backend"].(string); ok {
			id, err := tensor.ParseBackendID(b)
			if err != nil {
				return nil, fmt.Errorf("unmarshal snapshot: %w", err)
			}
			opts = append(opts, WithBackend(id))
		}
		if v, ok := entry["binding_id"].(float64); ok {
			opts = append(opts, WithBindingID(int(v)))
		}
		if a, ok := entry["activation"].(string); ok {
			fn, err := kernels.ParseFunc(a)
			if err != nil {
				return nil, fmt.Errorf("unmarshal snapshot: %w", err)
			}
			opts = append(opts, WithActivation(fn))
		}
		if _, err := g.AddLayer(kind, name, opts...); err != nil {
			return nil, fmt.Errorf("unmarshal snapshot: %w", err)
		}
	}

	conns, _ := m["connections"].([]any)
	for _, raw := range conns {
		entry, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("unmarshal snapshot: malformed connection entry")
		}
		from, to := int(number(entry["from"])), int(number(entry["to"]))
		if from < 0 || from >= len(g.layers) || to < 0 || to >= len(g.layers) {
			return nil, fmt.Errorf("unmarshal snapshot: connection %d -> %d out of range", from, to)
		}
		dims, _ := entry["shape"].([]any)
		shape := make(tensor.Shape, len(dims))
		for i, d := range dims {
			shape[i] = int(number(d))
		}
		dtype, err := tensor.ParseDataType(fmt.Sprint(entry["dtype"]))
		if err != nil {
			return nil, fmt.Errorf("unmarshal snapshot: %w", err)
		}
		info, err := tensor.NewInfo(shape, dtype)
		if err != nil {
			return nil, fmt.Errorf("unmarshal snapshot: %w", err)
		}
		if _, err := g.ConnectSlots(g.layers[from], int(number(entry["from_slot"])),
			g.layers[to], int(number(entry["to_slot"])), info); err != nil {
			return nil, fmt.Errorf("unmarshal snapshot: %w", err)
		}
	}
	return g, nil
}

func number(v any) float64 {
	f, _ := v.(float64)
	return f
}

func parseKind(name string) (LayerKind, error) {
	for k := Input; k <= Compute; k++ {
		if k.String() == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unmarshal snapshot: unknown layer kind %q", name)
}
