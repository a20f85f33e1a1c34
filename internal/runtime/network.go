// Package runtime turns a graph into executable workloads: it places layers
// on backends, allocates their tensor handles, asks each backend's factory for
// the workloads and runs them in dependency order.
package runtime

import (
	"context"
	"fmt"
	"sync"

	"github.com/born-ml/hetero/internal/graph"
	"github.com/born-ml/hetero/internal/tensor"
	"github.com/born-ml/hetero/internal/workload"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"
)

// Network owns a graph and the workloads built from it.
//
// A Network is not safe for concurrent use. ExecuteParallel runs the
// workloads of one topological level concurrently; layers of the same level
// never share an output handle.
type Network struct {
	g   *graph.Graph
	cfg Config

	factories map[tensor.BackendID]workload.Factory
	workloads []workload.Workload   // topological order
	levels    [][]workload.Workload // Kahn levels
	layerOf   map[workload.Workload]*graph.Layer
	byName    map[string]workload.Workload
	inputs    map[int]workload.Bindable
	outputs   map[int]workload.Bindable

	built    bool
	released bool
}

// NewNetwork takes ownership of g.
func NewNetwork(g *graph.Graph, cfg Config) *Network {
	return &Network{g: g, cfg: cfg, factories: make(map[tensor.BackendID]workload.Factory)}
}

// Graph returns the underlying graph.
func (n *Network) Graph() *graph.Graph { return n.g }

// Build validates the graph, allocates every tensor handle and creates every
// workload.
//
// Layers without a backend run on the Reference backend. Every layer's kind
// is checked against its backend before any handle is allocated, so an
// unsupported layer fails the build with nothing allocated. Any later
// failure releases the handles allocated so far. Build may be called again;
// the previous handles and workloads are replaced.
func (n *Network) Build(ctx context.Context) error {
	logger := klog.FromContext(ctx)
	if n.released {
		return ErrReleased
	}
	n.reset()

	if err := n.g.Validate(); err != nil {
		return fmt.Errorf("validate graph: %w", err)
	}
	order, err := n.g.TopologicalOrder()
	if err != nil {
		return err
	}

	plan, err := n.place(order)
	if err != nil {
		return err
	}

	for _, l := range order {
		if err := l.CreateTensorHandles(n.g, plan[l]); err != nil {
			n.releaseHandles(order)
			return fmt.Errorf("build %s: %w", l, err)
		}
	}

	n.layerOf = make(map[workload.Workload]*graph.Layer, len(order))
	n.byName = make(map[string]workload.Workload, len(order))
	n.inputs = make(map[int]workload.Bindable)
	n.outputs = make(map[int]workload.Bindable)
	byLayer := make(map[graph.LayerID]workload.Workload, len(order))
	for _, l := range order {
		w, err := plan[l].CreateWorkload(l, n.g)
		if err != nil {
			n.releaseHandles(order)
			n.reset()
			return fmt.Errorf("build %s on %s: %w", l, plan[l].Backend(), err)
		}
		if err := l.AdvanceState(graph.WorkloadBuilt); err != nil {
			n.releaseHandles(order)
			n.reset()
			return err
		}
		n.workloads = append(n.workloads, w)
		n.layerOf[w] = l
		n.byName[l.Name()] = w
		byLayer[l.ID()] = w

		if b, ok := w.(workload.Bindable); ok {
			bindings := n.inputs
			if l.Kind() == graph.Output {
				bindings = n.outputs
			}
			bindings[b.BindingID()] = b
		}
		logger.V(4).Info("Built workload", "layer", l.Name(), "workload", w.Name(), "backend", w.Backend())
	}

	levels, err := n.g.Levels()
	if err != nil {
		n.releaseHandles(order)
		n.reset()
		return err
	}
	for _, level := range levels {
		ws := make([]workload.Workload, len(level))
		for i, l := range level {
			ws[i] = byLayer[l.ID()]
		}
		n.levels = append(n.levels, ws)
	}

	n.built = true
	logger.V(2).Info("Built network", "layers", len(order), "levels", len(n.levels), "backends", n.Backends())
	return nil
}

// place picks a factory for every layer and checks the layer kinds against
// them. It allocates nothing.
func (n *Network) place(order []*graph.Layer) (map[*graph.Layer]workload.Factory, error) {
	plan := make(map[*graph.Layer]workload.Factory, len(order))
	inputs := make(map[int]string)
	outputs := make(map[int]string)
	for _, l := range order {
		b, ok := l.Backend()
		if !ok {
			b = tensor.CPURef
		}
		f, err := n.factory(b)
		if err != nil {
			return nil, fmt.Errorf("place %s: %w", l, err)
		}
		if err := workload.CheckSupported(f, l); err != nil {
			return nil, fmt.Errorf("place %s: %w", l, err)
		}
		plan[l] = f

		var seen map[int]string
		switch l.Kind() {
		case graph.Input:
			seen = inputs
		case graph.Output:
			seen = outputs
		default:
			continue
		}
		if other, dup := seen[l.BindingID()]; dup {
			return nil, fmt.Errorf("%w: %d used by %s and %s", ErrDuplicateBinding, l.BindingID(), other, l.Name())
		}
		seen[l.BindingID()] = l.Name()
	}

	// Unassigned layers were placed on Reference; re-check backend boundaries.
	for _, c := range n.g.Connections() {
		from, to := n.g.Layer(c.From.Layer), n.g.Layer(c.To.Layer)
		if plan[from].Backend() == plan[to].Backend() || to.Kind() == graph.MemCopy {
			continue
		}
		return nil, fmt.Errorf("%w: %s on %s -> %s on %s",
			graph.ErrMissingBoundary, from, plan[from].Backend(), to, plan[to].Backend())
	}
	return plan, nil
}

func (n *Network) factory(b tensor.BackendID) (workload.Factory, error) {
	if f, ok := n.factories[b]; ok {
		return f, nil
	}
	if !n.cfg.allows(b) {
		return nil, fmt.Errorf("%w: %s", ErrBackendDisabled, b)
	}
	f, err := workload.NewFactory(b, n.cfg.backendConfig(b))
	if err != nil {
		return nil, err
	}
	n.factories[b] = f
	return f, nil
}

func (n *Network) releaseHandles(order []*graph.Layer) {
	for _, l := range order {
		l.ReleaseTensorHandles()
	}
}

func (n *Network) reset() {
	n.built = false
	n.workloads = nil
	n.levels = nil
	n.layerOf = nil
	n.byName = nil
	n.inputs = nil
	n.outputs = nil
}

// Backends lists the backends the built network uses.
func (n *Network) Backends() []tensor.BackendID {
	var ids []tensor.BackendID
	for _, id := range tensor.AllBackends {
		if _, ok := n.factories[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// Workloads returns the workloads in execution order.
func (n *Network) Workloads() []workload.Workload {
	return append([]workload.Workload(nil), n.workloads...)
}

// WorkloadFor returns the workload built for the named layer.
func (n *Network) WorkloadFor(layer string) (workload.Workload, bool) {
	w, ok := n.byName[layer]
	return w, ok
}

// BindInput sets the host buffer an Input layer reads from.
func (n *Network) BindInput(id int, buf *tensor.Buffer) error {
	return n.bind(n.inputs, "input", id, buf)
}

// BindOutput sets the host buffer an Output layer writes to.
func (n *Network) BindOutput(id int, buf *tensor.Buffer) error {
	return n.bind(n.outputs, "output", id, buf)
}

func (n *Network) bind(bindings map[int]workload.Bindable, what string, id int, buf *tensor.Buffer) error {
	if !n.built {
		return ErrNotBuilt
	}
	b, ok := bindings[id]
	if !ok {
		return fmt.Errorf("%w: %s %d", ErrUnknownBinding, what, id)
	}
	return b.Bind(buf)
}

// Execute runs every workload once in topological order. It stops between
// workloads when ctx is done.
func (n *Network) Execute(ctx context.Context) error {
	if !n.built {
		return ErrNotBuilt
	}
	for _, w := range n.workloads {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := n.invoke(w); err != nil {
			return err
		}
	}
	return nil
}

// ExecuteParallel runs the workloads level by level, the workloads of one
// level concurrently on up to Config.Parallel.NumWorkers goroutines.
//
// A panicking workload is re-panicked on the calling goroutine once its
// level has finished.
func (n *Network) ExecuteParallel(ctx context.Context) error {
	if !n.built {
		return ErrNotBuilt
	}
	logger := klog.FromContext(ctx)

	for i, level := range n.levels {
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(level) == 1 {
			if err := n.invoke(level[0]); err != nil {
				return err
			}
			continue
		}

		var (
			once  sync.Once
			fault any
		)
		var eg errgroup.Group
		if n.cfg.Parallel.Enabled && n.cfg.Parallel.NumWorkers > 0 {
			eg.SetLimit(n.cfg.Parallel.NumWorkers)
		} else {
			eg.SetLimit(1)
		}
		for _, w := range level {
			eg.Go(func() (err error) {
				defer func() {
					if r := recover(); r != nil {
						once.Do(func() { fault = r })
						err = fmt.Errorf("%s panicked", w.Name())
					}
				}()
				w.Execute()
				return nil
			})
		}
		err := eg.Wait()
		if fault != nil {
			panic(fault)
		}
		if err != nil {
			return err
		}
		for _, w := range level {
			if err := n.layerOf[w].AdvanceState(graph.Invoked); err != nil {
				return err
			}
		}
		logger.V(5).Info("Executed level", "level", i, "workloads", len(level))
	}
	return nil
}

func (n *Network) invoke(w workload.Workload) error {
	w.Execute()
	return n.layerOf[w].AdvanceState(graph.Invoked)
}

// Release frees every tensor handle. The network and its graph cannot be
// used afterwards.
func (n *Network) Release() {
	if n.released {
		return
	}
	n.g.Release()
	n.reset()
	n.released = true
}
