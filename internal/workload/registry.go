package workload

import (
	"fmt"
	"sort"
	"sync"

	"github.com/born-ml/hetero/internal/parallel"
	"github.com/born-ml/hetero/internal/tensor"
	"k8s.io/klog/v2"
)

// BackendConfig is passed to a backend's constructor.
type BackendConfig struct {
	// Order overrides the backend's native dimension order. Nil keeps the
	// backend's default.
	Order *tensor.DimOrder
	// Parallel controls host-side copy and element-wise loops.
	Parallel parallel.Config
}

// OrderOr returns the configured order or def.
func (c BackendConfig) OrderOr(def tensor.DimOrder) tensor.DimOrder {
	if c.Order != nil {
		return *c.Order
	}
	return def
}

// Registration describes a backend compiled into the binary.
type Registration struct {
	ID tensor.BackendID
	// New creates a factory.
	New func(cfg BackendConfig) (Factory, error)
	// Available probes the hardware. Nil means always available.
	Available func() bool
}

var (
	registryMu sync.RWMutex
	registry   = make(map[tensor.BackendID]Registration)
)

// Register adds a backend. Backend packages call it from init; a backend
// that is not compiled in is simply never registered.
func Register(r Registration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[r.ID] = r
	klog.V(4).InfoS("Registered backend", "backend", r.ID)
}

// Lookup returns the registration of b if b is compiled in and available.
func Lookup(b tensor.BackendID) (Registration, bool) {
	registryMu.RLock()
	r, ok := registry[b]
	registryMu.RUnlock()
	if !ok {
		return Registration{}, false
	}
	if r.Available != nil && !r.Available() {
		return Registration{}, false
	}
	return r, true
}

// Available lists the usable backends, sorted by id.
func Available() []tensor.BackendID {
	registryMu.RLock()
	ids := make([]tensor.BackendID, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	registryMu.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	usable := ids[:0]
	for _, id := range ids {
		if _, ok := Lookup(id); ok {
			usable = append(usable, id)
		}
	}
	return usable
}

// NewFactory creates a factory for b, or fails with ErrBackendUnavailable.
func NewFactory(b tensor.BackendID, cfg BackendConfig) (Factory, error) {
	r, ok := Lookup(b)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBackendUnavailable, b)
	}
	f, err := r.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("create %s factory: %w", b, err)
	}
	return f, nil
}
