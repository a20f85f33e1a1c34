package workload

import (
	"errors"
	"fmt"

	"github.com/born-ml/hetero/internal/graph"
	"github.com/born-ml/hetero/internal/tensor"
)

// Common errors.
var (
	ErrUnsupportedLayer    = errors.New("layer kind not supported by backend")
	ErrHandlesNotAllocated = errors.New("tensor handles not allocated")
	ErrBackendUnavailable  = errors.New("backend not available")
	ErrQueueArity          = errors.New("unexpected number of queue handles")
	ErrNotBindable         = errors.New("workload has no binding")
)

// UnsupportedError identifies the layer kind and backend of a failed
// CreateWorkload.
type UnsupportedError struct {
	Kind    graph.LayerKind
	Backend tensor.BackendID
	Detail  string
}

// Error implements the error interface.
func (e *UnsupportedError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s layers not supported by %s: %s", e.Kind, e.Backend, e.Detail)
	}
	return fmt.Sprintf("%s layers not supported by %s", e.Kind, e.Backend)
}

// Unwrap returns ErrUnsupportedLayer.
func (e *UnsupportedError) Unwrap() error {
	return ErrUnsupportedLayer
}
