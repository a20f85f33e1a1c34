package workload

import (
	"github.com/born-ml/hetero/internal/graph"
	"github.com/born-ml/hetero/internal/handle"
)

// Factory turns layers into workloads for one backend. It also allocates the
// backend's tensor handles, so the factory that built a workload is the one
// that produced the handles of that workload's backend.
type Factory interface {
	handle.Factory

	// Supports reports whether CreateWorkload can handle the kind. The
	// runtime asks before allocating any handle for a layer.
	Supports(kind graph.LayerKind) bool

	// CreateWorkload builds the layer's workload from the handles already
	// created on the layer and its producers. Unsupported kinds return an
	// *UnsupportedError without touching any handle.
	CreateWorkload(l *graph.Layer, g *graph.Graph) (Workload, error)
}

// CheckSupported returns an *UnsupportedError if f cannot build l.
func CheckSupported(f Factory, l *graph.Layer) error {
	if f.Supports(l.Kind()) {
		return nil
	}
	return &UnsupportedError{Kind: l.Kind(), Backend: f.Backend()}
}
