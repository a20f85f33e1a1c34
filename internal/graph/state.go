package graph

import "fmt"

// LayerState tracks a layer through one graph build.
type LayerState int

// Build states, in order.
const (
	// Declared: added to the graph and possibly connected.
	Declared LayerState = iota
	// HandlesBound: output tensor handles exist.
	HandlesBound
	// WorkloadBuilt: a backend factory produced the layer's workload.
	WorkloadBuilt
	// Invoked: the workload ran at least once.
	Invoked
	// Released: handles were freed with the graph.
	Released
)

// String returns the state name.
func (s LayerState) String() string {
	switch s {
	case Declared:
		return "Declared"
	case HandlesBound:
		return "HandlesBound"
	case WorkloadBuilt:
		return "WorkloadBuilt"
	case Invoked:
		return "Invoked"
	case Released:
		return "Released"
	default:
		return "Unknown"
	}
}

// AdvanceState records progress made outside the graph package: a workload
// was built (HandlesBound or WorkloadBuilt -> WorkloadBuilt) or invoked
// (WorkloadBuilt or Invoked -> Invoked).
func (l *Layer) AdvanceState(to LayerState) error {
	ok := false
	switch to {
	case WorkloadBuilt:
		ok = l.state == HandlesBound || l.state == WorkloadBuilt || l.state == Invoked
	case Invoked:
		ok = l.state == WorkloadBuilt || l.state == Invoked
	}
	if !ok {
		return fmt.Errorf("%w: %s %s -> %s", ErrInvalidState, l, l.state, to)
	}
	l.state = to
	return nil
}
