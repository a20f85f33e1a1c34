package tensor

import (
	"fmt"
	"strings"
)

// BackendID tags the execution target that owns a tensor handle or workload.
// The set is closed: every backend the runtime knows about has an ID here,
// whether or not it is available in the current build.
type BackendID int

// Known backends.
const (
	// CPURef is the portable reference implementation. It stores tensors in
	// declaration order and supports every layer kind.
	CPURef BackendID = iota
	// CPUAcc is a host-memory accelerator that stores dimensions reversed.
	CPUAcc
	// GPUAcc is the WebGPU accelerator.
	GPUAcc
)

// AllBackends lists every known backend in preference order.
var AllBackends = []BackendID{CPUAcc, GPUAcc, CPURef}

// String returns a human-readable backend name.
func (b BackendID) String() string {
	switch b {
	case CPURef:
		return "CpuRef"
	case CPUAcc:
		return "CpuAcc"
	case GPUAcc:
		return "GpuAcc"
	default:
		return "Unknown"
	}
}

// ParseBackendID resolves a backend name, ignoring case.
func ParseBackendID(name string) (BackendID, error) {
	for _, b := range []BackendID{CPURef, CPUAcc, GPUAcc} {
		if strings.EqualFold(strings.TrimSpace(name), b.String()) {
			return b, nil
		}
	}
	return 0, fmt.Errorf("unknown backend %q", name)
}
