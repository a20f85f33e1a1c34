package graph

import (
	"errors"
	"fmt"

	"github.com/born-ml/hetero/internal/tensor"
)

// Common errors.
var (
	ErrDuplicateName      = errors.New("layer name already used in graph")
	ErrNoFreeSlot         = errors.New("no unused slot")
	ErrSlotOutOfRange     = errors.New("slot index out of range")
	ErrSlotInUse          = errors.New("input slot already connected")
	ErrDescriptorMismatch = errors.New("tensor descriptor mismatch")
	ErrDanglingSlot       = errors.New("slot has no tensor descriptor")
	ErrCycle              = errors.New("graph contains a cycle")
	ErrForeignLayer       = errors.New("layer belongs to another graph")
	ErrBackendMismatch    = errors.New("factory backend differs from layer assignment")
	ErrMissingBoundary    = errors.New("cross-backend edge without a MemCopy layer")
	ErrMissingKernel      = errors.New("compute layer requires a kernel")
	ErrInvalidOption      = errors.New("option not valid for layer kind")
	ErrReleased           = errors.New("graph has been released")
	ErrInvalidState       = errors.New("invalid layer state transition")
)

// ConnectionError reports two conflicting descriptors on one slot.
type ConnectionError struct {
	Producer  string
	Consumer  string
	Declared  tensor.Info // Descriptor already present on the slot.
	Requested tensor.Info // Descriptor passed to Connect.
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect %q -> %q: declared %s, requested %s", e.Producer, e.Consumer, e.Declared, e.Requested)
}

// Unwrap returns ErrDescriptorMismatch.
func (e *ConnectionError) Unwrap() error {
	return ErrDescriptorMismatch
}
