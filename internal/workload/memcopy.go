package workload

import (
	"fmt"
	"sync"

	"github.com/born-ml/hetero/internal/handle"
	"github.com/born-ml/hetero/internal/tensor"
)

// CheckMemCopy validates a MemCopy descriptor at construction: exactly one
// input and one output, each storing, after translation back to declaration
// order, the tensor declared on the MemCopy layer.
func CheckMemCopy(name string, desc QueueDescriptor, declared tensor.Info) error {
	if err := desc.Validate(name, 1, 1); err != nil {
		return err
	}
	if err := handle.CompareInfo(desc.Inputs[0], declared); err != nil {
		return fmt.Errorf("%s input: %w", name, err)
	}
	if err := handle.CompareInfo(desc.Outputs[0], declared); err != nil {
		return fmt.Errorf("%s output: %w", name, err)
	}
	return nil
}

// CopyToReferenceFunc builds the workload that copies a backend's handle into
// a Reference handle. The Reference factory calls it for MemCopy layers whose
// input lives on another backend.
type CopyToReferenceFunc func(desc QueueDescriptor, declared tensor.Info, cfg BackendConfig) (Workload, error)

var (
	copyOutMu sync.RWMutex
	copyOut   = make(map[tensor.BackendID]CopyToReferenceFunc)
)

// RegisterCopyToReference registers the copy-out constructor of a backend.
func RegisterCopyToReference(b tensor.BackendID, fn CopyToReferenceFunc) {
	copyOutMu.Lock()
	defer copyOutMu.Unlock()
	copyOut[b] = fn
}

// CopyToReference returns the copy-out constructor registered for b.
func CopyToReference(b tensor.BackendID) (CopyToReferenceFunc, bool) {
	copyOutMu.RLock()
	defer copyOutMu.RUnlock()
	fn, ok := copyOut[b]
	return fn, ok
}
