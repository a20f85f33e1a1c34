// Package ref implements the Reference backend: tensors live in host memory
// in declaration order and every layer kind has a workload.
package ref

import (
	"github.com/born-ml/hetero/internal/graph"
	"github.com/born-ml/hetero/internal/handle"
	"github.com/born-ml/hetero/internal/tensor"
	"github.com/born-ml/hetero/internal/workload"
)

// Factory creates Reference handles and workloads.
type Factory struct {
	cfg workload.BackendConfig
}

var _ workload.Factory = (*Factory)(nil)

// NewFactory creates a Reference factory. The Reference backend always uses
// identity order; cfg.Order is ignored.
func NewFactory(cfg workload.BackendConfig) *Factory {
	return &Factory{cfg: cfg}
}

func init() {
	workload.Register(workload.Registration{
		ID: tensor.CPURef,
		New: func(cfg workload.BackendConfig) (workload.Factory, error) {
			return NewFactory(cfg), nil
		},
	})
}

// Backend returns CPURef.
func (f *Factory) Backend() tensor.BackendID { return tensor.CPURef }

// CreateTensorHandle allocates a Reference handle.
func (f *Factory) CreateTensorHandle(info tensor.Info) (handle.TensorHandle, error) {
	return NewTensorHandle(info), nil
}

// Supports reports true for every known kind.
func (f *Factory) Supports(kind graph.LayerKind) bool {
	switch kind {
	case graph.Input, graph.Output, graph.MemCopy, graph.Activation, graph.Compute:
		return true
	default:
		return false
	}
}

// CreateWorkload dispatches on the layer kind.
//
// MemCopy layers whose input lives on another backend get that backend's
// copy-out workload, looked up by the input handle's backend tag.
func (f *Factory) CreateWorkload(l *graph.Layer, g *graph.Graph) (workload.Workload, error) {
	if err := workload.CheckSupported(f, l); err != nil {
		return nil, err
	}
	desc, err := workload.MakeQueueDescriptor(l, g)
	if err != nil {
		return nil, err
	}

	switch l.Kind() {
	case graph.Input:
		return NewInputWorkload(desc, l.BindingID())
	case graph.Output:
		return NewOutputWorkload(desc, l.BindingID())
	case graph.MemCopy:
		info, _ := l.InputInfo(0)
		src := desc.Inputs[0].Backend()
		if src == tensor.CPURef {
			return NewCopyWorkload(desc, info)
		}
		copyOut, ok := workload.CopyToReference(src)
		if !ok {
			return nil, &workload.UnsupportedError{Kind: l.Kind(), Backend: tensor.CPURef, Detail: "no copy from " + src.String()}
		}
		return copyOut(desc, info, f.cfg)
	case graph.Activation:
		return NewActivationWorkload(desc, l.ActivationFunc(), f.cfg.Parallel)
	case graph.Compute:
		return NewComputeWorkload(desc, l.Kernel())
	default:
		return nil, &workload.UnsupportedError{Kind: l.Kind(), Backend: tensor.CPURef}
	}
}
