// Package cpuacc implements the accelerated CPU backend. Tensors live in host
// memory laid out in the backend's native dimension order, reversed by
// default. Only MemCopy and Activation layers have workloads here; the rest
// of a graph runs on the Reference backend.
package cpuacc

import (
	"github.com/born-ml/hetero/internal/graph"
	"github.com/born-ml/hetero/internal/handle"
	"github.com/born-ml/hetero/internal/tensor"
	"github.com/born-ml/hetero/internal/workload"
)

// DefaultOrder is the layout used when the configuration sets none.
var DefaultOrder = tensor.ReversedOrder

// Factory creates CpuAcc handles and workloads.
type Factory struct {
	cfg   workload.BackendConfig
	order tensor.DimOrder
}

var _ workload.Factory = (*Factory)(nil)

// NewFactory creates a factory using cfg.Order, or DefaultOrder.
func NewFactory(cfg workload.BackendConfig) *Factory {
	return &Factory{cfg: cfg, order: cfg.OrderOr(DefaultOrder)}
}

func init() {
	workload.Register(workload.Registration{
		ID: tensor.CPUAcc,
		New: func(cfg workload.BackendConfig) (workload.Factory, error) {
			return NewFactory(cfg), nil
		},
	})
	workload.RegisterCopyToReference(tensor.CPUAcc, func(desc workload.QueueDescriptor, declared tensor.Info, cfg workload.BackendConfig) (workload.Workload, error) {
		return NewCopyToReferenceWorkload(desc, declared, cfg)
	})
}

// Backend returns CPUAcc.
func (f *Factory) Backend() tensor.BackendID { return tensor.CPUAcc }

// Order returns the layout of handles this factory creates.
func (f *Factory) Order() tensor.DimOrder { return f.order }

// CreateTensorHandle allocates a handle in native order.
func (f *Factory) CreateTensorHandle(info tensor.Info) (handle.TensorHandle, error) {
	return NewTensorHandle(info, f.order), nil
}

// Supports reports true for MemCopy and Activation.
func (f *Factory) Supports(kind graph.LayerKind) bool {
	return kind == graph.MemCopy || kind == graph.Activation
}

// CreateWorkload builds copy-into workloads for MemCopy layers fed from the
// Reference backend, native copies for MemCopy layers fed from CpuAcc, and
// element-wise activations.
func (f *Factory) CreateWorkload(l *graph.Layer, g *graph.Graph) (workload.Workload, error) {
	if err := workload.CheckSupported(f, l); err != nil {
		return nil, err
	}
	desc, err := workload.MakeQueueDescriptor(l, g)
	if err != nil {
		return nil, err
	}

	switch l.Kind() {
	case graph.MemCopy:
		info, _ := l.InputInfo(0)
		switch src := desc.Inputs[0].Backend(); src {
		case tensor.CPURef:
			return NewCopyFromReferenceWorkload(desc, info, f.cfg)
		case tensor.CPUAcc:
			return NewCopyWorkload(desc, info)
		default:
			return nil, &workload.UnsupportedError{Kind: l.Kind(), Backend: tensor.CPUAcc, Detail: "no copy from " + src.String()}
		}
	default:
		return NewActivationWorkload(desc, l.ActivationFunc(), f.cfg)
	}
}
