//go:build windows

package gpuacc

import (
	"github.com/born-ml/hetero/internal/graph"
	"github.com/born-ml/hetero/internal/handle"
	"github.com/born-ml/hetero/internal/tensor"
	"github.com/born-ml/hetero/internal/workload"
)

// DefaultOrder is the layout used when the configuration sets none.
var DefaultOrder = tensor.ReversedOrder

// Factory creates GpuAcc handles and MemCopy workloads on one device.
type Factory struct {
	dev   *Device
	cfg   workload.BackendConfig
	order tensor.DimOrder
}

var _ workload.Factory = (*Factory)(nil)

// NewFactory creates a factory on dev.
func NewFactory(dev *Device, cfg workload.BackendConfig) *Factory {
	return &Factory{dev: dev, cfg: cfg, order: cfg.OrderOr(DefaultOrder)}
}

// Backend returns GPUAcc.
func (f *Factory) Backend() tensor.BackendID { return tensor.GPUAcc }

// Device returns the factory's device.
func (f *Factory) Device() *Device { return f.dev }

// CreateTensorHandle allocates a device buffer.
func (f *Factory) CreateTensorHandle(info tensor.Info) (handle.TensorHandle, error) {
	return NewTensorHandle(f.dev, info, f.order), nil
}

// Supports reports true for MemCopy only.
func (f *Factory) Supports(kind graph.LayerKind) bool {
	return kind == graph.MemCopy
}

// CreateWorkload builds copy-into workloads for MemCopy layers fed from the
// Reference backend and device copies for MemCopy layers fed from GpuAcc.
func (f *Factory) CreateWorkload(l *graph.Layer, g *graph.Graph) (workload.Workload, error) {
	if err := workload.CheckSupported(f, l); err != nil {
		return nil, err
	}
	desc, err := workload.MakeQueueDescriptor(l, g)
	if err != nil {
		return nil, err
	}

	info, _ := l.InputInfo(0)
	switch src := desc.Inputs[0].Backend(); src {
	case tensor.CPURef:
		return NewCopyFromReferenceWorkload(desc, info, f.cfg)
	case tensor.GPUAcc:
		return NewCopyWorkload(desc, info)
	default:
		return nil, &workload.UnsupportedError{Kind: l.Kind(), Backend: tensor.GPUAcc, Detail: "no copy from " + src.String()}
	}
}
