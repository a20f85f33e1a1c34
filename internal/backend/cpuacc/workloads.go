package cpuacc

import (
	"fmt"

	"github.com/born-ml/hetero/internal/backend/ref"
	"github.com/born-ml/hetero/internal/graph"
	"github.com/born-ml/hetero/internal/kernels"
	"github.com/born-ml/hetero/internal/parallel"
	"github.com/born-ml/hetero/internal/tensor"
	"github.com/born-ml/hetero/internal/workload"
)

// CopyFromReferenceWorkload copies a Reference tensor into a CpuAcc handle,
// reordering dimensions on the way.
type CopyFromReferenceWorkload struct {
	workload.Base
	src ref.ConstTensorHandle
	dst *TensorHandle
	cfg parallel.Config
}

// NewCopyFromReferenceWorkload validates desc and builds the copy. declared is
// the descriptor of the MemCopy layer.
func NewCopyFromReferenceWorkload(desc workload.QueueDescriptor, declared tensor.Info, cfg workload.BackendConfig) (*CopyFromReferenceWorkload, error) {
	const name = "CpuAccCopyFromReference"
	if err := desc.Validate(name, 1, 1); err != nil {
		return nil, err
	}
	src := workload.Downcast[ref.ConstTensorHandle](desc.Inputs[0], "input")
	dst := workload.Downcast[*TensorHandle](desc.Outputs[0], "output")
	if err := workload.CheckMemCopy(name, desc, declared); err != nil {
		return nil, err
	}
	return &CopyFromReferenceWorkload{
		Base: workload.NewBase(desc, tensor.CPUAcc, name),
		src:  src,
		dst:  dst,
		cfg:  cfg.Parallel,
	}, nil
}

// Execute reorders the source into native layout.
func (w *CopyFromReferenceWorkload) Execute() {
	w.CheckLive()
	info := w.dst.TensorInfo()
	w.dst.Order().PortableToNative(w.dst.Buffer().Data(), w.src.ConstData(), info.Shape(), info.DataType().Size(), w.cfg)
}

// CopyToReferenceWorkload copies a CpuAcc handle out to a Reference handle,
// restoring declaration order.
type CopyToReferenceWorkload struct {
	workload.Base
	src *TensorHandle
	dst *ref.TensorHandle
	cfg parallel.Config
}

// NewCopyToReferenceWorkload validates desc and builds the copy.
func NewCopyToReferenceWorkload(desc workload.QueueDescriptor, declared tensor.Info, cfg workload.BackendConfig) (*CopyToReferenceWorkload, error) {
	const name = "CpuAccCopyToReference"
	if err := desc.Validate(name, 1, 1); err != nil {
		return nil, err
	}
	src := workload.Downcast[*TensorHandle](desc.Inputs[0], "input")
	dst := workload.Downcast[*ref.TensorHandle](desc.Outputs[0], "output")
	if err := workload.CheckMemCopy(name, desc, declared); err != nil {
		return nil, err
	}
	return &CopyToReferenceWorkload{
		Base: workload.NewBase(desc, tensor.CPURef, name),
		src:  src,
		dst:  dst,
		cfg:  cfg.Parallel,
	}, nil
}

// Execute restores declaration order into the destination.
func (w *CopyToReferenceWorkload) Execute() {
	w.CheckLive()
	info := w.src.TensorInfo()
	w.src.Order().NativeToPortable(w.dst.Data(), w.src.Buffer().Data(), info.Shape(), info.DataType().Size(), w.cfg)
}

// CopyWorkload copies between two CpuAcc handles.
type CopyWorkload struct {
	workload.Base
	src, dst *TensorHandle
}

// NewCopyWorkload builds a same-backend copy. Both handles must share one
// layout; a factory only ever creates handles with its own order.
func NewCopyWorkload(desc workload.QueueDescriptor, declared tensor.Info) (*CopyWorkload, error) {
	const name = "CpuAccMemCopy"
	if err := desc.Validate(name, 1, 1); err != nil {
		return nil, err
	}
	src := workload.Downcast[*TensorHandle](desc.Inputs[0], "input")
	dst := workload.Downcast[*TensorHandle](desc.Outputs[0], "output")
	if err := workload.CheckMemCopy(name, desc, declared); err != nil {
		return nil, err
	}
	if src.Order() != dst.Order() {
		return nil, fmt.Errorf("%s: layouts differ: %s vs %s", name, src.Order(), dst.Order())
	}
	return &CopyWorkload{Base: workload.NewBase(desc, tensor.CPUAcc, name), src: src, dst: dst}, nil
}

// Execute copies the bytes.
func (w *CopyWorkload) Execute() {
	w.CheckLive()
	copy(w.dst.Buffer().Data(), w.src.Buffer().Data())
}

// ActivationWorkload applies an element-wise function in native layout.
type ActivationWorkload struct {
	workload.Base
	fn       kernels.Func
	cfg      parallel.Config
	src, dst *TensorHandle
}

// NewActivationWorkload builds the workload for an Activation layer.
func NewActivationWorkload(desc workload.QueueDescriptor, fn kernels.Func, cfg workload.BackendConfig) (*ActivationWorkload, error) {
	const name = "CpuAccActivation"
	if err := desc.Validate(name, 1, 1); err != nil {
		return nil, err
	}
	src := workload.Downcast[*TensorHandle](desc.Inputs[0], "input")
	dst := workload.Downcast[*TensorHandle](desc.Outputs[0], "output")
	if dt := src.TensorInfo().DataType(); !kernels.Supports(fn, dt) {
		return nil, &workload.UnsupportedError{Kind: graph.Activation, Backend: tensor.CPUAcc, Detail: fmt.Sprintf("%s on %s", fn, dt)}
	}
	return &ActivationWorkload{Base: workload.NewBase(desc, tensor.CPUAcc, name), fn: fn, cfg: cfg.Parallel, src: src, dst: dst}, nil
}

// Execute runs the kernel.
func (w *ActivationWorkload) Execute() {
	w.CheckLive()
	kernels.Apply(w.fn, w.dst.Buffer(), w.src.Buffer(), w.cfg)
}
