package ref

import (
	"fmt"

	"github.com/born-ml/hetero/internal/graph"
	"github.com/born-ml/hetero/internal/kernels"
	"github.com/born-ml/hetero/internal/parallel"
	"github.com/born-ml/hetero/internal/tensor"
	"github.com/born-ml/hetero/internal/workload"
)

// CopyWorkload copies between two Reference handles.
type CopyWorkload struct {
	workload.Base
	src ConstTensorHandle
	dst *TensorHandle
}

// NewCopyWorkload builds a same-backend copy.
func NewCopyWorkload(desc workload.QueueDescriptor, declared tensor.Info) (*CopyWorkload, error) {
	const name = "CpuRefMemCopy"
	if err := desc.Validate(name, 1, 1); err != nil {
		return nil, err
	}
	src := workload.Downcast[ConstTensorHandle](desc.Inputs[0], "input")
	dst := workload.Downcast[*TensorHandle](desc.Outputs[0], "output")
	if err := workload.CheckMemCopy(name, desc, declared); err != nil {
		return nil, err
	}
	return &CopyWorkload{Base: workload.NewBase(desc, tensor.CPURef, name), src: src, dst: dst}, nil
}

// Execute copies the bytes.
func (w *CopyWorkload) Execute() {
	w.CheckLive()
	copy(w.dst.Data(), w.src.ConstData())
}

// binding holds the caller buffer of an Input or Output workload.
type binding struct {
	id   int
	info tensor.Info
	buf  *tensor.Buffer
}

func (b *binding) BindingID() int { return b.id }

func (b *binding) Bind(buf *tensor.Buffer) error {
	if buf == nil {
		b.buf = nil
		return nil
	}
	if buf.DType() != b.info.DataType() || !buf.Shape().Equal(b.info.Shape()) {
		return fmt.Errorf("binding %d: buffer %s%s does not match %s",
			b.id, buf.DType(), buf.Shape(), b.info)
	}
	b.buf = buf
	return nil
}

func (b *binding) bound(name string) *tensor.Buffer {
	if b.buf == nil {
		panic(fmt.Sprintf("%s: binding %d executed without a bound buffer", name, b.id))
	}
	if b.buf.Released() {
		panic(fmt.Sprintf("%s: binding %d buffer used after release", name, b.id))
	}
	return b.buf
}

// InputWorkload copies a caller buffer into the graph.
type InputWorkload struct {
	workload.Base
	binding
	dst *TensorHandle
}

var (
	_ workload.Bindable = (*InputWorkload)(nil)
	_ workload.Bindable = (*OutputWorkload)(nil)
)

// NewInputWorkload builds the workload for an Input layer.
func NewInputWorkload(desc workload.QueueDescriptor, bindingID int) (*InputWorkload, error) {
	const name = "CpuRefInput"
	if err := desc.Validate(name, 0, 1); err != nil {
		return nil, err
	}
	dst := workload.Downcast[*TensorHandle](desc.Outputs[0], "output")
	return &InputWorkload{
		Base:    workload.NewBase(desc, tensor.CPURef, name),
		binding: binding{id: bindingID, info: dst.TensorInfo()},
		dst:     dst,
	}, nil
}

// Execute copies the bound buffer into the output handle.
func (w *InputWorkload) Execute() {
	w.CheckLive()
	copy(w.dst.Data(), w.bound(w.Name()).Data())
}

// OutputWorkload copies a graph result into a caller buffer.
type OutputWorkload struct {
	workload.Base
	binding
	src ConstTensorHandle
}

// NewOutputWorkload builds the workload for an Output layer.
func NewOutputWorkload(desc workload.QueueDescriptor, bindingID int) (*OutputWorkload, error) {
	const name = "CpuRefOutput"
	if err := desc.Validate(name, 1, 0); err != nil {
		return nil, err
	}
	src := workload.Downcast[ConstTensorHandle](desc.Inputs[0], "input")
	return &OutputWorkload{
		Base:    workload.NewBase(desc, tensor.CPURef, name),
		binding: binding{id: bindingID, info: src.TensorInfo()},
		src:     src,
	}, nil
}

// Execute copies the input handle into the bound buffer.
func (w *OutputWorkload) Execute() {
	w.CheckLive()
	copy(w.bound(w.Name()).Data(), w.src.ConstData())
}

// ActivationWorkload applies an element-wise function.
type ActivationWorkload struct {
	workload.Base
	fn  kernels.Func
	cfg parallel.Config
	src *TensorHandle
	dst *TensorHandle
}

// NewActivationWorkload builds the workload for an Activation layer.
func NewActivationWorkload(desc workload.QueueDescriptor, fn kernels.Func, cfg parallel.Config) (*ActivationWorkload, error) {
	const name = "CpuRefActivation"
	if err := desc.Validate(name, 1, 1); err != nil {
		return nil, err
	}
	src := workload.Downcast[*TensorHandle](desc.Inputs[0], "input")
	dst := workload.Downcast[*TensorHandle](desc.Outputs[0], "output")
	if dt := src.TensorInfo().DataType(); !kernels.Supports(fn, dt) {
		return nil, &workload.UnsupportedError{Kind: graph.Activation, Backend: tensor.CPURef, Detail: fmt.Sprintf("%s on %s", fn, dt)}
	}
	return &ActivationWorkload{Base: workload.NewBase(desc, tensor.CPURef, name), fn: fn, cfg: cfg, src: src, dst: dst}, nil
}

// Execute runs the kernel.
func (w *ActivationWorkload) Execute() {
	w.CheckLive()
	kernels.Apply(w.fn, w.dst.Buffer(), w.src.Buffer(), w.cfg)
}

// ComputeWorkload runs a caller-supplied kernel.
type ComputeWorkload struct {
	workload.Base
	kernel  graph.Kernel
	inputs  []*tensor.Buffer
	outputs []*tensor.Buffer
}

// NewComputeWorkload builds the workload for a Compute layer.
func NewComputeWorkload(desc workload.QueueDescriptor, k graph.Kernel) (*ComputeWorkload, error) {
	if k == nil {
		return nil, fmt.Errorf("CpuRefCompute: %w", graph.ErrMissingKernel)
	}
	name := "CpuRef" + k.Name()
	w := &ComputeWorkload{
		Base:    workload.NewBase(desc, tensor.CPURef, name),
		kernel:  k,
		inputs:  make([]*tensor.Buffer, len(desc.Inputs)),
		outputs: make([]*tensor.Buffer, len(desc.Outputs)),
	}
	for i, h := range desc.Inputs {
		w.inputs[i] = workload.Downcast[*TensorHandle](h, fmt.Sprintf("input %d", i)).Buffer()
	}
	for i, h := range desc.Outputs {
		w.outputs[i] = workload.Downcast[*TensorHandle](h, fmt.Sprintf("output %d", i)).Buffer()
	}
	return w, nil
}

// Execute runs the kernel.
func (w *ComputeWorkload) Execute() {
	w.CheckLive()
	w.kernel.Run(w.inputs, w.outputs)
}
