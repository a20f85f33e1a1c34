//go:build windows

package gpuacc

import (
	"fmt"

	"github.com/born-ml/hetero/internal/backend/ref"
	"github.com/born-ml/hetero/internal/parallel"
	"github.com/born-ml/hetero/internal/tensor"
	"github.com/born-ml/hetero/internal/workload"
)

// CopyFromReferenceWorkload uploads a Reference tensor into a device buffer.
type CopyFromReferenceWorkload struct {
	workload.Base
	src     ref.ConstTensorHandle
	dst     *TensorHandle
	cfg     parallel.Config
	staging []byte
}

// NewCopyFromReferenceWorkload validates desc and builds the upload.
func NewCopyFromReferenceWorkload(desc workload.QueueDescriptor, declared tensor.Info, cfg workload.BackendConfig) (*CopyFromReferenceWorkload, error) {
	const name = "GpuAccCopyFromReference"
	if err := desc.Validate(name, 1, 1); err != nil {
		return nil, err
	}
	src := workload.Downcast[ref.ConstTensorHandle](desc.Inputs[0], "input")
	dst := workload.Downcast[*TensorHandle](desc.Outputs[0], "output")
	if err := workload.CheckMemCopy(name, desc, declared); err != nil {
		return nil, err
	}
	return &CopyFromReferenceWorkload{
		Base:    workload.NewBase(desc, tensor.GPUAcc, name),
		src:     src,
		dst:     dst,
		cfg:     cfg.Parallel,
		staging: make([]byte, dst.size),
	}, nil
}

// Execute reorders on the host and uploads.
func (w *CopyFromReferenceWorkload) Execute() {
	w.CheckLive()
	info := w.dst.TensorInfo()
	w.dst.Order().PortableToNative(w.staging[:info.NumBytes()], w.src.ConstData(), info.Shape(), info.DataType().Size(), w.cfg)
	w.dst.dev.upload(w.dst.buf, w.staging)
}

// CopyToReferenceWorkload reads a device buffer back into a Reference handle.
type CopyToReferenceWorkload struct {
	workload.Base
	src     *TensorHandle
	dst     *ref.TensorHandle
	cfg     parallel.Config
	staging []byte
}

// NewCopyToReferenceWorkload validates desc and builds the download.
func NewCopyToReferenceWorkload(desc workload.QueueDescriptor, declared tensor.Info, cfg workload.BackendConfig) (*CopyToReferenceWorkload, error) {
	const name = "GpuAccCopyToReference"
	if err := desc.Validate(name, 1, 1); err != nil {
		return nil, err
	}
	src := workload.Downcast[*TensorHandle](desc.Inputs[0], "input")
	dst := workload.Downcast[*ref.TensorHandle](desc.Outputs[0], "output")
	if err := workload.CheckMemCopy(name, desc, declared); err != nil {
		return nil, err
	}
	return &CopyToReferenceWorkload{
		Base:    workload.NewBase(desc, tensor.CPURef, name),
		src:     src,
		dst:     dst,
		cfg:     cfg.Parallel,
		staging: make([]byte, src.size),
	}, nil
}

// Execute downloads and restores declaration order. A failed readback is
// fatal: the graph cannot continue with undefined data.
func (w *CopyToReferenceWorkload) Execute() {
	w.CheckLive()
	if err := w.src.dev.download(w.staging, w.src.buf, w.src.size); err != nil {
		panic(fmt.Sprintf("%s: %v", w.Name(), err))
	}
	info := w.src.TensorInfo()
	w.src.Order().NativeToPortable(w.dst.Data(), w.staging[:info.NumBytes()], info.Shape(), info.DataType().Size(), w.cfg)
}

// CopyWorkload copies between two device buffers.
type CopyWorkload struct {
	workload.Base
	src, dst *TensorHandle
}

// NewCopyWorkload builds a device-side copy.
func NewCopyWorkload(desc workload.QueueDescriptor, declared tensor.Info) (*CopyWorkload, error) {
	const name = "GpuAccMemCopy"
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
	return &CopyWorkload{Base: workload.NewBase(desc, tensor.GPUAcc, name), src: src, dst: dst}, nil
}

// Execute records and submits the copy.
func (w *CopyWorkload) Execute() {
	w.CheckLive()
	w.src.dev.copyBuffer(w.src.buf, w.dst.buf, w.src.size)
}
