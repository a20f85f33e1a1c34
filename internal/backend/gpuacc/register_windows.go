//go:build windows

package gpuacc

import (
	"sync"

	"github.com/born-ml/hetero/internal/tensor"
	"github.com/born-ml/hetero/internal/workload"
	"k8s.io/klog/v2"
)

var (
	probeOnce sync.Once
	probed    bool

	sharedOnce sync.Once
	shared     *Device
	sharedErr  error
)

// available caches IsAvailable; probing loads the native library.
func available() bool {
	probeOnce.Do(func() { probed = IsAvailable() })
	return probed
}

// SharedDevice opens the process-wide device on first use.
func SharedDevice() (*Device, error) {
	sharedOnce.Do(func() {
		shared, sharedErr = OpenDevice()
		if sharedErr == nil {
			klog.V(2).InfoS("Opened GPU device", "adapter", shared.Name())
		}
	})
	return shared, sharedErr
}

func init() {
	workload.Register(workload.Registration{
		ID:        tensor.GPUAcc,
		Available: available,
		New: func(cfg workload.BackendConfig) (workload.Factory, error) {
			dev, err := SharedDevice()
			if err != nil {
				return nil, err
			}
			return NewFactory(dev, cfg), nil
		},
	})
	workload.RegisterCopyToReference(tensor.GPUAcc, func(desc workload.QueueDescriptor, declared tensor.Info, cfg workload.BackendConfig) (workload.Workload, error) {
		return NewCopyToReferenceWorkload(desc, declared, cfg)
	})
}
