//go:build windows

package gpuacc

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/go-webgpu/webgpu/wgpu"
)

// Device owns the WebGPU objects shared by every handle of one factory.
type Device struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	info     *wgpu.AdapterInfo
	pool     *BufferPool

	mu sync.Mutex // serializes queue submissions and mapping
}

// OpenDevice requests the high-performance adapter and its default device.
func OpenDevice() (dev *Device, err error) {
	// wgpu panics when the native library is missing.
	defer func() {
		if r := recover(); r != nil {
			dev = nil
			err = fmt.Errorf("gpuacc: native library not available: %v", r)
		}
	}()

	instance := wgpu.CreateInstance(nil)
	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		instance.Release()
		return nil, fmt.Errorf("gpuacc: request adapter: %w", err)
	}
	info := adapter.GetInfo()

	device, err := adapter.RequestDevice(nil)
	if err != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("gpuacc: request device: %w", err)
	}
	queue := device.GetQueue()
	if queue == nil {
		device.Release()
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("gpuacc: device has no queue")
	}

	return &Device{
		instance: instance,
		adapter:  adapter,
		device:   device,
		queue:    queue,
		info:     &info,
		pool:     NewBufferPool(device),
	}, nil
}

// Name describes the adapter.
func (d *Device) Name() string {
	if d.info != nil {
		return fmt.Sprintf("WebGPU (%s %s)", d.info.Name, d.info.VendorName)
	}
	return "WebGPU"
}

// Pool returns the device's buffer pool.
func (d *Device) Pool() *BufferPool { return d.pool }

// Release frees every WebGPU object. Handles created on the device must be
// released first.
func (d *Device) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pool != nil {
		d.pool.Clear()
		d.pool = nil
	}
	if d.queue != nil {
		d.queue.Release()
		d.queue = nil
	}
	if d.device != nil {
		d.device.Release()
		d.device = nil
	}
	if d.adapter != nil {
		d.adapter.Release()
		d.adapter = nil
	}
	if d.instance != nil {
		d.instance.Release()
		d.instance = nil
	}
}

// upload writes data into dst at offset 0 through a mapped-at-creation
// staging buffer. len(data) must be a multiple of 4.
func (d *Device) upload(dst *wgpu.Buffer, data []byte) {
	size := uint64(len(data))
	staging := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            wgpu.BufferUsageCopySrc,
		Size:             size,
		MappedAtCreation: wgpu.True,
	})
	defer staging.Release()

	mapped := staging.GetMappedRange(0, size)
	//nolint:gosec // mapped range is size bytes long
	copy(unsafe.Slice((*byte)(mapped), size), data)
	staging.Unmap()

	d.copyBuffer(staging, dst, size)
}

// download reads size bytes of src into out.
func (d *Device) download(out []byte, src *wgpu.Buffer, size uint64) error {
	staging := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
		Size:  size,
	})
	defer staging.Release()

	d.copyBuffer(src, staging, size)

	d.mu.Lock()
	defer d.mu.Unlock()
	if err := staging.MapAsync(d.device, wgpu.MapModeRead, 0, size); err != nil {
		return fmt.Errorf("gpuacc: map staging buffer: %w", err)
	}
	mapped := staging.GetMappedRange(0, size)
	//nolint:gosec // mapped range is size bytes long
	copy(out, unsafe.Slice((*byte)(mapped), size))
	staging.Unmap()
	return nil
}

// copyBuffer records and submits a device-side copy.
func (d *Device) copyBuffer(src, dst *wgpu.Buffer, size uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	encoder := d.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(src, 0, dst, 0, size)
	d.queue.Submit(encoder.Finish(nil))
}

// IsAvailable reports whether a WebGPU adapter can be opened.
func IsAvailable() (available bool) {
	defer func() {
		if r := recover(); r != nil {
			available = false
		}
	}()

	instance := wgpu.CreateInstance(nil)
	defer instance.Release()

	adapter, err := instance.RequestAdapter(nil)
	if err != nil {
		return false
	}
	adapter.Release()
	return true
}
