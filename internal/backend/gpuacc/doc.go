// Package gpuacc implements the GPU-accelerated backend on WebGPU through
// go-webgpu (github.com/go-webgpu/webgpu), which needs no CGO.
//
// Tensors live in device buffers laid out in reversed dimension order. Only
// MemCopy layers have workloads: copies into the backend reorder on the host
// and upload through a staging buffer, copies out read back through a
// mappable staging buffer and restore declaration order.
//
// The backend is built on windows only, like the WebGPU native library it
// loads. Elsewhere the package compiles to a stub whose IsAvailable reports
// false and registers nothing.
package gpuacc
