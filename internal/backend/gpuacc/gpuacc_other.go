//go:build !windows

package gpuacc

// IsAvailable reports false: the WebGPU backend is only built on windows.
func IsAvailable() bool { return false }
