package runtime

import "errors"

// Common errors.
var (
	ErrNotBuilt         = errors.New("network not built")
	ErrUnknownBinding   = errors.New("unknown binding id")
	ErrDuplicateBinding = errors.New("duplicate binding id")
	ErrBackendDisabled  = errors.New("backend disabled by configuration")
	ErrReleased         = errors.New("network released")
)
