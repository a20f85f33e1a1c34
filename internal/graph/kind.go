package graph

import "github.com/born-ml/hetero/internal/tensor"

// LayerKind identifies a layer variant. Factories dispatch on it.
type LayerKind int

// Layer kinds.
const (
	Input LayerKind = iota
	Output
	MemCopy
	Activation
	Compute
)

// String returns the kind name.
func (k LayerKind) String() string {
	switch k {
	case Input:
		return "Input"
	case Output:
		return "Output"
	case MemCopy:
		return "MemCopy"
	case Activation:
		return "Activation"
	case Compute:
		return "Compute"
	default:
		return "Unknown"
	}
}

// slots returns the default number of input and output slots.
func (k LayerKind) slots() (inputs, outputs int) {
	switch k {
	case Input:
		return 0, 1
	case Output:
		return 1, 0
	case MemCopy, Activation:
		return 1, 1
	default:
		return 0, 0
	}
}

// preservesDescriptor reports whether the output must carry exactly the
// input's descriptor.
func (k LayerKind) preservesDescriptor() bool {
	return k == MemCopy || k == Activation
}

// Kernel is an externally supplied operation for Compute layers. The
// reference backend runs it over host buffers in declaration order.
type Kernel interface {
	Name() string
	Run(inputs, outputs []*tensor.Buffer)
}
