package workload

import (
	"fmt"
	"reflect"

	"github.com/born-ml/hetero/internal/handle"
)

// Downcast converts a handle to the concrete type a backend works with.
//
// A mismatch means a factory was handed another backend's handle, which is
// a programming error: Downcast panics instead of returning an error.
func Downcast[T any](h handle.TensorHandle, what string) T {
	concrete, ok := h.(T)
	if !ok {
		want := reflect.TypeOf((*T)(nil)).Elem()
		panic(fmt.Sprintf("polymorphic downcast of %s: have %T from %s, want %s", what, h, backendOf(h), want))
	}
	return concrete
}

func backendOf(h handle.TensorHandle) string {
	if h == nil {
		return "nil"
	}
	return h.Backend().String()
}
