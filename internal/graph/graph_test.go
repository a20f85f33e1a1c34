package graph

import (
	"errors"
	"testing"

	"github.com/born-ml/hetero/internal/handle"
	"github.com/born-ml/hetero/internal/kernels"
	"github.com/born-ml/hetero/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var info23 = tensor.MustInfo(tensor.Shape{2, 3}, tensor.Float32)

// countingFactory hands out handles that only track whether they are live.
type countingFactory struct {
	backend tensor.BackendID
	live    int
	created int
	failAt  int // fail the n-th allocation (1-based); 0 never fails
}

type countingHandle struct {
	f        *countingFactory
	info     tensor.Info
	released bool
}

func (h *countingHandle) Backend() tensor.BackendID { return h.f.backend }
func (h *countingHandle) TensorInfo() tensor.Info   { return h.info }
func (h *countingHandle) NativeShape() tensor.Shape { return h.info.Shape() }
func (h *countingHandle) Order() tensor.DimOrder    { return tensor.IdentityOrder }
func (h *countingHandle) Released() bool            { return h.released }
func (h *countingHandle) Release() {
	if !h.released {
		h.released = true
		h.f.live--
	}
}

func (f *countingFactory) Backend() tensor.BackendID { return f.backend }
func (f *countingFactory) CreateTensorHandle(info tensor.Info) (handle.TensorHandle, error) {
	f.created++
	if f.failAt > 0 && f.created == f.failAt {
		return nil, errors.New("out of memory")
	}
	f.live++
	return &countingHandle{f: f, info: info}, nil
}

func chain(t *testing.T) (*Graph, *Layer, *Layer, *Layer, *Layer) {
	t.Helper()
	g := New()
	l1, err := g.AddLayer(MemCopy, "layer1")
	require.NoError(t, err)
	l2, err := g.AddLayer(MemCopy, "layer2")
	require.NoError(t, err)
	in, err := g.AddLayer(Input, "input", WithBindingID(0))
	require.NoError(t, err)
	out, err := g.AddLayer(Output, "output", WithBindingID(0))
	require.NoError(t, err)

	_, err = g.Connect(in, l1, info23)
	require.NoError(t, err)
	_, err = g.Connect(l1, l2, info23)
	require.NoError(t, err)
	_, err = g.Connect(l2, out, info23)
	require.NoError(t, err)
	return g, in, l1, l2, out
}

func TestAddLayerDuplicateName(t *testing.T) {
	g := New()
	_, err := g.AddLayer(Input, "x")
	require.NoError(t, err)

	_, err = g.AddLayer(Output, "x")
	assert.ErrorIs(t, err, ErrDuplicateName)
	assert.Equal(t, 1, g.NumLayers())
}

func TestAddLayerSlots(t *testing.T) {
	g := New()
	tests := []struct {
		kind    LayerKind
		in, out int
	}{
		{Input, 0, 1},
		{Output, 1, 0},
		{MemCopy, 1, 1},
		{Activation, 1, 1},
	}
	for _, tt := range tests {
		l, err := g.AddLayer(tt.kind, tt.kind.String())
		require.NoError(t, err)
		assert.Equal(t, tt.in, l.NumInputs(), tt.kind.String())
		assert.Equal(t, tt.out, l.NumOutputs(), tt.kind.String())
		assert.Equal(t, Declared, l.State())
	}

	_, err := g.AddLayer(Compute, "nokernel")
	assert.ErrorIs(t, err, ErrMissingKernel)
}

func TestConnectChain(t *testing.T) {
	g, in, l1, l2, out := chain(t)

	assert.Len(t, g.Connections(), 3)
	ref, ok := l1.Producer(0)
	require.True(t, ok)
	assert.Equal(t, SlotRef{Layer: in.ID(), Slot: 0}, ref)
	assert.Equal(t, []SlotRef{{Layer: l2.ID(), Slot: 0}}, l1.Consumers(0))

	got, ok := out.InputInfo(0)
	require.True(t, ok)
	assert.True(t, got.Equal(info23))

	id, ok := l2.InputConnection(0)
	require.True(t, ok)
	assert.Equal(t, ConnectionID(1), id)
	require.NoError(t, g.Validate())
}

func TestConnectNoFreeSlot(t *testing.T) {
	g, in, l1, _, _ := chain(t)

	_, err := g.Connect(in, l1, info23)
	assert.ErrorIs(t, err, ErrNoFreeSlot)
	assert.Len(t, g.Connections(), 3)
}

func TestConnectDescriptorMismatchHasNoSideEffects(t *testing.T) {
	g := New()
	in, _ := g.AddLayer(Input, "in")
	cp, _ := g.AddLayer(MemCopy, "copy")
	out, _ := g.AddLayer(Output, "out")

	_, err := g.Connect(in, cp, info23)
	require.NoError(t, err)

	other := tensor.MustInfo(tensor.Shape{3, 2}, tensor.Float32)
	_, err = g.Connect(cp, out, other)
	require.Error(t, err)

	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.True(t, connErr.Declared.Equal(info23))
	assert.True(t, connErr.Requested.Equal(other))
	assert.Contains(t, err.Error(), "float32[2,3]")
	assert.Contains(t, err.Error(), "float32[3,2]")

	assert.Len(t, g.Connections(), 1)
	_, connected := out.Producer(0)
	assert.False(t, connected)
	declared, ok := cp.OutputInfo(0)
	require.True(t, ok)
	assert.True(t, declared.Equal(info23))
}

func TestConnectDeclaredInputMismatch(t *testing.T) {
	g := New()
	in, _ := g.AddLayer(Input, "in")
	out, _ := g.AddLayer(Output, "out")
	require.NoError(t, out.DeclareInput(0, tensor.MustInfo(tensor.Shape{2, 3}, tensor.Int32)))

	_, err := g.Connect(in, out, info23)
	assert.ErrorIs(t, err, ErrDescriptorMismatch)

	require.NoError(t, in.DeclareOutput(0, info23))
	assert.ErrorIs(t, in.DeclareOutput(0, tensor.MustInfo(tensor.Shape{6}, tensor.Float32)), ErrDescriptorMismatch)
	assert.ErrorIs(t, in.DeclareOutput(1, info23), ErrSlotOutOfRange)
}

func TestConnectSlotsFanOut(t *testing.T) {
	g := New()
	in, _ := g.AddLayer(Input, "in")
	a, _ := g.AddLayer(Output, "a")
	b, _ := g.AddLayer(Output, "b")

	_, err := g.ConnectSlots(in, 0, a, 0, info23)
	require.NoError(t, err)
	_, err = g.ConnectSlots(in, 0, b, 0, info23)
	require.NoError(t, err)
	assert.Len(t, in.Consumers(0), 2)

	_, err = g.ConnectSlots(in, 0, a, 0, info23)
	assert.ErrorIs(t, err, ErrSlotInUse)
	_, err = g.ConnectSlots(in, 1, a, 0, info23)
	assert.ErrorIs(t, err, ErrSlotOutOfRange)
}

func TestConnectForeignLayer(t *testing.T) {
	g1, g2 := New(), New()
	in, _ := g1.AddLayer(Input, "in")
	out, _ := g2.AddLayer(Output, "out")

	_, err := g1.Connect(in, out, info23)
	assert.ErrorIs(t, err, ErrForeignLayer)
}

func TestTopologicalOrder(t *testing.T) {
	g, in, l1, l2, out := chain(t)

	order, err := g.TopologicalOrder()
	require.NoError(t, err)
	assert.Equal(t, []*Layer{in, l1, l2, out}, order)

	levels, err := g.Levels()
	require.NoError(t, err)
	assert.Len(t, levels, 4)
}

func TestLevelsGroupIndependentBranches(t *testing.T) {
	g := New()
	in, _ := g.AddLayer(Input, "in")
	relu, _ := g.AddLayer(Activation, "relu", WithActivation(kernels.ReLU))
	tanh, _ := g.AddLayer(Activation, "tanh", WithActivation(kernels.Tanh))
	o1, _ := g.AddLayer(Output, "o1")
	o2, _ := g.AddLayer(Output, "o2")

	_, err := g.ConnectSlots(in, 0, relu, 0, info23)
	require.NoError(t, err)
	_, err = g.ConnectSlots(in, 0, tanh, 0, info23)
	require.NoError(t, err)
	_, err = g.Connect(relu, o1, info23)
	require.NoError(t, err)
	_, err = g.Connect(tanh, o2, info23)
	require.NoError(t, err)

	levels, err := g.Levels()
	require.NoError(t, err)
	require.Len(t, levels, 3)
	assert.ElementsMatch(t, []*Layer{relu, tanh}, levels[1])
	assert.ElementsMatch(t, []*Layer{o1, o2}, levels[2])
}

func TestCycleDetected(t *testing.T) {
	g := New()
	a, _ := g.AddLayer(MemCopy, "a")
	b, _ := g.AddLayer(MemCopy, "b")
	_, err := g.Connect(a, b, info23)
	require.NoError(t, err)
	_, err = g.Connect(b, a, info23)
	require.NoError(t, err)

	_, err = g.TopologicalOrder()
	assert.ErrorIs(t, err, ErrCycle)
	assert.ErrorIs(t, g.Validate(), ErrCycle)
}

func TestValidateDanglingInput(t *testing.T) {
	g := New()
	_, _ = g.AddLayer(Output, "out")

	assert.ErrorIs(t, g.Validate(), ErrDanglingSlot)
}

func TestValidateBackendBoundary(t *testing.T) {
	g := New()
	in, _ := g.AddLayer(Input, "in", WithBackend(tensor.CPURef))
	act, _ := g.AddLayer(Activation, "act", WithBackend(tensor.CPUAcc))
	out, _ := g.AddLayer(Output, "out", WithBackend(tensor.CPURef))
	_, err := g.Connect(in, act, info23)
	require.NoError(t, err)
	_, err = g.Connect(act, out, info23)
	require.NoError(t, err)

	assert.ErrorIs(t, g.Validate(), ErrMissingBoundary)

	// A MemCopy producer cannot hand its handle to another backend.
	g = New()
	in, _ = g.AddLayer(Input, "in", WithBackend(tensor.CPURef))
	cp, _ := g.AddLayer(MemCopy, "cp", WithBackend(tensor.CPUAcc))
	out, _ = g.AddLayer(Output, "out", WithBackend(tensor.CPURef))
	_, err = g.Connect(in, cp, info23)
	require.NoError(t, err)
	_, err = g.Connect(cp, out, info23)
	require.NoError(t, err)

	assert.ErrorIs(t, g.Validate(), ErrMissingBoundary)

	require.NoError(t, out.SetBackend(tensor.CPUAcc))
	assert.NoError(t, g.Validate())
}

func TestKernelOnlyForCompute(t *testing.T) {
	g := New()
	for _, kind := range []LayerKind{Input, Output, MemCopy, Activation} {
		_, err := g.AddLayer(kind, kind.String(), WithKernel(&namedKernel{name: "k"}, 0, 1))
		assert.ErrorIs(t, err, ErrInvalidOption, kind.String())
	}
	assert.Zero(t, g.NumLayers())

	k, err := g.AddLayer(Compute, "k", WithKernel(&namedKernel{name: "k"}, 2, 1))
	require.NoError(t, err)
	assert.Equal(t, 2, k.NumInputs())
	assert.Equal(t, 1, k.NumOutputs())
}

func TestCreateTensorHandles(t *testing.T) {
	g, in, l1, l2, out := chain(t)
	ref := &countingFactory{backend: tensor.CPURef}
	acc := &countingFactory{backend: tensor.CPUAcc}

	require.NoError(t, in.CreateTensorHandles(g, ref))
	require.NoError(t, l1.CreateTensorHandles(g, acc))
	require.NoError(t, l2.CreateTensorHandles(g, ref))
	require.NoError(t, out.CreateTensorHandles(g, ref))

	assert.Equal(t, 2, ref.live, "input and layer2 own one handle each; output owns none")
	assert.Equal(t, 1, acc.live)
	assert.Equal(t, HandlesBound, l1.State())
	assert.Same(t, l1.OutputHandle(0), l2.InputHandle(g, 0))
	assert.True(t, l1.OutputHandle(0).TensorInfo().Equal(info23))

	b, ok := l1.Backend()
	assert.True(t, ok)
	assert.Equal(t, tensor.CPUAcc, b)
}

func TestCreateTensorHandlesTwiceDoesNotLeak(t *testing.T) {
	g, in, _, _, _ := chain(t)
	f := &countingFactory{backend: tensor.CPURef}

	require.NoError(t, in.CreateTensorHandles(g, f))
	first := in.OutputHandle(0)
	require.NoError(t, in.CreateTensorHandles(g, f))

	assert.Equal(t, 1, f.live)
	assert.True(t, first.Released())
	assert.NotSame(t, first, in.OutputHandle(0))
}

func TestCreateTensorHandlesFailureKeepsPrevious(t *testing.T) {
	g := New()
	k := &namedKernel{name: "split"}
	split, err := g.AddLayer(Compute, "split", WithKernel(k, 0, 2))
	require.NoError(t, err)
	require.NoError(t, split.DeclareOutput(0, info23))
	require.NoError(t, split.DeclareOutput(1, info23))

	f := &countingFactory{backend: tensor.CPURef}
	require.NoError(t, split.CreateTensorHandles(g, f))
	before := split.OutputHandle(1)

	f.failAt = 4 // second handle of the second call
	err = split.CreateTensorHandles(g, f)
	require.Error(t, err)

	assert.Equal(t, 2, f.live)
	assert.Same(t, before, split.OutputHandle(1))
	assert.False(t, before.Released())
}

func TestCreateTensorHandlesContractViolations(t *testing.T) {
	g, in, _, _, _ := chain(t)
	other := New()

	assert.ErrorIs(t, in.CreateTensorHandles(other, &countingFactory{}), ErrForeignLayer)

	pinned, err := g.AddLayer(Input, "pinned", WithBackend(tensor.CPUAcc))
	require.NoError(t, err)
	require.NoError(t, pinned.DeclareOutput(0, info23))
	assert.ErrorIs(t, pinned.CreateTensorHandles(g, &countingFactory{backend: tensor.CPURef}), ErrBackendMismatch)

	dangling, err := g.AddLayer(Input, "dangling")
	require.NoError(t, err)
	f := &countingFactory{}
	assert.ErrorIs(t, dangling.CreateTensorHandles(g, f), ErrDanglingSlot)
	assert.Equal(t, 0, f.live)
}

func TestStateMachine(t *testing.T) {
	g, in, _, _, _ := chain(t)

	assert.ErrorIs(t, in.AdvanceState(WorkloadBuilt), ErrInvalidState)
	require.NoError(t, in.CreateTensorHandles(g, &countingFactory{}))
	assert.ErrorIs(t, in.AdvanceState(Invoked), ErrInvalidState)
	require.NoError(t, in.AdvanceState(WorkloadBuilt))
	require.NoError(t, in.AdvanceState(Invoked))
	require.NoError(t, in.AdvanceState(Invoked))
	assert.ErrorIs(t, in.SetBackend(tensor.CPUAcc), ErrInvalidState)
}

func TestReleaseGraph(t *testing.T) {
	g, in, l1, _, _ := chain(t)
	f := &countingFactory{}
	require.NoError(t, in.CreateTensorHandles(g, f))
	require.NoError(t, l1.CreateTensorHandles(g, f))

	g.Release()

	assert.Equal(t, 0, f.live)
	assert.Equal(t, Released, in.State())
	assert.Nil(t, in.OutputHandle(0))
	assert.ErrorIs(t, in.CreateTensorHandles(g, f), ErrReleased)
	_, err := g.AddLayer(Input, "late")
	assert.ErrorIs(t, err, ErrReleased)
}

type namedKernel struct{ name string }

func (k *namedKernel) Name() string              { return k.name }
func (k *namedKernel) Run(_, _ []*tensor.Buffer) {}
