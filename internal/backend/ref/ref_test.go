package ref

import (
	"testing"

	"github.com/born-ml/hetero/internal/graph"
	"github.com/born-ml/hetero/internal/kernels"
	"github.com/born-ml/hetero/internal/parallel"
	"github.com/born-ml/hetero/internal/tensor"
	"github.com/born-ml/hetero/internal/workload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var info23 = tensor.MustInfo(tensor.Shape{2, 3}, tensor.Float32)

func newFactory() *Factory {
	return NewFactory(workload.BackendConfig{Parallel: parallel.Sequential()})
}

// buildAll allocates handles and workloads for every layer in topological order.
func buildAll(t *testing.T, g *graph.Graph, f workload.Factory) map[string]workload.Workload {
	t.Helper()
	order, err := g.TopologicalOrder()
	require.NoError(t, err)
	for _, l := range order {
		require.NoError(t, l.CreateTensorHandles(g, f))
	}
	out := make(map[string]workload.Workload)
	for _, l := range order {
		w, err := f.CreateWorkload(l, g)
		require.NoError(t, err, l.Name())
		out[l.Name()] = w
	}
	return out
}

func TestTensorHandle(t *testing.T) {
	h := NewTensorHandle(info23)
	assert.Equal(t, tensor.CPURef, h.Backend())
	assert.Equal(t, tensor.Shape{2, 3}, h.NativeShape())
	assert.Equal(t, tensor.IdentityOrder, h.Order())
	assert.Len(t, h.Data(), 24)
	assert.False(t, h.Released())

	h.Release()
	assert.True(t, h.Released())
	assert.Panics(t, func() { h.Data() })
}

func TestFactorySupportsEverything(t *testing.T) {
	f := newFactory()
	for _, k := range []graph.LayerKind{graph.Input, graph.Output, graph.MemCopy, graph.Activation, graph.Compute} {
		assert.True(t, f.Supports(k), k.String())
	}
}

func TestInputCopyActivationOutput(t *testing.T) {
	g := graph.New()
	in, err := g.AddLayer(graph.Input, "in", graph.WithBindingID(3))
	require.NoError(t, err)
	cp, err := g.AddLayer(graph.MemCopy, "copy")
	require.NoError(t, err)
	act, err := g.AddLayer(graph.Activation, "relu", graph.WithActivation(kernels.ReLU))
	require.NoError(t, err)
	out, err := g.AddLayer(graph.Output, "out", graph.WithBindingID(5))
	require.NoError(t, err)
	for _, pair := range [][2]*graph.Layer{{in, cp}, {cp, act}, {act, out}} {
		_, err = g.Connect(pair[0], pair[1], info23)
		require.NoError(t, err)
	}

	ws := buildAll(t, g, newFactory())
	assert.Equal(t, "CpuRefMemCopy", ws["copy"].Name())
	assert.Equal(t, "CpuRefActivation", ws["relu"].Name())

	src, err := tensor.BufferFrom([]float32{-1, 2, -3, 4, -5, 6}, tensor.Shape{2, 3})
	require.NoError(t, err)
	dst := tensor.NewBufferFor(info23)

	inW := ws["in"].(workload.Bindable)
	outW := ws["out"].(workload.Bindable)
	assert.Equal(t, 3, inW.BindingID())
	assert.Equal(t, 5, outW.BindingID())
	require.NoError(t, inW.Bind(src))
	require.NoError(t, outW.Bind(dst))

	for _, name := range []string{"in", "copy", "relu", "out"} {
		ws[name].Execute()
	}
	assert.Equal(t, []float32{0, 2, 0, 4, 0, 6}, dst.AsFloat32())
}

func TestBindRejectsWrongBuffer(t *testing.T) {
	g := graph.New()
	in, err := g.AddLayer(graph.Input, "in")
	require.NoError(t, err)
	out, err := g.AddLayer(graph.Output, "out")
	require.NoError(t, err)
	_, err = g.Connect(in, out, info23)
	require.NoError(t, err)
	ws := buildAll(t, g, newFactory())

	wrong, err := tensor.BufferFrom([]float32{1, 2, 3}, tensor.Shape{3})
	require.NoError(t, err)
	assert.Error(t, ws["in"].(workload.Bindable).Bind(wrong))

	// Executing without a binding is a contract violation.
	assert.Panics(t, func() { ws["in"].Execute() })
}

func TestActivationUnsupportedDType(t *testing.T) {
	ints := tensor.MustInfo(tensor.Shape{4}, tensor.Int32)
	g := graph.New()
	in, err := g.AddLayer(graph.Input, "in")
	require.NoError(t, err)
	act, err := g.AddLayer(graph.Activation, "abs", graph.WithActivation(kernels.Abs))
	require.NoError(t, err)
	_, err = g.Connect(in, act, ints)
	require.NoError(t, err)
	f := newFactory()
	require.NoError(t, in.CreateTensorHandles(g, f))
	require.NoError(t, act.CreateTensorHandles(g, f))

	_, err = f.CreateWorkload(act, g)
	assert.ErrorIs(t, err, workload.ErrUnsupportedLayer)
}

type doubler struct{}

func (doubler) Name() string { return "Double" }
func (doubler) Run(inputs, outputs []*tensor.Buffer) {
	in, out := inputs[0].AsFloat32(), outputs[0].AsFloat32()
	for i := range in {
		out[i] = 2 * in[i]
	}
}

func TestComputeKernel(t *testing.T) {
	g := graph.New()
	in, err := g.AddLayer(graph.Input, "in")
	require.NoError(t, err)
	c, err := g.AddLayer(graph.Compute, "double", graph.WithKernel(doubler{}, 1, 1))
	require.NoError(t, err)
	out, err := g.AddLayer(graph.Output, "out")
	require.NoError(t, err)
	_, err = g.Connect(in, c, info23)
	require.NoError(t, err)
	_, err = g.Connect(c, out, info23)
	require.NoError(t, err)

	ws := buildAll(t, g, newFactory())
	assert.Equal(t, "CpuRefDouble", ws["double"].Name())

	src, err := tensor.BufferFrom([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	require.NoError(t, err)
	dst := tensor.NewBufferFor(info23)
	require.NoError(t, ws["in"].(workload.Bindable).Bind(src))
	require.NoError(t, ws["out"].(workload.Bindable).Bind(dst))
	for _, name := range []string{"in", "double", "out"} {
		ws[name].Execute()
	}
	assert.Equal(t, []float32{2, 4, 6, 8, 10, 12}, dst.AsFloat32())
}

func TestCopyAfterReleasePanics(t *testing.T) {
	g := graph.New()
	in, err := g.AddLayer(graph.Input, "in")
	require.NoError(t, err)
	cp, err := g.AddLayer(graph.MemCopy, "copy")
	require.NoError(t, err)
	_, err = g.Connect(in, cp, info23)
	require.NoError(t, err)
	ws := buildAll(t, g, newFactory())

	cp.ReleaseTensorHandles()
	assert.Panics(t, func() { ws["copy"].Execute() })
}

func TestCopyWorkloadArity(t *testing.T) {
	desc := workload.QueueDescriptor{
		Inputs:  nil,
		Outputs: nil,
	}
	_, err := NewCopyWorkload(desc, info23)
	assert.ErrorIs(t, err, workload.ErrQueueArity)
}
