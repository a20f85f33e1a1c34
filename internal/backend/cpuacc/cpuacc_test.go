package cpuacc

import (
	"fmt"
	"testing"

	"github.com/born-ml/hetero/internal/backend/ref"
	"github.com/born-ml/hetero/internal/graph"
	"github.com/born-ml/hetero/internal/handle"
	"github.com/born-ml/hetero/internal/kernels"
	"github.com/born-ml/hetero/internal/parallel"
	"github.com/born-ml/hetero/internal/tensor"
	"github.com/born-ml/hetero/internal/workload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var info23 = tensor.MustInfo(tensor.Shape{2, 3}, tensor.Float32)

type twoHop struct {
	g                 *graph.Graph
	in, l1, l2, out   *graph.Layer
	refFactory        *ref.Factory
	accFactory        *Factory
	inW, w1, w2, outW workload.Workload
}

// buildTwoHop builds Input -> MemCopy(Ref->CpuAcc) -> MemCopy(CpuAcc->Ref) -> Output.
func buildTwoHop(t *testing.T, info tensor.Info, cfg workload.BackendConfig) *twoHop {
	t.Helper()
	c := &twoHop{g: graph.New(), refFactory: ref.NewFactory(cfg), accFactory: NewFactory(cfg)}
	var err error
	c.in, err = c.g.AddLayer(graph.Input, "input", graph.WithBackend(tensor.CPURef))
	require.NoError(t, err)
	c.l1, err = c.g.AddLayer(graph.MemCopy, "layer1", graph.WithBackend(tensor.CPUAcc))
	require.NoError(t, err)
	c.l2, err = c.g.AddLayer(graph.MemCopy, "layer2", graph.WithBackend(tensor.CPURef))
	require.NoError(t, err)
	c.out, err = c.g.AddLayer(graph.Output, "output", graph.WithBackend(tensor.CPURef))
	require.NoError(t, err)
	for _, p := range [][2]*graph.Layer{{c.in, c.l1}, {c.l1, c.l2}, {c.l2, c.out}} {
		_, err = c.g.Connect(p[0], p[1], info)
		require.NoError(t, err)
	}
	require.NoError(t, c.g.Validate())

	require.NoError(t, c.in.CreateTensorHandles(c.g, c.refFactory))
	require.NoError(t, c.l1.CreateTensorHandles(c.g, c.accFactory))
	require.NoError(t, c.l2.CreateTensorHandles(c.g, c.refFactory))
	require.NoError(t, c.out.CreateTensorHandles(c.g, c.refFactory))

	c.inW, err = c.refFactory.CreateWorkload(c.in, c.g)
	require.NoError(t, err)
	c.w1, err = c.accFactory.CreateWorkload(c.l1, c.g)
	require.NoError(t, err)
	c.w2, err = c.refFactory.CreateWorkload(c.l2, c.g)
	require.NoError(t, err)
	c.outW, err = c.refFactory.CreateWorkload(c.out, c.g)
	require.NoError(t, err)
	return c
}

func (c *twoHop) run(t *testing.T, src, dst *tensor.Buffer) {
	t.Helper()
	require.NoError(t, c.inW.(workload.Bindable).Bind(src))
	require.NoError(t, c.outW.(workload.Bindable).Bind(dst))
	for _, w := range []workload.Workload{c.inW, c.w1, c.w2, c.outW} {
		w.Execute()
	}
}

func TestCreateMemCopyWorkloads(t *testing.T) {
	c := buildTwoHop(t, info23, workload.BackendConfig{})

	into, ok := c.w1.(*CopyFromReferenceWorkload)
	require.True(t, ok, "copy-into workload has type %T", c.w1)
	q := into.Queue()
	require.Len(t, q.Inputs, 1)
	require.Len(t, q.Outputs, 1)
	in, ok := q.Inputs[0].(*ref.TensorHandle)
	require.True(t, ok)
	out, ok := q.Outputs[0].(*TensorHandle)
	require.True(t, ok)
	assert.NoError(t, handle.CompareShape(in, 2, 3))
	assert.NoError(t, handle.CompareShape(out, 2, 3))
	assert.Equal(t, tensor.Shape{3, 2}, out.NativeShape())

	outOf, ok := c.w2.(*CopyToReferenceWorkload)
	require.True(t, ok, "copy-out workload has type %T", c.w2)
	q = outOf.Queue()
	require.Len(t, q.Inputs, 1)
	require.Len(t, q.Outputs, 1)
	accIn, ok := q.Inputs[0].(*TensorHandle)
	require.True(t, ok)
	refOut, ok := q.Outputs[0].(*ref.TensorHandle)
	require.True(t, ok)
	assert.NoError(t, handle.CompareShape(accIn, 2, 3))
	assert.NoError(t, handle.CompareShape(refOut, 2, 3))

	// The intermediate handle is the one layer1 owns.
	assert.Same(t, c.l1.OutputHandle(0), q.Inputs[0])
}

func TestCopyIntoUsesNativeLayout(t *testing.T) {
	c := buildTwoHop(t, info23, workload.BackendConfig{Parallel: parallel.Sequential()})
	src, err := tensor.BufferFrom([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	require.NoError(t, err)
	dst := tensor.NewBufferFor(info23)
	c.run(t, src, dst)

	native := c.l1.OutputHandle(0).(*TensorHandle).Buffer().AsFloat32()
	// Native [3,2]: element (j,i) holds declared (i,j).
	assert.Equal(t, []float32{1, 4, 2, 5, 3, 6}, native)
	assert.Equal(t, src.AsFloat32(), dst.AsFloat32())
}

func TestRoundTrip(t *testing.T) {
	shapes := []tensor.Shape{{7}, {2, 3}, {2, 3, 4}, {2, 3, 4, 5}, {1, 4, 1, 3}}
	dtypes := []tensor.DataType{tensor.Float32, tensor.Float64, tensor.Int32, tensor.Int64, tensor.Uint8, tensor.Float16}
	orders := []tensor.DimOrder{tensor.ReversedOrder, {Reverse: true, MinRank: 3}, tensor.IdentityOrder}
	configs := map[string]parallel.Config{
		"sequential": parallel.Sequential(),
		"parallel":   {Enabled: true, NumWorkers: 4, MinChunkSize: 1},
	}

	for _, shape := range shapes {
		for _, dt := range dtypes {
			for _, order := range orders {
				for cname, pcfg := range configs {
					name := fmt.Sprintf("%s%s/%s/%s", dt, shape, order, cname)
					t.Run(name, func(t *testing.T) {
						info := tensor.MustInfo(shape, dt)
						c := buildTwoHop(t, info, workload.BackendConfig{Order: &order, Parallel: pcfg})

						src := tensor.NewBufferFor(info)
						data := src.Data()
						for i := range data {
							data[i] = byte(i*31 + 7)
						}
						dst := tensor.NewBufferFor(info)
						c.run(t, src, dst)
						assert.Equal(t, src.Data(), dst.Data())
					})
				}
			}
		}
	}
}

func TestRankMismatchAbortsBuild(t *testing.T) {
	src := ref.NewTensorHandle(info23)
	dst := NewTensorHandle(tensor.MustInfo(tensor.Shape{2, 3, 1}, tensor.Float32), tensor.ReversedOrder)
	desc := workload.QueueDescriptor{
		Inputs:  []handle.TensorHandle{src},
		Outputs: []handle.TensorHandle{dst},
	}

	w, err := NewCopyFromReferenceWorkload(desc, info23, workload.BackendConfig{})
	require.Error(t, err)
	assert.Nil(t, w)
	assert.ErrorIs(t, err, handle.ErrShapeMismatch)
	var shapeErr *handle.ShapeError
	require.ErrorAs(t, err, &shapeErr)
	assert.True(t, shapeErr.RankOnly)
	assert.Equal(t, 3, shapeErr.Got)
	assert.Equal(t, 2, shapeErr.Want)
	assert.Contains(t, err.Error(), "[3!=2]")
}

func TestDimensionMismatch(t *testing.T) {
	src := ref.NewTensorHandle(info23)
	dst := NewTensorHandle(tensor.MustInfo(tensor.Shape{3, 2}, tensor.Float32), tensor.ReversedOrder)
	desc := workload.QueueDescriptor{
		Inputs:  []handle.TensorHandle{src},
		Outputs: []handle.TensorHandle{dst},
	}

	_, err := NewCopyFromReferenceWorkload(desc, info23, workload.BackendConfig{})
	var shapeErr *handle.ShapeError
	require.ErrorAs(t, err, &shapeErr)
	assert.False(t, shapeErr.RankOnly)
}

func TestWrongHandleTypePanics(t *testing.T) {
	desc := workload.QueueDescriptor{
		Inputs:  []handle.TensorHandle{NewTensorHandle(info23, tensor.ReversedOrder)},
		Outputs: []handle.TensorHandle{NewTensorHandle(info23, tensor.ReversedOrder)},
	}
	assert.PanicsWithValue(t,
		"polymorphic downcast of input: have *cpuacc.TensorHandle from CpuAcc, want ref.ConstTensorHandle",
		func() { _, _ = NewCopyFromReferenceWorkload(desc, info23, workload.BackendConfig{}) })
}

func TestUnsupportedKindAllocatesNothing(t *testing.T) {
	g := graph.New()
	in, err := g.AddLayer(graph.Input, "in")
	require.NoError(t, err)
	k, err := g.AddLayer(graph.Compute, "k", graph.WithBackend(tensor.CPUAcc), graph.WithKernel(nopKernel{}, 1, 1))
	require.NoError(t, err)
	_, err = g.Connect(in, k, info23)
	require.NoError(t, err)

	f := NewFactory(workload.BackendConfig{})
	assert.False(t, f.Supports(graph.Compute))
	assert.False(t, f.Supports(graph.Input))
	_, err = f.CreateWorkload(k, g)
	assert.ErrorIs(t, err, workload.ErrUnsupportedLayer)
	assert.Contains(t, err.Error(), "Compute layers not supported by CpuAcc")
	assert.False(t, k.HasHandles())
	assert.False(t, in.HasHandles())
}

type nopKernel struct{}

func (nopKernel) Name() string              { return "Nop" }
func (nopKernel) Run(_, _ []*tensor.Buffer) {}

func TestNativeActivationAndCopy(t *testing.T) {
	g := graph.New()
	in, _ := g.AddLayer(graph.Input, "in")
	into, _ := g.AddLayer(graph.MemCopy, "into")
	act, _ := g.AddLayer(graph.Activation, "abs", graph.WithActivation(kernels.Abs))
	cp, _ := g.AddLayer(graph.MemCopy, "native")
	back, _ := g.AddLayer(graph.MemCopy, "back")
	out, _ := g.AddLayer(graph.Output, "out")
	for _, p := range [][2]*graph.Layer{{in, into}, {into, act}, {act, cp}, {cp, back}, {back, out}} {
		_, err := g.Connect(p[0], p[1], info23)
		require.NoError(t, err)
	}

	cfg := workload.BackendConfig{Parallel: parallel.Sequential()}
	rf, af := ref.NewFactory(cfg), NewFactory(cfg)
	factories := map[*graph.Layer]workload.Factory{in: rf, into: af, act: af, cp: af, back: rf, out: rf}
	order, err := g.TopologicalOrder()
	require.NoError(t, err)
	var ws []workload.Workload
	for _, l := range order {
		require.NoError(t, l.CreateTensorHandles(g, factories[l]))
	}
	for _, l := range order {
		w, err := factories[l].CreateWorkload(l, g)
		require.NoError(t, err, l.Name())
		ws = append(ws, w)
	}
	assert.Equal(t, "CpuAccActivation", ws[2].Name())
	assert.Equal(t, "CpuAccMemCopy", ws[3].Name())
	assert.Equal(t, "CpuAccCopyToReference", ws[4].Name())

	src, err := tensor.BufferFrom([]float32{-1, 2, -3, 4, -5, 6}, tensor.Shape{2, 3})
	require.NoError(t, err)
	dst := tensor.NewBufferFor(info23)
	require.NoError(t, ws[0].(workload.Bindable).Bind(src))
	require.NoError(t, ws[5].(workload.Bindable).Bind(dst))
	for _, w := range ws {
		w.Execute()
	}
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6}, dst.AsFloat32())
}
