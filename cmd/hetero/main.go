// Package main provides the hetero CLI: it lists the backends linked into the
// binary and runs MemCopy round trips through them.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/born-ml/hetero/backend"
	"github.com/born-ml/hetero/graph"
	"github.com/born-ml/hetero/runtime"
	"github.com/born-ml/hetero/tensor"
	"google.golang.org/protobuf/encoding/protojson"
	"k8s.io/klog/v2"
)

const version = "v0.1.0-dev"

func main() {
	ctx := context.Background()
	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	klog.InitFlags(nil)
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		return nil
	}

	switch args[0] {
	case "version":
		fmt.Printf("hetero %s\n", version)
		return nil
	case "backends":
		return listBackends()
	case "roundtrip":
		return roundTrip(ctx, args[1:])
	default:
		usage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "hetero %s\n\n", version)
	fmt.Fprintln(out, "Usage: hetero [klog flags] <command> [flags]")
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Commands:")
	fmt.Fprintln(out, "  version     Show version")
	fmt.Fprintln(out, "  backends    List available backends")
	fmt.Fprintln(out, "  roundtrip   Copy a tensor into a backend and back, then compare")
}

func listBackends() error {
	cfg, err := runtime.ConfigFromEnv()
	if err != nil {
		return err
	}
	for _, id := range backend.Available() {
		order := "identity"
		if o, ok := cfg.Layouts[id]; ok {
			order = o.String()
		} else if id != tensor.CPURef {
			order = tensor.ReversedOrder.String()
		}
		fmt.Printf("%-8s %s\n", id, order)
	}
	return nil
}

func roundTrip(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("roundtrip", flag.ContinueOnError)
	backendName := fs.String("backend", "CpuAcc", "backend to copy through")
	shapeText := fs.String("shape", "2,3", "tensor shape, outermost first")
	dtypeName := fs.String("dtype", "float32", "element type")
	snapshot := fs.Bool("snapshot", false, "print the graph snapshot as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	log := klog.FromContext(ctx)

	id, err := tensor.ParseBackendID(*backendName)
	if err != nil {
		return err
	}
	shape, err := tensor.ParseShape(*shapeText)
	if err != nil {
		return err
	}
	dtype, err := tensor.ParseDataType(*dtypeName)
	if err != nil {
		return err
	}
	info, err := tensor.NewInfo(shape, dtype)
	if err != nil {
		return err
	}

	g, err := copyGraph(id, info)
	if err != nil {
		return err
	}
	if *snapshot {
		s, err := graph.Snapshot(g)
		if err != nil {
			return err
		}
		fmt.Println(protojson.Format(s))
	}

	cfg, err := runtime.ConfigFromEnv()
	if err != nil {
		return err
	}
	net := runtime.NewNetwork(g, cfg)
	defer net.Release()
	if err := net.Build(ctx); err != nil {
		return fmt.Errorf("build: %w", err)
	}

	src := tensor.NewBufferFor(info)
	data := src.Data()
	for i := range data {
		data[i] = byte(i*31 + 7)
	}
	dst := tensor.NewBufferFor(info)
	if err := net.BindInput(0, src); err != nil {
		return err
	}
	if err := net.BindOutput(0, dst); err != nil {
		return err
	}
	if err := net.Execute(ctx); err != nil {
		return err
	}

	for i, b := range dst.Data() {
		if b != data[i] {
			return fmt.Errorf("round trip through %s corrupted byte %d: got %#x, want %#x", id, i, b, data[i])
		}
	}
	for _, w := range net.Workloads() {
		log.V(1).Info("Workload", "name", w.Name(), "backend", w.Backend())
	}
	fmt.Printf("ok: %s through %s\n", info, id)
	return nil
}

// copyGraph builds Input -> MemCopy(into id) -> MemCopy(back) -> Output.
func copyGraph(id tensor.BackendID, info tensor.Info) (*graph.Graph, error) {
	g := graph.New()
	in, err := g.AddLayer(graph.Input, "input")
	if err != nil {
		return nil, err
	}
	into, err := g.AddLayer(graph.MemCopy, "copy_into", graph.WithBackend(id))
	if err != nil {
		return nil, err
	}
	back, err := g.AddLayer(graph.MemCopy, "copy_back")
	if err != nil {
		return nil, err
	}
	out, err := g.AddLayer(graph.Output, "output")
	if err != nil {
		return nil, err
	}
	for _, p := range [][2]*graph.Layer{{in, into}, {into, back}, {back, out}} {
		if _, err := g.Connect(p[0], p[1], info); err != nil {
			return nil, err
		}
	}
	return g, nil
}
