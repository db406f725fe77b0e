// Kdsplit creates, partitions and inspects kdsplit dataset files.
//
// Usage:
//
//	kdsplit gen       -out data.kds -rows 1000000 -cols 3 [-seed N] [-spread N]
//	kdsplit partition -in data.kds [-workers N] [-leaf N] [-policy roundrobin|maxspread] [-verify] [-v] [-json]
//	kdsplit verify    -in data.kds
//	kdsplit inspect   -in data.kds [-head N]
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/tamirms/kdsplit"
	"github.com/tamirms/kdsplit/internal/datagen"
)

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "gen":
		err = runGen(args)
	case "partition":
		err = runPartition(ctx, args)
	case "verify":
		err = runVerify(args)
	case "inspect":
		err = runInspect(args)
	case "help", "-h", "-help", "--help":
		usage(os.Stdout)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", cmd)
		usage(os.Stderr)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "kdsplit %s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: kdsplit <gen|partition|verify|inspect> [flags]")
}

func runGen(args []string) error {
	fs := flag.NewFlagSet("gen", flag.ExitOnError)
	out := fs.String("out", "", "output dataset file")
	rows := fs.Int("rows", 1_000_000, "number of rows")
	cols := fs.Int("cols", 3, "number of columns")
	seed := fs.Uint("seed", 0x1234, "generator seed")
	spread := fs.Int("spread", 0, "values in [-spread, spread); 0 for the full int32 range")
	_ = fs.Parse(args)
	if *out == "" {
		return fmt.Errorf("-out is required")
	}
	if err := datagen.CheckParams(*cols, *rows, *spread); err != nil {
		return fmt.Errorf("gen: %w", err)
	}

	data := datagen.Columns(*cols, *rows, uint32(*seed), int32(*spread))
	if err := kdsplit.CreateFile(*out, data); err != nil {
		return err
	}
	fmt.Printf("wrote %d rows x %d columns to %s\n", *rows, *cols, *out)
	return nil
}

func runPartition(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("partition", flag.ExitOnError)
	in := fs.String("in", "", "dataset file to partition in place")
	workers := fs.Int("workers", kdsplit.DefaultWorkers, "number of pool workers")
	leaf := fs.Int("leaf", kdsplit.DefaultLeafSize, "leaf size")
	policyName := fs.String("policy", "roundrobin", "split policy: roundrobin or maxspread")
	verify := fs.Bool("verify", false, "fingerprint rows and check leaf coverage")
	verbose := fs.Bool("v", false, "log every leaf")
	jsonLogs := fs.Bool("json", false, "log as JSON")
	_ = fs.Parse(args)
	if *in == "" {
		return fmt.Errorf("-in is required")
	}

	policy, err := parsePolicy(*policyName)
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := kdsplit.NewTextLogger(os.Stderr, level)
	if *jsonLogs {
		logger = kdsplit.NewJSONLogger(os.Stderr, level)
	}

	f, err := kdsplit.OpenFile(*in)
	if err != nil {
		return err
	}
	defer f.Close()

	opts := []kdsplit.Option{
		kdsplit.WithWorkers(*workers),
		kdsplit.WithLeafSize(*leaf),
		kdsplit.WithSplitPolicy(policy),
		kdsplit.WithLogger(logger),
	}
	if *verify {
		opts = append(opts, kdsplit.WithVerify())
	}
	res, err := f.Partition(ctx, opts...)
	if err != nil {
		return err
	}
	fmt.Printf("%d rows -> %d leaves (%d splits, %d workers) in %s\n",
		res.Rows, len(res.Leaves), res.Splits, res.Workers, res.Duration)
	return f.Close()
}

func runVerify(args []string) error {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	in := fs.String("in", "", "dataset file")
	_ = fs.Parse(args)
	if *in == "" {
		return fmt.Errorf("-in is required")
	}

	f, err := kdsplit.OpenFile(*in)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.Verify(); err != nil {
		return err
	}
	fmt.Println("ok")
	return nil
}

func runInspect(args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	in := fs.String("in", "", "dataset file")
	head := fs.Int("head", 10, "rows to print")
	_ = fs.Parse(args)
	if *in == "" {
		return fmt.Errorf("-in is required")
	}

	f, err := kdsplit.OpenFile(*in)
	if err != nil {
		return err
	}
	defer f.Close()

	partitioned, leafSize := f.Partitioned()
	fmt.Printf("rows: %d\ncolumns: %d\npartitioned: %t\n", f.Rows(), f.NumColumns(), partitioned)
	if partitioned {
		fmt.Printf("leaf size: %d\n", leafSize)
	}
	cols := f.Columns()
	for r := range min(*head, f.Rows()) {
		fmt.Printf("%8d:", r)
		for _, col := range cols {
			fmt.Printf(" %11d", col[r])
		}
		fmt.Println()
	}
	return nil
}

func parsePolicy(name string) (kdsplit.SplitPolicy, error) {
	switch name {
	case "roundrobin":
		return kdsplit.RoundRobin{}, nil
	case "maxspread":
		return kdsplit.MaxSpread{}, nil
	default:
		return nil, fmt.Errorf("unknown policy %q (use roundrobin or maxspread)", name)
	}
}
