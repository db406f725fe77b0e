// Bench is a benchmarking tool for measuring kdsplit partition throughput
// and memory usage.
//
// Usage:
//
//	go run ./cmd/bench -rows 10000000 -cols 3 -workers 8 -leaf 64
//
// Flags:
//
//	-rows      Number of rows (default: 10,000,000)
//	-cols      Number of columns (default: 3)
//	-workers   Number of pool workers (default: 4)
//	-leaf      Leaf size (default: 3)
//	-policy    Split policy: roundrobin or maxspread (default: roundrobin)
//	-seed      Data generator seed (default: 0x1234)
//	-verify    Fingerprint rows and check leaf coverage (default: false)
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime"
	"runtime/metrics"
	"runtime/pprof"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/tamirms/kdsplit"
	"github.com/tamirms/kdsplit/internal/datagen"
)

// getMaxRSS returns the maximum resident set size in bytes.
// Uses getrusage(RUSAGE_SELF) which tracks peak RSS since process start.
func getMaxRSS() uint64 {
	var rusage syscall.Rusage
	if err := syscall.Getrusage(syscall.RUSAGE_SELF, &rusage); err != nil {
		return 0
	}
	// On macOS, MaxRss is in bytes. On Linux, it's in kilobytes.
	maxRSS := uint64(rusage.Maxrss)
	if runtime.GOOS == "linux" {
		maxRSS *= 1024
	}
	return maxRSS
}

// peakSampler tracks peak heap and RSS every 10ms until stopped.
// runtime/metrics avoids the stop-the-world pause of ReadMemStats.
type peakSampler struct {
	heap atomic.Uint64
	rss  atomic.Uint64
	done chan struct{}
}

func startSampler(baseHeap, baseRSS uint64) *peakSampler {
	s := &peakSampler{done: make(chan struct{})}
	s.heap.Store(baseHeap)
	s.rss.Store(baseRSS)
	go func() {
		samples := []metrics.Sample{
			{Name: "/memory/classes/heap/objects:bytes"},
		}
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-s.done:
				return
			case <-ticker.C:
				metrics.Read(samples)
				storeMax(&s.heap, samples[0].Value.Uint64())
				storeMax(&s.rss, getMaxRSS())
			}
		}
	}()
	return s
}

func (s *peakSampler) stop() {
	close(s.done)
	var final runtime.MemStats
	runtime.ReadMemStats(&final)
	storeMax(&s.heap, final.Alloc)
	storeMax(&s.rss, getMaxRSS())
}

func storeMax(v *atomic.Uint64, x uint64) {
	for {
		old := v.Load()
		if x <= old || v.CompareAndSwap(old, x) {
			return
		}
	}
}

func main() {
	rowsFlag := flag.Int("rows", 10_000_000, "number of rows")
	colsFlag := flag.Int("cols", 3, "number of columns")
	workersFlag := flag.Int("workers", kdsplit.DefaultWorkers, "number of pool workers")
	leafFlag := flag.Int("leaf", kdsplit.DefaultLeafSize, "leaf size")
	policyFlag := flag.String("policy", "roundrobin", "split policy: roundrobin or maxspread")
	seedFlag := flag.Uint("seed", 0x1234, "data generator seed")
	verifyFlag := flag.Bool("verify", false, "fingerprint rows and check leaf coverage")
	cpuprofile := flag.String("cpuprofile", "", "write cpu profile to file (partition phase only)")
	flag.Parse()

	var policy kdsplit.SplitPolicy
	switch *policyFlag {
	case "roundrobin":
		policy = kdsplit.RoundRobin{}
	case "maxspread":
		policy = kdsplit.MaxSpread{}
	default:
		fmt.Printf("Unknown policy: %s (use 'roundrobin' or 'maxspread')\n", *policyFlag)
		os.Exit(2)
	}

	if err := datagen.CheckParams(*colsFlag, *rowsFlag, 0); err != nil {
		fmt.Printf("Invalid flags: %v\n", err)
		os.Exit(2)
	}

	fmt.Println("Generating columns...")
	genStart := time.Now()
	cols := datagen.Columns(*colsFlag, *rowsFlag, uint32(*seedFlag), 0)
	genDuration := time.Since(genStart)

	runtime.GC()
	time.Sleep(50 * time.Millisecond)
	var baseline runtime.MemStats
	runtime.ReadMemStats(&baseline)
	baselineRSS := getMaxRSS()
	sampler := startSampler(baseline.Alloc, baselineRSS)

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			fmt.Printf("could not create CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Printf("could not start CPU profile: %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Println("Partitioning...")
	opts := []kdsplit.Option{
		kdsplit.WithWorkers(*workersFlag),
		kdsplit.WithLeafSize(*leafFlag),
		kdsplit.WithSplitPolicy(policy),
	}
	if *verifyFlag {
		opts = append(opts, kdsplit.WithVerify())
	}
	res, err := kdsplit.Partition(context.Background(), cols, opts...)

	if *cpuprofile != "" {
		pprof.StopCPUProfile()
	}
	sampler.stop()

	if err != nil {
		fmt.Printf("Partition failed: %v\n", err)
		os.Exit(1)
	}

	maxDepth := 0
	for _, l := range res.Leaves {
		maxDepth = max(maxDepth, l.Depth)
	}
	peakHeapMem := sampler.heap.Load() - baseline.Alloc
	peakRSSMem := sampler.rss.Load() - baselineRSS

	fmt.Printf("\n")
	fmt.Printf("╔═════════════════════╦════════════════╗\n")
	fmt.Printf("║ Metric              ║ Value          ║\n")
	fmt.Printf("╠═════════════════════╬════════════════╣\n")
	fmt.Printf("║ Rows x columns      ║ %8d x %-3d ║\n", res.Rows, res.Columns)
	fmt.Printf("║ Workers             ║ %8d       ║\n", res.Workers)
	fmt.Printf("║ Leaves              ║ %10d     ║\n", len(res.Leaves))
	fmt.Printf("║ Splits              ║ %10d     ║\n", res.Splits)
	fmt.Printf("║ Max depth           ║ %8d       ║\n", maxDepth)
	fmt.Printf("║ Generate time       ║ %6.2f sec     ║\n", genDuration.Seconds())
	fmt.Printf("║ Partition time      ║ %6.2f sec     ║\n", res.Duration.Seconds())
	fmt.Printf("║ Throughput          ║ %6.2f M/sec   ║\n", float64(res.Rows)/res.Duration.Seconds()/1_000_000)
	fmt.Printf("║ Peak heap memory    ║ %6.1f MB      ║\n", float64(peakHeapMem)/1_000_000)
	fmt.Printf("║ Peak RSS memory     ║ %6.1f MB      ║\n", float64(peakRSSMem)/1_000_000)
	fmt.Printf("╚═════════════════════╩════════════════╝\n")
}
