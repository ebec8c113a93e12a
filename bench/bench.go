// Package bench exercises a region allocator with the workload suites
// used by the benchmark harness: sequential, random, mixed and stress.
package bench

import (
	"fmt"
	"math/rand"
	"time"
	"unsafe"

	"github.com/pkg/errors"

	"regionalloc/arena"
)

const (
	KB = 1024
	MB = 1024 * 1024

	// DefaultRegionSize backs each workload run.
	DefaultRegionSize = 16 * MB

	// MinAllocSize and MaxAllocSize bound the random workloads.
	MinAllocSize = 16
	MaxAllocSize = 4 * KB
)

// Result captures one workload run over one allocator.
type Result struct {
	Workload    string
	Algorithm   string
	Allocations uint64
	Frees       uint64
	Failed      uint64
	Duration    time.Duration
	OpsPerSec   float64
	Utilization float64
	Stats       arena.Stats
}

func (r Result) String() string {
	return fmt.Sprintf("%-10s %-10s allocs=%-8d frees=%-8d failed=%-6d %-12v %10.0f ops/s util=%.4f",
		r.Workload, r.Algorithm, r.Allocations, r.Frees, r.Failed,
		r.Duration.Round(time.Microsecond), r.OpsPerSec, r.Utilization)
}

func finish(name string, a *arena.Allocator, start time.Time) Result {
	stats := a.Stats()
	duration := time.Since(start)
	ops := stats.TotalAllocations + stats.TotalFrees
	var rate float64
	if duration > 0 {
		rate = float64(ops) / duration.Seconds()
	}
	return Result{
		Workload:    name,
		Algorithm:   a.Algorithm().String(),
		Allocations: stats.TotalAllocations,
		Frees:       stats.TotalFrees,
		Failed:      stats.FailedAllocations,
		Duration:    duration,
		OpsPerSec:   rate,
		Utilization: stats.Utilization(),
		Stats:       stats,
	}
}

// RunSequential allocates count fixed-size blocks, then frees them in
// allocation order.
func RunSequential(a *arena.Allocator, count int, size uintptr) Result {
	a.ResetStats()
	start := time.Now()

	ptrs := make([]unsafe.Pointer, 0, count)
	for i := 0; i < count; i++ {
		p := a.Alloc(size)
		if p == nil {
			break
		}
		ptrs = append(ptrs, p)
	}
	for _, p := range ptrs {
		a.Free(p)
	}

	return finish("sequential", a, start)
}

// RunRandom allocates count blocks of random size, then frees them all.
func RunRandom(a *arena.Allocator, count int, minSize, maxSize uintptr) Result {
	a.ResetStats()
	start := time.Now()

	ptrs := make([]unsafe.Pointer, 0, count)
	for i := 0; i < count; i++ {
		size := minSize + uintptr(rand.Int63n(int64(maxSize-minSize+1)))
		p := a.Alloc(size)
		if p == nil {
			continue
		}
		ptrs = append(ptrs, p)
	}
	for _, p := range ptrs {
		a.Free(p)
	}

	return finish("random", a, start)
}

// RunMixed performs ops operations, 70% allocations of random size and
// 30% frees of a randomly chosen live block.
func RunMixed(a *arena.Allocator, ops int, minSize, maxSize uintptr) Result {
	a.ResetStats()
	start := time.Now()

	live := make([]unsafe.Pointer, 0, ops)
	for i := 0; i < ops; i++ {
		if rand.Float64() < 0.7 || len(live) == 0 {
			size := minSize + uintptr(rand.Int63n(int64(maxSize-minSize+1)))
			if p := a.Alloc(size); p != nil {
				live = append(live, p)
			}
		} else {
			idx := rand.Intn(len(live))
			a.Free(live[idx])
			live[idx] = live[len(live)-1]
			live = live[:len(live)-1]
		}
	}
	for _, p := range live {
		a.Free(p)
	}

	return finish("mixed", a, start)
}

// RunStress fills the heap until the first failure, releases a random
// 30-50% tranche and repeats for the given number of rounds.
func RunStress(a *arena.Allocator, rounds int, minSize, maxSize uintptr) Result {
	a.ResetStats()
	start := time.Now()

	var live []unsafe.Pointer
	for round := 0; round < rounds; round++ {
		for {
			size := minSize + uintptr(rand.Int63n(int64(maxSize-minSize+1)))
			p := a.Alloc(size)
			if p == nil {
				break
			}
			live = append(live, p)
		}

		releaseRatio := 0.3 + rand.Float64()*0.2
		releaseCount := int(float64(len(live)) * releaseRatio)
		for j := 0; j < releaseCount && len(live) > 0; j++ {
			idx := rand.Intn(len(live))
			a.Free(live[idx])
			live[idx] = live[len(live)-1]
			live = live[:len(live)-1]
		}
	}
	for _, p := range live {
		a.Free(p)
	}

	return finish("stress", a, start)
}

// Config parameterizes a full suite run.
type Config struct {
	RegionSize uintptr
	Count      int
	Rounds     int
	MinSize    uintptr
	MaxSize    uintptr
}

// DefaultConfig returns the suite parameters used by the harness.
func DefaultConfig() Config {
	return Config{
		RegionSize: DefaultRegionSize,
		Count:      10000,
		Rounds:     4,
		MinSize:    MinAllocSize,
		MaxSize:    MaxAllocSize,
	}
}

// RunSuite runs all four workloads against a fresh platform-backed
// allocator for the given algorithm.
func RunSuite(alg arena.Algorithm, cfg Config) ([]Result, error) {
	a, err := arena.NewManaged(alg, cfg.RegionSize)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create %s allocator", alg)
	}
	defer a.Destroy()

	results := []Result{
		RunSequential(a, cfg.Count, 64),
		RunRandom(a, cfg.Count, cfg.MinSize, cfg.MaxSize),
		RunMixed(a, cfg.Count, cfg.MinSize, cfg.MaxSize),
		RunStress(a, cfg.Rounds, cfg.MinSize, cfg.MaxSize),
	}
	return results, nil
}
