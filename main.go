package main

import (
	"fmt"
	"log"
	"os"
	"runtime/pprof"
	"unsafe"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"regionalloc/arena"
	"regionalloc/bench"
	"regionalloc/rpc"
)

const (
	MB = 1024 * 1024
)

func main() {
	app := &cli.App{
		Name:  "regionalloc",
		Usage: "benchmark and serve the in-place region allocators",
		Commands: []*cli.Command{
			benchCommand(),
			demoCommand(),
			serveCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func parseAlgorithm(name string) (arena.Algorithm, error) {
	switch name {
	case "segregated":
		return arena.SegregatedFreelist, nil
	case "buddy":
		return arena.Buddy, nil
	}
	return 0, errors.Errorf("unknown algorithm %q (want segregated or buddy)", name)
}

func benchCommand() *cli.Command {
	return &cli.Command{
		Name:  "bench",
		Usage: "run the workload suites",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "algorithm", Value: "both", Usage: "segregated, buddy or both"},
			&cli.Uint64Flag{Name: "region-size", Value: bench.DefaultRegionSize, Usage: "backing region size in bytes"},
			&cli.IntFlag{Name: "count", Value: 10000, Usage: "operations per workload"},
			&cli.IntFlag{Name: "rounds", Value: 4, Usage: "stress workload rounds"},
			&cli.StringFlag{Name: "csv", Usage: "write results to a CSV file"},
			&cli.StringFlag{Name: "cpuprofile", Usage: "write a CPU profile"},
			&cli.StringFlag{Name: "memprofile", Usage: "write a heap profile"},
		},
		Action: runBench,
	}
}

func runBench(c *cli.Context) error {
	if path := c.String("cpuprofile"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return errors.Wrap(err, "could not create CPU profile")
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return errors.Wrap(err, "could not start CPU profile")
		}
		defer pprof.StopCPUProfile()
	}

	var algorithms []arena.Algorithm
	switch c.String("algorithm") {
	case "both":
		algorithms = []arena.Algorithm{arena.SegregatedFreelist, arena.Buddy}
	default:
		alg, err := parseAlgorithm(c.String("algorithm"))
		if err != nil {
			return err
		}
		algorithms = []arena.Algorithm{alg}
	}

	cfg := bench.DefaultConfig()
	cfg.RegionSize = uintptr(c.Uint64("region-size"))
	cfg.Count = c.Int("count")
	cfg.Rounds = c.Int("rounds")

	var all []bench.Result
	for _, alg := range algorithms {
		results, err := bench.RunSuite(alg, cfg)
		if err != nil {
			return err
		}
		for _, r := range results {
			fmt.Println(r)
		}
		all = append(all, results...)
	}

	if path := c.String("csv"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return errors.Wrap(err, "could not create CSV file")
		}
		defer f.Close()
		if err := bench.WriteCSV(f, all); err != nil {
			return err
		}
		fmt.Printf("Wrote %d results to %s\n", len(all), path)
	}

	if path := c.String("memprofile"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return errors.Wrap(err, "could not create memory profile")
		}
		defer f.Close()
		if err := pprof.WriteHeapProfile(f); err != nil {
			return errors.Wrap(err, "could not write memory profile")
		}
	}

	return nil
}

func demoCommand() *cli.Command {
	return &cli.Command{
		Name:  "demo",
		Usage: "walk through both allocators and print their statistics",
		Action: func(c *cli.Context) error {
			for _, alg := range []arena.Algorithm{arena.SegregatedFreelist, arena.Buddy} {
				a, err := arena.NewManaged(alg, 1*MB)
				if err != nil {
					return errors.Wrapf(err, "failed to create %s allocator", alg)
				}

				var ptrs []unsafe.Pointer
				for _, size := range []uintptr{24, 100, 1000, 5000} {
					if p := a.Alloc(size); p != nil {
						ptrs = append(ptrs, p)
					}
				}
				fmt.Printf("%s after allocs:  %s\n", alg, a.Stats())

				for _, p := range ptrs {
					a.Free(p)
				}
				fmt.Printf("%s after frees:   %s\n", alg, a.Stats())

				a.Destroy()
			}
			return nil
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "serve allocations over net/rpc",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Value: "localhost:1234", Usage: "listen address"},
			&cli.StringFlag{Name: "algorithm", Value: "buddy", Usage: "segregated or buddy"},
			&cli.Uint64Flag{Name: "region-size", Value: 64 * MB, Usage: "backing region size in bytes"},
		},
		Action: func(c *cli.Context) error {
			alg, err := parseAlgorithm(c.String("algorithm"))
			if err != nil {
				return err
			}

			server, err := rpc.NewServer(alg, uintptr(c.Uint64("region-size")))
			if err != nil {
				return err
			}
			defer server.Close()

			return server.Start(c.String("addr"))
		},
	}
}
