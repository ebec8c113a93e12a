package bench

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/pkg/errors"
)

var csvHeader = []string{
	"workload", "algorithm", "allocations", "frees", "failed",
	"duration_ns", "ops_per_sec", "utilization",
	"peak_allocated", "peak_requested", "heap_size",
}

// WriteCSV emits a header row followed by one row per result.
func WriteCSV(w io.Writer, results []Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return errors.Wrap(err, "failed to write CSV header")
	}
	for _, r := range results {
		row := []string{
			r.Workload,
			r.Algorithm,
			strconv.FormatUint(r.Allocations, 10),
			strconv.FormatUint(r.Frees, 10),
			strconv.FormatUint(r.Failed, 10),
			strconv.FormatInt(r.Duration.Nanoseconds(), 10),
			strconv.FormatFloat(r.OpsPerSec, 'f', 2, 64),
			strconv.FormatFloat(r.Utilization, 'f', 6, 64),
			strconv.FormatUint(r.Stats.PeakAllocated, 10),
			strconv.FormatUint(r.Stats.PeakRequested, 10),
			strconv.FormatUint(r.Stats.HeapSize, 10),
		}
		if err := cw.Write(row); err != nil {
			return errors.Wrap(err, "failed to write CSV row")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "failed to flush CSV")
}
