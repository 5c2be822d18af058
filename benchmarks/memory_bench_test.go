package benchmarks

import (
	"fmt"
	"runtime"
	"testing"

	"github.com/comalice/blockx"
)

func measure(numMachines int, topo *blockx.Topology) uint64 {
	var before runtime.MemStats
	runtime.ReadMemStats(&before)
	machines := make([]*blockx.Machine, numMachines)
	for i := range machines {
		machines[i] = blockx.NewMachine(topo, blockx.WithLogger(quiet))
	}
	runtime.GC()
	var after runtime.MemStats
	runtime.ReadMemStats(&after)
	runtime.KeepAlive(machines)
	return (after.TotalAlloc - before.TotalAlloc) / uint64(numMachines)
}

func BenchmarkMemoryFootprint(b *testing.B) {
	perMachine := measure(1000, GenFlat(1))
	b.ReportMetric(float64(perMachine)/1024, "KB/machine")
}

func BenchmarkMemoryTopology(b *testing.B) {
	for _, n := range []int{10, 100, 1000} {
		b.Run(fmt.Sprintf("states=%d", n), func(b *testing.B) {
			var before, after runtime.MemStats
			runtime.ReadMemStats(&before)
			topo := GenFlat(n)
			runtime.GC()
			runtime.ReadMemStats(&after)
			runtime.KeepAlive(topo)
			perState := (after.TotalAlloc - before.TotalAlloc) / uint64(n)
			b.ReportMetric(float64(perState)/1024, "KB/state")
		})
	}
}
