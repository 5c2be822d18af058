package benchmarks

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/comalice/blockx"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func startSync(b *testing.B, topo *blockx.Topology) *blockx.Machine {
	b.Helper()
	m := blockx.NewMachine(topo, blockx.Synchronous(), blockx.WithLogger(quiet))
	if err := m.Start(context.Background()); err != nil {
		b.Fatal(err)
	}
	b.Cleanup(m.Stop)
	return m
}

func BenchmarkSimpleTransition(b *testing.B) {
	m := startSync(b, GenFlat(1))
	e := blockx.SignalEvent(Tick, nil)
	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		m.QueueEvent(e)
	}
}

func BenchmarkFlatTransition(b *testing.B) {
	for _, n := range []int{10, 100, 1000} {
		b.Run(fmt.Sprintf("states=%d", n), func(b *testing.B) {
			m := startSync(b, GenFlat(n))
			e := blockx.SignalEvent(Tick, nil)
			b.ResetTimer()
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				m.QueueEvent(e)
			}
		})
	}
}

func BenchmarkHierarchicalTransition(b *testing.B) {
	for _, depth := range []int{1, 3, 5, 10} {
		b.Run(fmt.Sprintf("depth=%d", depth), func(b *testing.B) {
			m := startSync(b, GenDeep(depth))
			e := blockx.SignalEvent(Tick, nil)
			b.ResetTimer()
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				m.QueueEvent(e)
			}
		})
	}
}

func BenchmarkGuardedTransition(b *testing.B) {
	for _, n := range []int{1, 10, 50} {
		b.Run(fmt.Sprintf("guards=%d", n), func(b *testing.B) {
			m := startSync(b, GenWide(n))
			e := blockx.SignalEvent(Tick, nil)
			b.ResetTimer()
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				m.QueueEvent(e)
			}
		})
	}
}

func BenchmarkDescriptorEncode(b *testing.B) {
	for _, hierarchical := range []bool{false, true} {
		b.Run(fmt.Sprintf("hierarchical=%v", hierarchical), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = GenDescriptorYAML(20, hierarchical)
			}
		})
	}
}
