package internal

import (
	"context"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// RuntimeMeterName scopes the Go runtime and process instruments.
const RuntimeMeterName = "go.eggybyte.com/carddesk/obsx/runtime"

// RegisterRuntimeMetrics observes goroutines, heap and stack memory, GC cycles
// and process uptime on every collection.
func RegisterRuntimeMetrics(mp metric.MeterProvider, started time.Time) error {
	meter := mp.Meter(RuntimeMeterName)

	goroutines, err := meter.Int64ObservableGauge(
		"process_runtime_go_goroutines",
		metric.WithDescription("Number of goroutines"),
	)
	if err != nil {
		return err
	}
	heapBytes, err := meter.Int64ObservableGauge(
		"process_runtime_go_memory_heap_bytes",
		metric.WithDescription("Heap memory in bytes"),
	)
	if err != nil {
		return err
	}
	stackBytes, err := meter.Int64ObservableGauge(
		"process_runtime_go_memory_stack_bytes",
		metric.WithDescription("Stack memory in bytes"),
	)
	if err != nil {
		return err
	}
	gcCount, err := meter.Int64ObservableCounter(
		"process_runtime_go_gc_count_total",
		metric.WithDescription("Total number of GC cycles completed"),
	)
	if err != nil {
		return err
	}
	uptime, err := meter.Float64ObservableGauge(
		"process_uptime_seconds",
		metric.WithDescription("Seconds since the process started"),
	)
	if err != nil {
		return err
	}

	_, err = meter.RegisterCallback(
		func(_ context.Context, o metric.Observer) error {
			var m runtime.MemStats
			runtime.ReadMemStats(&m)

			o.ObserveInt64(goroutines, int64(runtime.NumGoroutine()))
			o.ObserveInt64(heapBytes, int64(m.HeapAlloc))
			o.ObserveInt64(stackBytes, int64(m.StackInuse))
			o.ObserveInt64(gcCount, int64(m.NumGC))
			o.ObserveFloat64(uptime, time.Since(started).Seconds())
			return nil
		},
		goroutines, heapBytes, stackBytes, gcCount, uptime,
	)
	return err
}
