package topogo

import (
	"sync/atomic"
	"time"

	"github.com/brepkit/topogo/resolve"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement it to integrate with monitoring systems like Prometheus.
// Resolution strategy counters are additionally available via
// Session.Stats without wiring a collector.
type MetricsCollector interface {
	// RecordTrack is called after each reference creation.
	RecordTrack(duration time.Duration, err error)

	// RecordResolve is called after each resolution attempt. strategy is
	// the winning stage (resolve.StrategyNone when the cascade was
	// exhausted); err is non-nil only for hard failures such as unknown
	// ids or cancellation.
	RecordResolve(strategy resolve.Strategy, duration time.Duration, err error)

	// RecordSnapshotSave is called after each snapshot save.
	RecordSnapshotSave(duration time.Duration, err error)

	// RecordSnapshotLoad is called after each snapshot load.
	RecordSnapshotLoad(duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordTrack(time.Duration, error)                     {}
func (NoopMetricsCollector) RecordResolve(resolve.Strategy, time.Duration, error) {}
func (NoopMetricsCollector) RecordSnapshotSave(time.Duration, error)              {}
func (NoopMetricsCollector) RecordSnapshotLoad(time.Duration, error)              {}

// BasicMetricsCollector provides simple in-memory metrics collection,
// useful for debugging without external dependencies.
type BasicMetricsCollector struct {
	TrackCount        atomic.Int64
	TrackErrors       atomic.Int64
	ResolveCount      atomic.Int64
	ResolveErrors     atomic.Int64
	ResolveUnmatched  atomic.Int64
	ResolveTotalNanos atomic.Int64
	SaveCount         atomic.Int64
	SaveErrors        atomic.Int64
	LoadCount         atomic.Int64
	LoadErrors        atomic.Int64
}

// RecordTrack implements MetricsCollector.
func (b *BasicMetricsCollector) RecordTrack(_ time.Duration, err error) {
	b.TrackCount.Add(1)
	if err != nil {
		b.TrackErrors.Add(1)
	}
}

// RecordResolve implements MetricsCollector.
func (b *BasicMetricsCollector) RecordResolve(strategy resolve.Strategy, duration time.Duration, err error) {
	b.ResolveCount.Add(1)
	b.ResolveTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.ResolveErrors.Add(1)
	} else if strategy == resolve.StrategyNone {
		b.ResolveUnmatched.Add(1)
	}
}

// RecordSnapshotSave implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSnapshotSave(_ time.Duration, err error) {
	b.SaveCount.Add(1)
	if err != nil {
		b.SaveErrors.Add(1)
	}
}

// RecordSnapshotLoad implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSnapshotLoad(_ time.Duration, err error) {
	b.LoadCount.Add(1)
	if err != nil {
		b.LoadErrors.Add(1)
	}
}
