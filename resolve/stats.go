package resolve

import "sync/atomic"

// counterField aliases the atomic counter used for strategy statistics.
type counterField = atomic.Uint64

// statsCounters holds the engine's running counters.
type statsCounters struct {
	historySuccess  atomic.Uint64
	hashSuccess     atomic.Uint64
	geometrySuccess atomic.Uint64
	failed          atomic.Uint64
	hashCollisions  atomic.Uint64
}

// Stats is a read-only snapshot of the engine's resolution statistics.
type Stats struct {
	Total           uint64
	SuccessRate     float64
	HistorySuccess  uint64
	HashSuccess     uint64
	GeometrySuccess uint64
	Failed          uint64
	HashCollisions  uint64
}

// Stats returns a snapshot of the running counters. Side-effect-free.
func (e *Engine) Stats() Stats {
	s := Stats{
		HistorySuccess:  e.stats.historySuccess.Load(),
		HashSuccess:     e.stats.hashSuccess.Load(),
		GeometrySuccess: e.stats.geometrySuccess.Load(),
		Failed:          e.stats.failed.Load(),
		HashCollisions:  e.stats.hashCollisions.Load(),
	}
	s.Total = s.HistorySuccess + s.HashSuccess + s.GeometrySuccess + s.Failed
	if s.Total > 0 {
		s.SuccessRate = float64(s.Total-s.Failed) / float64(s.Total)
	}
	return s
}
