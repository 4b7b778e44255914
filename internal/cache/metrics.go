package cache

import "sync/atomic"

// Metrics counts task list cache traffic. Hits are split by the tier that served them
// so a cold L1 after a deploy shows up as a rise in l2 hits rather than misses.
type Metrics struct {
	l1Hits  atomic.Int64
	l2Hits  atomic.Int64
	misses  atomic.Int64
	errors  atomic.Int64
	writes  atomic.Int64
	deletes atomic.Int64
	evicted atomic.Int64
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	L1Hits  int64 `json:"l1_hits"`
	L2Hits  int64 `json:"l2_hits"`
	Misses  int64 `json:"misses"`
	Errors  int64 `json:"errors"`
	Writes  int64 `json:"writes"`
	Deletes int64 `json:"deletes"`
	Evicted int64 `json:"evicted"`
}

func (s Snapshot) Hits() int64 {
	return s.L1Hits + s.L2Hits
}

func (m *Metrics) recordHit(fromL2 bool) {
	if fromL2 {
		m.l2Hits.Add(1)
		return
	}
	m.l1Hits.Add(1)
}

func (m *Metrics) recordMiss() { m.misses.Add(1) }
func (m *Metrics) recordError() { m.errors.Add(1) }
func (m *Metrics) recordWrite() { m.writes.Add(1) }
func (m *Metrics) recordDelete() { m.deletes.Add(1) }

func (m *Metrics) recordEvict(n int) {
	if n > 0 {
		m.evicted.Add(int64(n))
	}
}

func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		L1Hits:  m.l1Hits.Load(),
		L2Hits:  m.l2Hits.Load(),
		Misses:  m.misses.Load(),
		Errors:  m.errors.Load(),
		Writes:  m.writes.Load(),
		Deletes: m.deletes.Load(),
		Evicted: m.evicted.Load(),
	}
}

// HitRate is the percentage of lookups served from either tier.
func (m *Metrics) HitRate() float64 {
	s := m.Snapshot()
	total := s.Hits() + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits()) / float64(total) * 100
}
