// Package metrics is the process-local observability sink for sync events.
// The consumer records; the stats API reads. Everything is bounded: one ring
// per direction plus a FIFO-evicted per-record map.
package metrics

import (
	"sync"
	"time"
)

const (
	ringCapacity   = 100
	recordCapacity = 1000
	recentCount    = 10
)

// Event is one completed sync: a change that was materialized locally.
type Event struct {
	Source    string    `json:"source"`
	Dest      string    `json:"destination"`
	Table     string    `json:"table"`
	RecordID  string    `json:"recordId"`
	LatencyMs int64     `json:"latencyMs"`
	At        time.Time `json:"timestamp"`
}

// Stats is the on-demand aggregate for one direction.
type Stats struct {
	TotalSyncs        int        `json:"totalSyncs"`
	AvgLatencyMs      int64      `json:"avgLatencyMs"`
	MinLatencyMs      int64      `json:"minLatencyMs"`
	MaxLatencyMs      int64      `json:"maxLatencyMs"`
	LastSyncTime      *time.Time `json:"lastSyncTime"`
	LastSyncLatencyMs int64      `json:"lastSyncLatencyMs"`
	SyncsLastMinute   int        `json:"syncsLastMinute"`
	AvgLastMinuteMs   int64      `json:"avgLastMinuteMs"`
	RecentSyncs       []Event    `json:"recentSyncs"`
}

// Store holds the bounded event buffers. Safe for concurrent use.
type Store struct {
	mu    sync.Mutex
	rings map[string][]Event

	records     map[string]Event
	recordOrder []string

	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		rings:   make(map[string][]Event),
		records: make(map[string]Event),
		now:     time.Now,
	}
}

// Record appends one sync event to the direction ring and updates the
// per-record map.
func (s *Store) Record(source, dest, table, id string, latencyMs int64) {
	ev := Event{
		Source:    source,
		Dest:      dest,
		Table:     table,
		RecordID:  id,
		LatencyMs: latencyMs,
		At:        s.now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := source + "-to-" + dest
	ring := append(s.rings[dir], ev)
	if len(ring) > ringCapacity {
		ring = ring[len(ring)-ringCapacity:]
	}
	s.rings[dir] = ring

	key := table + ":" + id
	if _, seen := s.records[key]; !seen {
		s.recordOrder = append(s.recordOrder, key)
		if len(s.recordOrder) > recordCapacity {
			evict := s.recordOrder[0]
			s.recordOrder = s.recordOrder[1:]
			delete(s.records, evict)
		}
	}
	s.records[key] = ev
}

// Stats computes the aggregates for one direction key (e.g. "india-to-china")
// from the ring contents.
func (s *Store) Stats(direction string) Stats {
	s.mu.Lock()
	ring := make([]Event, len(s.rings[direction]))
	copy(ring, s.rings[direction])
	now := s.now()
	s.mu.Unlock()

	st := Stats{RecentSyncs: []Event{}}
	if len(ring) == 0 {
		return st
	}

	st.TotalSyncs = len(ring)
	st.MinLatencyMs = ring[0].LatencyMs

	var sum int64
	var minuteSum int64
	cutoff := now.Add(-time.Minute)
	for _, ev := range ring {
		sum += ev.LatencyMs
		if ev.LatencyMs < st.MinLatencyMs {
			st.MinLatencyMs = ev.LatencyMs
		}
		if ev.LatencyMs > st.MaxLatencyMs {
			st.MaxLatencyMs = ev.LatencyMs
		}
		if ev.At.After(cutoff) {
			st.SyncsLastMinute++
			minuteSum += ev.LatencyMs
		}
	}
	st.AvgLatencyMs = sum / int64(len(ring))
	if st.SyncsLastMinute > 0 {
		st.AvgLastMinuteMs = minuteSum / int64(st.SyncsLastMinute)
	}

	last := ring[len(ring)-1]
	st.LastSyncTime = &last.At
	st.LastSyncLatencyMs = last.LatencyMs

	// Newest first, at most ten.
	n := len(ring)
	if n > recentCount {
		n = recentCount
	}
	for i := 0; i < n; i++ {
		st.RecentSyncs = append(st.RecentSyncs, ring[len(ring)-1-i])
	}
	return st
}

// RecordSyncTime returns the most recent sync event for a (table, id).
func (s *Store) RecordSyncTime(table, id string) (Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.records[table+":"+id]
	return ev, ok
}
