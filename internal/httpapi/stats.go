package httpapi

import (
	"net/http"
	"time"

	"github.com/nkapur/syncbridge/internal/metrics"
	"github.com/nkapur/syncbridge/internal/region"
)

// syncStatsResponse is the payload for GET /api/stats/sync.
type syncStatsResponse struct {
	Direction         string          `json:"direction"`
	ReceivesFrom      string          `json:"receives_from"`
	TotalSyncs        int             `json:"totalSyncs"`
	AvgLatencyMs      int64           `json:"avgLatencyMs"`
	MinLatencyMs      int64           `json:"minLatencyMs"`
	MaxLatencyMs      int64           `json:"maxLatencyMs"`
	LastSyncTime      *time.Time      `json:"lastSyncTime"`
	LastSyncLatencyMs int64           `json:"lastSyncLatencyMs"`
	SyncsLastMinute   int             `json:"syncsLastMinute"`
	AvgLastMinuteMs   int64           `json:"avgLastMinuteMs"`
	RecentSyncs       []metrics.Event `json:"recentSyncs"`
}

// handleSyncStats reports the inbound direction (peer -> local).
func (s *Server) handleSyncStats(w http.ResponseWriter, r *http.Request) {
	direction := region.Direction(s.Peer, s.Local)
	st := s.Metrics.Stats(direction)

	writeJSON(w, http.StatusOK, syncStatsResponse{
		Direction:         direction,
		ReceivesFrom:      string(s.Peer),
		TotalSyncs:        st.TotalSyncs,
		AvgLatencyMs:      st.AvgLatencyMs,
		MinLatencyMs:      st.MinLatencyMs,
		MaxLatencyMs:      st.MaxLatencyMs,
		LastSyncTime:      st.LastSyncTime,
		LastSyncLatencyMs: st.LastSyncLatencyMs,
		SyncsLastMinute:   st.SyncsLastMinute,
		AvgLastMinuteMs:   st.AvgLastMinuteMs,
		RecentSyncs:       st.RecentSyncs,
	})
}

// handleRecordSyncTime reports the last sync event for one (table, id).
func (s *Server) handleRecordSyncTime(w http.ResponseWriter, r *http.Request) {
	table := r.URL.Query().Get("table")
	id := r.URL.Query().Get("id")
	if table == "" || id == "" {
		writeError(w, r, http.StatusBadRequest, "table and id are required")
		return
	}

	ev, ok := s.Metrics.RecordSyncTime(table, id)
	if !ok {
		writeError(w, r, http.StatusNotFound, "no sync recorded for record")
		return
	}
	writeJSON(w, http.StatusOK, ev)
}
