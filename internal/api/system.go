package api

import (
	"errors"
	"net/http"
	"runtime"
	"time"

	"github.com/nerrad567/febos-bridge/internal/bridges/febos"
	"github.com/nerrad567/febos-bridge/internal/catalog"
)

// SystemInfo is the /system response: process, broker, and bridge state in
// one JSON document for dashboards that do not scrape Prometheus.
type SystemInfo struct {
	Timestamp     string        `json:"timestamp"`
	Version       string        `json:"version"`
	UptimeSeconds int64         `json:"uptime_seconds"`
	Runtime       RuntimeInfo   `json:"runtime"`
	WebSocket     WebSocketInfo `json:"websocket"`
	MQTT          *MQTTInfo     `json:"mqtt,omitempty"`
	Database      *DatabaseInfo `json:"database,omitempty"`
	Bridge        BridgeInfo    `json:"bridge"`
}

// RuntimeInfo contains Go runtime statistics.
type RuntimeInfo struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// WebSocketInfo contains hub statistics.
type WebSocketInfo struct {
	ConnectedClients int `json:"connected_clients"`
}

// MQTTInfo reports the broker link.
type MQTTInfo struct {
	Connected bool `json:"connected"`
}

// DatabaseInfo contains connection pool statistics.
type DatabaseInfo struct {
	OpenConnections int   `json:"open_connections"`
	InUse           int   `json:"in_use"`
	Idle            int   `json:"idle"`
	WaitCount       int64 `json:"wait_count"`
}

// BridgeInfo summarises the coordinator.
type BridgeInfo struct {
	Discovered    bool         `json:"discovered"`
	RetryState    string       `json:"retry_state"`
	CycleRunning  bool         `json:"cycle_running"`
	Counts        febos.Counts `json:"counts"`
	SessionSince  *time.Time   `json:"session_since,omitempty"`
	LastDiscovery *catalog.Run `json:"last_discovery,omitempty"`
}

const bytesPerMB = 1024 * 1024

// handleSystem returns process and bridge statistics.
func (s *Server) handleSystem(w http.ResponseWriter, r *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	status := s.bridge.Status()
	info := SystemInfo{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeInfo{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(mem.Alloc) / bytesPerMB,
			MemoryTotalMB: float64(mem.TotalAlloc) / bytesPerMB,
			NumGC:         mem.NumGC,
		},
		WebSocket: WebSocketInfo{ConnectedClients: s.hub.ClientCount()},
		Bridge: BridgeInfo{
			Discovered:   status.Discovered,
			RetryState:   status.RetryState,
			CycleRunning: status.CycleRunning,
			Counts:       status.Counts,
		},
	}

	if s.mqtt != nil {
		info.MQTT = &MQTTInfo{Connected: s.mqtt.IsConnected()}
	}
	if s.session != nil {
		if at := s.session.LoggedInAt(); !at.IsZero() {
			info.Bridge.SessionSince = &at
		}
	}
	if s.catalog != nil {
		run, err := s.catalog.LastRun(r.Context())
		switch {
		case err == nil:
			info.Bridge.LastDiscovery = run
		case !errors.Is(err, catalog.ErrNoRuns):
			s.logger.Warn("reading last discovery run failed", "error", err)
		}
	}
	if s.db != nil {
		st := s.db.Stats()
		info.Database = &DatabaseInfo{
			OpenConnections: st.OpenConnections,
			InUse:           st.InUse,
			Idle:            st.Idle,
			WaitCount:       st.WaitCount,
		}
	}

	writeJSON(w, http.StatusOK, info)
}
