package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/nerrad567/febos-bridge/internal/bridges/febos"
)

// handleRefresh runs a refresh cycle now and reports how many values changed.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	changes, err := s.bridge.Refresh(r.Context())
	if err != nil {
		s.writeCycleError(w, "refresh", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"changed":     len(changes),
		"duration_ms": time.Since(start).Milliseconds(),
	})
}

// handleDiscover rebuilds the topology now.
func (s *Server) handleDiscover(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	model, err := s.bridge.Discover(r.Context())
	if err != nil {
		s.writeCycleError(w, "discovery", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"counts":      model.Counts(),
		"duration_ms": time.Since(start).Milliseconds(),
	})
}

// writeCycleError maps coordinator failures to HTTP statuses.
func (s *Server) writeCycleError(w http.ResponseWriter, cycle string, err error) {
	switch {
	case errors.Is(err, febos.ErrCycleInProgress):
		writeError(w, http.StatusConflict, ErrCodeConflict, "a cycle is already running")
	case errors.Is(err, febos.ErrNotDiscovered):
		writeUnavailable(w, "topology not discovered yet")
	case errors.Is(err, febos.ErrAuthentication):
		s.logger.Warn("on-demand cycle rejected by cloud", "cycle", cycle, "error", err)
		writeError(w, http.StatusBadGateway, ErrCodeUpstreamAuth, "cloud rejected the credentials")
	case errors.Is(err, febos.ErrMalformedInput):
		s.logger.Warn("on-demand cycle got malformed data", "cycle", cycle, "error", err)
		writeError(w, http.StatusBadGateway, ErrCodeUpstream, "cloud returned malformed data")
	default:
		s.logger.Warn("on-demand cycle failed", "cycle", cycle, "error", err)
		writeError(w, http.StatusBadGateway, ErrCodeUpstream, "cloud request failed")
	}
}
