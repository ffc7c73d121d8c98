package api

import (
	"errors"
	"net/http"

	"github.com/nerrad567/febos-bridge/internal/catalog"
)

// handleCatalog lists every resource ever discovered, with the last run.
// Query parameters:
//   - installation: restrict to one installation id
func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	if s.catalog == nil {
		writeUnavailable(w, "catalog not configured")
		return
	}

	ctx := r.Context()
	var (
		entries []catalog.Entry
		err     error
	)
	if inst := r.URL.Query().Get("installation"); inst != "" {
		entries, err = s.catalog.ListByInstallation(ctx, inst)
	} else {
		entries, err = s.catalog.List(ctx)
	}
	if err != nil {
		s.logger.Error("listing catalog failed", "error", err)
		writeInternalError(w, "failed to list catalog")
		return
	}
	if entries == nil {
		entries = []catalog.Entry{}
	}

	resp := map[string]any{
		"entries": entries,
		"count":   len(entries),
	}

	run, err := s.catalog.LastRun(ctx)
	switch {
	case err == nil:
		resp["last_run"] = run
	case !errors.Is(err, catalog.ErrNoRuns):
		s.logger.Warn("reading last discovery run failed", "error", err)
	}

	writeJSON(w, http.StatusOK, resp)
}
