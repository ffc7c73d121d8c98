package catalog

import (
	"context"

	"github.com/nerrad567/febos-bridge/internal/bridges/febos"
)

// Observer keeps the catalogue in step with the coordinator's discoveries.
type Observer struct {
	repo   Repository
	logger febos.Logger
}

var _ febos.Observer = (*Observer)(nil)

// NewObserver returns an observer writing to repo.
func NewObserver(repo Repository, logger febos.Logger) *Observer {
	return &Observer{repo: repo, logger: logger}
}

// Discovered records the run and, when it succeeded, upserts every resource.
// Storage failures are logged; they never affect the bridge.
func (o *Observer) Discovered(ctx context.Context, report febos.DiscoveryReport) {
	run := &Run{StartedAt: report.StartedAt, FinishedAt: report.FinishedAt}

	if report.Err != nil {
		run.Error = report.Err.Error()
	} else if report.Model != nil {
		counts := report.Model.Counts()
		run.Installations = counts.Installations
		run.Devices = counts.Devices
		run.Resources = counts.Resources

		all := report.Model.All()
		entries := make([]Entry, 0, len(all))
		for _, e := range all {
			entries = append(entries, EntryFromEntity(e))
		}
		if err := o.repo.SyncDiscovery(ctx, entries, report.FinishedAt); err != nil {
			o.logger.Error("catalog sync failed", "error", err)
		}
	}

	if err := o.repo.RecordRun(ctx, run); err != nil {
		o.logger.Error("recording discovery run failed", "error", err)
	}
}

// Refreshed is a no-op: values are not catalogued.
func (o *Observer) Refreshed(context.Context, []febos.Change) {}
