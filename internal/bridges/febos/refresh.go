package febos

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// Change is a resource whose stored value changed during a refresh.
type Change struct {
	Entity    Entity
	Value     any
	Timestamp time.Time
}

// refresher updates resource values in place. It never adds or removes
// nodes: points the cloud reports that discovery did not see are ignored.
type refresher struct {
	backend Backend
	logger  Logger
}

// refresh updates every installation concurrently. Installations share no
// state, so each goroutine owns its own subtree. Changes applied before a
// failure are still returned.
func (e *refresher) refresh(ctx context.Context, model *Model) ([]Change, error) {
	results := make([][]Change, len(model.Installations))

	g, gctx := errgroup.WithContext(ctx)
	for i, inst := range model.Installations {
		i, inst := i, inst
		g.Go(func() error {
			changes, err := e.refreshInstallation(gctx, inst)
			results[i] = changes
			return err
		})
	}
	err := g.Wait()

	var all []Change
	for _, changes := range results {
		all = append(all, changes...)
	}
	return all, err
}

func (e *refresher) refreshInstallation(ctx context.Context, inst *Installation) ([]Change, error) {
	var changes []Change

	entries, err := e.backend.RealtimeData(ctx, inst.ID, inst.Groups())
	if err != nil {
		return changes, fmt.Errorf("refreshing installation %s: %w", inst.ID, err)
	}

	for _, entry := range entries {
		dev, ok := inst.Devices[entry.DeviceID.String()]
		if !ok {
			e.logger.Debug("realtime entry for unknown device", "installation", inst.ID, "device", entry.DeviceID)
			continue
		}
		thing, ok := dev.Things[entry.ThingID.String()]
		if !ok {
			e.logger.Debug("realtime entry for unknown thing", "device", dev.ID, "thing", entry.ThingID)
			continue
		}

		for _, code := range sortedKeys(entry.Data) {
			r, ok := thing.Resources[code]
			if !ok {
				continue
			}
			raw, err := entry.Data[code].Decode()
			if err != nil {
				e.logger.Warn("undecodable realtime value, keeping previous", "key", r.Key, "error", err)
				continue
			}
			e.apply(r, raw, Entity{
				InstallationID: inst.ID,
				Device:         dev,
				ParentKind:     ParentThing,
				ParentID:       thing.ID,
				ParentName:     thing.Name,
				Resource:       r,
			}, &changes)
		}
	}

	for _, devID := range sortedKeys(inst.Devices) {
		dev := inst.Devices[devID]

		slaves, err := e.backend.Slaves(ctx, inst.ID, dev.ID)
		if err != nil {
			return changes, fmt.Errorf("refreshing slaves of device %s: %w", dev.ID, err)
		}

		for _, rawSlave := range slaves {
			addr, err := rawSlave.Address()
			if err != nil {
				e.logger.Warn("slave record without address", "device", dev.ID, "error", err)
				continue
			}
			slave, ok := dev.Slaves[addr]
			if !ok {
				e.logger.Debug("record for unknown slave", "device", dev.ID, "slave", addr)
				continue
			}

			for _, field := range sortedKeys(rawSlave) {
				r, ok := slave.Resources[field]
				if !ok {
					continue
				}
				raw, _, err := rawSlave.Value(field)
				if err != nil {
					e.logger.Warn("undecodable slave value, keeping previous", "key", r.Key, "error", err)
					continue
				}
				e.apply(r, raw, Entity{
					InstallationID: inst.ID,
					Device:         dev,
					ParentKind:     ParentSlave,
					ParentID:       slave.ID,
					ParentName:     slave.Name,
					Resource:       r,
				}, &changes)
			}
		}
	}

	return changes, nil
}

func (e *refresher) apply(r *Resource, raw any, entity Entity, changes *[]Change) {
	changed, err := r.SetValue(raw)
	if err != nil {
		e.logger.Warn("keeping previous value", "key", r.Key, "raw", raw, "error", err)
		return
	}
	if !changed {
		return
	}
	v, _ := r.Value()
	*changes = append(*changes, Change{Entity: entity, Value: v, Timestamp: r.UpdatedAt()})
}

// mergeChanges appends next to prev, keeping only the latest change per key.
func mergeChanges(prev, next []Change) []Change {
	if len(prev) == 0 {
		return next
	}
	index := make(map[string]int, len(prev))
	for i, c := range prev {
		index[c.Entity.Resource.Key] = i
	}
	for _, c := range next {
		if i, ok := index[c.Entity.Resource.Key]; ok {
			prev[i] = c
			continue
		}
		index[c.Entity.Resource.Key] = len(prev)
		prev = append(prev, c)
	}
	return prev
}
