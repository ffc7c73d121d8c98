package febos

import (
	"context"
	"fmt"

	"github.com/nerrad567/febos-bridge/internal/bridges/febos/api"
)

// topologyBuilder expands cloud configuration into the resource tree.
type topologyBuilder struct {
	backend    Backend
	normalizer *Normalizer
	logger     Logger
}

// discoverAll logs in and builds every installation the account can see,
// restricted to allow when it is non-empty. Any error is fatal: discovery
// has no retry.
func (b *topologyBuilder) discoverAll(ctx context.Context, allow map[string]bool) (*Model, error) {
	login, err := b.backend.Login(ctx)
	if err != nil {
		return nil, fmt.Errorf("discovery login: %w", err)
	}

	var installations []*Installation
	for _, id := range login.InstallationIDList {
		if len(allow) > 0 && !allow[id.String()] {
			b.logger.Debug("installation not in allow-list, skipping", "installation", id)
			continue
		}
		inst, err := b.build(ctx, id.String())
		if err != nil {
			return nil, err
		}
		installations = append(installations, inst)
	}
	return newModel(installations), nil
}

// build fetches the page configuration of one installation and returns its
// fully populated tree.
func (b *topologyBuilder) build(ctx context.Context, installationID string) (*Installation, error) {
	cfg, err := b.backend.PageConfig(ctx, installationID)
	if err != nil {
		return nil, fmt.Errorf("discovering installation %s: %w", installationID, err)
	}

	inst := newInstallation(installationID)

	for _, key := range sortedKeys(cfg.DeviceMap) {
		raw := cfg.DeviceMap[key]
		dev := newDevice(raw, installationID)
		inst.Devices[dev.ID] = dev

		slaves, err := b.backend.Slaves(ctx, installationID, dev.ID)
		if err != nil {
			return nil, fmt.Errorf("discovering slaves of device %s: %w", dev.ID, err)
		}
		for _, rawSlave := range slaves {
			slave, err := newSlave(rawSlave, dev)
			if err != nil {
				return nil, err
			}
			dev.Slaves[slave.ID] = slave
		}
	}

	for _, key := range sortedKeys(cfg.ThingMap) {
		raw := cfg.ThingMap[key]
		dev, ok := inst.Devices[raw.DeviceID.String()]
		if !ok {
			return nil, fmt.Errorf("%w: thing %s references unknown device %s", ErrMalformedInput, raw.ID, raw.DeviceID)
		}
		dev.Things[raw.ID.String()] = &Thing{
			ID:        raw.ID.String(),
			Name:      raw.ModelName,
			Resources: make(map[string]*Resource),
		}
	}

	for _, key := range sortedKeys(cfg.PageMap) {
		for _, tab := range cfg.PageMap[key].TabList {
			for _, widget := range tab.WidgetList {
				for _, group := range widget.WidgetInputGroupList {
					if err := b.addGroup(inst, group); err != nil {
						return nil, err
					}
				}
			}
		}
	}

	b.logger.Info("installation discovered",
		"installation", installationID,
		"devices", len(inst.Devices),
		"groups", len(inst.groupList),
	)
	return inst, nil
}

// addGroup records the group's subscription code and normalizes its points
// into the owning thing. A later point with the same code replaces an
// earlier one.
func (b *topologyBuilder) addGroup(inst *Installation, group api.InputGroup) error {
	inst.addGroup(group.InputGroupGetCode)

	dev, ok := inst.Devices[group.DeviceID.String()]
	if !ok {
		return fmt.Errorf("%w: group %s references unknown device %s", ErrMalformedInput, group.InputGroupGetCode, group.DeviceID)
	}
	thing, ok := dev.Things[group.ThingID.String()]
	if !ok {
		return fmt.Errorf("%w: group %s references unknown thing %s", ErrMalformedInput, group.InputGroupGetCode, group.ThingID)
	}

	ref := ResourceRef{InstallationID: inst.ID, DeviceID: dev.ID, ParentID: thing.ID}
	for _, in := range group.InputList {
		r, err := b.normalizer.Normalize(in, ref)
		if err != nil {
			return fmt.Errorf("installation %s: %w", inst.ID, err)
		}
		if r == nil {
			continue
		}
		thing.Resources[r.Code] = r
	}
	return nil
}

func newDevice(raw api.Device, installationID string) *Device {
	return &Device{
		ID:             raw.ID.String(),
		InstallationID: installationID,
		Manufacturer:   raw.TenantName,
		Model:          raw.ModelName,
		Name:           fmt.Sprintf("%s %s %s", raw.TenantName, raw.ModelName, capitalize(raw.DeviceTypeName)),
		Things:         make(map[string]*Thing),
		Slaves:         make(map[string]*Slave),
	}
}

// newSlave instantiates the template resources whose field names appear in
// the raw record. Each slave gets its own resource objects.
func newSlave(raw api.Slave, dev *Device) (*Slave, error) {
	addr, err := raw.Address()
	if err != nil {
		return nil, fmt.Errorf("%w: device %s: %w", ErrMalformedInput, dev.ID, err)
	}

	slave := &Slave{
		ID:        addr,
		Name:      fmt.Sprintf("%s Slave %s", dev.Model, addr),
		Resources: make(map[string]*Resource),
	}
	ref := ResourceRef{InstallationID: dev.InstallationID, DeviceID: dev.ID, ParentID: addr}
	for field := range raw {
		tmpl, ok := slaveTemplates[field]
		if !ok {
			continue
		}
		slave.Resources[field] = newSlaveResource(field, tmpl, ref)
	}
	return slave, nil
}
