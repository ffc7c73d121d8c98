package catalog

import (
	"time"

	"github.com/nerrad567/febos-bridge/internal/bridges/febos"
)

// Entry is the persisted description of one resource.
type Entry struct {
	Key            string           `json:"key"`
	InstallationID string           `json:"installation_id"`
	DeviceID       string           `json:"device_id"`
	DeviceName     string           `json:"device_name"`
	ParentID       string           `json:"parent_id"`
	ParentKind     febos.ParentKind `json:"parent_kind"`
	Code           string           `json:"code"`
	Name           string           `json:"name"`
	Kind           febos.Kind       `json:"kind"`
	Class          febos.Class      `json:"class"`
	Unit           febos.Unit       `json:"unit,omitempty"`
	StateClass     febos.StateClass `json:"state_class,omitempty"`
	ValueType      febos.ValueType  `json:"value_type"`
	FirstSeen      time.Time        `json:"first_seen"`
	LastSeen       time.Time        `json:"last_seen"`
}

// EntryFromEntity describes a live entity for storage.
func EntryFromEntity(e febos.Entity) Entry {
	r := e.Resource
	entry := Entry{
		Key:            r.Key,
		InstallationID: e.InstallationID,
		ParentID:       e.ParentID,
		ParentKind:     e.ParentKind,
		Code:           r.Code,
		Name:           r.Name,
		Kind:           r.Kind,
		Class:          r.Class,
		Unit:           r.Unit,
		StateClass:     r.StateClass,
		ValueType:      r.ValueType,
	}
	if e.Device != nil {
		entry.DeviceID = e.Device.ID
		entry.DeviceName = e.Device.Name
	}
	return entry
}

// Run is one recorded discovery pass.
type Run struct {
	ID            string    `json:"id"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	Installations int       `json:"installations"`
	Devices       int       `json:"devices"`
	Resources     int       `json:"resources"`
	Error         string    `json:"error,omitempty"`
}
