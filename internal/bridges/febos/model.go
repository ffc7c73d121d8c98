package febos

import (
	"sort"
	"strings"
)

// Installation is the root of one discovered tree.
type Installation struct {
	ID      string
	Devices map[string]*Device

	groups    map[string]struct{}
	groupList []string
}

func newInstallation(id string) *Installation {
	return &Installation{
		ID:      id,
		Devices: make(map[string]*Device),
		groups:  make(map[string]struct{}),
	}
}

func (i *Installation) addGroup(code string) {
	if _, ok := i.groups[code]; ok {
		return
	}
	i.groups[code] = struct{}{}
	i.groupList = append(i.groupList, code)
	sort.Strings(i.groupList)
}

// Groups returns the realtime subscription codes, sorted.
func (i *Installation) Groups() []string {
	out := make([]string, len(i.groupList))
	copy(out, i.groupList)
	return out
}

// Device is a controller with its things and slaves.
type Device struct {
	ID             string
	InstallationID string
	Manufacturer   string
	Model          string
	Name           string
	Things         map[string]*Thing
	Slaves         map[string]*Slave
}

// Thing is a sub-unit of a device refreshed through input groups.
type Thing struct {
	ID        string
	Name      string
	Resources map[string]*Resource
}

// Slave is a sub-device refreshed through the per-device slave call.
// Resources are keyed by slave record field name.
type Slave struct {
	ID        string
	Name      string
	Resources map[string]*Resource
}

// Entity ties a resource to its place in the tree.
type Entity struct {
	InstallationID string
	Device         *Device
	ParentKind     ParentKind
	ParentID       string
	ParentName     string
	Resource       *Resource
}

// Model is the full discovered tree. Its shape never changes after
// discovery; only resource values do.
type Model struct {
	Installations []*Installation

	byKey map[string]*Resource
}

func newModel(installations []*Installation) *Model {
	m := &Model{Installations: installations, byKey: make(map[string]*Resource)}
	m.Walk(func(e Entity) {
		m.byKey[e.Resource.Key] = e.Resource
	})
	return m
}

// Walk visits every resource in deterministic order: installations as
// discovered, then devices, things before slaves, and resources sorted by id.
func (m *Model) Walk(fn func(Entity)) {
	for _, inst := range m.Installations {
		for _, devID := range sortedKeys(inst.Devices) {
			dev := inst.Devices[devID]
			for _, thingID := range sortedKeys(dev.Things) {
				thing := dev.Things[thingID]
				for _, code := range sortedKeys(thing.Resources) {
					fn(Entity{
						InstallationID: inst.ID,
						Device:         dev,
						ParentKind:     ParentThing,
						ParentID:       thing.ID,
						ParentName:     thing.Name,
						Resource:       thing.Resources[code],
					})
				}
			}
			for _, slaveID := range sortedKeys(dev.Slaves) {
				slave := dev.Slaves[slaveID]
				for _, field := range sortedKeys(slave.Resources) {
					fn(Entity{
						InstallationID: inst.ID,
						Device:         dev,
						ParentKind:     ParentSlave,
						ParentID:       slave.ID,
						ParentName:     slave.Name,
						Resource:       slave.Resources[field],
					})
				}
			}
		}
	}
}

// Entities lists the resources of a kind that have received a value.
func (m *Model) Entities(kind Kind) []Entity {
	var out []Entity
	m.Walk(func(e Entity) {
		if e.Resource.Kind == kind && e.Resource.HasValue() {
			out = append(out, e)
		}
	})
	return out
}

// All lists every resource, with or without a value.
func (m *Model) All() []Entity {
	var out []Entity
	m.Walk(func(e Entity) { out = append(out, e) })
	return out
}

// Resource looks a resource up by identity key.
func (m *Model) Resource(key string) (*Resource, bool) {
	r, ok := m.byKey[key]
	return r, ok
}

// Keys returns every identity key, sorted.
func (m *Model) Keys() []string {
	return sortedKeys(m.byKey)
}

// Counts summarises the tree size.
type Counts struct {
	Installations int `json:"installations"`
	Devices       int `json:"devices"`
	Things        int `json:"things"`
	Slaves        int `json:"slaves"`
	Resources     int `json:"resources"`
	Sensors       int `json:"sensors"`
	BinarySensors int `json:"binary_sensors"`
}

// Counts walks the tree and tallies each level.
func (m *Model) Counts() Counts {
	c := Counts{Installations: len(m.Installations)}
	for _, inst := range m.Installations {
		c.Devices += len(inst.Devices)
		for _, dev := range inst.Devices {
			c.Things += len(dev.Things)
			c.Slaves += len(dev.Slaves)
		}
	}
	m.Walk(func(e Entity) {
		c.Resources++
		if e.Resource.Kind == KindBinary {
			c.BinarySensors++
		} else {
			c.Sensors++
		}
	})
	return c
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// capitalize upper-cases the first letter and lower-cases the rest.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	lower := strings.ToLower(s)
	r := []rune(lower)
	return strings.ToUpper(string(r[0])) + string(r[1:])
}
