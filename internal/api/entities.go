package api

import (
	"errors"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/febos-bridge/internal/bridges/febos"
)

// EntityView is a resource with its place in the tree.
type EntityView struct {
	febos.State
	InstallationID string           `json:"installation_id"`
	DeviceID       string           `json:"device_id"`
	DeviceName     string           `json:"device_name"`
	ParentKind     febos.ParentKind `json:"parent_kind"`
	ParentID       string           `json:"parent_id"`
	ParentName     string           `json:"parent_name"`
}

func entityView(e febos.Entity) EntityView {
	v := EntityView{
		State:          e.Resource.State(),
		InstallationID: e.InstallationID,
		ParentKind:     e.ParentKind,
		ParentID:       e.ParentID,
		ParentName:     e.ParentName,
	}
	if e.Device != nil {
		v.DeviceID = e.Device.ID
		v.DeviceName = e.Device.Name
	}
	return v
}

// handleStatus returns the coordinator status.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.bridge.Status())
}

// handleListEntities lists resources that have a value.
// Query parameters:
//   - kind: "sensor" or "binary_sensor" (default: both)
func (s *Server) handleListEntities(w http.ResponseWriter, r *http.Request) {
	if s.bridge.Model() == nil {
		writeUnavailable(w, "topology not discovered yet")
		return
	}

	kinds := []febos.Kind{febos.KindMeasurement, febos.KindBinary}
	if raw := r.URL.Query().Get("kind"); raw != "" {
		kind, ok := febos.ParseKind(raw)
		if !ok {
			writeBadRequest(w, "kind must be sensor or binary_sensor")
			return
		}
		kinds = []febos.Kind{kind}
	}

	views := make([]EntityView, 0)
	for _, kind := range kinds {
		for _, e := range s.bridge.Entities(kind) {
			views = append(views, entityView(e))
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"entities": views,
		"count":    len(views),
	})
}

// handleGetEntity returns one resource by identity key, with or without a value.
func (s *Server) handleGetEntity(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	res, err := s.bridge.Resource(key)
	switch {
	case errors.Is(err, febos.ErrNotDiscovered):
		writeUnavailable(w, "topology not discovered yet")
		return
	case errors.Is(err, febos.ErrResourceNotFound):
		writeNotFound(w, "entity not found")
		return
	case err != nil:
		writeInternalError(w, "failed to read entity")
		return
	}

	writeJSON(w, http.StatusOK, res.State())
}

// InstallationView is the discovered tree of one installation.
type InstallationView struct {
	ID      string       `json:"id"`
	Groups  []string     `json:"groups"`
	Devices []DeviceView `json:"devices"`
}

// DeviceView describes one controller and its sub-units.
type DeviceView struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Manufacturer string       `json:"manufacturer"`
	Model        string       `json:"model"`
	Things       []ParentView `json:"things"`
	Slaves       []ParentView `json:"slaves"`
}

// ParentView lists the resource keys of a thing or slave.
type ParentView struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Resources []string `json:"resources"`
}

// handleInstallations returns the discovered tree.
func (s *Server) handleInstallations(w http.ResponseWriter, _ *http.Request) {
	model := s.bridge.Model()
	if model == nil {
		writeUnavailable(w, "topology not discovered yet")
		return
	}

	views := make([]InstallationView, 0, len(model.Installations))
	for _, inst := range model.Installations {
		iv := InstallationView{ID: inst.ID, Groups: inst.Groups(), Devices: []DeviceView{}}

		for _, devID := range sortedKeys(inst.Devices) {
			dev := inst.Devices[devID]
			dv := DeviceView{
				ID:           dev.ID,
				Name:         dev.Name,
				Manufacturer: dev.Manufacturer,
				Model:        dev.Model,
				Things:       []ParentView{},
				Slaves:       []ParentView{},
			}
			for _, id := range sortedKeys(dev.Things) {
				t := dev.Things[id]
				dv.Things = append(dv.Things, parentView(t.ID, t.Name, t.Resources))
			}
			for _, id := range sortedKeys(dev.Slaves) {
				sl := dev.Slaves[id]
				dv.Slaves = append(dv.Slaves, parentView(sl.ID, sl.Name, sl.Resources))
			}
			iv.Devices = append(iv.Devices, dv)
		}
		views = append(views, iv)
	}

	writeJSON(w, http.StatusOK, map[string]any{"installations": views})
}

func parentView(id, name string, resources map[string]*febos.Resource) ParentView {
	keys := make([]string, 0, len(resources))
	for _, r := range resources {
		keys = append(keys, r.Key)
	}
	sort.Strings(keys)
	return ParentView{ID: id, Name: name, Resources: keys}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
