package publisher

import (
	"fmt"
	"time"

	"github.com/nerrad567/febos-bridge/internal/bridges/febos"
	"github.com/nerrad567/febos-bridge/internal/infrastructure/mqtt"
)

// EntityConfig is the retained discovery document of one resource.
type EntityConfig struct {
	Name                 string     `json:"name"`
	UniqueID             string     `json:"unique_id"`
	StateTopic           string     `json:"state_topic"`
	ValueTemplate        string     `json:"value_template"`
	AvailabilityTopic    string     `json:"availability_topic"`
	AvailabilityTemplate string     `json:"availability_template"`
	DeviceClass          string     `json:"device_class,omitempty"`
	StateClass           string     `json:"state_class,omitempty"`
	UnitOfMeasurement    string     `json:"unit_of_measurement,omitempty"`
	PayloadOn            string     `json:"payload_on,omitempty"`
	PayloadOff           string     `json:"payload_off,omitempty"`
	Device               DeviceInfo `json:"device"`
}

// DeviceInfo groups entities under their controller.
type DeviceInfo struct {
	Identifiers  []string `json:"identifiers"`
	Manufacturer string   `json:"manufacturer"`
	Model        string   `json:"model"`
	Name         string   `json:"name"`
}

// StateMessage is the retained value of one resource.
type StateMessage struct {
	Key       string `json:"key"`
	Value     any    `json:"value"`
	Timestamp string `json:"timestamp"`
}

const (
	measurementTemplate  = "{{ value_json.value }}"
	binaryTemplate       = "{{ 'ON' if value_json.value else 'OFF' }}"
	availabilityTemplate = "{{ value_json.status }}"
)

func entityConfig(topics mqtt.Topics, e febos.Entity) EntityConfig {
	r := e.Resource
	name := r.Name
	if e.ParentName != "" {
		name = fmt.Sprintf("%s %s", e.ParentName, r.Name)
	}

	cfg := EntityConfig{
		Name:                 name,
		UniqueID:             r.Key,
		StateTopic:           topics.EntityState(r.Key),
		AvailabilityTopic:    topics.SystemStatus(),
		AvailabilityTemplate: availabilityTemplate,
		DeviceClass:          string(r.Class),
		Device:               deviceInfo(e.InstallationID, e.Device),
	}

	if r.Kind == febos.KindBinary {
		cfg.ValueTemplate = binaryTemplate
		cfg.PayloadOn = "ON"
		cfg.PayloadOff = "OFF"
		return cfg
	}

	cfg.ValueTemplate = measurementTemplate
	cfg.StateClass = string(r.StateClass)
	cfg.UnitOfMeasurement = string(r.Unit)
	return cfg
}

func deviceInfo(installationID string, dev *febos.Device) DeviceInfo {
	if dev == nil {
		return DeviceInfo{}
	}
	return DeviceInfo{
		Identifiers:  []string{fmt.Sprintf("%s_%s_%s", febos.Namespace, installationID, dev.ID)},
		Manufacturer: dev.Manufacturer,
		Model:        dev.Model,
		Name:         dev.Name,
	}
}

func stateMessage(key string, value any, ts time.Time) StateMessage {
	return StateMessage{Key: key, Value: value, Timestamp: ts.UTC().Format(time.RFC3339)}
}

func component(kind febos.Kind) string {
	if kind == febos.KindBinary {
		return mqtt.ComponentBinarySensor
	}
	return mqtt.ComponentSensor
}
