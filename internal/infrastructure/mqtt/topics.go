package mqtt

import "fmt"

// DefaultTopicPrefix is the root of every topic when no prefix is configured.
const DefaultTopicPrefix = "febos"

// Component names used in discovery topics.
const (
	ComponentSensor       = "sensor"
	ComponentBinarySensor = "binary_sensor"
)

// Topics builds the bridge's MQTT topic tree under a single prefix.
//
//	topics := mqtt.NewTopics("febos")
//	topics.EntityState("febos_1001_42_7_r8684")
//	// Returns: "febos/state/febos_1001_42_7_r8684"
type Topics struct {
	Prefix string
}

// NewTopics returns topic builders rooted at prefix (DefaultTopicPrefix if empty).
func NewTopics(prefix string) Topics {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{Prefix: prefix}
}

// SystemStatus carries the retained online/offline payload and the LWT.
//
// Example: febos/system/status
func (t Topics) SystemStatus() string {
	return fmt.Sprintf("%s/system/status", t.Prefix)
}

// EntityConfig is the retained discovery document for one resource.
//
// Example: febos/discovery/sensor/febos_1001_42_7_r8684
func (t Topics) EntityConfig(component, key string) string {
	return fmt.Sprintf("%s/discovery/%s/%s", t.Prefix, component, key)
}

// EntityState is the retained current value of one resource.
//
// Example: febos/state/febos_1001_42_7_r8684
func (t Topics) EntityState(key string) string {
	return fmt.Sprintf("%s/state/%s", t.Prefix, key)
}

// RefreshCommand requests an immediate refresh cycle.
//
// Example: febos/command/refresh
func (t Topics) RefreshCommand() string {
	return fmt.Sprintf("%s/command/refresh", t.Prefix)
}

// DiscoverCommand requests a full topology re-discovery.
//
// Example: febos/command/discover
func (t Topics) DiscoverCommand() string {
	return fmt.Sprintf("%s/command/discover", t.Prefix)
}

// AllCommands matches every command topic.
//
// Pattern: febos/command/+
func (t Topics) AllCommands() string {
	return fmt.Sprintf("%s/command/+", t.Prefix)
}

// AllEntityStates matches every state topic.
//
// Pattern: febos/state/+
func (t Topics) AllEntityStates() string {
	return fmt.Sprintf("%s/state/+", t.Prefix)
}
