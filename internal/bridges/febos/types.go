package febos

// Kind is the canonical kind of a resource.
type Kind string

// Resource kinds. The string values double as MQTT component names.
const (
	KindMeasurement Kind = "sensor"
	KindBinary      Kind = "binary_sensor"
)

// ParseKind accepts "sensor"/"measurement" and "binary_sensor"/"binary".
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "sensor", "measurement":
		return KindMeasurement, true
	case "binary_sensor", "binary":
		return KindBinary, true
	}
	return "", false
}

// Class is the semantic class of a resource.
type Class string

// Measurement classes.
const (
	ClassTemperature    Class = "temperature"
	ClassHumidity       Class = "humidity"
	ClassPower          Class = "power"
	ClassEnergy         Class = "energy"
	ClassDuration       Class = "duration"
	ClassVolumeFlowRate Class = "volume_flow_rate"
	ClassMonetary       Class = "monetary"
	ClassEnum           Class = "enum"
)

// Boolean-state classes.
const (
	ClassRunning  Class = "running"
	ClassProblem  Class = "problem"
	ClassCold     Class = "cold"
	ClassPresence Class = "presence"
	ClassWindow   Class = "window"
	ClassHeat     Class = "heat"
)

// ValueType is the primitive type raw values are coerced to.
type ValueType string

// Value types, one per supported vendor input type.
const (
	ValueInt    ValueType = "int"
	ValueFloat  ValueType = "float"
	ValueBool   ValueType = "bool"
	ValueString ValueType = "string"
)

// StateClass is the aggregation mode of a measurement.
type StateClass string

// State classes. Binary resources have none.
const (
	StateNone        StateClass = ""
	StateMeasurement StateClass = "measurement"
	StateTotal       StateClass = "total"
)

// Unit is a canonical measurement unit. The empty unit means none.
type Unit string

// Canonical units.
const (
	UnitNone          Unit = ""
	UnitKilowatt      Unit = "kW"
	UnitCelsius       Unit = "°C"
	UnitHours         Unit = "h"
	UnitMinutes       Unit = "min"
	UnitWattHour      Unit = "Wh"
	UnitLitersPerHour Unit = "L/h"
	UnitEuro          Unit = "€"
	UnitPercent       Unit = "%"
)

// ParentKind tells whether a resource hangs off a thing or a slave.
type ParentKind string

// Parent kinds.
const (
	ParentThing ParentKind = "thing"
	ParentSlave ParentKind = "slave"
)
