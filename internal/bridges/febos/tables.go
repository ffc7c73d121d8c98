package febos

// Static classification data. Read-only after package initialisation.

// unitOverrides gives the displayed unit for codes the cloud does not
// declare a unit for. An empty string marks a known unitless point.
var unitOverrides = map[string]string{
	"CT_UPTIME": "", // uptime
	"CT_VPN_IP": "", // VPN address
	"R16493":    "", // first DHW request time
	"R16494":    "°C",
	"R16495":    "°C",
	"R16496":    "°C",
	"R16497":    "°C", // DHW maintenance set point
	"R16515":    "", // dew point / humidity set
	"R8200":     "",
	"R8201":     "",
	"R8202":     "",
	"R8203":     "", // NTC1 offset
	"R8204":     "", // NTC2 offset
	"R8205":     "",
	"R8206":     "",
	"R8207":     "",
	"R8208":     "", // pulse counter limits (R8208..R8219)
	"R8209":     "",
	"R8210":     "",
	"R8211":     "",
	"R8212":     "",
	"R8213":     "",
	"R8214":     "",
	"R8215":     "",
	"R8216":     "",
	"R8217":     "",
	"R8218":     "",
	"R8219":     "",
	"R8300":     "", // discarded pulse counters (R8300..R8311)
	"R8301":     "",
	"R8302":     "",
	"R8303":     "",
	"R8304":     "",
	"R8305":     "",
	"R8306":     "",
	"R8307":     "",
	"R8308":     "",
	"R8309":     "",
	"R8310":     "",
	"R8311":     "",
	"R8400":     "",
	"R8401":     "",
	"R8402":     "",
	"R8403":     "",
	"R8404":     "",
	"R8405":     "",
	"R8406":     "",
	"R8407":     "",
	"R8408":     "",
	"R8409":     "",
	"R8410":     "",
	"R8411":     "",
	"R8412":     "",
	"R8413":     "",
	"R8414":     "",
	"R8600":     "",
	"R8638":     "",
	"R8639":     "",
	"R8640":     "",
	"R8641":     "",
	"R8642":     "",
	"R8648":     "",
	"R8660":     "%",
	"R8661":     "%",
	"R8664":     "",
	"R8665":     "kW",
	"R8666":     "kW",
	"R8756":     "kW",
	"R8757":     "kW",
	"R8758":     "kW",
	"R8759":     "kW",
	"R8760":     "kW",
	"R8761":     "kW",
	"R8762":     "kW",
	"R8763":     "kW",
	"R8764":     "kW",
	"R8765":     "watt/h",
	"R8766":     "watt/h",
	"R8767":     "watt/h",
	"R8768":     "watt/h",
	"R8769":     "watt/h",
	"R8770":     "watt/h",
	"R8771":     "watt/h",
	"R8772":     "watt/h",
	"R8773":     "watt/h",
	"R8774":     "",
	"R8967":     "",
	"R9008":     "",
	"R9042":     "°C",
	"R9051":     "°C",
	"R9052":     "°C",
	"R9071":     "",
	"R9072":     "",
	"R9076":     "", // photovoltaic
	"R9078":     "", // antifreeze
	"R9079":     "", // antifreeze 2
}

// canonicalUnits maps vendor unit strings to canonical units.
var canonicalUnits = map[string]Unit{
	"kW":     UnitKilowatt,
	"°C":     UnitCelsius,
	"°":      UnitCelsius,
	"h":      UnitHours,
	"HH:mm":  UnitMinutes,
	"watt/h": UnitWattHour,
	"L/h":    UnitLitersPerHour,
	"e/kw":   UnitEuro,
	"%":      UnitPercent,
	"":       UnitNone,
}

// classByUnit gives the semantic class of a measurement from its unit.
var classByUnit = map[Unit]Class{
	UnitKilowatt:      ClassPower,
	UnitCelsius:       ClassTemperature,
	UnitHours:         ClassDuration,
	UnitMinutes:       ClassDuration,
	UnitWattHour:      ClassEnergy,
	UnitLitersPerHour: ClassVolumeFlowRate,
	UnitEuro:          ClassMonetary,
	UnitPercent:       ClassHumidity,
	UnitNone:          ClassEnum,
}

// stateClassByClass gives the aggregation mode of each measurement class.
var stateClassByClass = map[Class]StateClass{
	ClassMonetary:       StateTotal,
	ClassEnergy:         StateTotal,
	ClassPower:          StateMeasurement,
	ClassTemperature:    StateMeasurement,
	ClassDuration:       StateMeasurement,
	ClassVolumeFlowRate: StateMeasurement,
	ClassHumidity:       StateMeasurement,
	ClassEnum:           StateMeasurement,
}

// binaryClassByCode lists the boolean codes worth exposing. Others are skipped.
var binaryClassByCode = map[string]Class{
	"R8683":  ClassCold,
	"R16385": ClassCold,
	"R9089":  ClassProblem,
	"R9090":  ClassProblem,
	"R9095":  ClassProblem,
	"R9096":  ClassProblem,
	"R9097":  ClassProblem,
	"R9098":  ClassProblem,
	"R9099":  ClassProblem,
	"R9102":  ClassProblem,
	"R9103":  ClassProblem,
	"R9104":  ClassProblem,
	"R16384": ClassRunning,
	"R8681":  ClassRunning,
	"R8682":  ClassRunning,
	"R8692":  ClassRunning,
	"R9072":  ClassRunning,
	"R9073":  ClassRunning,
	"R9074":  ClassRunning,
	"R8672":  ClassWindow,
	"R8673":  ClassPresence,
	"R8676":  ClassPresence,
}

// invertedClasses are stored negated upstream.
var invertedClasses = map[Class]bool{
	ClassCold:     true,
	ClassPresence: true,
}

var (
	tenths     = scale{div: 10}
	hundredths = scale{div: 100}
	thousandth = scale{div: 1000}
)

// scaleByCode converts stored numbers to displayed ones. Slave resources
// are looked up by field name (setTemp, temp).
var scaleByCode = map[string]scale{
	"R9120":   {mul: 60},
	"R8702":   tenths,
	"R8703":   tenths,
	"R8678":   tenths,
	"R8680":   tenths,
	"R8986":   tenths,
	"R8987":   tenths,
	"R8988":   tenths,
	"R8989":   tenths,
	"R8698":   tenths,
	"R16444":  tenths,
	"R16446":  tenths,
	"R16448":  tenths,
	"R16450":  tenths,
	"R16451":  tenths,
	"R16453":  tenths,
	"R16455":  tenths,
	"R16457":  tenths,
	"setTemp": tenths,
	"temp":    tenths,
	"R8684":   hundredths,
	"R8686":   hundredths,
	"R8688":   hundredths,
	"R8690":   hundredths,
	"R8220":   thousandth,
	"R8221":   thousandth,
	"R8222":   thousandth,
	"R8223":   thousandth,
}

// valueTypeByInputType maps the declared vendor input type.
var valueTypeByInputType = map[string]ValueType{
	"INT":    ValueInt,
	"FLOAT":  ValueFloat,
	"BOOL":   ValueBool,
	"STRING": ValueString,
}

// slaveTemplate describes one of the fixed resources a slave can expose.
type slaveTemplate struct {
	code      string
	name      string
	kind      Kind
	class     Class
	valueType ValueType
}

// slaveTemplates is keyed by slave record field name.
var slaveTemplates = map[string]slaveTemplate{
	"callTemp":  {code: "S01", name: "Chiamata Temperatura", kind: KindBinary, class: ClassHeat, valueType: ValueBool},
	"callHumid": {code: "S02", name: "Chiamata Umidità", kind: KindBinary, class: ClassHeat, valueType: ValueBool},
	"stagione":  {code: "S03", name: "Stagione", kind: KindBinary, class: ClassCold, valueType: ValueBool},
	"setTemp":   {code: "S04", name: "Set Temperatura", kind: KindMeasurement, class: ClassTemperature, valueType: ValueFloat},
	"temp":      {code: "S05", name: "Temperatura", kind: KindMeasurement, class: ClassTemperature, valueType: ValueFloat},
	"humid":     {code: "S06", name: "Umidità", kind: KindMeasurement, class: ClassHumidity, valueType: ValueFloat},
	"confort":   {code: "S07", name: "Comfort", kind: KindBinary, class: ClassPresence, valueType: ValueBool},
}

// unitByClass gives slave measurements a unit, since slave records carry none.
var unitByClass = map[Class]Unit{
	ClassTemperature: UnitCelsius,
	ClassHumidity:    UnitPercent,
}
