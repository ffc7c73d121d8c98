// Package febos bridges EmmeTI Febos heating installations into a flat set
// of normalized resources.
//
// The cloud describes each installation as a tree of devices, things
// (circuits, zones, generators) and slaves (room terminals). Discovery
// walks that tree once and turns every supported point into a Resource
// with a stable identity key; refresh then polls current values into the
// same resources without ever changing the tree's shape.
//
// # Architecture
//
//	┌──────────────┐  Login/PageConfig/Slaves   ┌──────────────┐
//	│  Febos cloud │◄───────────────────────────│ Coordinator  │──► Observers
//	│   (api pkg)  │◄───────────────────────────│ (this pkg)   │    (MQTT, catalog)
//	└──────────────┘       RealtimeData         └──────────────┘
//
// # Identity
//
// Every resource is keyed "febos_{installation}_{device}_{parent}_{code}",
// with the code lower-cased. Slave resources use the slave record's field
// name as the code. Keys survive restarts as long as the cloud ids do.
//
// # Normalization
//
// Normalizer classifies raw point definitions:
//
//   - BOOL points become binary resources when their code is known
//   - other points become measurements when they carry a unit field
//   - anything else is skipped; unsupported input types are malformed
//
// Units come from a built-in override table first, then the declared unit.
// Values are scaled per code at read time (e.g. hundredths for energy
// counters), and a few boolean classes are stored negated upstream.
//
// # Cycles
//
// Discover and Refresh never overlap: a request arriving mid-cycle returns
// ErrCycleInProgress. A refresh rejected with ErrAuthentication logs in
// again and retries exactly once; everything else fails the cycle and
// leaves the previous values in place.
//
// # Thread Safety
//
// Coordinator, Model and Resource are safe for concurrent use.
package febos
