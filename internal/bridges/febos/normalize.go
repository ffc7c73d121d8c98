package febos

import (
	"fmt"
	"strings"

	"github.com/nerrad567/febos-bridge/internal/bridges/febos/api"
)

// Namespace prefixes every identity key.
const Namespace = "febos"

// unknownName replaces labels that are empty after cleanup.
const unknownName = "Unknown"

// noisyLabelSuffix duplicates the unit in some vendor labels.
const noisyLabelSuffix = " (in KW)"

// Logger is the logging surface used by the core.
// Compatible with *logging.Logger and *slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// ResourceRef locates a point in the tree; it feeds the identity key.
type ResourceRef struct {
	InstallationID string
	DeviceID       string
	ParentID       string
}

// IdentityKey builds the stable external identifier of a resource.
func IdentityKey(ref ResourceRef, code string) string {
	return strings.Join([]string{Namespace, ref.InstallationID, ref.DeviceID, ref.ParentID, strings.ToLower(code)}, "_")
}

// Normalizer classifies raw point definitions. It has three outcomes:
// a resource, a skip (nil, nil), or ErrMalformedInput. Data-quality issues
// are logged as warnings and never change the outcome.
type Normalizer struct {
	logger Logger
}

// NewNormalizer returns a normalizer logging warnings to logger (may be nil).
func NewNormalizer(logger Logger) *Normalizer {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Normalizer{logger: logger}
}

// Normalize turns one raw input into a Resource.
//
// Rules, in order:
//  1. The input type must be INT, FLOAT, BOOL or STRING (else ErrMalformedInput).
//  2. Booleans need an entry in the code-to-class table (else skipped).
//  3. Other types need a unit field (else skipped). The unit comes from the
//     override table, then the declared value; the class and aggregation
//     mode follow from the canonical unit.
func (n *Normalizer) Normalize(in api.Input, ref ResourceRef) (*Resource, error) {
	valueType, ok := valueTypeByInputType[in.InputType]
	if !ok {
		return nil, fmt.Errorf("%w: point %s has unsupported input type %q", ErrMalformedInput, in.Code, in.InputType)
	}

	r := &Resource{
		Code:      in.Code,
		Key:       IdentityKey(ref, in.Code),
		Name:      cleanName(in.Label),
		ValueType: valueType,
	}

	if valueType == ValueBool {
		class, ok := binaryClassByCode[in.Code]
		if !ok {
			return nil, nil
		}
		r.Kind = KindBinary
		r.Class = class
		r.invert = invertedClasses[class]
		return r, nil
	}

	if !in.MeasUnit.Present {
		return nil, nil
	}

	unit := n.resolveUnit(in)
	r.Kind = KindMeasurement
	r.Unit = unit
	r.Class = classByUnit[unit]
	r.StateClass = stateClassByClass[r.Class]
	r.scale = scaleByCode[in.Code]
	return r, nil
}

// resolveUnit prefers the override table over the declared unit.
func (n *Normalizer) resolveUnit(in api.Input) Unit {
	raw, known := unitOverrides[in.Code]
	if !known {
		if !in.MeasUnit.Declared() {
			n.logger.Warn("point has no declared unit", "code", in.Code, "label", in.Label)
			return UnitNone
		}
		raw = in.MeasUnit.Value
	}

	unit, ok := canonicalUnits[raw]
	if !ok {
		n.logger.Warn("point has unmapped unit", "code", in.Code, "label", in.Label, "unit", raw)
		return UnitNone
	}
	return unit
}

// cleanName strips the duplicated unit annotation from a vendor label.
func cleanName(label string) string {
	name := strings.TrimSpace(strings.ReplaceAll(label, noisyLabelSuffix, ""))
	if name == "" {
		return unknownName
	}
	return name
}

// newSlaveResource instantiates a fresh resource from a slave template.
func newSlaveResource(field string, tmpl slaveTemplate, ref ResourceRef) *Resource {
	r := &Resource{
		Code:      tmpl.code,
		Key:       IdentityKey(ref, field),
		Name:      tmpl.name,
		Kind:      tmpl.kind,
		Class:     tmpl.class,
		ValueType: tmpl.valueType,
	}
	if tmpl.kind == KindBinary {
		r.invert = invertedClasses[tmpl.class]
		return r
	}
	r.Unit = unitByClass[tmpl.class]
	r.StateClass = stateClassByClass[tmpl.class]
	r.scale = scaleByCode[field]
	return r
}
