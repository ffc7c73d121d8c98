package febos

import (
	"fmt"
	"sync"
	"time"
)

// scale is a per-code conversion from the stored raw number to the
// displayed value: raw * mul / div. The zero value is the identity.
type scale struct {
	mul float64
	div float64
}

func (s scale) identity() bool {
	return s.mul == 0 && s.div == 0
}

func (s scale) apply(v float64) float64 {
	if s.mul != 0 {
		v *= s.mul
	}
	if s.div != 0 {
		v /= s.div
	}
	return v
}

// Resource is one observable point: a measurement or a boolean state.
//
// Identity and classification are fixed at discovery; only the raw value
// changes afterwards. Value re-applies the display transform on every call,
// so reads are idempotent.
//
// Thread Safety:
//   - SetValue and the read methods may be called concurrently.
type Resource struct {
	Code       string
	Key        string
	Name       string
	Kind       Kind
	Class      Class
	ValueType  ValueType
	Unit       Unit
	StateClass StateClass

	scale  scale
	invert bool

	mu        sync.RWMutex
	raw       any
	hasValue  bool
	updatedAt time.Time
}

// SetValue coerces raw to the resource's value type and stores it.
// It reports whether the stored value changed.
func (r *Resource) SetValue(raw any) (bool, error) {
	v, err := coerce(r.ValueType, raw)
	if err != nil {
		return false, fmt.Errorf("resource %s: %w", r.Key, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	changed := !r.hasValue || r.raw != v
	r.raw = v
	r.hasValue = true
	r.updatedAt = time.Now()
	return changed, nil
}

// RawValue returns the stored, coerced value and whether one has been set.
func (r *Resource) RawValue() (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.raw, r.hasValue
}

// HasValue reports whether the resource has received a value yet.
func (r *Resource) HasValue() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.hasValue
}

// UpdatedAt returns when the value was last written.
func (r *Resource) UpdatedAt() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.updatedAt
}

// Value returns the normalized value: scaled for measurements, inverted
// where the class is stored negated for boolean states. ok is false until
// the first SetValue.
func (r *Resource) Value() (any, bool) {
	raw, ok := r.RawValue()
	if !ok {
		return nil, false
	}
	return r.present(raw), true
}

func (r *Resource) present(raw any) any {
	if r.Kind == KindBinary {
		b, _ := raw.(bool)
		if r.invert {
			return !b
		}
		return b
	}

	if r.scale.identity() {
		return raw
	}
	f, ok := toFloat(raw)
	if !ok {
		return raw
	}
	return r.scale.apply(f)
}

// State is a point-in-time view of a resource, safe to serialise.
type State struct {
	Key        string     `json:"key"`
	Code       string     `json:"code"`
	Name       string     `json:"name"`
	Kind       Kind       `json:"kind"`
	Class      Class      `json:"class"`
	ValueType  ValueType  `json:"value_type"`
	Unit       Unit       `json:"unit,omitempty"`
	StateClass StateClass `json:"state_class,omitempty"`
	Value      any        `json:"value"`
	RawValue   any        `json:"raw_value"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
}

// State returns a snapshot of the resource.
func (r *Resource) State() State {
	r.mu.RLock()
	raw, ok, updated := r.raw, r.hasValue, r.updatedAt
	r.mu.RUnlock()

	s := State{
		Key:        r.Key,
		Code:       r.Code,
		Name:       r.Name,
		Kind:       r.Kind,
		Class:      r.Class,
		ValueType:  r.ValueType,
		Unit:       r.Unit,
		StateClass: r.StateClass,
	}
	if ok {
		s.Value = r.present(raw)
		s.RawValue = raw
		s.UpdatedAt = &updated
	}
	return s
}
