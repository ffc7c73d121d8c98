package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ID is an identifier the cloud sends either as a JSON number or a string.
// It is kept as its decimal text so it can be used as a map key.
type ID string

// UnmarshalJSON accepts 1001, "1001" and null.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a number or string: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON emits numeric ids as numbers and everything else as strings.
func (id ID) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id ID) String() string { return string(id) }

// OptionalString records whether a JSON field was present, and whether it was null.
type OptionalString struct {
	Value   string
	Present bool
	Null    bool
}

// UnmarshalJSON is only invoked when the field exists in the object.
func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Present = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Null = true
		o.Value = ""
		return nil
	}
	return json.Unmarshal(data, &o.Value)
}

// MarshalJSON writes null for a null or absent value.
func (o OptionalString) MarshalJSON() ([]byte, error) {
	if !o.Present || o.Null {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// Declared reports whether the field carried a non-null value.
func (o OptionalString) Declared() bool {
	return o.Present && !o.Null
}

// Credentials is the login request body.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResult is the session returned by Login.
type LoginResult struct {
	Token              string `json:"token"`
	InstallationIDList []ID   `json:"installationIdList"`
}

// PageConfig is the installation layout: devices, things and the page tree
// whose input groups name the realtime subscriptions.
type PageConfig struct {
	DeviceMap map[string]Device `json:"deviceMap"`
	ThingMap  map[string]Thing  `json:"thingMap"`
	PageMap   map[string]Page   `json:"pageMap"`
}

// Device is a controller registered to an installation.
type Device struct {
	ID             ID     `json:"id"`
	InstallationID ID     `json:"installationId"`
	TenantName     string `json:"tenantName"`
	ModelName      string `json:"modelName"`
	DeviceTypeName string `json:"deviceTypeName"`
}

// Thing is a logical sub-unit of a device (circuit, zone, generator).
type Thing struct {
	ID        ID     `json:"id"`
	DeviceID  ID     `json:"deviceId"`
	ModelName string `json:"modelName"`
}

// Page is one screen of the vendor web application.
type Page struct {
	TabList []Tab `json:"tabList"`
}

// Tab groups widgets on a page.
type Tab struct {
	WidgetList []Widget `json:"widgetList"`
}

// Widget groups input groups on a tab.
type Widget struct {
	WidgetInputGroupList []InputGroup `json:"widgetInputGroupList"`
}

// InputGroup is a set of points on one thing, refreshed together by its code.
type InputGroup struct {
	InputGroupGetCode string  `json:"inputGroupGetCode"`
	DeviceID          ID      `json:"deviceId"`
	ThingID           ID      `json:"thingId"`
	InputList         []Input `json:"inputList"`
}

// Input is the raw definition of one point.
type Input struct {
	Code      string         `json:"code"`
	Label     string         `json:"label"`
	InputType string         `json:"inputType"`
	MeasUnit  OptionalString `json:"measUnit"`
}

// SlaveAddressField is the slave record field holding its bus address.
const SlaveAddressField = "indirizzoSlave"

// Slave is one flat slave record: field name to raw JSON value.
type Slave map[string]json.RawMessage

// Address returns the slave's bus address as text.
func (s Slave) Address() (string, error) {
	raw, ok := s[SlaveAddressField]
	if !ok {
		return "", fmt.Errorf("slave record has no %s field", SlaveAddressField)
	}
	var id ID
	if err := json.Unmarshal(raw, &id); err != nil {
		return "", fmt.Errorf("slave %s: %w", SlaveAddressField, err)
	}
	if id == "" {
		return "", fmt.Errorf("slave record has empty %s", SlaveAddressField)
	}
	return string(id), nil
}

// Value decodes one field, keeping numbers exact as json.Number.
func (s Slave) Value(field string) (any, bool, error) {
	raw, ok := s[field]
	if !ok {
		return nil, false, nil
	}
	v, err := DecodeValue(raw)
	return v, true, err
}

// RealtimeRequest is the body of a realtime-data call.
type RealtimeRequest struct {
	InputGroupGetCodeList []string `json:"inputGroupGetCodeList"`
}

// RealtimeEntry carries the current values of one thing.
type RealtimeEntry struct {
	DeviceID ID                       `json:"deviceId"`
	ThingID  ID                       `json:"thingId"`
	Data     map[string]RealtimeValue `json:"data"`
}

// RealtimeValue wraps a raw point value under the "i" key.
type RealtimeValue struct {
	I json.RawMessage `json:"i"`
}

// Decode returns the wrapped value (see DecodeValue).
func (v RealtimeValue) Decode() (any, error) {
	return DecodeValue(v.I)
}

// DecodeValue decodes a raw JSON scalar into nil, bool, string or
// json.Number. Empty input decodes to nil.
func DecodeValue(raw json.RawMessage) (any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	switch v.(type) {
	case nil, bool, string, json.Number:
		return v, nil
	default:
		return nil, fmt.Errorf("%w: value %s is not a scalar", ErrDecode, raw)
	}
}
