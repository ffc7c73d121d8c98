package febos

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/nerrad567/febos-bridge/internal/bridges/febos/api"
)

// MockBackend implements Backend from canned cloud payloads.
type MockBackend struct {
	mu sync.Mutex

	installations []api.ID
	pages         map[string]*api.PageConfig
	slaves        map[string][]api.Slave
	realtime      map[string][]api.RealtimeEntry

	loginErr     error
	realtimeErrs []error // consumed one per RealtimeData call
	slavesErrs   []error // consumed one per Slaves call
	block        chan struct{}
	entered      chan struct{}

	logins        int
	realtimeCalls int
	lastGroups    []string
}

func NewMockBackend(t *testing.T) *MockBackend {
	t.Helper()
	return &MockBackend{
		installations: []api.ID{"1"},
		pages:         map[string]*api.PageConfig{"1": decodePage(t, fixturePage)},
		slaves:        map[string][]api.Slave{"1/10": decodeSlaves(t, fixtureSlaves)},
		realtime:      map[string][]api.RealtimeEntry{"1": decodeRealtime(t, fixtureRealtime)},
	}
}

func (m *MockBackend) Login(ctx context.Context) (*api.LoginResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logins++
	if m.loginErr != nil {
		return nil, m.loginErr
	}
	return &api.LoginResult{Token: "token", InstallationIDList: m.installations}, nil
}

func (m *MockBackend) PageConfig(ctx context.Context, installationID string) (*api.PageConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg, ok := m.pages[installationID]
	if !ok {
		return nil, api.ErrTransport
	}
	return cfg, nil
}

func (m *MockBackend) Slaves(ctx context.Context, installationID, deviceID string) ([]api.Slave, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.slavesErrs) > 0 {
		err := m.slavesErrs[0]
		m.slavesErrs = m.slavesErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return m.slaves[installationID+"/"+deviceID], nil
}

func (m *MockBackend) RealtimeData(ctx context.Context, installationID string, groups []string) ([]api.RealtimeEntry, error) {
	m.mu.Lock()
	block, entered := m.block, m.entered
	m.realtimeCalls++
	m.lastGroups = groups
	var err error
	if len(m.realtimeErrs) > 0 {
		err, m.realtimeErrs = m.realtimeErrs[0], m.realtimeErrs[1:]
	}
	entries := m.realtime[installationID]
	m.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (m *MockBackend) setSlaves(t *testing.T, key, payload string) {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slaves[key] = decodeSlaves(t, payload)
}

func (m *MockBackend) setRealtime(t *testing.T, installationID, payload string) {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.realtime[installationID] = decodeRealtime(t, payload)
}

func (m *MockBackend) counts() (logins, realtimeCalls int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.logins, m.realtimeCalls
}

const fixturePage = `{
  "deviceMap": {
    "10": {"id": 10, "installationId": 1, "tenantName": "EmmeTI", "modelName": "Febos", "deviceTypeName": "CRONOTERMOSTATO"}
  },
  "thingMap": {
    "100": {"id": 100, "deviceId": 10, "modelName": "Circuito 1"}
  },
  "pageMap": {
    "home": {"tabList": [{"widgetList": [{"widgetInputGroupList": [
      {"inputGroupGetCode": "G_CIRC", "deviceId": 10, "thingId": 100, "inputList": [
        {"code": "R8684", "label": "Energia (in KW)", "inputType": "INT", "measUnit": "watt/h"},
        {"code": "R8673", "label": "Presenza", "inputType": "BOOL"},
        {"code": "R9999", "label": "Flag", "inputType": "BOOL"},
        {"code": "R7000", "label": "Modo", "inputType": "STRING", "measUnit": null},
        {"code": "R7001", "label": "Senza unita", "inputType": "INT"}
      ]}
    ]}]}]},
    "alarms": {"tabList": [{"widgetList": [{"widgetInputGroupList": [
      {"inputGroupGetCode": "G_ALARM", "deviceId": 10, "thingId": 100, "inputList": []}
    ]}]}]}
  }
}`

const fixtureSlaves = `[
  {"indirizzoSlave": 3, "temp": 210, "humid": 45, "callTemp": 1, "unknownField": 7}
]`

const fixtureRealtime = `[
  {"deviceId": 10, "thingId": 100, "data": {
    "R8684": {"i": 1234},
    "R8673": {"i": 1},
    "R7000": {"i": "AUTO"},
    "R5555": {"i": 3}
  }},
  {"deviceId": 99, "thingId": 1, "data": {"R8684": {"i": 1}}}
]`

func decodePage(t *testing.T, payload string) *api.PageConfig {
	t.Helper()
	var cfg api.PageConfig
	if err := json.Unmarshal([]byte(payload), &cfg); err != nil {
		t.Fatalf("decoding page fixture: %v", err)
	}
	return &cfg
}

func decodeSlaves(t *testing.T, payload string) []api.Slave {
	t.Helper()
	var slaves []api.Slave
	if err := json.Unmarshal([]byte(payload), &slaves); err != nil {
		t.Fatalf("decoding slave fixture: %v", err)
	}
	return slaves
}

func decodeRealtime(t *testing.T, payload string) []api.RealtimeEntry {
	t.Helper()
	var entries []api.RealtimeEntry
	if err := json.Unmarshal([]byte(payload), &entries); err != nil {
		t.Fatalf("decoding realtime fixture: %v", err)
	}
	return entries
}

func newTestCoordinator(t *testing.T, backend Backend, opts ...func(*Options)) *Coordinator {
	t.Helper()
	o := Options{Backend: backend}
	for _, fn := range opts {
		fn(&o)
	}
	c, err := New(o)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func discovered(t *testing.T, backend Backend) *Coordinator {
	t.Helper()
	c := newTestCoordinator(t, backend)
	if _, err := c.Discover(context.Background()); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	return c
}

// recordingLogger counts warnings.
type recordingLogger struct {
	mu    sync.Mutex
	warns []string
}

func (l *recordingLogger) Debug(string, ...any) {}
func (l *recordingLogger) Info(string, ...any)  {}
func (l *recordingLogger) Error(string, ...any) {}
func (l *recordingLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func (l *recordingLogger) warnings() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.warns)
}
