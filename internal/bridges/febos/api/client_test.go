package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const testToken = "session-abc"

// newTestServer serves a minimal Febos cloud with one installation.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+pathLogin, func(w http.ResponseWriter, r *http.Request) {
		var creds Credentials
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			http.Error(w, "bad body", http.StatusBadRequest)
			return
		}
		if creds.Username != "user" || creds.Password != "pass" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"token":"` + testToken + `","installationIdList":[1001,"1002"]}`))
	})
	mux.HandleFunc("GET /febos-api/installation/1001/page-config", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(r) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{
			"deviceMap": {"42": {"id": 42, "installationId": 1001, "tenantName": "EmmeTI", "modelName": "Febos Crono", "deviceTypeName": "HEATPUMP"}},
			"thingMap": {"7": {"id": 7, "deviceId": 42, "modelName": "Circuito 1"}},
			"pageMap": {"p1": {"tabList": [{"widgetList": [{"widgetInputGroupList": [
				{"inputGroupGetCode": "G1", "deviceId": 42, "thingId": 7, "inputList": [
					{"code": "R8684", "label": "Potenza", "inputType": "FLOAT", "measUnit": "kW"},
					{"code": "R8200", "label": "Superparametro", "inputType": "INT", "measUnit": null},
					{"code": "R8673", "label": "Presenza", "inputType": "BOOL"}
				]}
			]}]}]}}
		}`))
	})
	mux.HandleFunc("GET /febos-api/installation/1001/device/42/febos-slave", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(r) {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Write([]byte(`[{"indirizzoSlave": 3, "temp": 215, "unknownField": 7}]`))
	})
	mux.HandleFunc("POST /febos-api/installation/1001/realtime-data", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(r) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var req RealtimeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.InputGroupGetCodeList) != 1 {
			http.Error(w, "bad groups", http.StatusBadRequest)
			return
		}
		w.Write([]byte(`[{"deviceId": 42, "thingId": 7, "data": {"R8684": {"i": 1234}, "R8673": {"i": true}}}]`))
	})
	mux.HandleFunc("GET /febos-api/installation/500/page-config", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend exploded", http.StatusInternalServerError)
	})
	mux.HandleFunc("GET /febos-api/installation/600/page-config", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not json`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func authorized(r *http.Request) bool {
	return r.Header.Get("Authorization") == "Bearer "+testToken
}

func newTestClient(t *testing.T, srv *httptest.Server, password string) *Client {
	t.Helper()
	c, err := New(Options{BaseURL: srv.URL + "/", Username: "user", Password: password, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestNew_InvalidBaseURL(t *testing.T) {
	for _, raw := range []string{"", "not a url", "/relative"} {
		if _, err := New(Options{BaseURL: raw}); err == nil {
			t.Errorf("New(%q) expected error", raw)
		}
	}
}

func TestLogin(t *testing.T) {
	srv := newTestServer(t)
	c := newTestClient(t, srv, "pass")

	result, err := c.Login(context.Background())
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	want := []ID{"1001", "1002"}
	if len(result.InstallationIDList) != len(want) {
		t.Fatalf("InstallationIDList = %v, want %v", result.InstallationIDList, want)
	}
	for i := range want {
		if result.InstallationIDList[i] != want[i] {
			t.Errorf("InstallationIDList[%d] = %q, want %q", i, result.InstallationIDList[i], want[i])
		}
	}
	if c.LoggedInAt().IsZero() {
		t.Error("LoggedInAt() is zero after Login()")
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	srv := newTestServer(t)
	c := newTestClient(t, srv, "wrong")

	_, err := c.Login(context.Background())
	if !errors.Is(err, ErrAuthentication) {
		t.Fatalf("Login() error = %v, want %v", err, ErrAuthentication)
	}
}

func TestCallsBeforeLogin(t *testing.T) {
	srv := newTestServer(t)
	c := newTestClient(t, srv, "pass")

	if _, err := c.PageConfig(context.Background(), "1001"); !errors.Is(err, ErrAuthentication) {
		t.Errorf("PageConfig() before Login error = %v, want %v", err, ErrAuthentication)
	}
}

func TestPageConfig(t *testing.T) {
	srv := newTestServer(t)
	c := newTestClient(t, srv, "pass")
	ctx := context.Background()
	if _, err := c.Login(ctx); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	cfg, err := c.PageConfig(ctx, "1001")
	if err != nil {
		t.Fatalf("PageConfig() error = %v", err)
	}

	dev := cfg.DeviceMap["42"]
	if dev.ID != "42" || dev.InstallationID != "1001" || dev.DeviceTypeName != "HEATPUMP" {
		t.Errorf("device = %+v", dev)
	}
	if cfg.ThingMap["7"].DeviceID != "42" {
		t.Errorf("thing.DeviceID = %q, want 42", cfg.ThingMap["7"].DeviceID)
	}

	inputs := cfg.PageMap["p1"].TabList[0].WidgetList[0].WidgetInputGroupList[0].InputList
	if len(inputs) != 3 {
		t.Fatalf("len(inputs) = %d, want 3", len(inputs))
	}

	tests := []struct {
		code        string
		wantPresent bool
		wantNull    bool
		wantValue   string
	}{
		{"R8684", true, false, "kW"},
		{"R8200", true, true, ""},
		{"R8673", false, false, ""},
	}
	for i, tt := range tests {
		u := inputs[i].MeasUnit
		if inputs[i].Code != tt.code {
			t.Fatalf("inputs[%d].Code = %q, want %q", i, inputs[i].Code, tt.code)
		}
		if u.Present != tt.wantPresent || u.Null != tt.wantNull || u.Value != tt.wantValue {
			t.Errorf("%s MeasUnit = %+v, want present=%v null=%v value=%q",
				tt.code, u, tt.wantPresent, tt.wantNull, tt.wantValue)
		}
	}
}

func TestSlaves(t *testing.T) {
	srv := newTestServer(t)
	c := newTestClient(t, srv, "pass")
	ctx := context.Background()
	if _, err := c.Login(ctx); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	slaves, err := c.Slaves(ctx, "1001", "42")
	if err != nil {
		t.Fatalf("Slaves() error = %v", err)
	}
	if len(slaves) != 1 {
		t.Fatalf("len(slaves) = %d, want 1", len(slaves))
	}

	addr, err := slaves[0].Address()
	if err != nil || addr != "3" {
		t.Errorf("Address() = %q, %v; want \"3\", nil", addr, err)
	}

	v, ok, err := slaves[0].Value("temp")
	if err != nil || !ok || v != json.Number("215") {
		t.Errorf("Value(temp) = %v, %v, %v; want 215, true, nil", v, ok, err)
	}
	if _, ok, _ := slaves[0].Value("humid"); ok {
		t.Error("Value(humid) ok = true for absent field")
	}
}

func TestRealtimeData(t *testing.T) {
	srv := newTestServer(t)
	c := newTestClient(t, srv, "pass")
	ctx := context.Background()
	if _, err := c.Login(ctx); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	entries, err := c.RealtimeData(ctx, "1001", []string{"G1"})
	if err != nil {
		t.Fatalf("RealtimeData() error = %v", err)
	}
	if len(entries) != 1 || entries[0].DeviceID != "42" || entries[0].ThingID != "7" {
		t.Fatalf("entries = %+v", entries)
	}

	v, err := entries[0].Data["R8684"].Decode()
	if err != nil || v != json.Number("1234") {
		t.Errorf("R8684 = %v, %v; want 1234", v, err)
	}
	v, err = entries[0].Data["R8673"].Decode()
	if err != nil || v != true {
		t.Errorf("R8673 = %v, %v; want true", v, err)
	}
}

func TestErrorClassification(t *testing.T) {
	srv := newTestServer(t)
	c := newTestClient(t, srv, "pass")
	ctx := context.Background()
	if _, err := c.Login(ctx); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	t.Run("server error is transport", func(t *testing.T) {
		_, err := c.PageConfig(ctx, "500")
		if !errors.Is(err, ErrTransport) || errors.Is(err, ErrAuthentication) {
			t.Errorf("error = %v, want only %v", err, ErrTransport)
		}
	})

	t.Run("bad json is decode within transport", func(t *testing.T) {
		_, err := c.PageConfig(ctx, "600")
		if !errors.Is(err, ErrTransport) || !errors.Is(err, ErrDecode) {
			t.Errorf("error = %v, want %v and %v", err, ErrTransport, ErrDecode)
		}
	})

	t.Run("unreachable host is transport", func(t *testing.T) {
		dead, _ := New(Options{BaseURL: "http://127.0.0.1:1", Username: "u", Password: "p", Timeout: time.Second})
		_, err := dead.Login(ctx)
		if !errors.Is(err, ErrTransport) {
			t.Errorf("error = %v, want %v", err, ErrTransport)
		}
	})

	t.Run("cancelled context is transport", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := c.PageConfig(cctx, "1001")
		if !errors.Is(err, ErrTransport) || !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want %v wrapping context.Canceled", err, ErrTransport)
		}
	})
}

func TestSessionExpiry(t *testing.T) {
	srv := newTestServer(t)
	c := newTestClient(t, srv, "pass")

	c.tokenMu.Lock()
	c.token = "stale"
	c.tokenMu.Unlock()

	_, err := c.Slaves(context.Background(), "1001", "42")
	if !errors.Is(err, ErrAuthentication) {
		t.Errorf("Slaves() with stale token error = %v, want %v", err, ErrAuthentication)
	}
}
