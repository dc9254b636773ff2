package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/emeghara/dialctl/internal/call"
	"github.com/emeghara/dialctl/internal/callapi"
	"github.com/emeghara/dialctl/internal/config"
	"github.com/emeghara/dialctl/internal/leads"
)

type fakeController struct {
	startErr error
	stopErr  error
	snapshot call.Snapshot
	started  []string
	stopped  int
}

func (f *fakeController) StartCall(_ context.Context, target string) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.started = append(f.started, target)
	f.snapshot = call.Snapshot{State: call.StateActive, ConnectionID: "conn-abc", TargetNumber: target}
	return nil
}

func (f *fakeController) StopCall(context.Context) error {
	f.stopped++
	if errors.Is(f.stopErr, call.ErrNoActiveCall) {
		return f.stopErr
	}
	f.snapshot = call.Snapshot{State: call.StateIdle}
	return f.stopErr
}

func (f *fakeController) Status() call.Snapshot { return f.snapshot }

type fakeRemote struct {
	err error
}

func (f *fakeRemote) Health(context.Context) error { return f.err }

func newTestServer(t *testing.T, controller CallController, remote RemoteHealth) (*Server, *EventHub) {
	t.Helper()
	cfg := config.Config{BindAddr: ":0", AllowAnyOrigin: true}
	hub := NewEventHub()
	return New(cfg, controller, remote, leads.NewInMemoryStore(), hub), hub
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t, &fakeController{snapshot: call.Snapshot{State: call.StateIdle}}, &fakeRemote{})
	rec := doJSON(t, srv.Router(), http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "idle") {
		t.Fatalf("healthz body = %q, want call state included", rec.Body.String())
	}
}

func TestReadyzReflectsRemoteHealth(t *testing.T) {
	srv, _ := newTestServer(t, &fakeController{}, &fakeRemote{})
	rec := doJSON(t, srv.Router(), http.MethodGet, "/readyz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("readyz status = %d, want 200", rec.Code)
	}

	srv, _ = newTestServer(t, &fakeController{}, &fakeRemote{err: errors.New("down")})
	rec = doJSON(t, srv.Router(), http.MethodGet, "/readyz", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz status = %d, want 503 when the call service is down", rec.Code)
	}
}

func TestStartCallEndpoint(t *testing.T) {
	ctl := &fakeController{}
	srv, _ := newTestServer(t, ctl, &fakeRemote{})

	rec := doJSON(t, srv.Router(), http.MethodPost, "/v1/call/start", map[string]string{"to": "+15551234567"})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("start status = %d, want 202: %s", rec.Code, rec.Body.String())
	}

	var snap call.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if snap.State != call.StateActive || snap.ConnectionID != "conn-abc" {
		t.Fatalf("snapshot = %+v, want active session", snap)
	}
	if len(ctl.started) != 1 || ctl.started[0] != "+15551234567" {
		t.Fatalf("controller started = %v", ctl.started)
	}
}

func TestStartCallEndpointErrorMapping(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"validation", &call.ValidationError{Field: "target number", Reason: "must not be empty"}, http.StatusBadRequest},
		{"in progress", call.ErrCallInProgress, http.StatusConflict},
		{"remote", &callapi.RemoteError{Status: 500, Body: "boom"}, http.StatusBadGateway},
		{"network", &callapi.NetworkError{Op: "post", Err: errors.New("refused")}, http.StatusBadGateway},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv, _ := newTestServer(t, &fakeController{startErr: tc.err}, &fakeRemote{})
			rec := doJSON(t, srv.Router(), http.MethodPost, "/v1/call/start", map[string]string{"to": "x"})
			if rec.Code != tc.wantCode {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tc.wantCode, rec.Body.String())
			}
		})
	}
}

func TestStopCallEndpoint(t *testing.T) {
	ctl := &fakeController{snapshot: call.Snapshot{State: call.StateActive, ConnectionID: "conn-abc"}}
	srv, _ := newTestServer(t, ctl, &fakeRemote{})

	rec := doJSON(t, srv.Router(), http.MethodPost, "/v1/call/stop", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("stop status = %d, want 200", rec.Code)
	}
	if ctl.stopped != 1 {
		t.Fatalf("controller stopped %d times, want 1", ctl.stopped)
	}
}

func TestStopCallEndpointWarnsButSucceeds(t *testing.T) {
	ctl := &fakeController{
		snapshot: call.Snapshot{State: call.StateActive, ConnectionID: "conn-abc"},
		stopErr:  errors.New("remote hangup failed: status 404"),
	}
	srv, _ := newTestServer(t, ctl, &fakeRemote{})

	rec := doJSON(t, srv.Router(), http.MethodPost, "/v1/call/stop", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("stop status = %d, want 200 even when the remote hangup failed", rec.Code)
	}

	var res stopCallResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if res.Warning == "" {
		t.Fatalf("response carries no warning: %s", rec.Body.String())
	}
	if res.State != call.StateIdle {
		t.Fatalf("state = %q, want idle", res.State)
	}
}

func TestStopCallEndpointNoActiveCall(t *testing.T) {
	srv, _ := newTestServer(t, &fakeController{stopErr: call.ErrNoActiveCall}, &fakeRemote{})
	rec := doJSON(t, srv.Router(), http.MethodPost, "/v1/call/stop", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("stop status = %d, want 409", rec.Code)
	}
}

func TestCallStatusIncludesHubState(t *testing.T) {
	ctl := &fakeController{snapshot: call.Snapshot{State: call.StateActive, ConnectionID: "conn-abc"}}
	srv, hub := newTestServer(t, ctl, &fakeRemote{})
	hub.StatusChanged("connected")
	hub.TranscriptUpdated([]string{"hello"})

	rec := doJSON(t, srv.Router(), http.MethodGet, "/v1/call/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status endpoint = %d, want 200", rec.Code)
	}

	var res callStatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if res.StatusText != "connected" {
		t.Fatalf("status_text = %q, want connected", res.StatusText)
	}
	if len(res.Transcript) != 1 || res.Transcript[0] != "hello" {
		t.Fatalf("transcript = %v, want [hello]", res.Transcript)
	}
}

func TestLeadEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, &fakeController{}, &fakeRemote{})
	router := srv.Router()

	rec := doJSON(t, router, http.MethodPost, "/v1/leads", map[string]string{
		"name":  "Ada Lovelace",
		"phone": "+15551234567",
		"notes": "asked for a callback",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create lead status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodPost, "/v1/leads", map[string]string{"phone": "+15551234567"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("create lead without name = %d, want 400", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/v1/leads", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list leads status = %d, want 200", rec.Code)
	}
	var res struct {
		Leads []leads.Lead `json:"leads"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(res.Leads) != 1 || res.Leads[0].Name != "Ada Lovelace" {
		t.Fatalf("leads = %+v, want the saved lead", res.Leads)
	}
}

func TestCallWSStreamsEvents(t *testing.T) {
	ctl := &fakeController{snapshot: call.Snapshot{State: call.StateIdle}}
	srv, hub := newTestServer(t, ctl, &fakeRemote{})

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/call/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("ws dial: %v", err)
	}
	defer conn.Close()

	// Catch-up event with the current status arrives first.
	var evt Event
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&evt); err != nil {
		t.Fatalf("read catchup event: %v", err)
	}
	if evt.Type != "status" || evt.Status != "idle" {
		t.Fatalf("catchup event = %+v, want the idle status", evt)
	}

	hub.TranscriptUpdated([]string{"hello"})
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&evt); err != nil {
		t.Fatalf("read live event: %v", err)
	}
	if evt.Type != "transcript" || len(evt.Transcript) != 1 || evt.Transcript[0] != "hello" {
		t.Fatalf("live event = %+v, want the transcript update", evt)
	}
}
