package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"

	"github.com/focus-dev/focus/internal/config"
	"github.com/focus-dev/focus/pkg/snapshot"
)

func testConfig() *config.Config {
	cfg := config.New()
	cfg.Stores = []config.StoreConfig{
		{Identifier: "users", Properties: []string{"user", "roles"}, Values: map[string]any{"roles": []any{"admin"}}},
		{Identifier: "refs", Properties: []string{"countries"}},
	}
	cfg.Components = []config.ComponentConfig{{
		Name: "detail",
		Subscriptions: []config.SubscriptionConfig{
			{Store: "users", Properties: []string{"user", "roles"}},
			{Store: "refs", Properties: []string{"countries"}},
		},
		ReferenceNames:      []string{"countries"},
		Shape:               []string{"name", "email"},
		UseDefaultStoreData: true,
	}}
	return cfg
}

func newTestServer(t *testing.T, opts ...Option) *Server {
	t.Helper()
	s, err := New(testConfig(), opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { s.Workspace().Unmount() })
	return s
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) any {
	t.Helper()
	var v any
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestListStoresAndComponents(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/stores", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /stores status = %d, want 200", rec.Code)
	}
	want := []any{
		map[string]any{"identifier": "users", "properties": []any{"roles", "user"}},
		map[string]any{"identifier": "refs", "properties": []any{"countries"}},
	}
	if diff := cmp.Diff(want, decode(t, rec)); diff != "" {
		t.Errorf("GET /stores mismatch (-want +got):\n%s", diff)
	}

	rec = do(t, s, http.MethodGet, "/components", "")
	if diff := cmp.Diff([]any{"detail"}, decode(t, rec)); diff != "" {
		t.Errorf("GET /components mismatch (-want +got):\n%s", diff)
	}
}

func TestDerivedStateRoutes(t *testing.T) {
	s := newTestServer(t)

	if rec := do(t, s, http.MethodPut, "/stores/users/user", `{"name":"Ada"}`); rec.Code != http.StatusNoContent {
		t.Fatalf("PUT value status = %d, want 204 (%s)", rec.Code, rec.Body)
	}

	tests := []struct {
		name string
		path string
		want map[string]any
	}{
		{
			name: "unfiltered with defaults",
			path: "/components/detail/state",
			want: map[string]any{
				"reference": map[string]any{"countries": nil},
				"name":      "Ada",
				"email":     nil,
				"roles":     []any{"admin"},
				"isLoading": false,
			},
		},
		{
			name: "filtered",
			path: "/components/detail/state?only=roles",
			want: map[string]any{
				"reference": map[string]any{"countries": nil},
				"roles":     []any{"admin"},
				"isLoading": false,
			},
		},
		{
			name: "empty filter keeps references",
			path: "/components/detail/state?only=",
			want: map[string]any{
				"reference": map[string]any{"countries": nil},
				"isLoading": false,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodGet, tt.path, "")
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			if diff := cmp.Diff(any(tt.want), decode(t, rec)); diff != "" {
				t.Errorf("state mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStatusAndErrorRoutes(t *testing.T) {
	s := newTestServer(t)

	if rec := do(t, s, http.MethodPut, "/stores/users/user/status", `{"name":"fetching","isLoading":true}`); rec.Code != http.StatusNoContent {
		t.Fatalf("PUT status = %d, want 204", rec.Code)
	}
	b, _ := s.Workspace().Component("detail")
	if !b.State().IsLoading() {
		t.Error("published state isLoading = false, want true")
	}

	if rec := do(t, s, http.MethodPut, "/stores/users/user/error", `{"message":"boom"}`); rec.Code != http.StatusNoContent {
		t.Fatalf("PUT error = %d, want 204", rec.Code)
	}
	rec := do(t, s, http.MethodGet, "/components/detail/errors", "")
	if diff := cmp.Diff(any(map[string]any{"user.message": "boom"}), decode(t, rec)); diff != "" {
		t.Errorf("errors mismatch (-want +got):\n%s", diff)
	}

	do(t, s, http.MethodPut, "/stores/users/user/error", `null`)
	rec = do(t, s, http.MethodGet, "/components/detail/errors", "")
	if diff := cmp.Diff(any(map[string]any{}), decode(t, rec)); diff != "" {
		t.Errorf("cleared errors mismatch (-want +got):\n%s", diff)
	}

	rec = do(t, s, http.MethodGet, "/stores/users", "")
	got := decode(t, rec).(map[string]any)
	status := got["status"].(map[string]any)["user"]
	if diff := cmp.Diff(any(map[string]any{"name": "fetching", "isLoading": true}), status); diff != "" {
		t.Errorf("store status mismatch (-want +got):\n%s", diff)
	}
}

func TestErrorResponses(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name     string
		method   string
		path     string
		body     string
		wantCode int
		wantErr  string
	}{
		{"unknown store", http.MethodGet, "/stores/nope", "", http.StatusNotFound, "F004"},
		{"unknown property", http.MethodPut, "/stores/users/age", `1`, http.StatusUnprocessableEntity, "F002"},
		{"bad body", http.MethodPut, "/stores/users/user", `{`, http.StatusBadRequest, "F005"},
		{"unknown component", http.MethodGet, "/components/nope/state", "", http.StatusNotFound, "F003"},
		{"unknown component errors", http.MethodGet, "/components/nope/errors", "", http.StatusNotFound, "F003"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, tt.method, tt.path, tt.body)
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			got := decode(t, rec).(map[string]any)
			if got["code"] != tt.wantErr {
				t.Errorf("code = %v, want %s", got["code"], tt.wantErr)
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /metrics status = %d, want 200", rec.Code)
	}
	for _, want := range []string{
		`focus_active_subscriptions{store="users"} 2`,
		`focus_active_subscriptions{store="refs"} 1`,
		"focus_derive_duration_seconds",
	} {
		if !strings.Contains(rec.Body.String(), want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestMetricsDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Server.MetricsPath = "-"
	s, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Workspace().Unmount()

	if rec := do(t, s, http.MethodGet, "/metrics", ""); rec.Code != http.StatusNotFound {
		t.Errorf("GET /metrics status = %d, want 404", rec.Code)
	}
}

func TestSnapshotRoutes(t *testing.T) {
	backend := snapshot.NewFileBackend(t.TempDir())
	s := newTestServer(t, WithSnapshotBackend(backend))

	do(t, s, http.MethodPut, "/stores/users/user", `{"name":"Ada"}`)
	rec := do(t, s, http.MethodPost, "/snapshots", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /snapshots status = %d, want 201 (%s)", rec.Code, rec.Body)
	}
	saved := decode(t, rec).(map[string]any)
	if name, _ := saved["name"].(string); !strings.HasSuffix(name, ".json") {
		t.Errorf("snapshot name = %q, want .json suffix", name)
	}

	do(t, s, http.MethodPut, "/stores/users/user", `{"name":"Grace"}`)
	if rec := do(t, s, http.MethodPost, "/snapshots/latest/restore", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("restore status = %d, want 204 (%s)", rec.Code, rec.Body)
	}

	b, _ := s.Workspace().Component("detail")
	if got := b.State()["name"]; got != "Ada" {
		t.Errorf("restored name = %v, want Ada", got)
	}

	if rec := do(t, s, http.MethodPost, "/snapshots/missing.json/restore", ""); rec.Code != http.StatusBadGateway {
		t.Errorf("restore missing status = %d, want 502", rec.Code)
	}
}

func TestSnapshotRoutesDisabled(t *testing.T) {
	s := newTestServer(t)
	if rec := do(t, s, http.MethodPost, "/snapshots", ""); rec.Code != http.StatusNotFound && rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /snapshots status = %d, want 404 or 405", rec.Code)
	}
}

func TestRestoreOnStart(t *testing.T) {
	backend := snapshot.NewFileBackend(t.TempDir())
	snap := &snapshot.Snapshot{Stores: map[string]snapshot.StoreSnapshot{
		"users": {Values: map[string]any{"user": map[string]any{"name": "Ada"}}},
	}}
	if _, err := snapshot.Save(context.Background(), backend, snap); err != nil {
		t.Fatal(err)
	}

	cfg := testConfig()
	cfg.Snapshot.Restore = "latest"
	s, err := New(cfg, WithSnapshotBackend(backend))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer s.Workspace().Unmount()

	b, _ := s.Workspace().Component("detail")
	if got := b.State()["name"]; got != "Ada" {
		t.Errorf("initial name = %v, want Ada", got)
	}
}

func TestNewUnknownStore(t *testing.T) {
	cfg := testConfig()
	cfg.Components[0].Subscriptions[0].Store = "ghost"
	if _, err := New(cfg); err == nil {
		t.Fatal("New() error = nil, want F004")
	}
}

func TestLiveStream(t *testing.T) {
	s := newTestServer(t)
	ts := httptest.NewServer(s)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/components/detail/live"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial(%q) failed: %v", url, err)
	}
	defer conn.Close()

	read := func() Message {
		t.Helper()
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("ReadJSON() error = %v", err)
		}
		return msg
	}

	if msg := read(); msg.Type != messageState || msg.Component != "detail" {
		t.Errorf("first message = %+v, want detail state", msg)
	}
	if msg := read(); msg.Type != messageErrors {
		t.Errorf("second message type = %q, want errors", msg.Type)
	}

	req, _ := http.NewRequest(http.MethodPut, ts.URL+"/stores/users/user", bytes.NewReader([]byte(`{"name":"Ada"}`)))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	msg := read()
	if msg.Type != messageState {
		t.Fatalf("message type = %q, want state", msg.Type)
	}
	if got := msg.State["name"]; got != "Ada" {
		t.Errorf("live name = %v, want Ada", got)
	}

	if n := s.hubs["detail"].count(); n != 1 {
		t.Errorf("hub clients = %d, want 1", n)
	}
}

func TestLiveUnknownComponent(t *testing.T) {
	s := newTestServer(t)
	if rec := do(t, s, http.MethodGet, "/components/nope/live", ""); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestShutdownClosesLiveClients(t *testing.T) {
	s := newTestServer(t)
	ts := httptest.NewServer(s)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/components/detail/live"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial(%q) failed: %v", url, err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err != nil {
		t.Fatal(err)
	}

	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if n := s.hubs["detail"].count(); n != 0 {
		t.Errorf("hub clients after shutdown = %d, want 0", n)
	}
	b, _ := s.Workspace().Component("detail")
	if b.Mounted() {
		t.Error("component still mounted after Shutdown")
	}
}

func TestLiveRefusedAfterShutdown(t *testing.T) {
	s := newTestServer(t)
	ts := httptest.NewServer(s)
	defer ts.Close()

	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/components/detail/live"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial(%q) failed: %v", url, err)
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("ReadMessage() error = nil, want closed connection")
	}
	if n := s.hubs["detail"].count(); n != 0 {
		t.Errorf("hub clients = %d, want 0", n)
	}
}
