package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"xstar_farm/internal/config"
	"xstar_farm/internal/logbus"
	"xstar_farm/internal/model"
)

func newTestServer(t *testing.T) (*httptest.Server, *logbus.Bus) {
	t.Helper()
	bus := logbus.New(32, false)
	t.Cleanup(bus.Close)
	srv := New(Options{
		Cfg: config.ServerConfig{
			Cors: config.CorsConfig{AllowOrigins: []string{"http://dashboard.local"}},
		},
		Bus: bus,
		State: func() model.CycleState {
			return model.CycleState{Cycle: 7, Outcomes: []model.RunOutcome{{Index: 0, Success: true}}}
		},
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, bus
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestEngineState(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, err := http.Get(ts.URL + "/api/v1/engine/state")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var st model.CycleState
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatal(err)
	}
	if st.Cycle != 7 || len(st.Outcomes) != 1 {
		t.Fatalf("state = %+v", st)
	}
}

func TestLogsReturnRetainedBuffer(t *testing.T) {
	ts, bus := newTestServer(t)
	bus.Log("info", "hello", nil)

	resp, err := http.Get(ts.URL + "/api/v1/logs")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var body struct {
		Logs []logbus.Message `json:"logs"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if len(body.Logs) != 1 {
		t.Fatalf("got %d log messages, want 1", len(body.Logs))
	}
}

func TestStateRejectsPost(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, err := http.Post(ts.URL+"/api/v1/engine/state", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", resp.StatusCode)
	}
}

func TestCorsPreflight(t *testing.T) {
	ts, _ := newTestServer(t)
	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/v1/engine/state", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Origin", "http://dashboard.local")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://dashboard.local" {
		t.Fatalf("allow-origin = %q", got)
	}
}

func TestCorsRejectsUnknownOrigin(t *testing.T) {
	ts, _ := newTestServer(t)
	req, err := http.NewRequest(http.MethodGet, ts.URL+"/health", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Origin", "http://evil.example")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("allow-origin = %q for unknown origin", got)
	}
}
