package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"xstar_farm/internal/client"
	"xstar_farm/internal/logbus"
	"xstar_farm/internal/model"
)

type memStore struct {
	mu     sync.Mutex
	tokens map[string]string
}

func newMemStore() *memStore { return &memStore{tokens: make(map[string]string)} }

func (m *memStore) GetToken(_ context.Context, name string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tok, ok := m.tokens[name]
	return tok, ok, nil
}

func (m *memStore) UpsertToken(_ context.Context, name, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[name] = token
	return nil
}

func makeJWT(t *testing.T, exp time.Time) string {
	t.Helper()
	payload, err := json.Marshal(map[string]any{"exp": exp.Unix()})
	if err != nil {
		t.Fatal(err)
	}
	enc := base64.RawURLEncoding
	return enc.EncodeToString([]byte(`{"alg":"HS256"}`)) + "." + enc.EncodeToString(payload) + ".sig"
}

func newTestManager(t *testing.T, store Store, loginCalls *atomic.Int64, issued string) *Manager {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/login" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		loginCalls.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]string{"jwt": "Bearer " + issued}})
	}))
	t.Cleanup(srv.Close)

	bus := logbus.New(32, false)
	t.Cleanup(bus.Close)
	log := logbus.NewAccountLogger(bus, 0)
	c := client.New(client.Options{
		BaseURL:     srv.URL,
		GameBaseURL: srv.URL,
		RetryWait:   time.Millisecond,
		Fingerprint: model.Fingerprint{UserAgent: "ua", Platform: "ios"},
		Log:         log,
		Fatal:       func() { t.Fatal("fatal hook fired") },
	})
	return NewManager(store, c, log, "123", "raw-credential")
}

func TestTokenReuseSkipsLogin(t *testing.T) {
	store := newMemStore()
	valid := makeJWT(t, time.Now().Add(time.Hour))
	store.tokens["123"] = valid

	var loginCalls atomic.Int64
	m := newTestManager(t, store, &loginCalls, "unused")

	got, err := m.GetValidToken(context.Background())
	if err != nil {
		t.Fatalf("GetValidToken: %v", err)
	}
	if got != valid {
		t.Errorf("token = %q, want the cached one", got)
	}
	if loginCalls.Load() != 0 {
		t.Errorf("login was called %d times for a valid cached token", loginCalls.Load())
	}
}

func TestExpiredTokenTriggersSingleLogin(t *testing.T) {
	store := newMemStore()
	store.tokens["123"] = makeJWT(t, time.Now().Add(-time.Hour))

	fresh := makeJWT(t, time.Now().Add(time.Hour))
	var loginCalls atomic.Int64
	m := newTestManager(t, store, &loginCalls, fresh)

	got, err := m.GetValidToken(context.Background())
	if err != nil {
		t.Fatalf("GetValidToken: %v", err)
	}
	if got != fresh {
		t.Errorf("token = %q, want the freshly issued one", got)
	}
	if loginCalls.Load() != 1 {
		t.Errorf("login calls = %d, want exactly 1", loginCalls.Load())
	}
	if store.tokens["123"] != fresh {
		t.Errorf("cache = %q, refreshed token must fully replace the old one", store.tokens["123"])
	}
}

func TestMissingTokenTriggersLogin(t *testing.T) {
	store := newMemStore()
	fresh := makeJWT(t, time.Now().Add(time.Hour))
	var loginCalls atomic.Int64
	m := newTestManager(t, store, &loginCalls, fresh)

	got, err := m.GetValidToken(context.Background())
	if err != nil {
		t.Fatalf("GetValidToken: %v", err)
	}
	if got != fresh || loginCalls.Load() != 1 {
		t.Errorf("token = %q, login calls = %d", got, loginCalls.Load())
	}
}

func TestLoginFailureSurfacesError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	bus := logbus.New(32, false)
	defer bus.Close()
	log := logbus.NewAccountLogger(bus, 0)
	c := client.New(client.Options{BaseURL: srv.URL, RetryWait: time.Millisecond, Log: log})
	m := NewManager(newMemStore(), c, log, "123", "raw")

	if _, err := m.GetValidToken(context.Background()); err == nil {
		t.Error("GetValidToken succeeded against a failing login endpoint")
	}
}

func TestTokenExpired(t *testing.T) {
	now := time.Now()
	cases := []struct {
		name  string
		token string
		want  bool
	}{
		{"empty", "", true},
		{"garbage", "not-a-jwt", true},
		{"bad payload", "a.!!!.c", true},
		{"no exp", "a." + base64.RawURLEncoding.EncodeToString([]byte(`{}`)) + ".c", true},
		{"future", makeJWT(t, now.Add(time.Hour)), false},
		{"past", makeJWT(t, now.Add(-time.Minute)), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := TokenExpired(tc.token, now); got != tc.want {
				t.Errorf("TokenExpired(%s) = %v, want %v", tc.name, got, tc.want)
			}
		})
	}
}
