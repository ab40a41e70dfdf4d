package fingerprint

import (
	"context"
	"strings"
	"sync"
	"testing"

	"xstar_farm/internal/model"
)

type memStore struct {
	mu  sync.Mutex
	fps map[string]model.Fingerprint
}

func newMemStore() *memStore {
	return &memStore{fps: make(map[string]model.Fingerprint)}
}

func (m *memStore) GetFingerprint(_ context.Context, name string) (model.Fingerprint, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fp, ok := m.fps[name]
	return fp, ok, nil
}

func (m *memStore) UpsertFingerprint(_ context.Context, name string, fp model.Fingerprint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fps[name] = fp
	return nil
}

func TestForSessionIsStable(t *testing.T) {
	mgr := NewManager(newMemStore(), 42)
	ctx := context.Background()

	first, err := mgr.ForSession(ctx, "123")
	if err != nil {
		t.Fatalf("ForSession: %v", err)
	}
	if first.UserAgent == "" || first.DeviceID == "" {
		t.Fatalf("incomplete fingerprint: %+v", first)
	}

	second, err := mgr.ForSession(ctx, "123")
	if err != nil {
		t.Fatalf("ForSession again: %v", err)
	}
	if second != first {
		t.Errorf("fingerprint changed between runs: %+v vs %+v", first, second)
	}
}

func TestPlatformFor(t *testing.T) {
	cases := []struct {
		ua   string
		want string
	}{
		{"Mozilla/5.0 (iPhone; CPU iPhone OS 17_5 like Mac OS X)", "ios"},
		{"Mozilla/5.0 (iPad; CPU OS 17_4 like Mac OS X)", "ios"},
		{"Mozilla/5.0 (Linux; Android 14; Pixel 8)", "android"},
		{"Mozilla/5.0 (Windows NT 10.0; Win64; x64)", "Unknown"},
	}
	for _, tc := range cases {
		if got := PlatformFor(tc.ua); got != tc.want {
			t.Errorf("PlatformFor(%q) = %q, want %q", tc.ua, got, tc.want)
		}
	}
}

func TestSecChUAContainsPlatform(t *testing.T) {
	v := SecChUA("android")
	if !strings.Contains(v, `"android WebView";v="127"`) {
		t.Errorf("SecChUA = %q", v)
	}
}
