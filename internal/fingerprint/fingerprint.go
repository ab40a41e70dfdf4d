// Package fingerprint assigns each account a stable simulated device: a
// user agent picked once from the pool, the platform derived from it, and a
// generated device id. A returning account always presents the same device.
package fingerprint

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"github.com/google/uuid"

	"xstar_farm/internal/model"
)

var userAgents = []string{
	"Mozilla/5.0 (iPhone; CPU iPhone OS 17_5 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.5 Mobile/15E148 Safari/604.1",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 16_6 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.6 Mobile/15E148 Safari/604.1",
	"Mozilla/5.0 (iPad; CPU OS 17_4 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Mobile/15E148 Safari/604.1",
	"Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/127.0.6533.64 Mobile Safari/537.36",
	"Mozilla/5.0 (Linux; Android 13; SM-G991B) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.6478.122 Mobile Safari/537.36",
	"Mozilla/5.0 (Linux; Android 14; SM-S918B) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/127.0.6533.64 Mobile Safari/537.36",
	"Mozilla/5.0 (Linux; Android 12; Redmi Note 11) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.6422.165 Mobile Safari/537.36",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 17_4_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) CriOS/126.0.6478.153 Mobile/15E148 Safari/604.1",
}

// Store is the persistence needed by the manager; satisfied by the sqlite
// store.
type Store interface {
	GetFingerprint(ctx context.Context, sessionName string) (model.Fingerprint, bool, error)
	UpsertFingerprint(ctx context.Context, sessionName string, fp model.Fingerprint) error
}

type Manager struct {
	store Store

	mu   sync.Mutex
	rand *rand.Rand
}

func NewManager(store Store, seed int64) *Manager {
	return &Manager{
		store: store,
		rand:  rand.New(rand.NewSource(seed)),
	}
}

// ForSession returns the session's fingerprint, creating and persisting one
// on first sight.
func (m *Manager) ForSession(ctx context.Context, sessionName string) (model.Fingerprint, error) {
	fp, ok, err := m.store.GetFingerprint(ctx, sessionName)
	if err != nil {
		return model.Fingerprint{}, err
	}
	if ok && fp.UserAgent != "" {
		if fp.Platform == "" {
			fp.Platform = PlatformFor(fp.UserAgent)
		}
		return fp, nil
	}

	m.mu.Lock()
	ua := userAgents[m.rand.Intn(len(userAgents))]
	m.mu.Unlock()

	fp = model.Fingerprint{
		UserAgent: ua,
		Platform:  PlatformFor(ua),
		DeviceID:  uuid.NewString(),
	}
	if err := m.store.UpsertFingerprint(ctx, sessionName, fp); err != nil {
		return model.Fingerprint{}, err
	}
	return fp, nil
}

// PlatformFor maps a user agent onto the platform value presented in
// sec-ch-ua-platform.
func PlatformFor(ua string) string {
	s := strings.ToLower(ua)
	switch {
	case strings.Contains(s, "iphone"), strings.Contains(s, "ipad"):
		return "ios"
	case strings.Contains(s, "android"):
		return "android"
	default:
		return "Unknown"
	}
}

// SecChUA composes the client-hints brand list for a platform.
func SecChUA(platform string) string {
	return fmt.Sprintf(`"Not)A;Brand";v="99", "%s WebView";v="127", "Chromium";v="127"`, platform)
}
