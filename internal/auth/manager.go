// Package auth decides whether a cached bearer token is still usable or
// must be refreshed through the login endpoint, and persists refreshed
// tokens keyed by session name.
package auth

import (
	"context"
	"fmt"
	"time"

	"xstar_farm/internal/client"
	"xstar_farm/internal/logbus"
)

type Store interface {
	GetToken(ctx context.Context, sessionName string) (string, bool, error)
	UpsertToken(ctx context.Context, sessionName, token string) error
}

type Manager struct {
	store       Store
	client      *client.Client
	log         *logbus.AccountLogger
	sessionName string
	credential  string

	now func() time.Time
}

func NewManager(store Store, c *client.Client, log *logbus.AccountLogger, sessionName, credential string) *Manager {
	return &Manager{
		store:       store,
		client:      c,
		log:         log,
		sessionName: sessionName,
		credential:  credential,
		now:         time.Now,
	}
}

// GetValidToken returns a usable bearer token for the session, logging in
// only when the cached one is absent or expired. The caller must treat an
// error as "skip this account for this cycle"; no login retry happens here
// beyond the executor's own HTTP retry policy.
func (m *Manager) GetValidToken(ctx context.Context) (string, error) {
	cached, ok, err := m.store.GetToken(ctx, m.sessionName)
	if err != nil {
		return "", fmt.Errorf("read token cache: %w", err)
	}
	if ok && !TokenExpired(cached, m.now()) {
		m.log.Success("Using valid token")
		m.client.SetToken(cached)
		return cached, nil
	}

	m.log.Warn("Token not found or expired, logging in...")
	token, err := m.client.Login(ctx, m.credential)
	if err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	if err := m.store.UpsertToken(ctx, m.sessionName, token); err != nil {
		return "", fmt.Errorf("persist token: %w", err)
	}
	m.client.SetToken(token)
	return token, nil
}
