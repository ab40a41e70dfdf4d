package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// UpsertToken replaces the cached token for a session name. A refreshed
// token fully overwrites the previous one.
func (s *Store) UpsertToken(ctx context.Context, sessionName, token string) error {
	if sessionName == "" {
		return errors.New("session name is required")
	}
	now := time.Now().UnixMilli()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tokens (session_name, token, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(session_name) DO UPDATE SET
			token = excluded.token,
			updated_at = excluded.updated_at
	`, sessionName, token, now)
	return err
}

// GetToken returns the cached token for a session name. A missing entry is
// not an error.
func (s *Store) GetToken(ctx context.Context, sessionName string) (string, bool, error) {
	var token string
	err := s.db.QueryRowContext(ctx, `
		SELECT token FROM tokens WHERE session_name = ?
	`, sessionName).Scan(&token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return token, true, nil
}
