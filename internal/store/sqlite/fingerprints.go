package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"xstar_farm/internal/model"
)

func (s *Store) UpsertFingerprint(ctx context.Context, sessionName string, fp model.Fingerprint) error {
	if sessionName == "" {
		return errors.New("session name is required")
	}
	now := time.Now().UnixMilli()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO fingerprints (session_name, user_agent, platform, device_id, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(session_name) DO UPDATE SET
			user_agent = excluded.user_agent,
			platform = excluded.platform,
			device_id = excluded.device_id,
			updated_at = excluded.updated_at
	`, sessionName, fp.UserAgent, fp.Platform, fp.DeviceID, now)
	return err
}

func (s *Store) GetFingerprint(ctx context.Context, sessionName string) (model.Fingerprint, bool, error) {
	var fp model.Fingerprint
	err := s.db.QueryRowContext(ctx, `
		SELECT user_agent, platform, device_id FROM fingerprints WHERE session_name = ?
	`, sessionName).Scan(&fp.UserAgent, &fp.Platform, &fp.DeviceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Fingerprint{}, false, nil
		}
		return model.Fingerprint{}, false, err
	}
	return fp, true, nil
}
