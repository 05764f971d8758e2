package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vbonduro/vistoria/internal/domain"
)

const (
	profileKey  = "profile"
	settingsKey = "settings"
)

// SettingsStore keeps the author profile and the application settings as
// JSON documents in a key/value table.
type SettingsStore struct {
	db DBTX
}

func NewSettingsStore(db DBTX) *SettingsStore {
	return &SettingsStore{db: db}
}

// GetProfile returns the saved profile, or nil if none was saved.
func (s *SettingsStore) GetProfile(ctx context.Context) (*domain.Profile, error) {
	var p domain.Profile
	found, err := s.get(ctx, profileKey, &p)
	if err != nil || !found {
		return nil, err
	}
	return &p, nil
}

func (s *SettingsStore) SaveProfile(ctx context.Context, p domain.Profile) error {
	return s.put(ctx, profileKey, p)
}

// GetSettings returns the saved settings, or the defaults when none were
// saved. Fields missing from an older document keep their default.
func (s *SettingsStore) GetSettings(ctx context.Context) (domain.Settings, error) {
	settings := domain.DefaultSettings()
	if _, err := s.get(ctx, settingsKey, &settings); err != nil {
		return domain.DefaultSettings(), err
	}
	return settings, nil
}

func (s *SettingsStore) SaveSettings(ctx context.Context, settings domain.Settings) error {
	return s.put(ctx, settingsKey, settings)
}

func (s *SettingsStore) DeleteAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM settings`); err != nil {
		return fmt.Errorf("failed to delete settings: %w", err)
	}
	return nil
}

func (s *SettingsStore) get(ctx context.Context, key string, v any) (bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `
		SELECT value FROM settings WHERE key = ?
	`, key).Scan(&raw)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get %s: %w", key, err)
	}

	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

func (s *SettingsStore) put(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, string(raw), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}
