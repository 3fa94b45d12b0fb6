package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tama-audit/auditor/internal/common"
	"github.com/tama-audit/auditor/internal/models"
)

// The persisted snapshot is a signed token rather than bare JSON so that a
// tampered or truncated value is indistinguishable from "no session". The
// signing key is per-installation and lives next to the snapshot.

const signKeyLen = 32

type snapshotClaims struct {
	jwt.RegisteredClaims
	User *models.User `json:"user"`
}

// ensureSignKey returns the installation signing key, creating it on first use.
func (m *Manager) ensureSignKey(ctx context.Context) ([]byte, error) {
	key, err := m.store.GetSetting(ctx, common.SettingSessionSignKey)
	if err != nil {
		return nil, fmt.Errorf("load sign key: %w", err)
	}
	if len(key) == signKeyLen {
		return key, nil
	}

	key = common.GenerateRandByteArray(signKeyLen)
	if err := m.store.SetSetting(ctx, common.SettingSessionSignKey, key); err != nil {
		return nil, fmt.Errorf("store sign key: %w", err)
	}
	return key, nil
}

// saveSnapshot writes the signed session snapshot for user.
func (m *Manager) saveSnapshot(ctx context.Context, user *models.User) error {
	key, err := m.ensureSignKey(ctx)
	if err != nil {
		return err
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, snapshotClaims{User: user})
	signed, err := token.SignedString(key)
	if err != nil {
		return fmt.Errorf("sign snapshot: %w", err)
	}
	return m.store.SetSetting(ctx, common.SettingSessionUser, []byte(signed))
}

// loadSnapshot returns the snapshot user, or (nil, nil) when no snapshot is
// stored. Verification failures are returned as errors; Initialize swallows
// them and treats them as absence.
func (m *Manager) loadSnapshot(ctx context.Context) (*models.User, error) {
	raw, err := m.store.GetSetting(ctx, common.SettingSessionUser)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	if raw == nil {
		return nil, nil
	}

	key, err := m.store.GetSetting(ctx, common.SettingSessionSignKey)
	if err != nil {
		return nil, fmt.Errorf("load sign key: %w", err)
	}
	if key == nil {
		return nil, errors.New("snapshot present but sign key missing")
	}

	var claims snapshotClaims
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if _, err := parser.ParseWithClaims(string(raw), &claims, func(*jwt.Token) (any, error) {
		return key, nil
	}); err != nil {
		return nil, fmt.Errorf("verify snapshot: %w", err)
	}
	if claims.User == nil {
		return nil, errors.New("snapshot carries no user")
	}
	return claims.User, nil
}
