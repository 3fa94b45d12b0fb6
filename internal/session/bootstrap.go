package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tama-audit/auditor/internal/common"
	"github.com/tama-audit/auditor/internal/cryptox"
	"github.com/tama-audit/auditor/internal/models"
	"github.com/tama-audit/auditor/internal/store"
)

// EnsureTechnician provisions the reserved technician identity on first run:
// the global technician credential plus its user record. Registration can
// never create a technician, so this is the only creation path. A no-op when
// the credential already exists; the password is never rotated here.
func (m *Manager) EnsureTechnician(ctx context.Context, password []byte) error {
	existing, err := m.store.GetSetting(ctx, common.SettingTechnicianPassword)
	if err != nil {
		return fmt.Errorf("technician credential check: %w", err)
	}
	if existing != nil {
		return nil
	}

	user, err := m.store.GetUserByUsername(ctx, common.TechnicianUsername)
	if err != nil {
		return fmt.Errorf("technician user check: %w", err)
	}

	digest := cryptox.HashCredential(password)

	err = m.store.WithTx(ctx, func(ctx context.Context, tx *store.Tx) error {
		if user == nil {
			tech := &models.User{
				ID:        uuid.NewString(),
				Username:  common.TechnicianUsername,
				Role:      models.RoleTechnician,
				Name:      "Technicien",
				CreatedAt: time.Now().UTC(),
			}
			if err := tx.Users.Create(ctx, tech); err != nil {
				return err
			}
		}
		return tx.Settings.Set(ctx, common.SettingTechnicianPassword, digest)
	})
	if err != nil {
		return fmt.Errorf("technician provisioning: %w", err)
	}

	m.log.Info(ctx, "technician identity provisioned")
	return nil
}
