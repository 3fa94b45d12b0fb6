package users

import (
	"context"

	"github.com/tama-audit/auditor/internal/models"
)

// Repository persists user identity records.
type Repository interface {
	// GetByUsername looks a user up by exact, case-sensitive username.
	// Returns (nil, nil) when no such user exists.
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	// GetByID returns (nil, nil) when no such user exists.
	GetByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, u *models.User) error
	Update(ctx context.Context, u *models.User) error
	List(ctx context.Context) ([]*models.User, error)
}
