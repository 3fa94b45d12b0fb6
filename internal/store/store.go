// Package store opens the local database and exposes the record-store
// contract consumed by the session manager: user rows plus keyed settings.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/tama-audit/auditor/internal/dbx"
	"github.com/tama-audit/auditor/internal/migrations"
	"github.com/tama-audit/auditor/internal/models"
	"github.com/tama-audit/auditor/internal/repositories/settings"
	"github.com/tama-audit/auditor/internal/repositories/users"
)

// Store is the durable local record store. All audit-side collaborators and
// the session manager read and write through it; nothing else touches the
// database handle.
type Store struct {
	db       *sql.DB
	users    users.Repository
	settings settings.Repository
}

// RunMigrations applies the embedded goose migrations.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return goose.UpContext(ctx, db, ".")
}

// Open opens (creating if needed) the sqlite database at dsn, applies
// migrations and returns the ready store. The caller imports the sqlite
// driver (blank import of modernc.org/sqlite).
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return New(db), nil
}

// New wraps an already-open database handle. Used by tests that prepare
// schemas by hand.
func New(db *sql.DB) *Store {
	return &Store{
		db:       db,
		users:    users.NewSQLiteRepository(db),
		settings: settings.NewSQLiteRepository(db),
	}
}

func (s *Store) Close() error {
	return s.db.Close()
}

// GetUserByUsername returns (nil, nil) when no such user exists.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.users.GetByUsername(ctx, username)
}

// GetUserByID returns (nil, nil) when no such user exists.
func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	return s.users.Create(ctx, u)
}

func (s *Store) UpdateUser(ctx context.Context, u *models.User) error {
	return s.users.Update(ctx, u)
}

func (s *Store) ListUsers(ctx context.Context) ([]*models.User, error) {
	return s.users.List(ctx)
}

// GetSetting returns (nil, nil) when the key is absent.
func (s *Store) GetSetting(ctx context.Context, key string) ([]byte, error) {
	return s.settings.Get(ctx, key)
}

func (s *Store) SetSetting(ctx context.Context, key string, value []byte) error {
	return s.settings.Set(ctx, key, value)
}

func (s *Store) DeleteSetting(ctx context.Context, key string) error {
	return s.settings.Delete(ctx, key)
}

// Tx is a transaction-bound view of the store.
type Tx struct {
	Users    users.Repository
	Settings settings.Repository
}

// WithTx runs fn inside a single transaction; both repositories in the Tx
// view share it. Used where a user row and its settings must change together
// (registration writes the user and its credential atomically).
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx *Tx) error) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, &Tx{
			Users:    users.NewSQLiteRepository(tx),
			Settings: settings.NewSQLiteRepository(tx),
		})
	})
}
