// Package session implements the single process-wide authority over who is
// logged in: credential verification against the local record store, the
// session state machine, and state-change notification to subscribers.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tama-audit/auditor/internal/common"
	"github.com/tama-audit/auditor/internal/cryptox"
	"github.com/tama-audit/auditor/internal/logging"
	"github.com/tama-audit/auditor/internal/models"
	"github.com/tama-audit/auditor/internal/store"
)

// Store is the record-store contract the manager consumes.
type Store interface {
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	CreateUser(ctx context.Context, u *models.User) error
	UpdateUser(ctx context.Context, u *models.User) error
	GetSetting(ctx context.Context, key string) ([]byte, error)
	SetSetting(ctx context.Context, key string, value []byte) error
	DeleteSetting(ctx context.Context, key string) error
	WithTx(ctx context.Context, fn func(ctx context.Context, tx *store.Tx) error) error
}

// Result is the outcome of a session operation. The manager never returns a
// raw unexpected error across its boundary: Err is always nil or one of the
// sentinels in internal/common, and Message is suitable for direct display.
type Result struct {
	Success bool
	Err     error
	Message string
}

func ok() Result {
	return Result{Success: true}
}

func failure(err error, message string) Result {
	return Result{Err: err, Message: message}
}

// User-facing messages, kept verbatim from the shipped (French) UI.
const (
	msgTechnicianPassword = "Mot de passe technicien incorrect"
	msgUserNotFound       = "Utilisateur non trouvé"
	msgWrongPassword      = "Mot de passe incorrect"
	msgConnection         = "Erreur de connexion"
	msgDuplicateUsername  = "Nom d'utilisateur déjà utilisé"
	msgRegisterFailed     = "Erreur lors de la création du compte"
)

// Listener receives session state snapshots.
type Listener func(models.SessionState)

type subscriber struct {
	id int
	fn Listener
}

// Manager owns the session state. Construct one per process with New and
// share it by reference; all mutating operations are serialized internally,
// so concurrent callers see strictly ordered transitions.
type Manager struct {
	store Store
	log   logging.Logger

	opMu sync.Mutex // serializes Initialize/Login/Register/Logout

	stateMu sync.RWMutex
	state   models.SessionState

	initOnce sync.Once

	subMu  sync.Mutex
	subs   []subscriber
	nextID int
}

// New returns a manager in the loading state. Call Initialize before
// exposing it to subscribers.
func New(st Store, log logging.Logger) *Manager {
	return &Manager{
		store: st,
		log:   log.With("component", "session"),
		state: models.SessionState{IsLoading: true},
	}
}

// Subscribe registers a listener for state changes and returns its
// unsubscribe function. Listeners are invoked synchronously, in subscription
// order, with a copy of the state.
func (m *Manager) Subscribe(l Listener) func() {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	m.nextID++
	id := m.nextID
	m.subs = append(m.subs, subscriber{id: id, fn: l})

	return func() {
		m.subMu.Lock()
		defer m.subMu.Unlock()
		for i, s := range m.subs {
			if s.id == id {
				m.subs = append(m.subs[:i], m.subs[i+1:]...)
				return
			}
		}
	}
}

// GetState returns a copy of the current session state.
func (m *Manager) GetState() models.SessionState {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	return m.state.Clone()
}

// CurrentUser returns the authenticated user, or nil.
func (m *Manager) CurrentUser() *models.User {
	return m.GetState().User
}

// IsAuthenticated reports whether a user is logged in.
func (m *Manager) IsAuthenticated() bool {
	return m.GetState().IsAuthenticated
}

// IsTechnician reports whether the current user holds the technician role.
func (m *Manager) IsTechnician() bool {
	u := m.CurrentUser()
	return u != nil && u.Role == models.RoleTechnician
}

func (m *Manager) setState(st models.SessionState) {
	m.stateMu.Lock()
	m.state = st
	m.stateMu.Unlock()
}

func (m *Manager) notify() {
	st := m.GetState()

	m.subMu.Lock()
	subs := make([]subscriber, len(m.subs))
	copy(subs, m.subs)
	m.subMu.Unlock()

	for _, s := range subs {
		s.fn(st.Clone())
	}
}

// Initialize restores the session from the persisted snapshot. Absence,
// corruption and store faults are all swallowed and resolve to the
// signed-out state. Exactly one initialization runs per manager; repeat
// calls return the current state without side effects.
func (m *Manager) Initialize(ctx context.Context) models.SessionState {
	m.initOnce.Do(func() {
		m.opMu.Lock()
		defer m.opMu.Unlock()

		user, err := m.loadSnapshot(ctx)
		if err != nil {
			m.log.Warn(ctx, "session snapshot unreadable, starting signed out", "error", err)
			user = nil
		}

		m.setState(models.SessionState{
			User:            user,
			IsAuthenticated: user != nil,
			IsLoading:       false,
		})
		m.notify()
	})
	return m.GetState()
}

// Login authenticates the submitted credentials. Subscribers first observe
// the loading announcement, then exactly one terminal notification carrying
// the final state, whatever the outcome.
func (m *Manager) Login(ctx context.Context, creds models.LoginCredentials) (res Result) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	loading := m.GetState()
	loading.IsLoading = true
	m.setState(loading)
	m.notify()

	defer func() {
		if r := recover(); r != nil {
			m.log.Error(ctx, "panic during login", "panic", fmt.Sprint(r))
			res = failure(common.ErrConnection, msgConnection)
		}
		final := m.GetState()
		final.IsLoading = false
		m.setState(final)
		m.notify()
	}()

	if creds.Username == common.TechnicianUsername {
		return m.technicianLogin(ctx, creds.Password)
	}
	return m.standardLogin(ctx, creds)
}

// technicianLogin verifies the submitted secret against the single global
// technician credential, then loads the technician user record. A correct
// secret with no technician record still fails with an invalid-credential
// result: a null-user session must never become authenticated.
func (m *Manager) technicianLogin(ctx context.Context, password []byte) Result {
	digest, err := m.store.GetSetting(ctx, common.SettingTechnicianPassword)
	if err != nil {
		m.log.Error(ctx, "technician credential lookup failed", "error", err)
		return failure(common.ErrConnection, msgConnection)
	}
	if digest == nil || !cryptox.VerifyCredential(password, digest) {
		return failure(common.ErrInvalidCredential, msgTechnicianPassword)
	}

	user, err := m.store.GetUserByUsername(ctx, common.TechnicianUsername)
	if err != nil {
		m.log.Error(ctx, "technician user lookup failed", "error", err)
		return failure(common.ErrConnection, msgConnection)
	}
	if user == nil {
		m.log.Warn(ctx, "technician credential matched but user record is missing")
		return failure(common.ErrInvalidCredential, msgTechnicianPassword)
	}

	return m.authenticate(ctx, user)
}

func (m *Manager) standardLogin(ctx context.Context, creds models.LoginCredentials) Result {
	user, err := m.store.GetUserByUsername(ctx, creds.Username)
	if err != nil {
		m.log.Error(ctx, "user lookup failed", "username", creds.Username, "error", err)
		return failure(common.ErrConnection, msgConnection)
	}
	if user == nil {
		return failure(common.ErrUserNotFound, msgUserNotFound)
	}

	digest, err := m.store.GetSetting(ctx, common.SettingUserPasswordPrefix+user.ID)
	if err != nil {
		m.log.Error(ctx, "credential lookup failed", "user", user.ID, "error", err)
		return failure(common.ErrConnection, msgConnection)
	}
	if digest == nil || !cryptox.VerifyCredential(creds.Password, digest) {
		return failure(common.ErrInvalidCredential, msgWrongPassword)
	}

	now := time.Now().UTC()
	user.LastLogin = &now
	if err := m.store.UpdateUser(ctx, user); err != nil {
		m.log.Error(ctx, "last-login update failed", "user", user.ID, "error", err)
		return failure(common.ErrConnection, msgConnection)
	}

	return m.authenticate(ctx, user)
}

// authenticate persists the session snapshot and transitions to the
// authenticated state. The snapshot is written first: if it cannot be
// persisted the session does not change.
func (m *Manager) authenticate(ctx context.Context, user *models.User) Result {
	if err := m.saveSnapshot(ctx, user); err != nil {
		m.log.Error(ctx, "session snapshot write failed", "user", user.ID, "error", err)
		return failure(common.ErrConnection, msgConnection)
	}

	m.setState(models.SessionState{
		User:            user,
		IsAuthenticated: true,
		IsLoading:       false,
	})
	m.log.Info(ctx, "user authenticated", "user", user.ID, "role", string(user.Role))
	return ok()
}

// Register creates a new auditor account. It never authenticates the new
// session and never creates a technician. Subscribers receive exactly one
// notification with the (unchanged) final state.
func (m *Manager) Register(ctx context.Context, data models.RegistrationData) (res Result) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			m.log.Error(ctx, "panic during register", "panic", fmt.Sprint(r))
			res = failure(common.ErrConnection, msgRegisterFailed)
		}
		m.notify()
	}()

	existing, err := m.store.GetUserByUsername(ctx, data.Username)
	if err != nil {
		m.log.Error(ctx, "username check failed", "username", data.Username, "error", err)
		return failure(common.ErrConnection, msgRegisterFailed)
	}
	if existing != nil {
		return failure(common.ErrDuplicateUsername, msgDuplicateUsername)
	}

	user := &models.User{
		ID:        uuid.NewString(),
		Username:  data.Username,
		Role:      models.RoleAuditor,
		Name:      data.Name,
		Email:     data.Email,
		CreatedAt: time.Now().UTC(),
	}
	digest := cryptox.HashCredential(data.Password)

	err = m.store.WithTx(ctx, func(ctx context.Context, tx *store.Tx) error {
		if err := tx.Users.Create(ctx, user); err != nil {
			return err
		}
		return tx.Settings.Set(ctx, common.SettingUserPasswordPrefix+user.ID, digest)
	})
	if err != nil {
		m.log.Error(ctx, "account creation failed", "username", data.Username, "error", err)
		return failure(common.ErrConnection, msgRegisterFailed)
	}

	m.log.Info(ctx, "account created", "user", user.ID, "username", user.Username)
	return ok()
}

// Logout unconditionally clears the session and erases the persisted
// snapshot. Subscribers are always notified, even when nobody was logged in.
func (m *Manager) Logout(ctx context.Context) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	if err := m.store.DeleteSetting(ctx, common.SettingSessionUser); err != nil {
		m.log.Warn(ctx, "session snapshot delete failed", "error", err)
	}

	m.setState(models.SessionState{})
	m.notify()
	m.log.Info(ctx, "session cleared")
}
