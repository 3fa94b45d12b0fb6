package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tama-audit/auditor/internal/common"
	"github.com/tama-audit/auditor/internal/cryptox"
	"github.com/tama-audit/auditor/internal/logging"
	"github.com/tama-audit/auditor/internal/models"
	"github.com/tama-audit/auditor/internal/store"

	_ "modernc.org/sqlite"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "auditor.db")
	s, err := store.Open(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newManager(t *testing.T, s *store.Store) *Manager {
	t.Helper()
	m := New(s, testLogger())
	m.Initialize(context.Background())
	return m
}

func registerUser(t *testing.T, m *Manager, username, password string) {
	t.Helper()
	res := m.Register(context.Background(), models.RegistrationData{
		Username: username,
		Password: []byte(password),
		Name:     "Test " + username,
	})
	require.True(t, res.Success, "register failed: %v %s", res.Err, res.Message)
}

func TestLogin_CorrectPassword_Authenticates(t *testing.T) {
	s := openStore(t)
	m := newManager(t, s)
	ctx := context.Background()

	registerUser(t, m, "alice", "pw-alice")

	res := m.Login(ctx, models.LoginCredentials{Username: "alice", Password: []byte("pw-alice")})
	require.True(t, res.Success)

	st := m.GetState()
	assert.True(t, st.IsAuthenticated)
	assert.False(t, st.IsLoading)
	require.NotNil(t, st.User)
	assert.Equal(t, "alice", st.User.Username)
	assert.Equal(t, models.RoleAuditor, st.User.Role)
}

func TestLogin_WrongPassword_InvalidCredential(t *testing.T) {
	s := openStore(t)
	m := newManager(t, s)
	ctx := context.Background()

	registerUser(t, m, "alice", "pw-alice")

	res := m.Login(ctx, models.LoginCredentials{Username: "alice", Password: []byte("nope")})
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, common.ErrInvalidCredential)
	assert.Equal(t, "Mot de passe incorrect", res.Message)

	st := m.GetState()
	assert.False(t, st.IsAuthenticated)
	assert.Nil(t, st.User)
	assert.False(t, st.IsLoading)
}

func TestLogin_UnknownUser_UserNotFound(t *testing.T) {
	s := openStore(t)
	m := newManager(t, s)

	res := m.Login(context.Background(), models.LoginCredentials{Username: "ghost", Password: []byte("x")})
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, common.ErrUserNotFound)
	assert.Equal(t, "Utilisateur non trouvé", res.Message)
}

func TestLogin_UpdatesLastLogin(t *testing.T) {
	s := openStore(t)
	m := newManager(t, s)
	ctx := context.Background()

	registerUser(t, m, "alice", "pw")
	res := m.Login(ctx, models.LoginCredentials{Username: "alice", Password: []byte("pw")})
	require.True(t, res.Success)

	u, err := s.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.NotNil(t, u.LastLogin)
}

func TestRegister_Duplicate_SecondCallFails(t *testing.T) {
	s := openStore(t)
	m := newManager(t, s)
	ctx := context.Background()

	registerUser(t, m, "bob", "pw1")

	res := m.Register(ctx, models.RegistrationData{
		Username: "bob", Password: []byte("pw2"), Name: "Bob 2",
	})
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, common.ErrDuplicateUsername)
	assert.Equal(t, "Nom d'utilisateur déjà utilisé", res.Message)

	all, err := s.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1, "exactly one user with that username must exist")
}

func TestRegister_DoesNotAuthenticate(t *testing.T) {
	s := openStore(t)
	m := newManager(t, s)

	registerUser(t, m, "carol", "pw")
	assert.False(t, m.IsAuthenticated())
}

func TestRegister_StoresCredentialForNewUser(t *testing.T) {
	s := openStore(t)
	m := newManager(t, s)
	ctx := context.Background()

	registerUser(t, m, "dave", "pw-dave")

	u, err := s.GetUserByUsername(ctx, "dave")
	require.NoError(t, err)
	require.NotNil(t, u)

	digest, err := s.GetSetting(ctx, common.SettingUserPasswordPrefix+u.ID)
	require.NoError(t, err)
	require.NotNil(t, digest, "a credential must exist for every registered user")
	assert.True(t, cryptox.VerifyCredential([]byte("pw-dave"), digest))
}

func TestLogout_ErasesSnapshot_FreshInitializeSignedOut(t *testing.T) {
	s := openStore(t)
	m := newManager(t, s)
	ctx := context.Background()

	registerUser(t, m, "alice", "pw")
	require.True(t, m.Login(ctx, models.LoginCredentials{Username: "alice", Password: []byte("pw")}).Success)

	m.Logout(ctx)

	snap, err := s.GetSetting(ctx, common.SettingSessionUser)
	require.NoError(t, err)
	assert.Nil(t, snap, "persisted snapshot must be gone after logout")

	st := m.GetState()
	assert.Nil(t, st.User)
	assert.False(t, st.IsAuthenticated)
	assert.False(t, st.IsLoading)

	fresh := New(s, testLogger())
	got := fresh.Initialize(ctx)
	assert.Nil(t, got.User)
	assert.False(t, got.IsAuthenticated)
}

func TestInitialize_RestoresPersistedSession(t *testing.T) {
	s := openStore(t)
	m := newManager(t, s)
	ctx := context.Background()

	registerUser(t, m, "alice", "pw")
	require.True(t, m.Login(ctx, models.LoginCredentials{Username: "alice", Password: []byte("pw")}).Success)

	fresh := New(s, testLogger())
	st := fresh.Initialize(ctx)
	assert.True(t, st.IsAuthenticated)
	require.NotNil(t, st.User)
	assert.Equal(t, "alice", st.User.Username)
}

func TestInitialize_CorruptSnapshot_SilentlySignedOut(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetSetting(ctx, common.SettingSessionUser, []byte("not a token")))

	m := New(s, testLogger())
	st := m.Initialize(ctx)
	assert.Nil(t, st.User)
	assert.False(t, st.IsAuthenticated)
	assert.False(t, st.IsLoading)
}

func TestInitialize_TamperedSnapshot_SilentlySignedOut(t *testing.T) {
	s := openStore(t)
	m := newManager(t, s)
	ctx := context.Background()

	registerUser(t, m, "alice", "pw")
	require.True(t, m.Login(ctx, models.LoginCredentials{Username: "alice", Password: []byte("pw")}).Success)

	raw, err := s.GetSetting(ctx, common.SettingSessionUser)
	require.NoError(t, err)
	require.NotNil(t, raw)
	raw[len(raw)-1] ^= 0xFF
	require.NoError(t, s.SetSetting(ctx, common.SettingSessionUser, raw))

	fresh := New(s, testLogger())
	st := fresh.Initialize(ctx)
	assert.False(t, st.IsAuthenticated)
	assert.Nil(t, st.User)
}

func TestInitialize_RunsOnce(t *testing.T) {
	s := openStore(t)
	m := New(s, testLogger())
	ctx := context.Background()

	var calls int
	m.Subscribe(func(models.SessionState) { calls++ })

	m.Initialize(ctx)
	m.Initialize(ctx)
	assert.Equal(t, 1, calls, "repeat Initialize must not re-run or re-notify")
}

func TestTechnicianLogin_Success(t *testing.T) {
	s := openStore(t)
	m := newManager(t, s)
	ctx := context.Background()

	require.NoError(t, m.EnsureTechnician(ctx, []byte("master")))

	res := m.Login(ctx, models.LoginCredentials{Username: "technician", Password: []byte("master")})
	require.True(t, res.Success)
	assert.True(t, m.IsTechnician())
}

func TestTechnicianLogin_WrongPassword(t *testing.T) {
	s := openStore(t)
	m := newManager(t, s)
	ctx := context.Background()

	require.NoError(t, m.EnsureTechnician(ctx, []byte("master")))

	res := m.Login(ctx, models.LoginCredentials{Username: "technician", Password: []byte("wrong")})
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, common.ErrInvalidCredential)
	assert.Equal(t, "Mot de passe technicien incorrect", res.Message)
	assert.False(t, m.IsAuthenticated())
}

func TestTechnicianLogin_MissingUserRecord_InvalidCredential(t *testing.T) {
	s := openStore(t)
	m := newManager(t, s)
	ctx := context.Background()

	// credential present, user record absent
	require.NoError(t, s.SetSetting(ctx, common.SettingTechnicianPassword,
		cryptox.HashCredential([]byte("master"))))

	res := m.Login(ctx, models.LoginCredentials{Username: "technician", Password: []byte("master")})
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, common.ErrInvalidCredential)
	assert.False(t, m.IsAuthenticated(), "a null-user session must never authenticate")
	assert.Nil(t, m.GetState().User)
}

func TestEnsureTechnician_DoesNotRotateExistingCredential(t *testing.T) {
	s := openStore(t)
	m := newManager(t, s)
	ctx := context.Background()

	require.NoError(t, m.EnsureTechnician(ctx, []byte("first")))
	require.NoError(t, m.EnsureTechnician(ctx, []byte("second")))

	res := m.Login(ctx, models.LoginCredentials{Username: "technician", Password: []byte("first")})
	assert.True(t, res.Success, "original password must still work")
}

func TestIsTechnician_FalseForAuditor(t *testing.T) {
	s := openStore(t)
	m := newManager(t, s)
	ctx := context.Background()

	registerUser(t, m, "alice", "pw")
	require.True(t, m.Login(ctx, models.LoginCredentials{Username: "alice", Password: []byte("pw")}).Success)
	assert.False(t, m.IsTechnician())
}

func TestNotificationCounts(t *testing.T) {
	s := openStore(t)
	m := newManager(t, s)
	ctx := context.Background()

	registerUser(t, m, "alice", "pw")

	var calls int
	var loadingSeen int
	unsubscribe := m.Subscribe(func(st models.SessionState) {
		calls++
		if st.IsLoading {
			loadingSeen++
		}
	})

	// successful login: loading + terminal
	calls, loadingSeen = 0, 0
	require.True(t, m.Login(ctx, models.LoginCredentials{Username: "alice", Password: []byte("pw")}).Success)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, loadingSeen)

	// logout: exactly one
	calls = 0
	m.Logout(ctx)
	assert.Equal(t, 1, calls)

	// failed login: loading + terminal
	calls = 0
	m.Login(ctx, models.LoginCredentials{Username: "alice", Password: []byte("bad")})
	assert.Equal(t, 2, calls)

	// register: exactly one, regardless of outcome
	calls = 0
	m.Register(ctx, models.RegistrationData{Username: "new", Password: []byte("p"), Name: "N"})
	assert.Equal(t, 1, calls)
	calls = 0
	m.Register(ctx, models.RegistrationData{Username: "new", Password: []byte("p"), Name: "N"})
	assert.Equal(t, 1, calls)

	unsubscribe()
	calls = 0
	m.Logout(ctx)
	assert.Equal(t, 0, calls, "unsubscribed listener must not be invoked")
}

func TestSubscribers_NotifiedInSubscriptionOrder(t *testing.T) {
	s := openStore(t)
	m := newManager(t, s)

	var order []string
	m.Subscribe(func(models.SessionState) { order = append(order, "first") })
	m.Subscribe(func(models.SessionState) { order = append(order, "second") })

	m.Logout(context.Background())
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestGetState_ReturnsCopy(t *testing.T) {
	s := openStore(t)
	m := newManager(t, s)
	ctx := context.Background()

	registerUser(t, m, "alice", "pw")
	require.True(t, m.Login(ctx, models.LoginCredentials{Username: "alice", Password: []byte("pw")}).Success)

	st := m.GetState()
	st.User.Username = "mutated"

	assert.Equal(t, "alice", m.GetState().User.Username)
}

// faultyStore wraps a Store and fails selected calls with a raw error, to
// verify the connection-error downgrade at the operation boundary.
type faultyStore struct {
	Store
	failGetSetting bool
	failGetUser    bool
}

var errDisk = errors.New("disk I/O error")

func (f *faultyStore) GetSetting(ctx context.Context, key string) ([]byte, error) {
	if f.failGetSetting {
		return nil, errDisk
	}
	return f.Store.GetSetting(ctx, key)
}

func (f *faultyStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	if f.failGetUser {
		return nil, errDisk
	}
	return f.Store.GetUserByUsername(ctx, username)
}

func TestLogin_StoreFault_DowngradedToConnectionError(t *testing.T) {
	s := openStore(t)
	f := &faultyStore{Store: s, failGetUser: true}
	m := New(f, testLogger())
	m.Initialize(context.Background())

	res := m.Login(context.Background(), models.LoginCredentials{Username: "alice", Password: []byte("pw")})
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, common.ErrConnection)
	assert.Equal(t, "Erreur de connexion", res.Message)
	assert.NotErrorIs(t, res.Err, errDisk, "raw store errors must not cross the boundary")

	st := m.GetState()
	assert.False(t, st.IsAuthenticated)
	assert.False(t, st.IsLoading, "loading flag must be reset even on unexpected failure")
}

func TestTechnicianLogin_StoreFault_DowngradedToConnectionError(t *testing.T) {
	s := openStore(t)
	f := &faultyStore{Store: s, failGetSetting: true}
	m := New(f, testLogger())
	m.Initialize(context.Background())

	res := m.Login(context.Background(), models.LoginCredentials{Username: "technician", Password: []byte("x")})
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, common.ErrConnection)
}

func TestInitialize_StoreFault_SilentlySignedOut(t *testing.T) {
	s := openStore(t)
	f := &faultyStore{Store: s, failGetSetting: true}
	m := New(f, testLogger())

	st := m.Initialize(context.Background())
	assert.False(t, st.IsAuthenticated)
	assert.False(t, st.IsLoading)
}
