package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reasoned-dev/reasoned/internal/cli/config"
	"github.com/reasoned-dev/reasoned/internal/cli/output"
	"github.com/reasoned-dev/reasoned/internal/cli/session"
	"github.com/reasoned-dev/reasoned/internal/cli/storage"
	appconfig "github.com/reasoned-dev/reasoned/internal/config"
	"github.com/reasoned-dev/reasoned/internal/fakeapi"
)

const testServerURL = "https://quiz.example.com"

// testEnv runs commands against a fake backend with in-memory storage
type testEnv struct {
	t       *testing.T
	backend *fakeapi.Backend
	store   *storage.Memory
	out     bytes.Buffer
	errOut  bytes.Buffer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	backend := fakeapi.New()
	t.Cleanup(backend.Close)

	store := storage.NewMemory()
	require.NoError(t, store.Set(session.KeyAPIBase, backend.URL))

	return &testEnv{t: t, backend: backend, store: store}
}

func (e *testEnv) options(extra ...Option) []Option {
	opts := []Option{
		WithServer(&config.Server{URL: testServerURL, Alias: "test"}),
		WithStore(e.store),
		WithOutput(&e.out),
		WithErrOutput(&e.errOut),
		WithSettings(&appconfig.Config{Home: e.t.TempDir()}),
		WithInteractive(false),
	}
	return append(opts, extra...)
}

// login creates a student account and logs it in
func (e *testEnv) login(username string) {
	e.t.Helper()
	e.loginAs(username, "student", false)
}

func (e *testEnv) loginAs(username, role string, isPaid bool) {
	e.t.Helper()
	e.backend.AddUser(username, "secret1", role, isPaid)
	require.NoError(e.t, runLogin(context.Background(), credentials{username: username, password: "secret1"}, e.options()...))
	e.out.Reset()
	e.errOut.Reset()
}

func (e *testEnv) get(key string) string {
	v, _, err := e.store.Get(key)
	require.NoError(e.t, err)
	return v
}

func TestLogin_Success(t *testing.T) {
	env := newTestEnv(t)
	env.backend.AddUser("ana", "secret1", "student", false)

	err := runLogin(context.Background(), credentials{username: " Ana ", password: "secret1"}, env.options()...)
	require.NoError(t, err)

	assert.Contains(t, env.out.String(), "✓ Login successful!")
	assert.Contains(t, env.out.String(), "User: ana (student)")
	assert.NotEmpty(t, env.get(session.KeyToken))
	assert.Equal(t, "ana", env.get(session.KeyUser))
	assert.Equal(t, "student", env.get(session.KeyRole))
	assert.Equal(t, "false", env.get(session.KeyIsPaid))
}

func TestLogin_CredentialsFromEnvironment(t *testing.T) {
	env := newTestEnv(t)
	env.backend.AddUser("ana", "secret1", "student", false)

	settings := &appconfig.Config{
		Home:        t.TempDir(),
		Credentials: appconfig.CredentialsConfig{Username: "ana", Password: "secret1"},
	}
	err := runLogin(context.Background(), credentials{}, env.options(WithSettings(settings))...)
	require.NoError(t, err)
	assert.Equal(t, "ana", env.get(session.KeyUser))
}

func TestLogin_NonInteractiveRequiresCredentials(t *testing.T) {
	env := newTestEnv(t)

	err := runLogin(context.Background(), credentials{}, env.options()...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "username is required")

	err = runLogin(context.Background(), credentials{username: "ana"}, env.options()...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "password is required")
}

func TestLogin_WrongPassword(t *testing.T) {
	env := newTestEnv(t)
	env.backend.AddUser("ana", "secret1", "student", false)

	err := runLogin(context.Background(), credentials{username: "ana", password: "wrong-pass"}, env.options()...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "login failed: Invalid credentials (status 401)")
	assert.NotContains(t, err.Error(), "again")

	_, ok, _ := env.store.Get(session.KeyToken)
	assert.False(t, ok)
}

func TestLogin_BackendUnreachable(t *testing.T) {
	env := newTestEnv(t)
	env.backend.Close()

	err := runLogin(context.Background(), credentials{username: "ana", password: "secret1"}, env.options()...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to send request")
	assert.Contains(t, err.Error(), "backend is running")
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t)

	err := runRegister(context.Background(), credentials{username: "Budi", password: "secret12"}, env.options()...)
	require.NoError(t, err)
	assert.Contains(t, env.out.String(), "✓ Account created!")
	assert.Equal(t, "budi", env.get(session.KeyUser))

	env.out.Reset()
	err = runRegister(context.Background(), credentials{username: "budi", password: "secret12"}, env.options()...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Username already used")
}

func TestRegister_ValidatesBeforeSending(t *testing.T) {
	env := newTestEnv(t)

	err := runRegister(context.Background(), credentials{username: "budi", password: "abc"}, env.options()...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 6 characters")

	for _, r := range env.backend.Requests() {
		assert.NotEqual(t, "/api/register", r.Path)
	}
}

func TestLogout_ClearsEverything(t *testing.T) {
	env := newTestEnv(t)
	env.login("ana")
	require.NoError(t, env.store.Set(session.KeyLastScore, "7/10"))

	require.NoError(t, runLogout(env.options()...))

	assert.Zero(t, env.store.Len())
	assert.Contains(t, env.out.String(), "✓ Logged out")
	assert.Contains(t, env.errOut.String(), "Not logged in. Run 'reasoned login' to authenticate.")
}

func TestDash_RequiresSession(t *testing.T) {
	env := newTestEnv(t)

	err := runDash(context.Background(), env.options()...)
	require.Error(t, err)
	assert.True(t, errors.Is(err, session.ErrNoSession))
	assert.Contains(t, env.errOut.String(), "Run 'reasoned login'")
	assert.Empty(t, env.backend.Requests())
}

func TestDash_ShowsQuota(t *testing.T) {
	env := newTestEnv(t)
	env.login("ana")
	env.backend.SetAttemptsUsed("ana", 2)

	require.NoError(t, runDash(context.Background(), env.options()...))

	out := env.out.String()
	assert.Contains(t, out, "Hello, ana")
	assert.Contains(t, out, "Remaining: 3/5")
	assert.Contains(t, out, "Last score: -")
	assert.Contains(t, out, "Session expires:")
	assert.Contains(t, out, "reasoned quiz generate")
}

func TestDash_QuotaExhausted(t *testing.T) {
	tests := []struct {
		name     string
		role     string
		isPaid   bool
		canStart bool
	}{
		{name: "student", role: "student", canStart: false},
		{name: "paid", role: "student", isPaid: true, canStart: true},
		{name: "admin", role: "admin", canStart: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.loginAs("ana", tt.role, tt.isPaid)
			env.backend.SetAttemptsUsed("ana", fakeapi.DefaultFreeLimit)

			require.NoError(t, runDash(context.Background(), env.options()...))

			out := env.out.String()
			assert.Contains(t, out, "Remaining: 0/5")
			if tt.canStart {
				assert.Contains(t, out, "reasoned quiz generate")
			} else {
				assert.Contains(t, out, "quiz generation is disabled")
			}
		})
	}
}

func TestDash_LastScore(t *testing.T) {
	env := newTestEnv(t)
	env.login("ana")
	require.NoError(t, env.store.Set(session.KeyLastScore, "7/10"))
	require.NoError(t, env.store.Set(session.KeyLastScoreTime, "2026-03-01T08:00:00Z"))

	require.NoError(t, runDash(context.Background(), env.options(WithFormat(output.JSON))...))

	var d dashboard
	require.NoError(t, json.Unmarshal(env.out.Bytes(), &d))
	assert.Equal(t, "ana", d.User)
	assert.Equal(t, "7/10", d.LastScore)
	require.NotNil(t, d.LastScoreAt)
	assert.True(t, d.LastScoreAt.Equal(time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)))
	assert.Equal(t, 5, d.Remaining)
	assert.True(t, d.CanStartQuiz)
}

func TestDash_ExpiredToken(t *testing.T) {
	env := newTestEnv(t)
	env.backend.SetTokenTTL(-time.Hour)
	env.login("ana")

	err := runDash(context.Background(), env.options()...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Token expired (status 401)")
	assert.Contains(t, err.Error(), "Run 'reasoned login' again")
}

func TestAPIBase(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, runAPIBase("", false, env.options()...))
	assert.Equal(t, env.backend.URL+" (override)\n", env.out.String())

	env.out.Reset()
	require.NoError(t, runAPIBase("https://api.example.com/", false, env.options()...))
	assert.Equal(t, "https://api.example.com (override)\n", env.out.String())
	assert.Equal(t, "https://api.example.com/", env.get(session.KeyAPIBase))

	env.out.Reset()
	require.NoError(t, runAPIBase("", true, env.options()...))
	assert.Equal(t, testServerURL+" (default)\n", env.out.String())

	err := runAPIBase("ftp://files.example.com", false, env.options()...)
	require.Error(t, err)
}

func TestAPIBase_LocalhostDefault(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.store.Remove(session.KeyAPIBase))

	opts := env.options(WithServer(&config.Server{URL: "http://localhost:5500", Alias: "local"}))
	require.NoError(t, runAPIBase("", false, opts...))
	assert.Equal(t, "http://127.0.0.1:8000 (default)\n", env.out.String())
}

func TestMeta(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, runMeta(context.Background(), "", "", env.options()...))
	out := env.out.String()
	assert.Contains(t, out, "UTBK")
	assert.Contains(t, out, "TPS_PU")
	assert.Contains(t, out, "SAINTEK")
	assert.Contains(t, out, "SOSHUM")

	env.out.Reset()
	require.NoError(t, runMeta(context.Background(), "tka", "soshum", env.options()...))
	assert.Equal(t, "EKONOMI\nGEOGRAFI\nSEJARAH\nSOSIOLOGI\n", env.out.String())
}
