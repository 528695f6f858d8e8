package session

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/reasoned-dev/reasoned/internal/cli/storage"
)

// Storage keys. The layout matches what the web front end keeps in
// local storage, so a session file can be inspected with the same names.
const (
	KeyToken         = "auth_token"
	KeyLegacyToken   = "token"
	KeyUser          = "user"
	KeyRole          = "role"
	KeyIsPaid        = "is_paid"
	KeyLastSet       = "last_set"
	KeyLastScore     = "last_score"
	KeyLastScoreTime = "last_score_time"
	KeyAPIBase       = "api_base"
)

// SecretKeys are the keys that hold credentials
var SecretKeys = []string{KeyToken, KeyLegacyToken}

// ErrNoSession is returned by RequireSession when no token is stored
var ErrNoSession = errors.New("not authenticated")

// Session is the persisted login state. Empty strings and a nil IsPaid
// mean the value is absent.
type Session struct {
	Token    string
	Username string
	Role     string
	IsPaid   *bool
}

// Authenticated reports whether a non-empty token is present
func (s *Session) Authenticated() bool {
	return s.Token != ""
}

// Score is the last submitted quiz result
type Score struct {
	Value string // "score/total"
	At    time.Time
}

// Manager reads and writes the session record in a Store and performs
// the navigation side effects of the session lifecycle.
type Manager struct {
	store storage.Store
	nav   Navigator
	now   func() time.Time
}

// NewManager creates a session manager. A nil navigator disables navigation.
func NewManager(store storage.Store, nav Navigator) *Manager {
	if nav == nil {
		nav = NopNavigator{}
	}
	return &Manager{store: store, nav: nav, now: time.Now}
}

// Store returns the underlying store
func (m *Manager) Store() storage.Store {
	return m.store
}

// Token returns the stored bearer token or an empty string.
// The legacy "token" key is consulted when "auth_token" is absent.
func (m *Manager) Token() (string, error) {
	for _, key := range []string{KeyToken, KeyLegacyToken} {
		v, ok, err := m.store.Get(key)
		if err != nil {
			return "", fmt.Errorf("failed to load token: %w", err)
		}
		if ok && v != "" {
			return v, nil
		}
	}
	return "", nil
}

// Load reads the whole session record
func (m *Manager) Load() (*Session, error) {
	token, err := m.Token()
	if err != nil {
		return nil, err
	}

	s := &Session{Token: token}
	if s.Username, err = m.get(KeyUser); err != nil {
		return nil, err
	}
	if s.Role, err = m.get(KeyRole); err != nil {
		return nil, err
	}

	paid, err := m.get(KeyIsPaid)
	if err != nil {
		return nil, err
	}
	if paid != "" {
		if b, perr := strconv.ParseBool(paid); perr == nil {
			s.IsPaid = &b
		}
	}
	return s, nil
}

// Save replaces the stored login record with s. Absent fields are removed,
// so a new login never keeps the previous account's user, role or plan.
func (m *Manager) Save(s Session) error {
	if err := m.put(KeyToken, s.Token); err != nil {
		return fmt.Errorf("failed to save authentication token: %w", err)
	}
	if err := m.put(KeyUser, s.Username); err != nil {
		return err
	}
	if err := m.put(KeyRole, s.Role); err != nil {
		return err
	}

	var paid string
	if s.IsPaid != nil {
		paid = strconv.FormatBool(*s.IsPaid)
	}
	return m.put(KeyIsPaid, paid)
}

// RequireSession navigates to the login page and returns ErrNoSession when
// no token is stored; otherwise it does nothing.
func (m *Manager) RequireSession() error {
	token, err := m.Token()
	if err != nil {
		return err
	}
	if token == "" {
		m.nav.Navigate(LoginPage)
		return ErrNoSession
	}
	return nil
}

// EndSession clears every stored key, including cached quiz data and the
// base URL override, then navigates to the login page. Navigation happens
// even when the clear fails part way.
func (m *Manager) EndSession() error {
	err := m.store.Clear()
	m.nav.Navigate(LoginPage)
	if err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// APIBase returns the base URL override, if configured
func (m *Manager) APIBase() (string, error) {
	return m.get(KeyAPIBase)
}

// SetAPIBase stores a base URL override; an empty value removes it
func (m *Manager) SetAPIBase(base string) error {
	return m.put(KeyAPIBase, strings.TrimSpace(base))
}

// CacheQuizSet stores the raw JSON payload of the last generated quiz
func (m *Manager) CacheQuizSet(payload []byte) error {
	if err := m.store.Set(KeyLastSet, string(payload)); err != nil {
		return fmt.Errorf("failed to cache quiz set: %w", err)
	}
	return nil
}

// LastQuizSet returns the cached quiz payload, or nil if none is cached
func (m *Manager) LastQuizSet() ([]byte, error) {
	v, err := m.get(KeyLastSet)
	if err != nil || v == "" {
		return nil, err
	}
	return []byte(v), nil
}

// RecordScore stores the result of the last submitted quiz
func (m *Manager) RecordScore(score, total int) error {
	if err := m.store.Set(KeyLastScore, fmt.Sprintf("%d/%d", score, total)); err != nil {
		return fmt.Errorf("failed to record score: %w", err)
	}
	if err := m.store.Set(KeyLastScoreTime, m.now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("failed to record score time: %w", err)
	}
	return nil
}

// LastScore returns the last recorded score, or nil if none exists
func (m *Manager) LastScore() (*Score, error) {
	v, err := m.get(KeyLastScore)
	if err != nil || v == "" {
		return nil, err
	}

	score := &Score{Value: v}
	at, err := m.get(KeyLastScoreTime)
	if err != nil {
		return nil, err
	}
	if t, perr := time.Parse(time.RFC3339, at); perr == nil {
		score.At = t
	}
	return score, nil
}

// put stores value under key, or removes key when value is empty
func (m *Manager) put(key, value string) error {
	if value == "" {
		return m.store.Remove(key)
	}
	return m.store.Set(key, value)
}

func (m *Manager) get(key string) (string, error) {
	v, _, err := m.store.Get(key)
	if err != nil {
		return "", fmt.Errorf("failed to load %s: %w", key, err)
	}
	return v, nil
}

// TokenExpiry returns the exp claim of a JWT without verifying its
// signature. The backend stays the authority on validity; this is only
// used to show the user when their login runs out.
func TokenExpiry(token string) (time.Time, bool) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
