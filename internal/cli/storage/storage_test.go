package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestNamespace(t *testing.T) {
	tests := []struct {
		origin string
		want   string
	}{
		{origin: "https://quiz.example.com", want: "https_quiz.example.com"},
		{origin: "http://127.0.0.1:8000", want: "http_127.0.0.1_8000"},
		{origin: "HTTPS://Quiz.Example.com:8443", want: "https_quiz.example.com_8443"},
		{origin: "not a url", want: "not_a_url"},
		{origin: "", want: "default"},
	}

	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			assert.Equal(t, tt.want, Namespace(tt.origin))
		})
	}
}

func testStoreContract(t *testing.T, s Store) {
	t.Helper()

	_, ok, err := s.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set("user", "ana"))
	require.NoError(t, s.Set("role", "student"))

	v, ok, err := s.Get("user")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "ana", v)

	// last write wins
	require.NoError(t, s.Set("user", "budi"))
	v, _, err = s.Get("user")
	require.NoError(t, err)
	assert.Equal(t, "budi", v)

	require.NoError(t, s.Remove("user"))
	_, ok, err = s.Get("user")
	require.NoError(t, err)
	assert.False(t, ok)

	// removing a missing key is not an error
	require.NoError(t, s.Remove("user"))

	require.NoError(t, s.Clear())
	_, ok, err = s.Get("role")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemory(t *testing.T) {
	testStoreContract(t, NewMemory())
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "storage.json")
	testStoreContract(t, NewFile(path))
}

func TestFile_PersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()

	first := OpenForOrigin(dir, "https://quiz.example.com")
	require.NoError(t, first.Set("auth_token", "abc"))

	second := OpenForOrigin(dir, "https://quiz.example.com")
	v, ok, err := second.Get("auth_token")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "abc", v)

	other := OpenForOrigin(dir, "https://other.example.com")
	_, ok, err = other.Get("auth_token")
	require.NoError(t, err)
	assert.False(t, ok, "storage must be scoped per origin")

	keys, err := second.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"auth_token"}, keys)

	info, err := os.Stat(first.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFile_ConcurrentWriters(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "storage.json")

	// Separate instances do not share a mutex, like two CLI processes
	var wg sync.WaitGroup
	errs := make(chan error, 4*25)
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			f := NewFile(path)
			for i := 0; i < 25; i++ {
				errs <- f.Set(fmt.Sprintf("writer-%d", w), fmt.Sprint(i))
			}
		}(w)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	_, err := NewFile(path).Keys()
	require.NoError(t, err, "file must stay valid JSON")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary files must not be left behind")
	assert.Equal(t, "storage.json", entries[0].Name())
}

func TestFile_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storage.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, _, err := NewFile(path).Get("user")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse storage file")
}

func TestKeyring_RoutesSecrets(t *testing.T) {
	keyring.MockInit()

	inner := NewMemory()
	s := NewKeyring(inner, "https_quiz.example.com", "auth_token", "token")

	require.NoError(t, s.Set("auth_token", "abc"))
	require.NoError(t, s.Set("user", "ana"))

	// the token never reaches the wrapped store
	_, ok, err := inner.Get("auth_token")
	require.NoError(t, err)
	assert.False(t, ok)

	v, ok, err := inner.Get("user")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "ana", v)

	tok, ok, err := s.Get("auth_token")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "abc", tok)

	stored, err := keyring.Get(service, "auth_token-https_quiz.example.com")
	require.NoError(t, err)
	assert.Equal(t, "abc", stored)
}

func TestKeyring_Contract(t *testing.T) {
	keyring.MockInit()
	testStoreContract(t, NewKeyring(NewMemory(), "ns", "auth_token"))
}

func TestKeyring_ClearRemovesSecrets(t *testing.T) {
	keyring.MockInit()

	inner := NewMemory()
	s := NewKeyring(inner, "ns", "auth_token", "token")
	require.NoError(t, s.Set("auth_token", "abc"))
	require.NoError(t, s.Set("token", "legacy"))
	require.NoError(t, s.Set("last_score", "7/10"))

	require.NoError(t, s.Clear())

	for _, key := range []string{"auth_token", "token", "last_score"} {
		_, ok, err := s.Get(key)
		require.NoError(t, err)
		assert.False(t, ok, "expected %s to be cleared", key)
	}
	assert.Equal(t, 0, inner.Len())
}
