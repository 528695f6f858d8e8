package storage

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
	"go.uber.org/multierr"
)

const (
	service = "reasoned-cli"
)

// Keyring decorates a Store so that secret keys (session tokens) live in
// the OS keychain/credential manager while everything else stays in the
// wrapped store.
type Keyring struct {
	inner     Store
	namespace string
	secrets   map[string]bool
}

// NewKeyring wraps inner; secretKeys are routed to the OS keyring under
// the given namespace (one namespace per server origin).
func NewKeyring(inner Store, namespace string, secretKeys ...string) *Keyring {
	secrets := make(map[string]bool, len(secretKeys))
	for _, k := range secretKeys {
		secrets[k] = true
	}
	return &Keyring{inner: inner, namespace: namespace, secrets: secrets}
}

// keyringKey returns a unique key for storing a secret per server
func (k *Keyring) keyringKey(key string) string {
	return fmt.Sprintf("%s-%s", key, k.namespace)
}

func (k *Keyring) Get(key string) (string, bool, error) {
	if !k.secrets[key] {
		return k.inner.Get(key)
	}

	value, err := keyring.Get(service, k.keyringKey(key))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to load %s from keyring: %w", key, err)
	}
	return value, true, nil
}

func (k *Keyring) Set(key, value string) error {
	if !k.secrets[key] {
		return k.inner.Set(key, value)
	}

	if err := keyring.Set(service, k.keyringKey(key), value); err != nil {
		return fmt.Errorf("failed to save %s to keyring: %w", key, err)
	}
	return nil
}

func (k *Keyring) Remove(key string) error {
	if !k.secrets[key] {
		return k.inner.Remove(key)
	}

	if err := keyring.Delete(service, k.keyringKey(key)); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil // Already deleted
		}
		return fmt.Errorf("failed to delete %s from keyring: %w", key, err)
	}
	return nil
}

// Clear removes the known secret keys from the keyring and clears the
// wrapped store. go-keyring cannot enumerate entries, so only keys
// registered as secrets are removed from the keychain. Every key is
// attempted even when an earlier removal fails.
func (k *Keyring) Clear() error {
	var err error
	for key := range k.secrets {
		err = multierr.Append(err, k.Remove(key))
	}
	return multierr.Append(err, k.inner.Clear())
}
