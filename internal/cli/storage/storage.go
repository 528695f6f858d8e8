// Package storage is the CLI's equivalent of browser local storage: a flat
// string key/value store scoped to one server origin.
package storage

import (
	"net/url"
	"strings"
)

// Store defines the key/value operations used by the session layer.
// Implementations must treat a missing key as ("", false, nil).
type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
	Clear() error
}

// Namespace returns a filesystem and keyring safe name for a server origin,
// e.g. "https://quiz.example.com:8443" -> "https_quiz.example.com_8443".
func Namespace(origin string) string {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return sanitize(origin)
	}
	return sanitize(u.Scheme + "_" + u.Host)
}

func sanitize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "default"
	}
	return b.String()
}
