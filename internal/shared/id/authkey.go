// Package id generates the opaque authorization keys embedded in
// subscriber-facing URLs (confirm, unsubscribe, preferences).
package id

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
)

// AuthKeyLength is the length of a generated authorization key.
// 18 random bytes encode to 24 url-safe base64 characters.
const AuthKeyLength = 24

const authKeyRawBytes = 18

// NewAuthKey returns a random, url-safe authorization key of
// AuthKeyLength characters. The key never ends in '-' because some
// email clients refuse to link URLs with a trailing dash.
func NewAuthKey() (string, error) {
	raw := make([]byte, authKeyRawBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	key := base64.RawURLEncoding.EncodeToString(raw)
	if strings.HasSuffix(key, "-") {
		key = key[:len(key)-1] + "x"
	}
	return key, nil
}

// MustNewAuthKey returns a random authorization key and panics on error.
// crypto/rand only fails when the OS entropy source is broken.
func MustNewAuthKey() string {
	key, err := NewAuthKey()
	if err != nil {
		panic(err)
	}
	return key
}

// ValidAuthKey reports whether s looks like a key produced by NewAuthKey.
func ValidAuthKey(s string) bool {
	if len(s) != AuthKeyLength {
		return false
	}
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_':
		default:
			return false
		}
	}
	return !strings.HasSuffix(s, "-")
}
