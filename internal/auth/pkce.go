// Package auth implements the OAuth 2.0 authorization code flow with
// PKCE against oauth.seven.io, plus the token lifecycle that gates
// every outbound API call: keychain-backed storage, expiry detection,
// and transparent refresh.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
)

// GenerateCodeVerifier returns a cryptographically random, URL-safe
// PKCE code verifier derived from 32 random bytes (43 characters after
// encoding).
func GenerateCodeVerifier() string {
	return base64.RawURLEncoding.EncodeToString(randomBytes(32))
}

// GenerateCodeChallenge returns the S256 code challenge for a
// verifier: the unpadded URL-safe base64 encoding of its SHA-256 hash.
func GenerateCodeChallenge(verifier string) string {
	h := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(h[:])
}

// GenerateState returns a random state parameter for CSRF binding.
// It is unrelated to the code challenge.
func GenerateState() string {
	return base64.RawURLEncoding.EncodeToString(randomBytes(16))
}

func randomBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}

	return b
}
