package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const (
	// serviceName namespaces every entry this tool writes to the
	// credential store.
	serviceName = "seven-mcp"

	// defaultAccount is the identity tokens are stored under when no
	// user identity is known. Kept for backward compatibility with
	// records written before per-account storage existed.
	defaultAccount = "oauth-tokens"

	// currentAccountKey is a reserved account name whose secret holds
	// the name of the currently active identity.
	currentAccountKey = "current-account"

	// DefaultExpiryBuffer is the safety margin applied to expiry
	// checks, covering network latency so a token is never presented
	// right at the edge of its validity.
	DefaultExpiryBuffer = 60 * time.Second
)

// ErrCredentialNotFound is returned by CredentialStore implementations
// when no secret exists for the requested account.
var ErrCredentialNotFound = errors.New("credential not found")

// Tokens is the OAuth token set as persisted in the credential store.
// ExpiresAt is always an absolute Unix timestamp computed at issuance
// or refresh time, never a relative duration.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope,omitempty"`
}

// Expired reports whether the access token is expired or expires
// within the given buffer. The boundary is inclusive: a token expiring
// exactly now+buffer counts as expired.
func (t *Tokens) Expired(buffer time.Duration) bool {
	return t.ExpiresAt <= time.Now().Unix()+int64(buffer.Seconds())
}

//go:generate mockgen -source=store.go -destination=mock_store_test.go -package=auth

// CredentialStore is a namespaced secure key/value facility addressed
// by (service, account). Implementations must return
// ErrCredentialNotFound from Get and Delete when no entry exists, and
// wrap errors.ErrStorageUnavailable when the backing facility cannot
// be reached at all.
type CredentialStore interface {
	Get(service, account string) (string, error)
	Set(service, account, secret string) error
	Delete(service, account string) error
}

// TokenStore persists OAuth tokens in a CredentialStore, keyed by
// account identity, with a separate pointer record naming the current
// account.
type TokenStore struct {
	creds CredentialStore
}

// NewTokenStore creates a token store backed by the given credential
// store.
func NewTokenStore(creds CredentialStore) *TokenStore {
	return &TokenStore{creds: creds}
}

// Store serializes tokens and writes them under account, or the
// default identity when account is empty. A non-empty account also
// becomes the current account.
func (s *TokenStore) Store(t *Tokens, account string) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("serializing tokens: %w", err)
	}

	name := account
	if name == "" {
		name = defaultAccount
	}

	if err := s.creds.Set(serviceName, name, string(data)); err != nil {
		return fmt.Errorf("storing tokens for %q: %w", name, err)
	}

	if account != "" {
		if err := s.creds.Set(serviceName, currentAccountKey, account); err != nil {
			return fmt.Errorf("updating current account: %w", err)
		}
	}

	return nil
}

// Get retrieves tokens for account, or for the current account when
// account is empty, falling back once to the default identity for
// records written before per-account storage. It returns (nil, nil)
// when nothing is stored or the stored content is malformed; an error
// is returned only when the credential store itself is unavailable.
func (s *TokenStore) Get(account string) (*Tokens, error) {
	name, err := s.resolveAccount(account)
	if err != nil {
		return nil, err
	}

	data, err := s.creds.Get(serviceName, name)
	if errors.Is(err, ErrCredentialNotFound) {
		if name == defaultAccount {
			return nil, nil
		}

		data, err = s.creds.Get(serviceName, defaultAccount)
		if errors.Is(err, ErrCredentialNotFound) {
			return nil, nil
		}
	}

	if err != nil {
		return nil, fmt.Errorf("reading tokens: %w", err)
	}

	return decodeTokens(data), nil
}

// Delete removes the stored tokens for account (or the current
// account when empty) and reports whether a record existed. When the
// deleted identity is the current account, the pointer record is
// cleared as well.
func (s *TokenStore) Delete(account string) (bool, error) {
	name, err := s.resolveAccount(account)
	if err != nil {
		return false, err
	}

	deleted := true

	if err := s.creds.Delete(serviceName, name); err != nil {
		if !errors.Is(err, ErrCredentialNotFound) {
			return false, fmt.Errorf("deleting tokens for %q: %w", name, err)
		}

		deleted = false
	}

	if s.currentAccount() == name {
		if err := s.creds.Delete(serviceName, currentAccountKey); err != nil && !errors.Is(err, ErrCredentialNotFound) {
			return deleted, fmt.Errorf("clearing current account: %w", err)
		}
	}

	return deleted, nil
}

// Has reports whether usable tokens are stored. Any underlying error
// reads as "no tokens": authentication state fails closed.
func (s *TokenStore) Has() bool {
	t, err := s.Get("")
	return err == nil && t != nil
}

// CurrentAccount returns the identity the current-account pointer
// names, or the default identity when no pointer is set.
func (s *TokenStore) CurrentAccount() string {
	return s.currentAccount()
}

// resolveAccount maps an optional explicit account to the effective
// identity: explicit, else the current-account pointer, else default.
func (s *TokenStore) resolveAccount(account string) (string, error) {
	if account != "" {
		return account, nil
	}

	name, err := s.creds.Get(serviceName, currentAccountKey)
	if errors.Is(err, ErrCredentialNotFound) {
		return defaultAccount, nil
	}

	if err != nil {
		return "", fmt.Errorf("reading current account: %w", err)
	}

	if name == "" {
		return defaultAccount, nil
	}

	return name, nil
}

func (s *TokenStore) currentAccount() string {
	name, err := s.creds.Get(serviceName, currentAccountKey)
	if err != nil || name == "" {
		return defaultAccount
	}

	return name
}

// decodeTokens deserializes a stored token record. Malformed content
// reads as absent so a corrupt keychain entry prompts re-login rather
// than a hard failure.
func decodeTokens(data string) *Tokens {
	var t Tokens
	if err := json.Unmarshal([]byte(data), &t); err != nil {
		return nil
	}

	return &t
}
