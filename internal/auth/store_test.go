package auth

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	svcerrors "github.com/seven-io/seven-mcp/internal/errors"
)

// memCredentialStore is an in-memory CredentialStore for tests that
// exercise stateful behavior end to end.
type memCredentialStore struct {
	entries map[string]string
}

func newMemCredentialStore() *memCredentialStore {
	return &memCredentialStore{entries: make(map[string]string)}
}

func (m *memCredentialStore) key(service, account string) string {
	return service + "\x00" + account
}

func (m *memCredentialStore) Get(service, account string) (string, error) {
	secret, ok := m.entries[m.key(service, account)]
	if !ok {
		return "", ErrCredentialNotFound
	}
	return secret, nil
}

func (m *memCredentialStore) Set(service, account, secret string) error {
	m.entries[m.key(service, account)] = secret
	return nil
}

func (m *memCredentialStore) Delete(service, account string) error {
	k := m.key(service, account)
	if _, ok := m.entries[k]; !ok {
		return ErrCredentialNotFound
	}
	delete(m.entries, k)
	return nil
}

func testTokens(t *testing.T) *Tokens {
	t.Helper()
	return &Tokens{
		AccessToken:  "access-abc",
		RefreshToken: "refresh-abc",
		ExpiresAt:    time.Now().Add(time.Hour).Unix(),
		TokenType:    "Bearer",
		Scope:        "sms",
	}
}

// --- TokenStore ---

func TestTokenStore_RoundTrip(t *testing.T) {
	s := NewTokenStore(newMemCredentialStore())

	require.NoError(t, s.Store(testTokens(t), "alice@example.com"))

	got, err := s.Get("alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "access-abc", got.AccessToken)
	assert.Equal(t, "refresh-abc", got.RefreshToken)
	assert.Equal(t, "Bearer", got.TokenType)
}

func TestTokenStore_StoreSetsCurrentAccount(t *testing.T) {
	s := NewTokenStore(newMemCredentialStore())

	require.NoError(t, s.Store(testTokens(t), "alice@example.com"))
	assert.Equal(t, "alice@example.com", s.CurrentAccount())

	// An empty Get resolves through the current-account pointer.
	got, err := s.Get("")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "access-abc", got.AccessToken)
}

func TestTokenStore_EmptyAccountUsesDefault(t *testing.T) {
	s := NewTokenStore(newMemCredentialStore())

	require.NoError(t, s.Store(testTokens(t), ""))

	// No pointer was written, so CurrentAccount falls back to default.
	assert.Equal(t, defaultAccount, s.CurrentAccount())

	got, err := s.Get("")
	require.NoError(t, err)
	require.NotNil(t, got)
}

func TestTokenStore_GetFallsBackToDefault(t *testing.T) {
	s := NewTokenStore(newMemCredentialStore())

	// Tokens written before per-account storage live under the default
	// identity only.
	require.NoError(t, s.Store(testTokens(t), ""))

	got, err := s.Get("alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "access-abc", got.AccessToken)
}

func TestTokenStore_GetNotFound(t *testing.T) {
	s := NewTokenStore(newMemCredentialStore())

	got, err := s.Get("")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = s.Get("nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTokenStore_GetMalformed(t *testing.T) {
	creds := newMemCredentialStore()
	require.NoError(t, creds.Set(serviceName, defaultAccount, "{not json"))
	s := NewTokenStore(creds)

	// Corrupt records read as absent, prompting re-login.
	got, err := s.Get("")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTokenStore_Delete(t *testing.T) {
	s := NewTokenStore(newMemCredentialStore())
	require.NoError(t, s.Store(testTokens(t), "alice@example.com"))

	deleted, err := s.Delete("")
	require.NoError(t, err)
	assert.True(t, deleted)

	// The pointer was cleared along with the record.
	assert.Equal(t, defaultAccount, s.CurrentAccount())

	got, err := s.Get("alice@example.com")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTokenStore_DeleteNothingStored(t *testing.T) {
	s := NewTokenStore(newMemCredentialStore())

	deleted, err := s.Delete("")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestTokenStore_DeleteKeepsOtherAccounts(t *testing.T) {
	s := NewTokenStore(newMemCredentialStore())
	require.NoError(t, s.Store(testTokens(t), "alice@example.com"))
	require.NoError(t, s.Store(testTokens(t), "bob@example.com"))

	deleted, err := s.Delete("alice@example.com")
	require.NoError(t, err)
	assert.True(t, deleted)

	// bob is still the current account and still resolvable.
	assert.Equal(t, "bob@example.com", s.CurrentAccount())
	got, err := s.Get("")
	require.NoError(t, err)
	require.NotNil(t, got)
}

func TestTokenStore_Has(t *testing.T) {
	s := NewTokenStore(newMemCredentialStore())
	assert.False(t, s.Has())

	require.NoError(t, s.Store(testTokens(t), "alice@example.com"))
	assert.True(t, s.Has())
}

func TestTokenStore_GetStorageUnavailable(t *testing.T) {
	ctrl := gomock.NewController(t)
	creds := NewMockCredentialStore(ctrl)

	unavailable := fmt.Errorf("opening keychain: %w", svcerrors.ErrStorageUnavailable)
	creds.EXPECT().Get(serviceName, currentAccountKey).Return("", unavailable)

	s := NewTokenStore(creds)

	_, err := s.Get("")
	require.Error(t, err)
	assert.True(t, errors.Is(err, svcerrors.ErrStorageUnavailable))
}

func TestTokenStore_HasFailsClosed(t *testing.T) {
	ctrl := gomock.NewController(t)
	creds := NewMockCredentialStore(ctrl)

	unavailable := fmt.Errorf("opening keychain: %w", svcerrors.ErrStorageUnavailable)
	creds.EXPECT().Get(serviceName, currentAccountKey).Return("", unavailable)

	s := NewTokenStore(creds)
	assert.False(t, s.Has())
}

// --- Tokens ---

func TestTokens_Expired(t *testing.T) {
	tests := []struct {
		name      string
		expiresAt int64
		want      bool
	}{
		{"fresh", time.Now().Add(time.Hour).Unix(), false},
		{"already expired", time.Now().Add(-time.Hour).Unix(), true},
		{"within buffer", time.Now().Add(30 * time.Second).Unix(), true},
		{"just past buffer", time.Now().Add(DefaultExpiryBuffer + 5*time.Second).Unix(), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok := &Tokens{ExpiresAt: tt.expiresAt}
			assert.Equal(t, tt.want, tok.Expired(DefaultExpiryBuffer))
		})
	}
}

func TestTokens_ExpiredBoundaryInclusive(t *testing.T) {
	tok := &Tokens{ExpiresAt: time.Now().Unix() + int64(DefaultExpiryBuffer.Seconds())}
	assert.True(t, tok.Expired(DefaultExpiryBuffer))
}
