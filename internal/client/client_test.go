package client

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seven-io/seven-mcp/internal/auth"
	svcerrors "github.com/seven-io/seven-mcp/internal/errors"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memCreds is an in-memory auth.CredentialStore.
type memCreds struct {
	entries map[string]string
}

func newMemCreds() *memCreds {
	return &memCreds{entries: make(map[string]string)}
}

func (m *memCreds) Get(service, account string) (string, error) {
	secret, ok := m.entries[service+"\x00"+account]
	if !ok {
		return "", auth.ErrCredentialNotFound
	}
	return secret, nil
}

func (m *memCreds) Set(service, account, secret string) error {
	m.entries[service+"\x00"+account] = secret
	return nil
}

func (m *memCreds) Delete(service, account string) error {
	k := service + "\x00" + account
	if _, ok := m.entries[k]; !ok {
		return auth.ErrCredentialNotFound
	}
	delete(m.entries, k)
	return nil
}

// fakeTokenSource implements TokenSource with a fixed outcome.
type fakeTokenSource struct {
	token string
	err   error
}

func (f *fakeTokenSource) ValidAccessToken(context.Context) (string, error) {
	return f.token, f.err
}

// capturedRequest records what the gateway stub received.
type capturedRequest struct {
	method  string
	path    string
	query   url.Values
	headers http.Header
	body    string
}

// testGateway returns a gateway stub that records each request and
// responds with the given status and body.
func testGateway(t *testing.T, status int, respBody string) (*httptest.Server, *capturedRequest) {
	t.Helper()

	captured := &capturedRequest{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		captured.method = r.Method
		captured.path = r.URL.Path
		captured.query = r.URL.Query()
		captured.headers = r.Header.Clone()
		captured.body = string(body)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(respBody))
	}))
	t.Cleanup(srv.Close)

	return srv, captured
}

func storeWithTokens(t *testing.T, expiresAt int64) *auth.TokenStore {
	t.Helper()

	store := auth.NewTokenStore(newMemCreds())
	require.NoError(t, store.Store(&auth.Tokens{
		AccessToken:  "access-abc",
		RefreshToken: "refresh-abc",
		ExpiresAt:    expiresAt,
		TokenType:    "Bearer",
	}, "alice@example.com"))

	return store
}

// --- authentication ---

func TestClient_BearerToken(t *testing.T) {
	srv, captured := testGateway(t, http.StatusOK, `{"balance":42}`)

	store := storeWithTokens(t, time.Now().Add(time.Hour).Unix())
	tokens := &fakeTokenSource{token: "access-abc"}
	c := New(Config{BaseURL: srv.URL, ClientID: "seven-mcp"}, store, tokens, testLogger(), nil)

	raw, err := c.Get(context.Background(), "/balance", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"balance":42}`, string(raw))

	assert.Equal(t, "Bearer access-abc", captured.headers.Get("Authorization"))
	assert.Empty(t, captured.headers.Get("X-Api-Key"))
}

func TestClient_APIKeyFallbackWithoutTokens(t *testing.T) {
	srv, captured := testGateway(t, http.StatusOK, `{}`)

	store := auth.NewTokenStore(newMemCreds())
	c := New(Config{BaseURL: srv.URL, ClientID: "seven-mcp", APIKey: "key-123"}, store, &fakeTokenSource{}, testLogger(), nil)

	_, err := c.Get(context.Background(), "/balance", nil)
	require.NoError(t, err)

	assert.Equal(t, "key-123", captured.headers.Get("X-Api-Key"))
	assert.Empty(t, captured.headers.Get("Authorization"))
}

func TestClient_APIKeyFallbackOnRefreshFailure(t *testing.T) {
	srv, captured := testGateway(t, http.StatusOK, `{}`)

	// Tokens exist but the refresh fails: the API key serves the
	// request instead.
	store := storeWithTokens(t, time.Now().Add(-time.Hour).Unix())
	tokens := &fakeTokenSource{err: errors.New("token endpoint unreachable")}
	c := New(Config{BaseURL: srv.URL, ClientID: "seven-mcp", APIKey: "key-123"}, store, tokens, testLogger(), nil)

	_, err := c.Get(context.Background(), "/balance", nil)
	require.NoError(t, err)

	assert.Equal(t, "key-123", captured.headers.Get("X-Api-Key"))
}

func TestClient_NoAuthMethod(t *testing.T) {
	srv, _ := testGateway(t, http.StatusOK, `{}`)

	store := auth.NewTokenStore(newMemCreds())
	c := New(Config{BaseURL: srv.URL, ClientID: "seven-mcp"}, store, &fakeTokenSource{}, testLogger(), nil)

	_, err := c.Get(context.Background(), "/balance", nil)
	assert.True(t, errors.Is(err, svcerrors.ErrNoAuthMethod))
}

// --- requests ---

func TestClient_GetQuery(t *testing.T) {
	srv, captured := testGateway(t, http.StatusOK, `{}`)

	c := New(Config{BaseURL: srv.URL, APIKey: "k"}, nil, nil, testLogger(), nil)

	_, err := c.Get(context.Background(), "/lookup/hlr", url.Values{"number": {"+491716992343"}})
	require.NoError(t, err)

	assert.Equal(t, http.MethodGet, captured.method)
	assert.Equal(t, "/lookup/hlr", captured.path)
	assert.Equal(t, "+491716992343", captured.query.Get("number"))
	assert.Equal(t, "application/json", captured.headers.Get("Accept"))
}

func TestClient_GetQueryMergesWithExistingParams(t *testing.T) {
	srv, captured := testGateway(t, http.StatusOK, `{}`)

	c := New(Config{BaseURL: srv.URL, APIKey: "k"}, nil, nil, testLogger(), nil)

	_, err := c.Get(context.Background(), "/subaccounts?action=read", url.Values{"id": {"7"}})
	require.NoError(t, err)

	assert.Equal(t, "read", captured.query.Get("action"))
	assert.Equal(t, "7", captured.query.Get("id"))
}

func TestClient_PostJSON(t *testing.T) {
	srv, captured := testGateway(t, http.StatusOK, `{"success":true}`)

	c := New(Config{BaseURL: srv.URL, APIKey: "k"}, nil, nil, testLogger(), nil)

	_, err := c.Post(context.Background(), "/sms", map[string]any{
		"to":   "+491716992343",
		"text": "hello",
	}, false)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, captured.method)
	assert.Equal(t, "application/json", captured.headers.Get("Content-Type"))
	assert.JSONEq(t, `{"to":"+491716992343","text":"hello"}`, captured.body)
}

func TestClient_PostForm(t *testing.T) {
	srv, captured := testGateway(t, http.StatusOK, `{}`)

	c := New(Config{BaseURL: srv.URL, APIKey: "k"}, nil, nil, testLogger(), nil)

	_, err := c.Post(context.Background(), "/contacts", map[string]any{
		"nickname": "Alice",
		"email":    "alice@example.com",
	}, true)
	require.NoError(t, err)

	assert.Equal(t, "application/x-www-form-urlencoded", captured.headers.Get("Content-Type"))

	form, err := url.ParseQuery(captured.body)
	require.NoError(t, err)
	assert.Equal(t, "Alice", form.Get("nickname"))
	assert.Equal(t, "alice@example.com", form.Get("email"))
}

func TestClient_Delete(t *testing.T) {
	srv, captured := testGateway(t, http.StatusOK, `{}`)

	c := New(Config{BaseURL: srv.URL, APIKey: "k"}, nil, nil, testLogger(), nil)

	_, err := c.Delete(context.Background(), "/sms", url.Values{"ids[]": {"1", "2"}})
	require.NoError(t, err)

	assert.Equal(t, http.MethodDelete, captured.method)
	assert.Equal(t, []string{"1", "2"}, captured.query["ids[]"])
}

func TestClient_ErrorStatus(t *testing.T) {
	srv, _ := testGateway(t, http.StatusPaymentRequired, `{"error":"insufficient credit"}`)

	c := New(Config{BaseURL: srv.URL, APIKey: "k"}, nil, nil, testLogger(), nil)

	_, err := c.Get(context.Background(), "/balance", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, svcerrors.ErrAPIRequest))
	assert.Contains(t, err.Error(), "402")
	assert.Contains(t, err.Error(), "insufficient credit")
}

func TestClient_TrimsTrailingSlash(t *testing.T) {
	srv, captured := testGateway(t, http.StatusOK, `{}`)

	c := New(Config{BaseURL: srv.URL + "/", APIKey: "k"}, nil, nil, testLogger(), nil)

	_, err := c.Get(context.Background(), "/balance", nil)
	require.NoError(t, err)
	assert.Equal(t, "/balance", captured.path)
}

// --- form encoding ---

func TestEncodeForm(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]any
		want    string
	}{
		{"strings", map[string]any{"b": "2", "a": "1"}, "a=1&b=2"},
		{"string slice brackets", map[string]any{"ids": []string{"1", "2"}}, "ids%5B%5D=1&ids%5B%5D=2"},
		{"any slice brackets", map[string]any{"ids": []any{1, 2}}, "ids%5B%5D=1&ids%5B%5D=2"},
		{"bool true", map[string]any{"flash": true}, "flash=1"},
		{"bool false", map[string]any{"flash": false}, "flash=0"},
		{"nil skipped", map[string]any{"a": "1", "b": nil}, "a=1"},
		{"number", map[string]any{"delay": 30}, "delay=30"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, encodeForm(tt.payload))
		})
	}
}

// --- redirect policy ---

func TestSameHostRedirectPolicy(t *testing.T) {
	first := httptest.NewRequest("GET", "https://gateway.seven.io/api/balance", nil)

	sameHost := httptest.NewRequest("GET", "https://gateway.seven.io/api/other", nil)
	assert.NoError(t, sameHostRedirectPolicy(sameHost, []*http.Request{first}))

	otherHost := httptest.NewRequest("GET", "https://evil.example.com/steal", nil)
	err := sameHostRedirectPolicy(otherHost, []*http.Request{first})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "different host")

	via := make([]*http.Request, maxRedirects)
	for i := range via {
		via[i] = first
	}
	assert.Error(t, sameHostRedirectPolicy(sameHost, via))
}

func TestClient_SecretNotSentCrossHost(t *testing.T) {
	var leaked string

	other := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		leaked = r.Header.Get("X-Api-Key")
	}))
	defer other.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, other.URL+"/elsewhere", http.StatusFound)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, APIKey: "secret-key"}, nil, nil, testLogger(), nil)

	_, err := c.Get(context.Background(), "/balance", nil)
	require.Error(t, err)
	assert.Empty(t, leaked)
}
